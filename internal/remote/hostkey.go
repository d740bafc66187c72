// Copyright (c) 2025 the vmlink authors
// vmlink - remote VM operations over chat
// This source code is licensed under the MIT license found in the LICENSE file.

package remote

import (
	"fmt"
	"net"

	"golang.org/x/crypto/ssh"
)

// HostKeyStore is the durable trust anchor for accept-and-remember host key
// verification. *db.BunStore satisfies it.
type HostKeyStore interface {
	GetKnownHostKey(hostname string) (string, error)
	AddKnownHostKey(hostname, key string) error
}

// acceptAndRemember returns a host key callback that pins the first key a
// host ever presents and requires an exact match afterwards. A nil store
// accepts any key without remembering it.
func acceptAndRemember(store HostKeyStore) ssh.HostKeyCallback {
	if store == nil {
		return ssh.InsecureIgnoreHostKey()
	}
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		// The hostname passed to the callback can include the port. Strip it
		// so we look up the correct key in the store.
		host, _, err := net.SplitHostPort(hostname)
		if err != nil {
			host = hostname
		}

		presentedKey := string(ssh.MarshalAuthorizedKey(key))

		knownKey, err := store.GetKnownHostKey(host)
		if err != nil {
			return fmt.Errorf("failed to query known_hosts store: %w", err)
		}

		// First contact: remember the presented key.
		if knownKey == "" {
			if err := store.AddKnownHostKey(host, presentedKey); err != nil {
				return fmt.Errorf("failed to pin host key for %s: %w", host, err)
			}
			return nil
		}

		if knownKey != presentedKey {
			return fmt.Errorf("host key mismatch for %s: remote presented %s", host, presentedKey)
		}

		return nil
	}
}

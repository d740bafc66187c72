// Copyright (c) 2025 the vmlink authors
// vmlink - remote VM operations over chat
// This source code is licensed under the MIT license found in the LICENSE file.

package remote

import (
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"testing"

	"golang.org/x/crypto/ssh"
)

type memHostKeys struct {
	keys map[string]string
}

func newMemHostKeys() *memHostKeys {
	return &memHostKeys{keys: make(map[string]string)}
}

func (m *memHostKeys) GetKnownHostKey(hostname string) (string, error) {
	return m.keys[hostname], nil
}

func (m *memHostKeys) AddKnownHostKey(hostname, key string) error {
	m.keys[hostname] = key
	return nil
}

func testPublicKey(t *testing.T) ssh.PublicKey {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		t.Fatalf("convert key: %v", err)
	}
	return sshPub
}

func TestAcceptAndRememberPinsFirstKey(t *testing.T) {
	store := newMemHostKeys()
	cb := acceptAndRemember(store)
	key := testPublicKey(t)

	if err := cb("vm.example.com:22", nil, key); err != nil {
		t.Fatalf("first contact must be accepted: %v", err)
	}
	pinned := store.keys["vm.example.com"]
	if pinned == "" {
		t.Fatalf("first key was not pinned (port must be stripped from the hostname)")
	}
	if !strings.HasPrefix(pinned, "ssh-ed25519 ") {
		t.Fatalf("pinned key has unexpected format: %q", pinned)
	}

	// Same key again: accepted.
	if err := cb("vm.example.com:22", nil, key); err != nil {
		t.Fatalf("matching key must be accepted: %v", err)
	}
}

func TestAcceptAndRememberRejectsChangedKey(t *testing.T) {
	store := newMemHostKeys()
	cb := acceptAndRemember(store)

	if err := cb("vm.example.com:22", nil, testPublicKey(t)); err != nil {
		t.Fatalf("first contact must be accepted: %v", err)
	}
	err := cb("vm.example.com:22", nil, testPublicKey(t))
	if err == nil {
		t.Fatalf("a changed host key must be rejected")
	}
	if !strings.Contains(err.Error(), "mismatch") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAcceptAndRememberNilStoreAcceptsAll(t *testing.T) {
	cb := acceptAndRemember(nil)
	if err := cb("anything:22", nil, testPublicKey(t)); err != nil {
		t.Fatalf("nil store must accept any key: %v", err)
	}
}

// Copyright (c) 2025 the vmlink authors
// vmlink - remote VM operations over chat
// This source code is licensed under the MIT license found in the LICENSE file.

package remote

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the connection/execution taxonomy. Callers discriminate
// with errors.Is.
var (
	// ErrAuthentication covers rejected credentials of either mode.
	ErrAuthentication = errors.New("authentication failed")
	// ErrTransport covers refused, unreachable and protocol-level failures.
	ErrTransport = errors.New("transport failed")
	// ErrTimeout is surfaced when the connect or execute budget is exceeded.
	ErrTimeout = errors.New("operation timed out")
	// ErrNotConnected is returned by Execute outside the Live state.
	ErrNotConnected = errors.New("not connected")
)

// classifyConnectError maps low-level ssh/net dial errors onto the sentinel
// taxonomy. This is a conservative, string-based mapping: the ssh package
// does not expose typed errors for authentication or handshake failures.
func classifyConnectError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unable to authenticate"),
		strings.Contains(msg, "permission denied"),
		strings.Contains(msg, "no supported methods remain"):
		return fmt.Errorf("%w: %v", ErrAuthentication, err)
	case strings.Contains(msg, "i/o timeout"),
		strings.Contains(msg, "timed out"),
		strings.Contains(msg, "context deadline exceeded"):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
}

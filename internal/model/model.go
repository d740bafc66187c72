// Copyright (c) 2025 the vmlink authors
// vmlink - remote VM operations over chat
// This source code is licensed under the MIT license found in the LICENSE file.

// Package model defines the core entities shared by the store, the linker
// and the command runner.
package model

import (
	"fmt"

	"vmlink/internal/security"
)

// Role is the registration role of an identity.
type Role string

const (
	// RoleUnset marks an identity that has made first contact but has not
	// completed registration. This is the single "not registered" state.
	RoleUnset Role = ""
	// RoleIssuer generates one-time codes that subscribers redeem.
	RoleIssuer Role = "issuer"
	// RoleSubscriber links to exactly one issuer via a redeemed code.
	RoleSubscriber Role = "subscriber"
)

// Identity is one row per chat user. UserID is the stable external
// identifier handed to us by the chat transport.
type Identity struct {
	UserID         int64
	DisplayName    string
	Role           Role
	IssuerCode     string // present iff Role == RoleIssuer; globally unique
	LinkedIssuerID int64  // present iff Role == RoleSubscriber
}

// Registered reports whether the identity has completed the linking flow.
func (i Identity) Registered() bool { return i.Role != RoleUnset }

// String returns a short loggable representation.
func (i Identity) String() string {
	return fmt.Sprintf("identity(%d, role=%q)", i.UserID, i.Role)
}

// AuthMethod selects which credential mode a connect attempt uses.
// Exactly one method is tried per attempt, never both.
type AuthMethod string

const (
	AuthPassword AuthMethod = "password"
	AuthKey      AuthMethod = "key"
)

// RemoteCredential is the full connection tuple for a user's remote host.
// Save operations always replace the whole tuple; there are no partial
// updates.
type RemoteCredential struct {
	Host       string
	Port       int // 1-65535, default 22
	Username   string
	Secret     security.Secret // password or PEM-encoded private key
	AuthMethod AuthMethod
}

// Usable reports whether the credential carries everything a connect
// attempt needs.
func (c RemoteCredential) Usable() bool {
	return c.Host != "" && c.Username != "" && !c.Secret.IsZero()
}

// Addr returns the host:port dial target.
func (c RemoteCredential) Addr() string {
	port := c.Port
	if port == 0 {
		port = 22
	}
	return fmt.Sprintf("%s:%d", c.Host, port)
}

// String redacts the secret.
func (c RemoteCredential) String() string {
	return fmt.Sprintf("%s@%s", c.Username, c.Addr())
}

// CommandResult is the outcome of one successful remote execution.
// Stdout and Stderr may be empty but are never absent.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// AuditLogEntry records a durable trail event.
type AuditLogEntry struct {
	ID        int64
	Timestamp string
	UserID    int64
	Action    string
	Details   string
}

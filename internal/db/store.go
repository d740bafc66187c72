// Copyright (c) 2025 the vmlink authors
// vmlink - remote VM operations over chat
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"vmlink/internal/model"
)

// Store defines the interface for all database operations in vmlink.
// This allows for multiple database backends to be implemented.
type Store interface {
	// Identity methods
	GetIdentity(userID int64) (*model.Identity, error)
	UpsertIdentity(identity model.Identity) error
	GetIssuerByCode(code string) (*model.Identity, error)

	// Credential methods
	GetCredential(userID int64) (*model.RemoteCredential, error)
	SaveCredential(userID int64, cred model.RemoteCredential) error

	// Host key methods (accept-and-remember trust)
	GetKnownHostKey(hostname string) (string, error)
	AddKnownHostKey(hostname, key string) error

	// Audit log methods
	LogAction(userID int64, action, details string) error
	GetAllAuditLogEntries() ([]model.AuditLogEntry, error)

	Close() error
}

// Copyright (c) 2025 the vmlink authors
// vmlink - remote VM operations over chat
// This source code is licensed under the MIT license found in the LICENSE file.

package runner

import (
	"fmt"

	"vmlink/internal/db"
	"vmlink/internal/model"
)

// CredentialSource is the slice of the store the directory reads from.
// *db.BunStore satisfies it.
type CredentialSource interface {
	GetIdentity(userID int64) (*model.Identity, error)
	GetCredential(userID int64) (*model.RemoteCredential, error)
}

// Directory resolves a user to their stored remote credential. It is a pure
// read-through: no caching, so every call reflects the latest saved value.
type Directory struct {
	store CredentialSource
}

// NewDirectory returns a directory over the given store.
func NewDirectory(store CredentialSource) *Directory {
	return &Directory{store: store}
}

// Resolve returns the credential for userID, db.ErrNotRegistered when no
// identity row exists, or ErrNoCredentials when the identity has no usable
// credential saved.
func (d *Directory) Resolve(userID int64) (model.RemoteCredential, error) {
	ident, err := d.store.GetIdentity(userID)
	if err != nil {
		return model.RemoteCredential{}, fmt.Errorf("resolve identity %d: %w", userID, err)
	}
	if ident == nil {
		return model.RemoteCredential{}, fmt.Errorf("resolve user %d: %w", userID, db.ErrNotRegistered)
	}

	cred, err := d.store.GetCredential(userID)
	if err != nil {
		return model.RemoteCredential{}, fmt.Errorf("resolve credential %d: %w", userID, err)
	}
	if cred == nil || !cred.Usable() {
		return model.RemoteCredential{}, fmt.Errorf("resolve user %d: %w", userID, ErrNoCredentials)
	}
	return *cred, nil
}

// Copyright (c) 2025 the vmlink authors
// vmlink - remote VM operations over chat
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"vmlink/internal/model"
	"vmlink/internal/security"
)

// IdentityModel maps the `identities` table for Bun queries.
type IdentityModel struct {
	bun.BaseModel  `bun:"table:identities"`
	UserID         int64          `bun:"user_id,pk"`
	DisplayName    string         `bun:"display_name"`
	Role           string         `bun:"role"`
	IssuerCode     sql.NullString `bun:"issuer_code"`
	LinkedIssuerID sql.NullInt64  `bun:"linked_issuer_id"`
}

// CredentialModel maps the `credentials` table.
type CredentialModel struct {
	bun.BaseModel `bun:"table:credentials"`
	UserID        int64           `bun:"user_id,pk"`
	Host          string          `bun:"host"`
	Port          int             `bun:"port"`
	Username      string          `bun:"username"`
	Secret        security.Secret `bun:"secret,type:blob"`
	AuthMethod    string          `bun:"auth_method"`
}

// KnownHostModel maps `known_hosts`.
type KnownHostModel struct {
	bun.BaseModel `bun:"table:known_hosts"`
	Hostname      string `bun:"hostname,pk"`
	Key           string `bun:"key"`
}

// AuditLogModel maps the `audit_log` table.
type AuditLogModel struct {
	bun.BaseModel `bun:"table:audit_log"`
	ID            int64  `bun:"id,pk,autoincrement"`
	Timestamp     string `bun:"timestamp"`
	UserID        int64  `bun:"user_id"`
	Action        string `bun:"action"`
	Details       string `bun:"details"`
}

// --- Mapping helpers (centralized conversions) ---

func identityModelToModel(im IdentityModel) model.Identity {
	ident := model.Identity{
		UserID:      im.UserID,
		DisplayName: im.DisplayName,
		Role:        model.Role(im.Role),
	}
	if im.IssuerCode.Valid {
		ident.IssuerCode = im.IssuerCode.String
	}
	if im.LinkedIssuerID.Valid {
		ident.LinkedIssuerID = im.LinkedIssuerID.Int64
	}
	return ident
}

func identityToBunModel(ident model.Identity) IdentityModel {
	im := IdentityModel{
		UserID:      ident.UserID,
		DisplayName: ident.DisplayName,
		Role:        string(ident.Role),
	}
	// Store absent code/link as NULL so the unique constraint on issuer_code
	// only ever compares real codes.
	if ident.IssuerCode != "" {
		im.IssuerCode = sql.NullString{String: ident.IssuerCode, Valid: true}
	}
	if ident.LinkedIssuerID != 0 {
		im.LinkedIssuerID = sql.NullInt64{Int64: ident.LinkedIssuerID, Valid: true}
	}
	return im
}

func credentialModelToModel(cm CredentialModel) model.RemoteCredential {
	return model.RemoteCredential{
		Host:       cm.Host,
		Port:       cm.Port,
		Username:   cm.Username,
		Secret:     cm.Secret,
		AuthMethod: model.AuthMethod(cm.AuthMethod),
	}
}

// BunStore is the Bun-backed implementation of the Store interface. A single
// implementation serves SQLite, PostgreSQL and MySQL; none of the queries
// here are dialect-specific.
type BunStore struct {
	bun *bun.DB
}

// GetIdentity retrieves an identity by user id. A missing row is a state,
// not an error: it returns (nil, nil).
func (s *BunStore) GetIdentity(userID int64) (*model.Identity, error) {
	ctx := context.Background()
	var im IdentityModel
	err := s.bun.NewSelect().Model(&im).Where("user_id = ?", userID).Limit(1).Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	ident := identityModelToModel(im)
	return &ident, nil
}

// UpsertIdentity atomically replaces the identity row for its user id,
// inserting it when absent. A unique-constraint violation on issuer_code is
// mapped to ErrDuplicate and leaves prior state untouched.
func (s *BunStore) UpsertIdentity(identity model.Identity) error {
	ctx := context.Background()
	im := identityToBunModel(identity)

	tx, err := s.bun.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.NewUpdate().Model(&im).WherePK().Exec(ctx)
	if err != nil {
		return MapDBError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, err := tx.NewInsert().Model(&im).Exec(ctx); err != nil {
			return MapDBError(err)
		}
	}
	return tx.Commit()
}

// GetIssuerByCode finds the issuer identity holding the given code.
// Matching is case-sensitive and exact. Returns (nil, nil) when no issuer
// holds the code.
func (s *BunStore) GetIssuerByCode(code string) (*model.Identity, error) {
	ctx := context.Background()
	var im IdentityModel
	err := s.bun.NewSelect().Model(&im).
		Where("issuer_code = ?", code).
		Where("role = ?", string(model.RoleIssuer)).
		Limit(1).Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	ident := identityModelToModel(im)
	return &ident, nil
}

// GetCredential retrieves the stored remote credential for a user, or
// (nil, nil) when none has been saved.
func (s *BunStore) GetCredential(userID int64) (*model.RemoteCredential, error) {
	ctx := context.Background()
	var cm CredentialModel
	err := s.bun.NewSelect().Model(&cm).Where("user_id = ?", userID).Limit(1).Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	cred := credentialModelToModel(cm)
	return &cred, nil
}

// SaveCredential replaces the full credential tuple for a user in one
// transaction. It fails with ErrNotRegistered when no identity row exists.
func (s *BunStore) SaveCredential(userID int64, cred model.RemoteCredential) error {
	ctx := context.Background()

	tx, err := s.bun.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	exists, err := tx.NewSelect().Model((*IdentityModel)(nil)).Where("user_id = ?", userID).Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("save credential for user %d: %w", userID, ErrNotRegistered)
	}

	// Full-tuple replace: no partial updates are ever exposed.
	if _, err := tx.NewDelete().Model((*CredentialModel)(nil)).Where("user_id = ?", userID).Exec(ctx); err != nil {
		return err
	}
	port := cred.Port
	if port == 0 {
		port = 22
	}
	cm := CredentialModel{
		UserID:     userID,
		Host:       cred.Host,
		Port:       port,
		Username:   cred.Username,
		Secret:     cred.Secret,
		AuthMethod: string(cred.AuthMethod),
	}
	if cm.AuthMethod == "" {
		cm.AuthMethod = string(model.AuthPassword)
	}
	if _, err := tx.NewInsert().Model(&cm).Exec(ctx); err != nil {
		return MapDBError(err)
	}
	return tx.Commit()
}

// GetKnownHostKey retrieves the trusted public key for a given hostname.
// No key found is not an error, it's a state.
func (s *BunStore) GetKnownHostKey(hostname string) (string, error) {
	ctx := context.Background()
	var kh KnownHostModel
	err := s.bun.NewSelect().Model(&kh).Where("hostname = ?", hostname).Limit(1).Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return kh.Key, nil
}

// AddKnownHostKey pins a host key, replacing any existing entry. Replacing
// is useful if a host is legitimately re-provisioned.
func (s *BunStore) AddKnownHostKey(hostname, key string) error {
	ctx := context.Background()

	tx, err := s.bun.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.NewDelete().Model((*KnownHostModel)(nil)).Where("hostname = ?", hostname).Exec(ctx); err != nil {
		return err
	}
	if _, err := tx.NewInsert().Model(&KnownHostModel{Hostname: hostname, Key: key}).Exec(ctx); err != nil {
		return MapDBError(err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	_ = s.LogAction(0, "TRUST_HOST", fmt.Sprintf("hostname: %s", hostname))
	return nil
}

// LogAction records an audit trail event. Best-effort callers may ignore
// the returned error.
func (s *BunStore) LogAction(userID int64, action, details string) error {
	ctx := context.Background()
	entry := AuditLogModel{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		UserID:    userID,
		Action:    action,
		Details:   details,
	}
	_, err := s.bun.NewInsert().Model(&entry).Exec(ctx)
	return err
}

// GetAllAuditLogEntries retrieves all audit entries, most recent first.
func (s *BunStore) GetAllAuditLogEntries() ([]model.AuditLogEntry, error) {
	ctx := context.Background()
	var rows []AuditLogModel
	if err := s.bun.NewSelect().Model(&rows).OrderExpr("id DESC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.AuditLogEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.AuditLogEntry{
			ID:        r.ID,
			Timestamp: r.Timestamp,
			UserID:    r.UserID,
			Action:    r.Action,
			Details:   r.Details,
		})
	}
	return out, nil
}

// Close releases the underlying database handle.
func (s *BunStore) Close() error {
	return s.bun.Close()
}

// Copyright (c) 2025 the vmlink authors
// vmlink - remote VM operations over chat
// This source code is licensed under the MIT license found in the LICENSE file.

// Package linker implements the two-role registration state machine:
// issuers receive a unique one-time code, subscribers redeem one to link to
// an issuer. Re-registration attempts are idempotent no-ops.
package linker

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"vmlink/internal/db"
	"vmlink/internal/logging"
	"vmlink/internal/model"
)

// maxCodeAttempts bounds retry-on-collision during issuer code generation.
const maxCodeAttempts = 5

var (
	// ErrInvalidCode is returned when a submitted code matches no issuer.
	// The subscriber stays in the awaiting-code state and may retry.
	ErrInvalidCode = errors.New("invalid issuer code")
	// ErrCodeGenerationExhausted is returned after bounded retries all
	// collided with existing issuer codes.
	ErrCodeGenerationExhausted = errors.New("issuer code generation exhausted")
	// ErrNotAwaitingCode is returned when a code is submitted outside the
	// awaiting-code state.
	ErrNotAwaitingCode = errors.New("not awaiting a code")
)

// LinkStore is the slice of the store the linker reads and writes.
// *db.BunStore satisfies it.
type LinkStore interface {
	GetIdentity(userID int64) (*model.Identity, error)
	UpsertIdentity(identity model.Identity) error
	GetIssuerByCode(code string) (*model.Identity, error)
	LogAction(userID int64, action, details string) error
}

// Result reports the outcome of a registration event.
type Result struct {
	Role         model.Role
	IssuerCode   string // set for issuers
	Already      bool   // the user was registered before this event
	AwaitingCode bool   // subscriber flow started, waiting for a code
}

// Linker drives the registration state machine. The awaiting-code mark is
// held in memory; durable state lives in the store.
type Linker struct {
	store LinkStore

	mu      sync.Mutex
	pending map[int64]struct{}

	// generateCode is a seam so tests can force collisions.
	generateCode func() (string, error)
}

// New returns a linker over the given store.
func New(store LinkStore) *Linker {
	return &Linker{
		store:        store,
		pending:      make(map[int64]struct{}),
		generateCode: randomCode,
	}
}

// EnsureIdentity creates a role-less identity row on first contact. It is
// idempotent and never touches an existing row's role.
func (l *Linker) EnsureIdentity(userID int64, displayName string) (*model.Identity, error) {
	ident, err := l.store.GetIdentity(userID)
	if err != nil {
		return nil, err
	}
	if ident != nil {
		return ident, nil
	}
	fresh := model.Identity{UserID: userID, DisplayName: displayName}
	if err := l.store.UpsertIdentity(fresh); err != nil {
		return nil, err
	}
	_ = l.store.LogAction(userID, "FIRST_CONTACT", fmt.Sprintf("name: %s", displayName))
	return &fresh, nil
}

// ChooseIssuer registers the user as an issuer with a freshly generated
// unique code. Already-registered users get their existing role back
// unchanged.
func (l *Linker) ChooseIssuer(userID int64, displayName string) (Result, error) {
	ident, err := l.EnsureIdentity(userID, displayName)
	if err != nil {
		return Result{}, err
	}
	if ident.Registered() {
		return Result{Role: ident.Role, IssuerCode: ident.IssuerCode, Already: true}, nil
	}

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := l.generateCode()
		if err != nil {
			return Result{}, fmt.Errorf("generate issuer code: %w", err)
		}
		next := *ident
		next.Role = model.RoleIssuer
		next.IssuerCode = code

		// The store's unique constraint makes check-then-insert atomic;
		// a losing race surfaces as ErrDuplicate and we retry.
		err = l.store.UpsertIdentity(next)
		if errors.Is(err, db.ErrDuplicate) {
			logging.Debugf("linker: issuer code collision for user %d (attempt %d)", userID, attempt)
			continue
		}
		if err != nil {
			return Result{}, err
		}
		l.clearPending(userID)
		_ = l.store.LogAction(userID, "REGISTER_ISSUER", fmt.Sprintf("code: %s", code))
		return Result{Role: model.RoleIssuer, IssuerCode: code}, nil
	}
	return Result{}, fmt.Errorf("after %d attempts: %w", maxCodeAttempts, ErrCodeGenerationExhausted)
}

// ChooseSubscriber moves the user into the awaiting-code state. Already
// registered users get their existing role back unchanged.
func (l *Linker) ChooseSubscriber(userID int64, displayName string) (Result, error) {
	ident, err := l.EnsureIdentity(userID, displayName)
	if err != nil {
		return Result{}, err
	}
	if ident.Registered() {
		return Result{Role: ident.Role, IssuerCode: ident.IssuerCode, Already: true}, nil
	}

	l.mu.Lock()
	l.pending[userID] = struct{}{}
	l.mu.Unlock()
	return Result{Role: model.RoleSubscriber, AwaitingCode: true}, nil
}

// SubmitCode redeems an issuer code for a user in the awaiting-code state.
// A code matching no issuer surfaces ErrInvalidCode and the user stays in
// awaiting-code; a match links the subscriber terminally.
func (l *Linker) SubmitCode(userID int64, displayName, code string) (Result, error) {
	ident, err := l.EnsureIdentity(userID, displayName)
	if err != nil {
		return Result{}, err
	}
	if ident.Registered() {
		return Result{Role: ident.Role, IssuerCode: ident.IssuerCode, Already: true}, nil
	}

	l.mu.Lock()
	_, awaiting := l.pending[userID]
	l.mu.Unlock()
	if !awaiting {
		return Result{}, ErrNotAwaitingCode
	}

	issuer, err := l.store.GetIssuerByCode(code)
	if err != nil {
		return Result{}, err
	}
	if issuer == nil {
		return Result{AwaitingCode: true}, fmt.Errorf("code %q: %w", code, ErrInvalidCode)
	}

	next := *ident
	next.Role = model.RoleSubscriber
	next.LinkedIssuerID = issuer.UserID
	if err := l.store.UpsertIdentity(next); err != nil {
		return Result{}, err
	}
	l.clearPending(userID)
	_ = l.store.LogAction(userID, "REGISTER_SUBSCRIBER", fmt.Sprintf("issuer: %d", issuer.UserID))
	return Result{Role: model.RoleSubscriber}, nil
}

// Reset abandons a pending code entry. It never touches stored state.
func (l *Linker) Reset(userID int64) {
	l.clearPending(userID)
}

// Awaiting reports whether the user is in the awaiting-code state.
func (l *Linker) Awaiting(userID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.pending[userID]
	return ok
}

func (l *Linker) clearPending(userID int64) {
	l.mu.Lock()
	delete(l.pending, userID)
	l.mu.Unlock()
}

// randomCode produces an 8-hex-char one-time code, short enough to retype
// from another screen.
func randomCode() (string, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf[:]), nil
}

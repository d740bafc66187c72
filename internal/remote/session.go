// Copyright (c) 2025 the vmlink authors
// vmlink - remote VM operations over chat
// This source code is licensed under the MIT license found in the LICENSE file.

// Package remote manages single-use authenticated SSH sessions: connect,
// execute one command within a bounded time budget, classify failures, and
// guarantee the transport is closed on every exit path.
package remote

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"vmlink/internal/logging"
	"vmlink/internal/model"
)

// ConnectionConfig bounds the two blocking operations of a session.
type ConnectionConfig struct {
	ConnectTimeout time.Duration
	ExecTimeout    time.Duration
}

// DefaultConnectionConfig returns the standard budgets: 10s to connect,
// 15s per command.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		ConnectTimeout: 10 * time.Second,
		ExecTimeout:    15 * time.Second,
	}
}

// State is the lifecycle phase of a session.
type State int32

const (
	StateUnconnected State = iota
	StateAuthenticating
	StateLive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnconnected:
		return "unconnected"
	case StateAuthenticating:
		return "authenticating"
	case StateLive:
		return "live"
	default:
		return "closed"
	}
}

// Session is one authenticated connection to a remote host, used for
// exactly one command invocation. It is not safe for concurrent use; each
// unit of work owns its session for its whole lifetime.
//
// Lifecycle: Unconnected -> Authenticating -> Live -> Closed, with
// Authenticating -> Closed on failure (terminal, never retried).
type Session struct {
	cred     model.RemoteCredential
	hostKeys HostKeyStore
	cfg      ConnectionConfig

	state  State
	client sshClientIface
}

// NewSession builds an unconnected session for the given credential.
// hostKeys may be nil, in which case host keys are not verified.
func NewSession(cred model.RemoteCredential, hostKeys HostKeyStore) *Session {
	return NewSessionWithConfig(cred, hostKeys, DefaultConnectionConfig())
}

// NewSessionWithConfig is NewSession with explicit time budgets.
func NewSessionWithConfig(cred model.RemoteCredential, hostKeys HostKeyStore, cfg ConnectionConfig) *Session {
	return &Session{cred: cred, hostKeys: hostKeys, cfg: cfg, state: StateUnconnected}
}

// State reports the current lifecycle phase.
func (s *Session) State() State { return s.state }

// authMethod selects exactly one credential mode for this connect attempt:
// password when the credential says so, otherwise parsed key material.
// Never both in one attempt.
func (s *Session) authMethod() (ssh.AuthMethod, error) {
	switch s.cred.AuthMethod {
	case model.AuthKey:
		signer, err := ssh.ParsePrivateKey(s.cred.Secret.Bytes())
		if err != nil {
			return nil, fmt.Errorf("%w: unable to parse private key: %v", ErrAuthentication, err)
		}
		return ssh.PublicKeys(signer), nil
	default:
		return ssh.Password(string(s.cred.Secret.Bytes())), nil
	}
}

// Connect authenticates against the remote host. On failure the session is
// closed terminally; a fresh Session is required for another attempt.
func (s *Session) Connect(ctx context.Context) error {
	if s.state != StateUnconnected {
		return fmt.Errorf("connect called in state %s", s.state)
	}
	s.state = StateAuthenticating

	auth, err := s.authMethod()
	if err != nil {
		s.state = StateClosed
		return err
	}

	config := &ssh.ClientConfig{
		User:            s.cred.Username,
		Auth:            []ssh.AuthMethod{auth},
		HostKeyCallback: acceptAndRemember(s.hostKeys),
		Timeout:         s.cfg.ConnectTimeout,
	}

	addr := s.cred.Addr()
	logging.Debugf("remote: connecting to %s as %s (%s auth)", addr, s.cred.Username, s.cred.AuthMethod)

	// The dial blocks on network I/O; run it off this goroutine so the
	// caller's context keeps authority over the wait.
	type dialResult struct {
		client sshClientIface
		err    error
	}
	done := make(chan dialResult, 1)
	go func() {
		client, err := sshDial("tcp", addr, config)
		done <- dialResult{client: client, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			s.state = StateClosed
			logging.Warnf("remote: connect to %s failed: %v", addr, res.err)
			return classifyConnectError(res.err)
		}
		s.client = res.client
		s.state = StateLive
		logging.Infof("remote: connected to %s", addr)
		return nil
	case <-ctx.Done():
		s.state = StateClosed
		// Close whatever the dial eventually produces.
		go func() {
			if res := <-done; res.client != nil {
				_ = res.client.Close()
			}
		}()
		return fmt.Errorf("%w: connect to %s: %v", ErrTimeout, addr, ctx.Err())
	}
}

// Execute runs one command on the live session and captures its complete
// output streams. It is only callable in the Live state. Exceeding the
// execution budget force-closes the session and surfaces ErrTimeout.
func (s *Session) Execute(ctx context.Context, command string) (model.CommandResult, error) {
	if s.state != StateLive {
		return model.CommandResult{}, fmt.Errorf("%w: session is %s", ErrNotConnected, s.state)
	}

	logging.Debugf("remote: executing on %s: %s", s.cred.Host, command)

	type execResult struct {
		stdout, stderr []byte
		exitCode       int
		err            error
	}
	done := make(chan execResult, 1)
	client := s.client
	go func() {
		stdout, stderr, code, err := client.Exec(command)
		done <- execResult{stdout: stdout, stderr: stderr, exitCode: code, err: err}
	}()

	timer := time.NewTimer(s.cfg.ExecTimeout)
	defer timer.Stop()

	select {
	case res := <-done:
		if res.err != nil {
			return model.CommandResult{}, classifyConnectError(res.err)
		}
		return model.CommandResult{
			Stdout:   decodePermissive(res.stdout),
			Stderr:   decodePermissive(res.stderr),
			ExitCode: res.exitCode,
		}, nil
	case <-timer.C:
		// The command overran its budget; the only cancellation mechanism
		// is tearing the transport down.
		s.Close()
		return model.CommandResult{}, fmt.Errorf("%w: command exceeded %s", ErrTimeout, s.cfg.ExecTimeout)
	case <-ctx.Done():
		s.Close()
		return model.CommandResult{}, fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
	}
}

// Close transitions to Closed unconditionally. It is idempotent and safe to
// call from any state, including already-Closed.
func (s *Session) Close() {
	if s.state == StateClosed {
		return
	}
	s.state = StateClosed
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			logging.Debugf("remote: close of %s reported: %v", s.cred.Host, err)
		}
		s.client = nil
	}
}

// decodePermissive converts raw output bytes to a string, replacing any
// invalid UTF-8 sequences instead of failing. Trailing newlines are kept;
// callers trim where presentation requires it.
func decodePermissive(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}

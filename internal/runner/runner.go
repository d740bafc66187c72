// Copyright (c) 2025 the vmlink authors
// vmlink - remote VM operations over chat
// This source code is licensed under the MIT license found in the LICENSE file.

// Package runner orchestrates one remote operation end to end: resolve the
// user's credential, open a session, run exactly one command line, classify
// the result, and release the session on every path.
package runner

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"vmlink/internal/logging"
	"vmlink/internal/model"
	"vmlink/internal/remote"
)

// OpKind enumerates the supported remote operations.
type OpKind int

const (
	// OpProbe is a connectivity check.
	OpProbe OpKind = iota
	// OpList lists a remote directory.
	OpList
	// OpReadFile reads a remote text file after a type probe.
	OpReadFile
)

// Operation is one requested remote action.
type Operation struct {
	Kind OpKind
	Path string
}

// Probe returns the connectivity-check operation.
func Probe() Operation { return Operation{Kind: OpProbe} }

// List returns a directory listing operation; an empty path means the
// remote user's home directory.
func List(path string) Operation { return Operation{Kind: OpList, Path: path} }

// ReadFile returns a file read operation.
func ReadFile(path string) Operation { return Operation{Kind: OpReadFile, Path: path} }

// session is the lifecycle surface the runner drives. *remote.Session
// satisfies it; tests substitute fakes through the factory seam.
type session interface {
	Connect(ctx context.Context) error
	Execute(ctx context.Context, command string) (model.CommandResult, error)
	Close()
}

// Runner executes operations against users' remote hosts.
type Runner struct {
	dir      *Directory
	hostKeys remote.HostKeyStore
	cfg      remote.ConnectionConfig

	// newSession is a seam so tests can observe session lifecycles.
	newSession func(cred model.RemoteCredential) session
}

// New builds a runner over the given credential source. hostKeys may be the
// same store; nil disables host key pinning.
func New(store CredentialSource, hostKeys remote.HostKeyStore) *Runner {
	r := &Runner{
		dir:      NewDirectory(store),
		hostKeys: hostKeys,
		cfg:      remote.DefaultConnectionConfig(),
	}
	r.newSession = func(cred model.RemoteCredential) session {
		return remote.NewSessionWithConfig(cred, r.hostKeys, r.cfg)
	}
	return r
}

// Run resolves the user's credential, opens a session, executes the single
// command line the operation maps to, and always closes the session before
// returning, success or failure.
func (r *Runner) Run(ctx context.Context, userID int64, op Operation) (model.CommandResult, error) {
	runID := uuid.NewString()[:8]

	cred, err := r.dir.Resolve(userID)
	if err != nil {
		return model.CommandResult{}, err
	}

	sess := r.newSession(cred)
	defer sess.Close()

	logging.Infof("runner[%s]: user %d -> %s", runID, userID, cred)

	if err := sess.Connect(ctx); err != nil {
		return model.CommandResult{}, err
	}

	if op.Kind == OpReadFile {
		// Type probe first; no file content is fetched for non-text files.
		probe, err := sess.Execute(ctx, "file -bL --mime-type "+shellQuote(op.Path))
		if err != nil {
			return model.CommandResult{}, err
		}
		if probe.ExitCode != 0 {
			return model.CommandResult{}, &RemoteExitError{ExitCode: probe.ExitCode, Stderr: probe.Stderr}
		}
		mime := strings.TrimSpace(probe.Stdout)
		if !textualMIME(mime) {
			return model.CommandResult{}, fmt.Errorf("%w: %s is %s", ErrNotTextFile, op.Path, mime)
		}
	}

	result, err := sess.Execute(ctx, commandFor(op))
	if err != nil {
		return model.CommandResult{}, err
	}
	if result.ExitCode != 0 {
		return result, &RemoteExitError{ExitCode: result.ExitCode, Stderr: result.Stderr}
	}

	logging.Debugf("runner[%s]: done (stdout %d bytes)", runID, len(result.Stdout))
	return result, nil
}

// commandFor maps an operation to exactly one remote command line.
func commandFor(op Operation) string {
	switch op.Kind {
	case OpList:
		path := op.Path
		if path == "" {
			path = "."
		}
		return "ls -la " + shellQuote(path)
	case OpReadFile:
		return "cat " + shellQuote(op.Path)
	default:
		return "echo Connection test successful"
	}
}

// textualMIME reports whether a probed MIME type is safe to read as text.
// Empty files probe as inode/x-empty and are considered readable.
func textualMIME(mime string) bool {
	return strings.HasPrefix(mime, "text/") || mime == "inode/x-empty"
}

// shellQuote single-quotes an argument for the remote shell.
func shellQuote(arg string) string {
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}

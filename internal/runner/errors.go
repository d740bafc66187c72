// Copyright (c) 2025 the vmlink authors
// vmlink - remote VM operations over chat
// This source code is licensed under the MIT license found in the LICENSE file.

package runner

import (
	"errors"
	"fmt"
)

// ErrNoCredentials is returned when a registered user has not saved a
// remote credential yet.
var ErrNoCredentials = errors.New("no credentials stored")

// ErrNotTextFile is returned when a file read is refused because the remote
// type probe reported a non-textual MIME type.
var ErrNotTextFile = errors.New("not a text file")

// ErrRemoteExit marks a remote command that completed with a non-zero exit
// status. Use errors.Is against this sentinel and errors.As against
// *RemoteExitError to recover the stderr text.
var ErrRemoteExit = errors.New("remote command failed")

// RemoteExitError carries the remote exit status and stderr so callers can
// present the failure; the non-zero exit is data, never silently swallowed.
type RemoteExitError struct {
	ExitCode int
	Stderr   string
}

func (e *RemoteExitError) Error() string {
	return fmt.Sprintf("remote command failed with exit status %d", e.ExitCode)
}

// Is makes errors.Is(err, ErrRemoteExit) hold for this type.
func (e *RemoteExitError) Is(target error) bool { return target == ErrRemoteExit }

// Copyright (c) 2025 the vmlink authors
// vmlink - remote VM operations over chat
// This source code is licensed under the MIT license found in the LICENSE file.

package remote

import (
	"bytes"

	"golang.org/x/crypto/ssh"
)

// sshClientIface is the minimal client surface the session needs. Tests
// inject fakes through the sshDial seam instead of constructing a real
// *ssh.Client.
type sshClientIface interface {
	// Exec runs one command and returns its complete output streams and
	// exit status. A non-zero exit is reported through exitCode, not err.
	Exec(command string) (stdout, stderr []byte, exitCode int, err error)
	Close() error
}

// sshDial is a package-level seam so tests can substitute the dialer.
var sshDial = func(network, addr string, cfg *ssh.ClientConfig) (sshClientIface, error) {
	client, err := ssh.Dial(network, addr, cfg)
	if err != nil {
		return nil, err
	}
	return &realSSHClient{client: client}, nil
}

// realSSHClient adapts *ssh.Client to sshClientIface.
type realSSHClient struct {
	client *ssh.Client
}

func (r *realSSHClient) Exec(command string) ([]byte, []byte, int, error) {
	sess, err := r.client.NewSession()
	if err != nil {
		return nil, nil, 0, err
	}
	defer sess.Close()

	var stdout, stderr bytes.Buffer
	sess.Stdout = &stdout
	sess.Stderr = &stderr

	err = sess.Run(command)
	if err != nil {
		// A non-zero exit status is data, not a transport failure.
		if exitErr, ok := err.(*ssh.ExitError); ok {
			return stdout.Bytes(), stderr.Bytes(), exitErr.ExitStatus(), nil
		}
		return stdout.Bytes(), stderr.Bytes(), 0, err
	}
	return stdout.Bytes(), stderr.Bytes(), 0, nil
}

func (r *realSSHClient) Close() error {
	return r.client.Close()
}

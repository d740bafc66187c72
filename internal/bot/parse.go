// Copyright (c) 2025 the vmlink authors
// vmlink - remote VM operations over chat
// This source code is licensed under the MIT license found in the LICENSE file.

package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"vmlink/internal/model"
	"vmlink/internal/security"
)

// ErrInvalidArguments covers malformed host:port values and wrong argument
// counts. It is always raised before any network or store activity.
var ErrInvalidArguments = errors.New("invalid arguments")

// ErrInvalidPort narrows ErrInvalidArguments to out-of-range or non-numeric
// port values, so replies can name the port specifically.
var ErrInvalidPort = fmt.Errorf("%w: invalid port", ErrInvalidArguments)

// parseHostPort accepts "host" or "host:port" and validates the port range.
func parseHostPort(s string) (host string, port int, err error) {
	port = 22
	host = s
	if idx := strings.LastIndex(s, ":"); idx >= 0 {
		host = s[:idx]
		portStr := s[idx+1:]
		p, convErr := strconv.Atoi(portStr)
		if convErr != nil || p < 1 || p > 65535 {
			return "", 0, fmt.Errorf("%w: %q must be an integer in [1, 65535]", ErrInvalidPort, portStr)
		}
		port = p
	}
	if host == "" {
		return "", 0, fmt.Errorf("%w: empty host", ErrInvalidArguments)
	}
	return host, port, nil
}

// parseVMPath parses "/vmpath host[:port] user secret" into a full
// credential tuple. The credential mode is selected here, once: PEM-looking
// secrets become key credentials, everything else is a password.
func parseVMPath(args []string) (model.RemoteCredential, error) {
	if len(args) != 3 {
		return model.RemoteCredential{}, fmt.Errorf("%w: want host[:port] user secret", ErrInvalidArguments)
	}
	host, port, err := parseHostPort(args[0])
	if err != nil {
		return model.RemoteCredential{}, err
	}
	username, secret := args[1], args[2]
	if username == "" || secret == "" {
		return model.RemoteCredential{}, fmt.Errorf("%w: empty username or secret", ErrInvalidArguments)
	}

	method := model.AuthPassword
	if strings.HasPrefix(secret, "-----BEGIN") {
		method = model.AuthKey
	}
	return model.RemoteCredential{
		Host:       host,
		Port:       port,
		Username:   username,
		Secret:     security.FromString(secret),
		AuthMethod: method,
	}, nil
}

// splitCommand splits a message into the command word and its arguments.
// The command is lowercased; arguments keep their case.
func splitCommand(text string) (cmd string, args []string) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return "", nil
	}
	return strings.ToLower(fields[0]), fields[1:]
}

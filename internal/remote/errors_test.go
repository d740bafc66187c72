// Copyright (c) 2025 the vmlink authors
// vmlink - remote VM operations over chat
// This source code is licensed under the MIT license found in the LICENSE file.

package remote

import (
	"errors"
	"testing"
)

func TestClassifyConnectError(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"auth methods", errors.New("ssh: unable to authenticate, attempted methods [none password]"), ErrAuthentication},
		{"permission denied", errors.New("ssh: handshake failed: permission denied"), ErrAuthentication},
		{"no methods remain", errors.New("ssh: no supported methods remain"), ErrAuthentication},
		{"io timeout", errors.New("dial tcp 10.0.0.1:22: i/o timeout"), ErrTimeout},
		{"deadline", errors.New("context deadline exceeded"), ErrTimeout},
		{"refused", errors.New("dial tcp 10.0.0.1:22: connect: connection refused"), ErrTransport},
		{"dns", errors.New("dial tcp: lookup nosuchhost: no such host"), ErrTransport},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classifyConnectError(tc.in)
			if tc.want == nil {
				if got != nil {
					t.Fatalf("expected nil, got %v", got)
				}
				return
			}
			if !errors.Is(got, tc.want) {
				t.Fatalf("classifyConnectError(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

// Copyright (c) 2025 the vmlink authors
// vmlink - remote VM operations over chat
// This source code is licensed under the MIT license found in the LICENSE file.

package security

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
)

func TestSecretRedactsInFormatting(t *testing.T) {
	s := FromString("hunter2")
	for _, got := range []string{
		s.String(),
		fmt.Sprintf("%v", s),
		fmt.Sprintf("%s", s),
		fmt.Sprintf("%+v", s),
		fmt.Sprintf("%#v", s),
		s.Redacted(),
	} {
		if got != "[SECRET]" {
			t.Fatalf("secret leaked: %q", got)
		}
	}
}

func TestSecretRedactsInJSON(t *testing.T) {
	s := FromString("hunter2")
	data, err := json.Marshal(struct{ Password Secret }{s})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if bytes.Contains(data, []byte("hunter2")) {
		t.Fatalf("secret leaked into JSON: %s", data)
	}
}

func TestSecretBytesReturnsCopy(t *testing.T) {
	s := FromString("hunter2")
	b := s.Bytes()
	if string(b) != "hunter2" {
		t.Fatalf("unexpected bytes %q", b)
	}
	b[0] = 'X'
	if string(s.Bytes()) != "hunter2" {
		t.Fatalf("Bytes must return a copy")
	}
}

func TestSecretZero(t *testing.T) {
	s := FromString("hunter2")
	s.Zero()
	for _, b := range s.Bytes() {
		if b != 0 {
			t.Fatalf("Zero left material behind")
		}
	}
	if s.IsZero() {
		t.Fatalf("a zeroed slice still has length; IsZero should be false")
	}
	var empty Secret
	if !empty.IsZero() {
		t.Fatalf("empty secret should be zero")
	}
}

func TestSecretSQLRoundTrip(t *testing.T) {
	s := FromString("hunter2")
	v, err := s.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var back Secret
	if err := back.Scan(v); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if string(back.Bytes()) != "hunter2" {
		t.Fatalf("round trip lost data: %q", back.Bytes())
	}

	if err := back.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) failed: %v", err)
	}
	if !back.IsZero() {
		t.Fatalf("Scan(nil) should clear the secret")
	}

	if err := back.Scan(42); err == nil {
		t.Fatalf("Scan of unsupported type must fail")
	}
}

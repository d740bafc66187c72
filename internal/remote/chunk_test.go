// Copyright (c) 2025 the vmlink authors
// vmlink - remote VM operations over chat
// This source code is licensed under the MIT license found in the LICENSE file.

package remote

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitTextEmpty(t *testing.T) {
	if got := SplitText("", 10); got != nil {
		t.Fatalf("expected no chunks for empty input, got %v", got)
	}
}

func TestSplitTextShortInput(t *testing.T) {
	got := SplitText("hello", 10)
	if len(got) != 1 || got[0] != "hello" {
		t.Fatalf("expected single chunk, got %v", got)
	}
}

func TestSplitTextExactBoundary(t *testing.T) {
	got := SplitText("abcdef", 3)
	if len(got) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %v", len(got), got)
	}
	if got[0] != "abc" || got[1] != "def" {
		t.Fatalf("unexpected chunks: %v", got)
	}
}

func TestSplitTextReassembles(t *testing.T) {
	input := strings.Repeat("line of output\n", 1000)
	chunks := SplitText(input, ChunkLimit)
	if strings.Join(chunks, "") != input {
		t.Fatalf("concatenated chunks do not reproduce the input")
	}
	for i, c := range chunks {
		if n := utf8.RuneCountInString(c); n > ChunkLimit {
			t.Fatalf("chunk %d has %d runes, limit is %d", i, n, ChunkLimit)
		}
	}
}

func TestSplitTextNeverSplitsRunes(t *testing.T) {
	// Multi-byte characters straddling the chunk boundary must stay whole.
	input := strings.Repeat("日本語テキスト", 900)
	chunks := SplitText(input, ChunkLimit)
	for i, c := range chunks {
		if !utf8.ValidString(c) {
			t.Fatalf("chunk %d contains a split rune", i)
		}
	}
	if strings.Join(chunks, "") != input {
		t.Fatalf("concatenated chunks do not reproduce the input")
	}
}

func TestSplitTextRuneLimitNotByteLimit(t *testing.T) {
	// 5 three-byte runes with limit 3 must split as 3+2 runes.
	input := "あいうえお"
	chunks := SplitText(input, 3)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %v", chunks)
	}
	if utf8.RuneCountInString(chunks[0]) != 3 || utf8.RuneCountInString(chunks[1]) != 2 {
		t.Fatalf("unexpected rune counts: %q %q", chunks[0], chunks[1])
	}
}

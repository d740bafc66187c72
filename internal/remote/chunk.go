// Copyright (c) 2025 the vmlink authors
// vmlink - remote VM operations over chat
// This source code is licensed under the MIT license found in the LICENSE file.

package remote

// ChunkLimit is the maximum size of one delivery chunk, in runes. It is
// sized to stay under a 4096-unit transport message limit with margin for
// markup.
const ChunkLimit = 4000

// SplitText splits s into ordered chunks of at most limit runes each.
// Boundaries never split a multi-byte character, and the concatenation of
// all chunks reproduces s exactly. An empty string yields no chunks.
func SplitText(s string, limit int) []string {
	if s == "" {
		return nil
	}
	if limit <= 0 {
		limit = ChunkLimit
	}

	var chunks []string
	count := 0
	start := 0
	for i := range s {
		if count == limit {
			chunks = append(chunks, s[start:i])
			start = i
			count = 0
		}
		count++
	}
	chunks = append(chunks, s[start:])
	return chunks
}

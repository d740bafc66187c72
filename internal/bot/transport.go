// Copyright (c) 2025 the vmlink authors
// vmlink - remote VM operations over chat
// This source code is licensed under the MIT license found in the LICENSE file.

package bot

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Update is one incoming chat message, as delivered by the transport
// collaborator. Username may be absent.
type Update struct {
	UserID   int64
	Username string
	Text     string
}

// Transport delivers replies back to a user. Implementations own message
// rendering and any transport-level size limits; the core keeps chunks
// within ChunkLimit so they fit under a 4096-unit limit with markup margin.
type Transport interface {
	Send(userID int64, text string) error
}

// ConsoleTransport is a minimal Transport for local runs: replies are
// printed to a writer. It stands in for the real chat transport, which is
// an external collaborator.
type ConsoleTransport struct {
	mu  sync.Mutex
	Out io.Writer
}

// Send writes the reply with a user prefix.
func (c *ConsoleTransport) Send(userID int64, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.Out, "[%d] %s\n", userID, text)
	return err
}

// ReadUpdates turns lines of the form "<userID> <text>" from r into
// updates on the returned channel. The channel closes when r is drained.
func ReadUpdates(r io.Reader, userID int64) <-chan Update {
	ch := make(chan Update)
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			ch <- Update{UserID: userID, Username: "console", Text: line}
		}
	}()
	return ch
}

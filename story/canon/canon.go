// Package canon manages the durable, user-approved narrative text. Canon is
// external to conversation memory: every validated chunk stays here even
// when the token budget keeps only the tail of the story in the model's view.
package canon

import (
	"strings"
	"sync"
)

// Canon is the ordered list of validated narrative chunks.
type Canon struct {
	mu     sync.Mutex
	chunks []string
}

// New creates a Canon from the given chunks.
func New(chunks ...string) *Canon {
	c := &Canon{}
	c.Reset(chunks)
	return c
}

// Append adds a validated chunk to the end of the story.
func (c *Canon) Append(chunk string) {
	chunk = strings.TrimSpace(chunk)
	if chunk == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chunks = append(c.chunks, chunk)
}

// Chunks returns a copy of the validated chunks in story order.
func (c *Canon) Chunks() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.chunks))
	copy(out, c.chunks)
	return out
}

// Len returns the number of validated chunks.
func (c *Canon) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.chunks)
}

// Text joins the chunks into the full story text, separated by blank lines.
func (c *Canon) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Join(c.chunks, "\n\n")
}

// Reset replaces the story with the given chunks, dropping empties.
func (c *Canon) Reset(chunks []string) {
	kept := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		chunk = strings.TrimSpace(chunk)
		if chunk != "" {
			kept = append(kept, chunk)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chunks = kept
}

// SplitChunks segments narrative text into chunks on paragraph breaks
// (blank lines), trimming each chunk and dropping empties.
func SplitChunks(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n\n")
	chunks := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			chunks = append(chunks, part)
		}
	}
	return chunks
}

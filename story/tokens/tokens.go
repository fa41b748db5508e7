// Package tokens estimates token usage for conversation messages.
package tokens

import "github.com/victorarias/storyweave/story/message"

// Counter estimates token usage for a piece of text.
type Counter interface {
	Count(text string) int
}

// CounterFunc adapts a function to a Counter.
type CounterFunc func(text string) int

func (f CounterFunc) Count(text string) int { return f(text) }

// CharCounter estimates tokens by characters per token (default 4).
type CharCounter struct {
	CharsPerToken int
}

// Count implements Counter.
func (c CharCounter) Count(text string) int {
	per := c.CharsPerToken
	if per <= 0 {
		per = 4
	}
	if text == "" {
		return 0
	}
	return (len(text) + per - 1) / per
}

// Count returns the token cost of a single message. A counter that panics or
// reports a negative cost is treated as worst case (one token per byte) so
// budget enforcement still holds with a faulty counter.
func Count(counter Counter, msg message.Message) (n int) {
	if counter == nil {
		return len(msg.Content)
	}
	defer func() {
		if recover() != nil {
			n = len(msg.Content)
		}
	}()
	n = counter.Count(msg.Content)
	if n < 0 {
		n = len(msg.Content)
	}
	return n
}

// Total sums token costs for the sequence.
func Total(counter Counter, messages []message.Message) int {
	total := 0
	for _, msg := range messages {
		total += Count(counter, msg)
	}
	return total
}

// Package truncate bounds a message sequence to a token budget.
package truncate

import (
	"github.com/victorarias/storyweave/story/message"
	"github.com/victorarias/storyweave/story/tokens"
)

// Result captures truncation output and metadata.
type Result struct {
	Messages  []message.Message
	Tokens    int
	Truncated bool
	Dropped   int
	// OverBudget is set when the newest message alone exceeds the budget.
	// The message is kept anyway so a non-empty input never truncates to
	// nothing; callers may surface this as a notice.
	OverBudget bool
}

// Window keeps the longest suffix of messages whose total token cost fits
// maxTokens. Messages are never reordered and never dropped from the middle;
// the cut always falls at the oldest end.
func Window(messages []message.Message, maxTokens int, counter tokens.Counter) Result {
	if len(messages) == 0 {
		return Result{}
	}

	total := 0
	cut := len(messages)
	for i := len(messages) - 1; i >= 0; i-- {
		cost := tokens.Count(counter, messages[i])
		if total+cost > maxTokens {
			break
		}
		total += cost
		cut = i
	}

	if cut == len(messages) {
		// Not even the newest message fits. Keep it anyway.
		newest := messages[len(messages)-1]
		return Result{
			Messages:   []message.Message{newest},
			Tokens:     tokens.Count(counter, newest),
			Truncated:  len(messages) > 1,
			Dropped:    len(messages) - 1,
			OverBudget: true,
		}
	}

	return Result{
		Messages:  message.Clone(messages[cut:]),
		Tokens:    total,
		Truncated: cut > 0,
		Dropped:   cut,
	}
}

// Package simulate seeds conversation memory from previously written
// narrative. Loaded story text has no real dialogue turns, so the tail of the
// text is replayed as synthetic user/assistant pairs to give the model
// context after a load.
package simulate

import (
	"github.com/victorarias/storyweave/story/memory"
	"github.com/victorarias/storyweave/story/message"
	"github.com/victorarias/storyweave/story/tokens"
)

// DefaultChunkLimit is how many trailing narrative chunks seed the history.
const DefaultChunkLimit = 5

// UserPlaceholder is the fixed user turn paired with each seeded chunk. The
// model only needs a "continue" signal; the narrative lives in the assistant
// turn.
const UserPlaceholder = "✒️✍️\U0001f4dc Continue the story."

// Config controls history seeding.
type Config struct {
	// ChunkLimit caps how many trailing chunks are replayed.
	// Defaults to DefaultChunkLimit.
	ChunkLimit int
	// MaxTokens is the budget of the seeded store.
	// Defaults to memory.DefaultMaxTokens.
	MaxTokens int
	// Counter estimates token costs for the seeded store.
	Counter tokens.Counter
}

// Seed builds a fresh clean History whose committed sequence replays the last
// ChunkLimit chunks as placeholder-user/assistant pairs, truncated to the
// token budget. Chunks must already be segmented by the caller; all of them
// remain the caller's canon text, only the tail seeds conversation memory.
func Seed(chunks []string, cfg Config) *memory.History {
	limit := cfg.ChunkLimit
	if limit <= 0 {
		limit = DefaultChunkLimit
	}

	h := memory.New(memory.Config{
		MaxTokens: cfg.MaxTokens,
		Counter:   cfg.Counter,
	})

	start := len(chunks) - limit
	if start < 0 {
		start = 0
	}
	tail := chunks[start:]
	if len(tail) == 0 {
		return h
	}

	pairs := make([]message.Message, 0, 2*len(tail))
	for _, chunk := range tail {
		pairs = append(pairs, message.User(UserPlaceholder))
		pairs = append(pairs, message.Assistant(chunk))
	}
	h.Reset(pairs)
	return h
}

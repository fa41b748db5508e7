// Package memory implements the dual-state conversation history store.
//
// A History holds a committed sequence (the durable record) and, while an
// exchange is pending, a proposal sequence that diverges from it. Mutations
// always land on the proposal; the committed sequence only changes through
// CommitProposal, PrepareForResponse, or Reset. Whatever sequence is active
// is kept within the token budget after every mutation.
package memory

import (
	"sync"

	"github.com/victorarias/storyweave/story/message"
	"github.com/victorarias/storyweave/story/tokens"
	"github.com/victorarias/storyweave/story/truncate"
)

// DefaultMaxTokens is the conversation budget used when none is configured.
const DefaultMaxTokens = 12000

// Config controls a History store.
type Config struct {
	// MaxTokens bounds the active sequence. Defaults to DefaultMaxTokens.
	MaxTokens int
	// Counter estimates token costs. Defaults to tokens.CharCounter.
	Counter tokens.Counter
}

// History is the token-budgeted proposal/commit message store. Safe for
// concurrent use; a single mutex guards every operation.
type History struct {
	mu        sync.Mutex
	counter   tokens.Counter
	committed []message.Message
	proposal  []message.Message
	pending   bool
	maxTokens int

	// overBudget records whether the last truncation of the active
	// sequence could not fit the budget (a single oversized message).
	overBudget bool
}

// New creates an empty History in the clean state.
func New(cfg Config) *History {
	maxTokens := cfg.MaxTokens
	if maxTokens < 1 {
		maxTokens = DefaultMaxTokens
	}
	counter := cfg.Counter
	if counter == nil {
		counter = tokens.CharCounter{}
	}
	return &History{
		counter:   counter,
		maxTokens: maxTokens,
	}
}

// AddMessage appends a message to the proposal, starting a new proposal from
// the committed state if none is pending, and re-applies the token budget.
func (h *History) AddMessage(msg message.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.beginProposalLocked()
	h.proposal = append(h.proposal, msg)
	h.truncateActiveLocked()
}

// AddMessages appends multiple messages in order as a single proposal update.
func (h *History) AddMessages(messages []message.Message) {
	if len(messages) == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.beginProposalLocked()
	h.proposal = append(h.proposal, messages...)
	h.truncateActiveLocked()
}

// PrepareForResponse freezes the active sequence as the new committed
// baseline and clears any pending proposal. Called immediately before a model
// invocation so that the history actually transmitted becomes the durable
// reference point, whether or not the next addition is ever committed.
func (h *History) PrepareForResponse() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pending {
		h.committed = message.Clone(h.proposal)
	}
	h.proposal = nil
	h.pending = false
}

// CommitProposal promotes the pending proposal to the committed sequence.
// A call with no pending proposal is a no-op.
func (h *History) CommitProposal() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.pending {
		return
	}
	h.committed = message.Clone(h.proposal)
	h.proposal = nil
	h.pending = false
}

// DiscardProposal abandons the pending proposal, reverting the active
// sequence to the last committed state. Messages added since the last commit
// are lost. A call with no pending proposal is a no-op.
func (h *History) DiscardProposal() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.proposal = nil
	h.pending = false
	h.truncateActiveLocked()
}

// Active returns a copy of the sequence a model call would see right now:
// the proposal while one is pending, the committed sequence otherwise.
func (h *History) Active() []message.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return message.Clone(h.activeLocked())
}

// Committed returns a copy of the durable sequence.
func (h *History) Committed() []message.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return message.Clone(h.committed)
}

// HasPendingProposal reports whether a proposal diverges from the committed
// sequence.
func (h *History) HasPendingProposal() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pending
}

// Reset replaces the committed sequence with the given messages (truncated to
// the budget) and clears any pending proposal.
func (h *History) Reset(messages []message.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.committed = message.Clone(messages)
	h.proposal = nil
	h.pending = false
	h.truncateActiveLocked()
}

// Clear removes all messages and any pending proposal.
func (h *History) Clear() {
	h.Reset(nil)
}

// TokenCount returns the token cost of the active sequence.
func (h *History) TokenCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return tokens.Total(h.counter, h.activeLocked())
}

// OverBudget reports whether the active sequence still exceeds the budget
// because a single message is larger than MaxTokens. Recoverable; callers
// may surface a notice.
func (h *History) OverBudget() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.overBudget
}

// MaxTokens returns the current conversation budget.
func (h *History) MaxTokens() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.maxTokens
}

// SetMaxTokens changes the conversation budget and immediately re-truncates
// the active sequence. A budget below one token is rejected and the previous
// value kept.
func (h *History) SetMaxTokens(maxTokens int) error {
	if maxTokens < 1 {
		return ErrInvalidMaxTokens
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.maxTokens = maxTokens
	h.truncateActiveLocked()
	return nil
}

func (h *History) activeLocked() []message.Message {
	if h.pending {
		return h.proposal
	}
	return h.committed
}

func (h *History) beginProposalLocked() {
	if h.pending {
		return
	}
	h.proposal = message.Clone(h.committed)
	h.pending = true
}

func (h *History) truncateActiveLocked() {
	active := h.activeLocked()
	res := truncate.Window(active, h.maxTokens, h.counter)
	h.overBudget = res.OverBudget
	if !res.Truncated {
		return
	}
	if h.pending {
		h.proposal = res.Messages
	} else {
		h.committed = res.Messages
	}
}

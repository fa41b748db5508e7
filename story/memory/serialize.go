package memory

import (
	"encoding/json"
	"fmt"

	"github.com/victorarias/storyweave/story/message"
)

type historyPayload struct {
	Version   int               `json:"version"`
	MaxTokens int               `json:"max_tokens"`
	Committed []message.Message `json:"committed"`
	Proposal  []message.Message `json:"proposal,omitempty"`
	Pending   bool              `json:"has_pending_proposal"`
}

const payloadVersion = 1

// MarshalJSON serializes the full store state, pending proposal included.
func (h *History) MarshalJSON() ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	payload := historyPayload{
		Version:   payloadVersion,
		MaxTokens: h.maxTokens,
		Committed: message.Clone(h.committed),
		Pending:   h.pending,
	}
	if h.pending {
		payload.Proposal = message.Clone(h.proposal)
	}
	return json.Marshal(payload)
}

// UnmarshalJSON restores a serialized store state. The counter configured on
// the receiver is kept; the budget is re-applied to the restored sequences.
func (h *History) UnmarshalJSON(data []byte) error {
	var payload historyPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("memory: decode history: %w", err)
	}
	if payload.Version != payloadVersion {
		return fmt.Errorf("memory: unsupported history version %d", payload.Version)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if payload.MaxTokens >= 1 {
		h.maxTokens = payload.MaxTokens
	}
	h.committed = message.Clone(payload.Committed)
	h.pending = payload.Pending && payload.Proposal != nil
	if h.pending {
		h.proposal = message.Clone(payload.Proposal)
	} else {
		h.proposal = nil
	}
	h.truncateActiveLocked()
	return nil
}

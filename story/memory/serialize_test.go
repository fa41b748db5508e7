package memory

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/victorarias/storyweave/story/message"
)

func TestSerializeRoundTripClean(t *testing.T) {
	h := newTestHistory(50)
	h.Reset([]message.Message{
		message.User("one"),
		message.Assistant("two"),
	})

	data, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	restored := newTestHistory(999)
	if err := json.Unmarshal(data, restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if restored.HasPendingProposal() {
		t.Fatalf("expected clean state after restore")
	}
	if restored.MaxTokens() != 50 {
		t.Fatalf("expected budget restored, got %d", restored.MaxTokens())
	}
	if !message.Equal(restored.Committed(), h.Committed()) {
		t.Fatalf("committed sequence not restored")
	}
}

func TestSerializeRoundTripPending(t *testing.T) {
	h := newTestHistory(100)
	h.Reset([]message.Message{message.User("base")})
	h.AddMessage(message.Assistant("draft"))

	data, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	restored := newTestHistory(100)
	if err := json.Unmarshal(data, restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !restored.HasPendingProposal() {
		t.Fatalf("expected pending proposal after restore")
	}
	active := restored.Active()
	if len(active) != 2 || active[1].Content != "draft" {
		t.Fatalf("proposal not restored: %v", active)
	}
	if len(restored.Committed()) != 1 {
		t.Fatalf("committed not restored independently")
	}

	restored.DiscardProposal()
	if !message.Equal(restored.Committed(), h.Committed()) {
		t.Fatalf("restored proposal aliases restored committed")
	}
}

func TestSerializeOmitsProposalWhenClean(t *testing.T) {
	h := newTestHistory(100)
	h.Reset([]message.Message{message.User("base")})
	data, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), `"proposal"`) {
		t.Fatalf("clean state must not serialize a proposal: %s", data)
	}
}

func TestUnmarshalRejectsUnknownVersion(t *testing.T) {
	h := newTestHistory(100)
	err := json.Unmarshal([]byte(`{"version":99,"max_tokens":10,"committed":[]}`), h)
	if err == nil {
		t.Fatalf("expected error for unknown version")
	}
}

func TestUnmarshalAppliesBudget(t *testing.T) {
	payload := `{"version":1,"max_tokens":4,"committed":[` +
		`{"role":"user","content":"aaaa"},` +
		`{"role":"assistant","content":"bbbb"}],"has_pending_proposal":false}`
	h := newTestHistory(100)
	if err := json.Unmarshal([]byte(payload), h); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	committed := h.Committed()
	if len(committed) != 1 || committed[0].Content != "bbbb" {
		t.Fatalf("expected restored sequence truncated to budget, got %v", committed)
	}
}

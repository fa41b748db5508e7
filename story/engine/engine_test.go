package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/victorarias/storyweave/story/events"
	"github.com/victorarias/storyweave/story/memory"
	"github.com/victorarias/storyweave/story/message"
	"github.com/victorarias/storyweave/story/tokens"
)

var byteCounter = tokens.CounterFunc(func(text string) int { return len(text) })

// recordingGenerator replies with a fixed text and captures the request.
type recordingGenerator struct {
	reply string
	err   error
	last  Request
}

func (g *recordingGenerator) Generate(ctx context.Context, req Request) (Response, error) {
	g.last = req
	if g.err != nil {
		return Response{}, g.err
	}
	return Response{Text: g.reply, Usage: Usage{Input: 3, Output: 4}}, nil
}

func newTestRunner(t *testing.T, gen Generator, h *memory.History) *Runner {
	t.Helper()
	r, err := New(Config{Generator: gen, History: h})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return r
}

func TestNewRequiresGeneratorAndHistory(t *testing.T) {
	if _, err := New(Config{History: memory.New(memory.Config{})}); err == nil {
		t.Fatalf("expected error without generator")
	}
	if _, err := New(Config{Generator: &recordingGenerator{}}); err == nil {
		t.Fatalf("expected error without history")
	}
}

func TestRunFreezesGuidanceAndProposesReply(t *testing.T) {
	h := memory.New(memory.Config{MaxTokens: 1000, Counter: byteCounter})
	gen := &recordingGenerator{reply: "The storm broke at dawn."}
	r := newTestRunner(t, gen, h)

	res, err := r.Run(context.Background(), "be vivid", "describe the storm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Narrative != "The storm broke at dawn." {
		t.Fatalf("unexpected narrative: %q", res.Narrative)
	}
	if res.Usage.Total != 7 {
		t.Fatalf("expected normalized usage, got %+v", res.Usage)
	}

	// The guidance was frozen as the committed baseline before the call.
	committed := h.Committed()
	if len(committed) != 1 || committed[0].Content != "describe the storm" {
		t.Fatalf("expected guidance committed, got %v", committed)
	}

	// The reply is a pending proposal awaiting commit or discard.
	if !h.HasPendingProposal() {
		t.Fatalf("expected reply to be a pending proposal")
	}
	active := h.Active()
	if len(active) != 2 || active[1].Content != "The storm broke at dawn." {
		t.Fatalf("unexpected active sequence: %v", active)
	}

	if gen.last.SystemPrompt != "be vivid" {
		t.Fatalf("system prompt not passed through")
	}
	if len(gen.last.History) != 1 || gen.last.History[0].Role != message.RoleUser {
		t.Fatalf("expected the snapshot to hold the guidance turn: %v", gen.last.History)
	}
}

func TestRunDefaultGuidance(t *testing.T) {
	h := memory.New(memory.Config{MaxTokens: 1000, Counter: byteCounter})
	gen := &recordingGenerator{reply: "More story."}
	r := newTestRunner(t, gen, h)

	if _, err := r.Run(context.Background(), "", "   "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.last.History[0].Content != "Continue the story." {
		t.Fatalf("expected default guidance, got %q", gen.last.History[0].Content)
	}
}

func TestRunGeneratorFailureLeavesBaseline(t *testing.T) {
	h := memory.New(memory.Config{MaxTokens: 1000, Counter: byteCounter})
	gen := &recordingGenerator{err: errors.New("model unavailable")}
	r := newTestRunner(t, gen, h)

	_, err := r.Run(context.Background(), "", "go on")
	if err == nil {
		t.Fatalf("expected error")
	}
	if h.HasPendingProposal() {
		t.Fatalf("failed call must not leave a proposal")
	}
	committed := h.Committed()
	if len(committed) != 1 || committed[0].Content != "go on" {
		t.Fatalf("expected the prepared baseline untouched, got %v", committed)
	}
}

func TestRunSnapshotSurvivesConcurrentMutation(t *testing.T) {
	h := memory.New(memory.Config{MaxTokens: 1000, Counter: byteCounter})
	mutating := GeneratorFunc(func(ctx context.Context, req Request) (Response, error) {
		// The user mutates the store while the call is outstanding.
		h.AddMessage(message.User("x"))
		if len(req.History) != 1 {
			return Response{}, errors.New("snapshot changed under the call")
		}
		return Response{Text: "result"}, nil
	})
	r := newTestRunner(t, mutating, h)

	if _, err := r.Run(context.Background(), "", "question"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	active := h.Active()
	if len(active) != 3 {
		t.Fatalf("expected 3 messages, got %v", active)
	}
	if active[1].Content != "x" || active[2].Content != "result" {
		t.Fatalf("expected active sequence to end with [x, result], got %v", active)
	}
}

func TestRunSplitsThinking(t *testing.T) {
	h := memory.New(memory.Config{MaxTokens: 1000, Counter: byteCounter})
	gen := &recordingGenerator{reply: "<think>plan the scene</think>The door creaked open."}
	r := newTestRunner(t, gen, h)

	res, err := r.Run(context.Background(), "", "open the door")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Narrative != "The door creaked open." {
		t.Fatalf("unexpected narrative: %q", res.Narrative)
	}
	if res.Thinking != "plan the scene" {
		t.Fatalf("unexpected thinking: %q", res.Thinking)
	}

	// The raw reply, tags included, is what memory holds.
	active := h.Active()
	if active[len(active)-1].Content != gen.reply {
		t.Fatalf("expected the raw reply stored, got %q", active[len(active)-1].Content)
	}
}

func TestRunEmitsEvents(t *testing.T) {
	h := memory.New(memory.Config{MaxTokens: 1000, Counter: byteCounter})
	gen := &recordingGenerator{reply: "ok"}
	var seen []string
	sink := events.SinkFunc(func(e events.Event) { seen = append(seen, e.Type) })

	r, err := New(Config{Generator: gen, History: h, Events: sink})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := r.Run(context.Background(), "", "hi"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seen) != 2 || seen[0] != events.GenerateStart || seen[1] != events.GenerateEnd {
		t.Fatalf("unexpected event stream: %v", seen)
	}

	gen.err = errors.New("boom")
	seen = nil
	if _, err := r.Run(context.Background(), "", "hi"); err == nil {
		t.Fatalf("expected error")
	}
	if len(seen) != 2 || seen[1] != events.GenerateError {
		t.Fatalf("expected error event, got %v", seen)
	}
}

// Package engine coordinates model calls against the conversation memory.
//
// The store is never handed to a generator directly: every call runs against
// a private snapshot of the active sequence taken at call time, so a
// commit/discard/edit arriving while a call is outstanding applies to the
// store and the in-flight request completes against stale-but-consistent
// data. The reply is appended through the store when it returns.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/victorarias/storyweave/story/events"
	"github.com/victorarias/storyweave/story/memory"
	"github.com/victorarias/storyweave/story/message"
)

// Usage captures token usage for a single model response.
type Usage struct {
	Input  int
	Output int
	Total  int
}

// NormalizeUsage fills Total when missing.
func NormalizeUsage(u Usage) Usage {
	if u.Total == 0 {
		u.Total = u.Input + u.Output
	}
	return u
}

// Request is a single generation request built from a history snapshot.
type Request struct {
	SystemPrompt string
	History      []message.Message
	MaxTokens    int
	Temperature  *float64
}

// Response is the model output for one request.
type Response struct {
	Text  string
	Usage Usage
}

// Generator produces the next assistant reply for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// GeneratorFunc adapts a function to a Generator.
type GeneratorFunc func(ctx context.Context, req Request) (Response, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// Config wires a Runner.
type Config struct {
	Generator   Generator
	History     *memory.History
	Events      events.Sink
	MaxTokens   int
	Temperature *float64
}

// Result is one completed exchange, with think-tag planning split out.
type Result struct {
	Narrative string
	Thinking  string
	Raw       string
	Usage     Usage
}

const defaultGuidance = "Continue the story."

// Runner executes one exchange at a time against a history store.
type Runner struct {
	cfg Config
}

// New creates a Runner.
func New(cfg Config) (*Runner, error) {
	if cfg.Generator == nil {
		return nil, errors.New("engine: generator is required")
	}
	if cfg.History == nil {
		return nil, errors.New("engine: history is required")
	}
	return &Runner{cfg: cfg}, nil
}

// Run performs a single exchange: the guidance becomes a user turn, the
// history sent to the model is frozen as the committed baseline, and the
// reply becomes the new pending proposal. The caller decides whether to
// commit or discard it.
//
// A failed or abandoned call leaves the store at the prepared baseline with
// nothing appended.
func (r *Runner) Run(ctx context.Context, systemPrompt, guidance string) (Result, error) {
	guidance = strings.TrimSpace(guidance)
	if guidance == "" {
		guidance = defaultGuidance
	}

	h := r.cfg.History
	h.AddMessage(message.User(guidance))
	h.PrepareForResponse()
	snapshot := h.Active()

	r.emit(events.Event{Type: events.GenerateStart, Guidance: guidance})

	resp, err := r.cfg.Generator.Generate(ctx, Request{
		SystemPrompt: systemPrompt,
		History:      snapshot,
		MaxTokens:    r.cfg.MaxTokens,
		Temperature:  r.cfg.Temperature,
	})
	if err != nil {
		r.emit(events.Event{Type: events.GenerateError, Guidance: guidance, Err: err})
		return Result{}, fmt.Errorf("engine: generate: %w", err)
	}

	h.AddMessage(message.Assistant(resp.Text))

	usage := NormalizeUsage(resp.Usage)
	narrative, thinking := ParseThinking(resp.Text)
	r.emit(events.Event{
		Type:   events.GenerateEnd,
		Reply:  resp.Text,
		Tokens: usage.Total,
	})

	return Result{
		Narrative: narrative,
		Thinking:  thinking,
		Raw:       resp.Text,
		Usage:     usage,
	}, nil
}

func (r *Runner) emit(e events.Event) {
	if r.cfg.Events != nil {
		r.cfg.Events.Emit(e)
	}
}

package config

import (
	"testing"

	"github.com/victorarias/storyweave/story/memory"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Provider != ProviderAnthropic {
		t.Fatalf("expected anthropic default, got %q", cfg.Provider)
	}
	if cfg.ContextTokens != memory.DefaultMaxTokens {
		t.Fatalf("unexpected context budget: %d", cfg.ContextTokens)
	}
	if cfg.SystemPromptsPath != "system_prompts.json" {
		t.Fatalf("unexpected prompts path: %q", cfg.SystemPromptsPath)
	}
}

func TestLoadRejectsInvalidNumericEnv(t *testing.T) {
	t.Setenv("STORYWEAVE_CONTEXT_TOKENS", "abc")
	if _, err := Load(); err == nil {
		t.Fatal("expected parse error for STORYWEAVE_CONTEXT_TOKENS")
	}
}

func TestLoadRejectsZeroBudget(t *testing.T) {
	t.Setenv("STORYWEAVE_CONTEXT_TOKENS", "0")
	if _, err := Load(); err == nil {
		t.Fatal("expected range error for STORYWEAVE_CONTEXT_TOKENS")
	}
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("STORYWEAVE_PROVIDER", "openrouter")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestLoadVertexProvider(t *testing.T) {
	t.Setenv("STORYWEAVE_PROVIDER", "Vertex")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Provider != ProviderVertex {
		t.Fatalf("expected vertex provider, got %q", cfg.Provider)
	}
}

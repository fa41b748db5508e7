// Package config loads the storyweave CLI runtime configuration from the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/victorarias/storyweave/story/memory"
	"github.com/victorarias/storyweave/story/simulate"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderVertex    = "vertex"
)

// Config controls the storyweave CLI runtime.
type Config struct {
	Provider          string
	SystemPromptsPath string
	ContextTokens     int
	ChunkLimit        int
	GuidanceTag       string
	RunTimeoutSeconds int
}

// Load reads configuration from a .env file (if present) and environment
// variables.
func Load() (Config, error) {
	// Missing .env is fine; explicit environment always wins.
	_ = godotenv.Load()

	contextTokens, err := intEnvStrict("STORYWEAVE_CONTEXT_TOKENS", memory.DefaultMaxTokens)
	if err != nil {
		return Config{}, err
	}
	chunkLimit, err := intEnvStrict("STORYWEAVE_SIMULATION_CHUNKS", simulate.DefaultChunkLimit)
	if err != nil {
		return Config{}, err
	}
	runTimeoutSeconds, err := intEnvStrict("STORYWEAVE_RUN_TIMEOUT_SECONDS", 180)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Provider:          strings.ToLower(trimmedEnv("STORYWEAVE_PROVIDER")),
		SystemPromptsPath: trimmedEnv("STORYWEAVE_SYSTEM_PROMPTS"),
		ContextTokens:     contextTokens,
		ChunkLimit:        chunkLimit,
		GuidanceTag:       trimmedEnv("STORYWEAVE_GUIDANCE_TAG"),
		RunTimeoutSeconds: runTimeoutSeconds,
	}
	if cfg.Provider == "" {
		cfg.Provider = ProviderAnthropic
	}
	if cfg.SystemPromptsPath == "" {
		cfg.SystemPromptsPath = "system_prompts.json"
	}

	switch cfg.Provider {
	case ProviderAnthropic, ProviderVertex:
	default:
		return Config{}, fmt.Errorf("config: unknown STORYWEAVE_PROVIDER %q", cfg.Provider)
	}
	if cfg.ContextTokens < 1 {
		return Config{}, errors.New("config: STORYWEAVE_CONTEXT_TOKENS must be at least 1")
	}
	if cfg.ChunkLimit < 1 {
		return Config{}, errors.New("config: STORYWEAVE_SIMULATION_CHUNKS must be at least 1")
	}
	if cfg.RunTimeoutSeconds <= 0 {
		return Config{}, errors.New("config: STORYWEAVE_RUN_TIMEOUT_SECONDS must be greater than 0")
	}
	return cfg, nil
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func intEnvStrict(key string, fallback int) (int, error) {
	value := trimmedEnv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s: %w", key, err)
	}
	return parsed, nil
}

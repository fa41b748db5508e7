// Package anthropic generates story text through the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/victorarias/storyweave/story/engine"
	"github.com/victorarias/storyweave/story/message"
)

// Config controls an Anthropic client.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature *float64
	HTTPClient  *http.Client
}

// Client calls the Anthropic Messages API. Implements engine.Generator.
type Client struct {
	client      anthropic.Client
	model       string
	maxTokens   int
	temperature *float64
}

// New constructs an Anthropic client from config.
func New(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("anthropic: api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, errors.New("anthropic: model is required")
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &Client{
		client:      anthropic.NewClient(opts...),
		model:       model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// NewFromEnv builds an Anthropic client from environment variables.
func NewFromEnv() (*Client, error) {
	apiKey := envTrimmed("ANTHROPIC_API_KEY")
	model := envTrimmed("ANTHROPIC_MODEL")
	if apiKey == "" || model == "" {
		return nil, errors.New("anthropic: ANTHROPIC_API_KEY and ANTHROPIC_MODEL are required")
	}

	maxTokens := 0
	if v := envTrimmed("ANTHROPIC_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxTokens = n
		}
	}

	var temperature *float64
	if v := envTrimmed("ANTHROPIC_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			temperature = &f
		}
	}

	return New(Config{
		APIKey:      apiKey,
		Model:       model,
		BaseURL:     envTrimmed("ANTHROPIC_BASE_URL"),
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
}

// Generate calls the Anthropic Messages API with the history snapshot.
func (c *Client) Generate(ctx context.Context, input engine.Request) (engine.Response, error) {
	messages := appendHistory(nil, input.History)
	if len(messages) == 0 {
		return engine.Response{}, errors.New("anthropic: empty history")
	}

	req := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages:  messages,
	}

	if system := strings.TrimSpace(input.SystemPrompt); system != "" {
		req.System = []anthropic.TextBlockParam{{
			Text: system,
		}}
	}

	if input.MaxTokens > 0 {
		req.MaxTokens = int64(input.MaxTokens)
	}

	temperature := input.Temperature
	if temperature == nil {
		temperature = c.temperature
	}
	if temperature != nil {
		req.Temperature = anthropic.Float(*temperature)
	}

	msg, err := c.client.Messages.New(ctx, req)
	if err != nil {
		return engine.Response{}, fmt.Errorf("anthropic: %w", err)
	}

	var reply strings.Builder
	for _, block := range msg.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			reply.WriteString(variant.Text)
		}
	}

	return engine.Response{
		Text: strings.TrimSpace(reply.String()),
		Usage: engine.NormalizeUsage(engine.Usage{
			Input:  int(msg.Usage.InputTokens),
			Output: int(msg.Usage.OutputTokens),
		}),
	}, nil
}

func appendHistory(messages []anthropic.MessageParam, history []message.Message) []anthropic.MessageParam {
	for _, msg := range history {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		switch msg.Role {
		case message.RoleUser:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case message.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	return messages
}

func envTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

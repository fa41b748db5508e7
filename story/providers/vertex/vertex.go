// Package vertex generates story text through Gemini on Vertex AI using the
// REST API and Google Application Default Credentials.
package vertex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/victorarias/storyweave/story/engine"
	"github.com/victorarias/storyweave/story/message"
)

// Config controls a Vertex Gemini client.
type Config struct {
	Project     string
	Location    string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	HTTPClient  *http.Client
	TokenSource oauth2.TokenSource
}

// Client calls the Vertex AI generateContent endpoint. Implements
// engine.Generator.
type Client struct {
	project     string
	location    string
	model       string
	baseURL     string
	temperature float64
	maxTokens   int
	client      *http.Client
	cred        oauth2.TokenSource
}

// New constructs a Vertex Gemini client from config.
func New(cfg Config) (*Client, error) {
	project := strings.TrimSpace(cfg.Project)
	model := strings.TrimSpace(cfg.Model)
	location := strings.TrimSpace(cfg.Location)
	if location == "" {
		location = "global"
	}
	if project == "" || model == "" {
		return nil, errors.New("vertex: project and model are required")
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = "https://aiplatform.googleapis.com/v1"
	}

	ts := cfg.TokenSource
	if ts == nil {
		var err error
		ts, err = google.DefaultTokenSource(context.Background(), "https://www.googleapis.com/auth/cloud-platform")
		if err != nil {
			return nil, fmt.Errorf("vertex adc: %w", err)
		}
	}

	temp := cfg.Temperature
	if temp == 0 {
		temp = 0.7
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	return &Client{
		project:     project,
		location:    location,
		model:       model,
		baseURL:     strings.TrimRight(base, "/"),
		temperature: temp,
		maxTokens:   maxTokens,
		client:      client,
		cred:        ts,
	}, nil
}

// NewFromEnv builds a Vertex Gemini client from environment variables.
func NewFromEnv() (*Client, error) {
	cfg := Config{
		Project:  strings.TrimSpace(os.Getenv("VERTEX_PROJECT")),
		Location: strings.TrimSpace(os.Getenv("VERTEX_LOCATION")),
		Model:    strings.TrimSpace(os.Getenv("VERTEX_MODEL")),
		BaseURL:  strings.TrimSpace(os.Getenv("VERTEX_API_BASE")),
	}
	if temp := strings.TrimSpace(os.Getenv("VERTEX_TEMPERATURE")); temp != "" {
		if v, err := strconv.ParseFloat(temp, 64); err == nil {
			cfg.Temperature = v
		}
	}
	if max := strings.TrimSpace(os.Getenv("VERTEX_MAX_TOKENS")); max != "" {
		if v, err := strconv.Atoi(max); err == nil {
			cfg.MaxTokens = v
		}
	}
	return New(cfg)
}

// Generate calls Vertex AI generateContent with the history snapshot.
func (c *Client) Generate(ctx context.Context, input engine.Request) (engine.Response, error) {
	if c.cred == nil {
		return engine.Response{}, errors.New("vertex: token source not configured")
	}
	reqBody, err := c.buildRequest(input)
	if err != nil {
		return engine.Response{}, err
	}

	endpoint := fmt.Sprintf("%s/projects/%s/locations/%s/publishers/google/models/%s:generateContent", c.baseURL, c.project, c.location, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return engine.Response{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	token, err := c.cred.Token()
	if err != nil {
		return engine.Response{}, fmt.Errorf("vertex token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return engine.Response{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := readResponseBody(resp)
		return engine.Response{}, fmt.Errorf("vertex gemini error: status %d: %s", resp.StatusCode, body)
	}

	var parsed vertexResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return engine.Response{}, err
	}
	if len(parsed.Candidates) == 0 {
		return engine.Response{}, errors.New("vertex: no candidates in response")
	}

	var reply strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		reply.WriteString(part.Text)
	}

	text := strings.TrimSpace(reply.String())
	if parsed.Candidates[0].FinishReason == "MAX_TOKENS" {
		text += "\n\n(Reply may be truncated. Consider increasing VERTEX_MAX_TOKENS.)"
	}

	return engine.Response{
		Text: text,
		Usage: engine.NormalizeUsage(engine.Usage{
			Input:  parsed.UsageMetadata.PromptTokenCount,
			Output: parsed.UsageMetadata.CandidatesTokenCount,
			Total:  parsed.UsageMetadata.TotalTokenCount,
		}),
	}, nil
}

func (c *Client) buildRequest(input engine.Request) ([]byte, error) {
	contents := make([]vertexContent, 0, len(input.History))
	for _, msg := range input.History {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		role := "user"
		if msg.Role == message.RoleAssistant {
			role = "model"
		}
		contents = append(contents, vertexContent{
			Role:  role,
			Parts: []vertexPart{{Text: msg.Content}},
		})
	}
	if len(contents) == 0 {
		return nil, errors.New("vertex: empty history")
	}

	maxTokens := c.maxTokens
	if input.MaxTokens > 0 {
		maxTokens = input.MaxTokens
	}
	temperature := c.temperature
	if input.Temperature != nil {
		temperature = *input.Temperature
	}

	request := vertexRequest{
		Contents: contents,
		GenerationConfig: vertexGenerationConfig{
			Temperature:     temperature,
			MaxOutputTokens: maxTokens,
		},
	}
	if strings.TrimSpace(input.SystemPrompt) != "" {
		request.SystemInstruction = vertexSystemInstruction{
			Parts: []vertexPart{{Text: input.SystemPrompt}},
		}
	}

	return json.Marshal(request)
}

func readResponseBody(resp *http.Response) (string, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	body := strings.TrimSpace(string(data))
	if body == "" {
		return "<empty body>", nil
	}
	if len(body) > 1200 {
		return body[:1200] + "... (truncated)", nil
	}
	return body, nil
}

type vertexRequest struct {
	SystemInstruction vertexSystemInstruction `json:"system_instruction,omitempty"`
	Contents          []vertexContent         `json:"contents"`
	GenerationConfig  vertexGenerationConfig  `json:"generationConfig,omitempty"`
}

type vertexSystemInstruction struct {
	Parts []vertexPart `json:"parts,omitempty"`
}

type vertexContent struct {
	Role  string       `json:"role"`
	Parts []vertexPart `json:"parts"`
}

type vertexPart struct {
	Text string `json:"text,omitempty"`
}

type vertexGenerationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type vertexResponse struct {
	Candidates    []vertexCandidate `json:"candidates"`
	UsageMetadata vertexUsage       `json:"usageMetadata"`
}

type vertexCandidate struct {
	Content      vertexContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type vertexUsage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

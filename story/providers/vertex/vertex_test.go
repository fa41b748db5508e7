package vertex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/oauth2"

	"github.com/victorarias/storyweave/story/engine"
	"github.com/victorarias/storyweave/story/message"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{
		Project:     "proj",
		Location:    "us-east5",
		Model:       "gemini-test",
		BaseURL:     server.URL,
		HTTPClient:  server.Client(),
		TokenSource: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"}),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client, server
}

func TestGenerateBuildsRequestAndParsesReply(t *testing.T) {
	var captured vertexRequest
	var authHeader string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(vertexResponse{
			Candidates: []vertexCandidate{{
				Content: vertexContent{
					Role:  "model",
					Parts: []vertexPart{{Text: "The rain kept falling."}},
				},
				FinishReason: "STOP",
			}},
			UsageMetadata: vertexUsage{PromptTokenCount: 10, CandidatesTokenCount: 5, TotalTokenCount: 15},
		})
	})

	resp, err := client.Generate(context.Background(), engine.Request{
		SystemPrompt: "be vivid",
		History: []message.Message{
			message.User("continue"),
			message.Assistant("It was raining."),
			message.User("more"),
		},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resp.Text != "The rain kept falling." {
		t.Fatalf("unexpected reply: %q", resp.Text)
	}
	if resp.Usage.Total != 15 {
		t.Fatalf("unexpected usage: %+v", resp.Usage)
	}

	if authHeader != "Bearer test-token" {
		t.Fatalf("unexpected auth header: %q", authHeader)
	}
	if len(captured.Contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(captured.Contents))
	}
	if captured.Contents[0].Role != "user" || captured.Contents[1].Role != "model" {
		t.Fatalf("unexpected role mapping: %+v", captured.Contents)
	}
	if len(captured.SystemInstruction.Parts) != 1 || captured.SystemInstruction.Parts[0].Text != "be vivid" {
		t.Fatalf("system instruction not set: %+v", captured.SystemInstruction)
	}
}

func TestGenerateErrorStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})

	_, err := client.Generate(context.Background(), engine.Request{
		History: []message.Message{message.User("hi")},
	})
	if err == nil {
		t.Fatal("expected error for non-2xx status")
	}
}

func TestGenerateEmptyHistory(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	if _, err := client.Generate(context.Background(), engine.Request{}); err == nil {
		t.Fatal("expected error for empty history")
	}
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{Model: "m", TokenSource: oauth2.StaticTokenSource(&oauth2.Token{})})
	if err == nil {
		t.Fatal("expected error without project")
	}
}

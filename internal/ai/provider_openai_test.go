package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okResponse(content, model string) openaiResponse {
	var resp openaiResponse
	resp.Choices = make([]struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}, 1)
	resp.Choices[0].Message.Content = content
	resp.Model = model
	resp.Usage.PromptTokens = 10
	resp.Usage.CompletionTokens = 5
	return resp
}

func TestOpenAIProvider_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected content type: %s", r.Header.Get("Content-Type"))
		}

		var req openaiRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Model != "llama3-8b-8192" {
			t.Errorf("model = %q, want %q", req.Model, "llama3-8b-8192")
		}
		if req.MaxTokens != 2000 {
			t.Errorf("max_tokens = %d, want 2000", req.MaxTokens)
		}
		if req.Temperature == nil || *req.Temperature != 0.7 {
			t.Errorf("temperature = %v, want 0.7", req.Temperature)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Content != "hello" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}

		json.NewEncoder(w).Encode(okResponse("Hi there!", req.Model))
	}))
	defer server.Close()

	provider := NewOpenAIProvider("test-key", WithBaseURL(server.URL))

	resp, err := provider.Complete(context.Background(), CompletionRequest{
		Messages: []Message{
			{Role: "system", Content: "be helpful"},
			{Role: "user", Content: "hello"},
		},
		Model:       "llama3-8b-8192",
		MaxTokens:   2000,
		Temperature: 0.7,
	})

	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "Hi there!" {
		t.Errorf("content = %q, want %q", resp.Content, "Hi there!")
	}
	if resp.InputTokens != 10 {
		t.Errorf("input_tokens = %d, want 10", resp.InputTokens)
	}
	if resp.OutputTokens != 5 {
		t.Errorf("output_tokens = %d, want 5", resp.OutputTokens)
	}
}

func TestOpenAIProvider_Complete_APIError(t *testing.T) {
	tests := []struct {
		name            string
		status          int
		wantUnauthorize bool
		wantRateLimited bool
	}{
		{"rate limited", http.StatusTooManyRequests, false, true},
		{"bad key", http.StatusUnauthorized, true, false},
		{"server error", http.StatusInternalServerError, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error": "nope"}`))
			}))
			defer server.Close()

			provider := NewGroqProvider("test-key", WithBaseURL(server.URL))

			_, err := provider.Complete(context.Background(), CompletionRequest{
				Messages: []Message{{Role: "user", Content: "hello"}},
			})

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("Complete() error = %v, want *APIError", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if apiErr.Provider != "groq" {
				t.Errorf("Provider = %q, want groq", apiErr.Provider)
			}
			if apiErr.Unauthorized() != tt.wantUnauthorize {
				t.Errorf("Unauthorized() = %v, want %v", apiErr.Unauthorized(), tt.wantUnauthorize)
			}
			if apiErr.RateLimited() != tt.wantRateLimited {
				t.Errorf("RateLimited() = %v, want %v", apiErr.RateLimited(), tt.wantRateLimited)
			}
		})
	}
}

func TestOpenAIProvider_Complete_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openaiResponse{Choices: nil})
	}))
	defer server.Close()

	provider := NewOpenAIProvider("test-key", WithBaseURL(server.URL))

	_, err := provider.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hello"}},
	})

	if !errors.Is(err, ErrNoChoices) {
		t.Fatalf("Complete() error = %v, want ErrNoChoices", err)
	}
}

func TestOpenAIProvider_Complete_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": [`))
	}))
	defer server.Close()

	provider := NewOpenAIProvider("test-key", WithBaseURL(server.URL))

	_, err := provider.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hello"}},
	})
	if err == nil {
		t.Fatal("Complete() should return error on malformed body")
	}
}

func TestGroqProvider_DefaultModel(t *testing.T) {
	var receivedModel, receivedPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedPath = r.URL.Path
		var req openaiRequest
		json.NewDecoder(r.Body).Decode(&req)
		receivedModel = req.Model

		json.NewEncoder(w).Encode(okResponse("ok", req.Model))
	}))
	defer server.Close()

	provider := NewGroqProvider("gsk-test", WithBaseURL(server.URL+"/"))

	// No model specified, so the Groq default applies.
	_, err := provider.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})

	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if receivedModel != "llama3-8b-8192" {
		t.Errorf("default model = %q, want %q", receivedModel, "llama3-8b-8192")
	}
	if receivedPath != "/chat/completions" {
		t.Errorf("path = %q, want /chat/completions", receivedPath)
	}
	if provider.Name() != "groq" {
		t.Errorf("Name() = %q, want groq", provider.Name())
	}
}

func TestGroqProvider_BaseURL(t *testing.T) {
	provider := NewGroqProvider("gsk-test")
	if provider.baseURL != defaultGroqBaseURL {
		t.Errorf("baseURL = %q, want %q", provider.baseURL, defaultGroqBaseURL)
	}

	// An empty override keeps the default.
	provider = NewGroqProvider("gsk-test", WithBaseURL(""))
	if provider.baseURL != defaultGroqBaseURL {
		t.Errorf("baseURL = %q, want %q", provider.baseURL, defaultGroqBaseURL)
	}
}

func TestOpenAIProvider_HealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    bool
	}{
		{"healthy", http.StatusOK, false},
		{"unhealthy", http.StatusUnauthorized, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/models" {
					t.Errorf("unexpected path: %s", r.URL.Path)
				}
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			provider := NewOpenAIProvider("test-key", WithBaseURL(server.URL))
			err := provider.HealthCheck(context.Background())

			if (err != nil) != tt.wantErr {
				t.Errorf("HealthCheck() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGroqFactory(t *testing.T) {
	var gotAuth []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = append(gotAuth, r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(okResponse("ok", "m"))
	}))
	defer server.Close()

	factory := GroqFactory(WithBaseURL(server.URL))
	for _, key := range []string{"key-a", "key-b"} {
		if _, err := factory(key).Complete(context.Background(), CompletionRequest{}); err != nil {
			t.Fatalf("Complete() error = %v", err)
		}
	}

	if len(gotAuth) != 2 || gotAuth[0] != "Bearer key-a" || gotAuth[1] != "Bearer key-b" {
		t.Errorf("Authorization headers = %q, want one per credential", gotAuth)
	}
}

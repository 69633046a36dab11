package ai

import (
	"context"
	"sync"
)

// MockProvider is a test double for AI providers.
type MockProvider struct {
	Response    string
	Err         error
	LastRequest *CompletionRequest // captures the last request for inspection
}

// NewMockProvider creates a MockProvider that returns the given response.
func NewMockProvider(response string) *MockProvider {
	return &MockProvider{Response: response}
}

func (m *MockProvider) Complete(_ context.Context, req CompletionRequest) (CompletionResponse, error) {
	m.LastRequest = &req
	if m.Err != nil {
		return CompletionResponse{}, m.Err
	}
	return CompletionResponse{
		Content:      m.Response,
		Model:        "mock",
		InputTokens:  10,
		OutputTokens: len(m.Response),
	}, nil
}

func (m *MockProvider) HealthCheck(_ context.Context) error {
	return m.Err
}

// ScriptedReply is one scripted outcome of a ScriptedProvider call.
type ScriptedReply struct {
	Content string
	Err     error
}

// ScriptedProvider returns its replies in call order. Calls beyond the script
// repeat the last reply.
type ScriptedProvider struct {
	mu       sync.Mutex
	replies  []ScriptedReply
	requests []CompletionRequest
}

// NewScriptedProvider creates a provider answering with the given replies.
func NewScriptedProvider(replies ...ScriptedReply) *ScriptedProvider {
	return &ScriptedProvider{replies: replies}
}

func (s *ScriptedProvider) Complete(_ context.Context, req CompletionRequest) (CompletionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.requests)
	s.requests = append(s.requests, req)
	if len(s.replies) == 0 {
		return CompletionResponse{Model: "mock"}, nil
	}
	if n >= len(s.replies) {
		n = len(s.replies) - 1
	}

	reply := s.replies[n]
	if reply.Err != nil {
		return CompletionResponse{}, reply.Err
	}
	return CompletionResponse{
		Content:      reply.Content,
		Model:        "mock",
		InputTokens:  10,
		OutputTokens: len(reply.Content),
	}, nil
}

func (s *ScriptedProvider) HealthCheck(_ context.Context) error {
	return nil
}

// Requests returns a copy of every request received so far.
func (s *ScriptedProvider) Requests() []CompletionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CompletionRequest{}, s.requests...)
}

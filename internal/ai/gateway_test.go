package ai_test

import (
	"context"
	"errors"
	"testing"

	"github.com/p-n-ai/highscore/internal/ai"
)

func TestMockProvider_Complete(t *testing.T) {
	mock := ai.NewMockProvider("test response")

	resp, err := mock.Complete(context.Background(), ai.CompletionRequest{
		Messages: []ai.Message{
			{Role: "user", Content: "Hello"},
		},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "test response" {
		t.Errorf("Content = %q, want %q", resp.Content, "test response")
	}
	if mock.LastRequest == nil || mock.LastRequest.Messages[0].Content != "Hello" {
		t.Errorf("LastRequest = %+v, want captured request", mock.LastRequest)
	}
}

func TestMockProvider_HealthCheck(t *testing.T) {
	mock := ai.NewMockProvider("response")
	if err := mock.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestScriptedProvider_RepliesInOrder(t *testing.T) {
	boom := errors.New("boom")
	p := ai.NewScriptedProvider(
		ai.ScriptedReply{Content: "first"},
		ai.ScriptedReply{Err: boom},
		ai.ScriptedReply{Content: "third"},
	)

	ctx := context.Background()
	req := ai.CompletionRequest{Messages: []ai.Message{{Role: "user", Content: "q"}}}

	if resp, err := p.Complete(ctx, req); err != nil || resp.Content != "first" {
		t.Errorf("call 1 = (%q, %v), want (first, nil)", resp.Content, err)
	}
	if _, err := p.Complete(ctx, req); !errors.Is(err, boom) {
		t.Errorf("call 2 error = %v, want boom", err)
	}
	if resp, err := p.Complete(ctx, req); err != nil || resp.Content != "third" {
		t.Errorf("call 3 = (%q, %v), want (third, nil)", resp.Content, err)
	}
	if resp, _ := p.Complete(ctx, req); resp.Content != "third" {
		t.Errorf("call 4 = %q, want last reply repeated", resp.Content)
	}
	if got := len(p.Requests()); got != 4 {
		t.Errorf("Requests() = %d, want 4", got)
	}
}

func TestCompletionResponse_TotalTokens(t *testing.T) {
	resp := ai.CompletionResponse{InputTokens: 100, OutputTokens: 50}
	if got := resp.TotalTokens(); got != 150 {
		t.Errorf("TotalTokens() = %d, want 150", got)
	}
}

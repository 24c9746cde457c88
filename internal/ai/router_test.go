package ai

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRouter_Complete_FallbackChain(t *testing.T) {
	failing := &MockProvider{Err: errors.New("quota exceeded")}
	working := NewMockProvider("fallback answer")

	r := NewRouter()
	r.Register("primary", failing)
	r.Register("secondary", working)

	resp, err := r.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hello"}},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "fallback answer" {
		t.Errorf("content = %q, want %q", resp.Content, "fallback answer")
	}
	if failing.CallCount() != 1 {
		t.Errorf("primary called %d times, want 1", failing.CallCount())
	}
}

func TestRouter_Complete_AllFail(t *testing.T) {
	r := NewRouter()
	r.Register("only", &MockProvider{Err: errors.New("down")})

	_, err := r.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hello"}},
	})
	if err == nil {
		t.Fatal("Complete() should error when all providers fail")
	}
}

func TestRouter_Generate(t *testing.T) {
	mock := NewMockProvider("generated text")

	r := NewRouter()
	r.Register("mock", mock)

	got, err := r.Generate(context.Background(), TaskCurriculum, "build a course", 1024)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "generated text" {
		t.Errorf("Generate() = %q, want %q", got, "generated text")
	}

	req := mock.LastRequest
	if req == nil {
		t.Fatal("LastRequest is nil")
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
		t.Fatalf("Generate() should send a single user message, got %+v", req.Messages)
	}
	if req.Task != TaskCurriculum {
		t.Errorf("Task = %v, want TaskCurriculum", req.Task)
	}
	if req.MaxTokens != 1024 {
		t.Errorf("MaxTokens = %d, want 1024", req.MaxTokens)
	}
}

func TestRouter_Generate_Timeout(t *testing.T) {
	slow := &slowProvider{delay: 100 * time.Millisecond}

	r := NewRouter()
	r.SetTimeout(10 * time.Millisecond)
	r.Register("slow", slow)

	_, err := r.Generate(context.Background(), TaskGrading, "grade this", 256)
	if err == nil {
		t.Fatal("Generate() should fail when the provider exceeds the timeout")
	}
}

func TestRouter_HasProvider(t *testing.T) {
	r := NewRouter()
	if r.HasProvider() {
		t.Error("HasProvider() = true for empty router")
	}
	r.Register("mock", NewMockProvider("ok"))
	if !r.HasProvider() {
		t.Error("HasProvider() = false after Register")
	}
}

// slowProvider blocks until the context is cancelled or the delay elapses.
type slowProvider struct {
	delay time.Duration
}

func (s *slowProvider) Complete(ctx context.Context, _ CompletionRequest) (CompletionResponse, error) {
	select {
	case <-ctx.Done():
		return CompletionResponse{}, ctx.Err()
	case <-time.After(s.delay):
		return CompletionResponse{Content: "late"}, nil
	}
}

func (s *slowProvider) Models() []ModelInfo { return nil }

func (s *slowProvider) HealthCheck(_ context.Context) error { return nil }

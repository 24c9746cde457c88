package course

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pathwise/learnbot/internal/ai"
)

func newTestRouter(mock *ai.MockProvider) *ai.Router {
	router := ai.NewRouter()
	router.Register("mock", mock)
	return router
}

func TestGenerateQuestion(t *testing.T) {
	mock := ai.NewMockProvider("  What is a goroutine?  \n")
	a := NewAssessor(newTestRouter(mock), nil)

	q, err := a.GenerateQuestion(context.Background(), "go", 2, "Concurrency basics.")
	if err != nil {
		t.Fatal(err)
	}
	if q != "What is a goroutine?" {
		t.Errorf("question = %q", q)
	}

	prompt := mock.LastRequest.Messages[0].Content
	if !strings.Contains(prompt, "Module 2") || !strings.Contains(prompt, "go") {
		t.Errorf("prompt missing topic or module: %q", prompt)
	}
	if !strings.Contains(prompt, "Concurrency basics.") {
		t.Errorf("prompt missing module description: %q", prompt)
	}
	if mock.LastRequest.Task != ai.TaskQuestion {
		t.Errorf("task = %v, want TaskQuestion", mock.LastRequest.Task)
	}
}

func TestGenerateQuestionError(t *testing.T) {
	mock := &ai.MockProvider{Err: errors.New("upstream down")}
	a := NewAssessor(newTestRouter(mock), nil)

	if _, err := a.GenerateQuestion(context.Background(), "go", 1, ""); err == nil {
		t.Fatal("expected error")
	}
}

func TestEvaluateVerdicts(t *testing.T) {
	tests := []struct {
		name     string
		response string
		correct  bool
	}{
		{"plain correct", "CORRECT. Nice reasoning about channels.", true},
		{"lowercase", "correct, that covers the key idea", true},
		{"bold marker", "**CORRECT** — well explained", true},
		{"exclamation", "Correct! Exactly right.", true},
		{"incorrect", "INCORRECT. A goroutine is not an OS thread.", false},
		{"correct later in text", "That is not correct, unfortunately.", false},
		{"empty response", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAssessor(newTestRouter(ai.NewMockProvider(tt.response)), nil)

			v, err := a.Evaluate(context.Background(), "Q?", "my answer")
			if err != nil {
				t.Fatal(err)
			}
			if v.Correct != tt.correct {
				t.Errorf("Correct = %v, want %v (response %q)", v.Correct, tt.correct, tt.response)
			}
			if v.Feedback != strings.TrimSpace(tt.response) {
				t.Errorf("Feedback = %q", v.Feedback)
			}
		})
	}
}

func TestEvaluatePromptContainsQuestionAndAnswer(t *testing.T) {
	mock := ai.NewMockProvider("CORRECT")
	a := NewAssessor(newTestRouter(mock), nil)

	if _, err := a.Evaluate(context.Background(), "What is a mutex?", "A lock"); err != nil {
		t.Fatal(err)
	}
	prompt := mock.LastRequest.Messages[0].Content
	if !strings.Contains(prompt, "What is a mutex?") || !strings.Contains(prompt, "A lock") {
		t.Errorf("prompt = %q", prompt)
	}
	if mock.LastRequest.Task != ai.TaskGrading {
		t.Errorf("task = %v, want TaskGrading", mock.LastRequest.Task)
	}
}

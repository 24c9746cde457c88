package course

import (
	"context"
	"fmt"
	"strings"

	"github.com/pathwise/learnbot/internal/ai"
)

// Assessor generates module questions and evaluates answers.
type Assessor struct {
	ai      *ai.Router
	prompts *Prompts
}

// NewAssessor creates an assessor backed by the AI router.
func NewAssessor(router *ai.Router, prompts *Prompts) *Assessor {
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	return &Assessor{ai: router, prompts: prompts}
}

// GenerateQuestion produces one conceptual question for the given module.
func (a *Assessor) GenerateQuestion(ctx context.Context, topic string, module int, description string) (string, error) {
	q, err := a.ai.Generate(ctx, ai.TaskQuestion, a.prompts.QuestionPrompt(topic, module, description), 512)
	if err != nil {
		return "", fmt.Errorf("generating question: %w", err)
	}
	return strings.TrimSpace(q), nil
}

// Verdict is the outcome of evaluating an answer. Feedback is the evaluator's
// full response, suitable for sending to the user.
type Verdict struct {
	Correct  bool
	Feedback string
}

// Evaluate grades an answer against its question. The verdict is decided by
// the leading token of the evaluator's response: "CORRECT" (any case, with
// trailing punctuation tolerated) passes, anything else fails.
func (a *Assessor) Evaluate(ctx context.Context, question, answer string) (Verdict, error) {
	resp, err := a.ai.Generate(ctx, ai.TaskGrading, a.prompts.EvaluationPrompt(question, answer), 512)
	if err != nil {
		return Verdict{}, fmt.Errorf("evaluating answer: %w", err)
	}
	return Verdict{
		Correct:  leadingTokenIs(resp, "CORRECT"),
		Feedback: strings.TrimSpace(resp),
	}, nil
}

// leadingTokenIs reports whether the first whitespace-separated token of text,
// stripped of surrounding punctuation, equals want case-insensitively.
func leadingTokenIs(text, want string) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return false
	}
	token := strings.Trim(fields[0], ".,:;!?*'\"`")
	return strings.EqualFold(token, want)
}

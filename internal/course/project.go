package course

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pathwise/learnbot/internal/ai"
)

// projectGuidelines is always appended to a capstone brief, intact even when
// the generated portion has to be truncated to fit a chat message.
const projectGuidelines = `

📤 Submission Guidelines:
• Submit your solution as a single file
• Include a brief README section at the top
• Send the file here when you are ready for review`

var allowedSubmissionExts = map[string]bool{
	".zip":   true,
	".pdf":   true,
	".md":    true,
	".txt":   true,
	".py":    true,
	".js":    true,
	".go":    true,
	".ipynb": true,
}

// ProjectFlow generates capstone briefs and reviews submissions.
type ProjectFlow struct {
	ai      *ai.Router
	prompts *Prompts
}

// NewProjectFlow creates a capstone flow backed by the AI router.
func NewProjectFlow(router *ai.Router, prompts *Prompts) *ProjectFlow {
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	return &ProjectFlow{ai: router, prompts: prompts}
}

// Brief generates the capstone project statement for a topic. The submission
// guidelines are always present in full; only the generated portion is
// trimmed when the combined text would exceed the message limit.
func (p *ProjectFlow) Brief(ctx context.Context, topic string) (string, error) {
	body, err := p.ai.Generate(ctx, ai.TaskProject, p.prompts.ProjectBriefPrompt(topic), 1024)
	if err != nil {
		return "", fmt.Errorf("generating project brief: %w", err)
	}
	body = strings.TrimSpace(body)

	budget := renderLimit - len([]rune(projectGuidelines))
	if len([]rune(body)) > budget {
		body = Truncate(body, budget)
	}
	return body + projectGuidelines, nil
}

// AllowedSubmission reports whether the file name has an accepted extension.
func AllowedSubmission(fileName string) bool {
	return allowedSubmissionExts[strings.ToLower(filepath.Ext(fileName))]
}

// Review assesses a capstone submission. The verdict is decided by the
// leading token of the reviewer's response: "PASS" passes, anything else
// fails. Feedback carries the full response.
func (p *ProjectFlow) Review(ctx context.Context, topic, fileName string) (Verdict, error) {
	resp, err := p.ai.Generate(ctx, ai.TaskProject, p.prompts.ProjectReviewPrompt(topic, fileName), 512)
	if err != nil {
		return Verdict{}, fmt.Errorf("reviewing submission: %w", err)
	}
	return Verdict{
		Correct:  leadingTokenIs(resp, "PASS"),
		Feedback: strings.TrimSpace(resp),
	}, nil
}

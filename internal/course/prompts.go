package course

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Prompts holds the generation templates. Placeholders in braces are
// substituted at render time: {topic}, {module}, {description}, {question},
// {answer}, {file}.
type Prompts struct {
	Curriculum    string `yaml:"curriculum"`
	Question      string `yaml:"question"`
	Evaluation    string `yaml:"evaluation"`
	ProjectBrief  string `yaml:"project_brief"`
	ProjectReview string `yaml:"project_review"`
}

const defaultCurriculumPrompt = `Generate a structured learning path for {topic} with 5 modules.
For each module provide:
1. A clear title
2. A very short description of what will be learned
3. A short list of key topics covered
4. One specific educational video link from a reputable channel
Design the course so that completing it makes the user proficient in the topic.

Format as follows:

📚 Module 1: [NAME]

📝 Description:
[2-3 sentences about what will be learned]

🔑 Key Topics:
• [topic]
• [topic]

🎬 Educational Video:
• Title: [specific video title]
  Link: https://youtube.com/... (use real educational video links)
  Duration: [approximate duration]

[Repeat for all 5 modules]`

const defaultQuestionPrompt = `Generate a conceptual question for Module {module} of {topic}.

Module Description:
{description}

The user has watched a video about these concepts. Generate a question that:
1. Tests understanding of the core concepts covered in this module
2. Requires critical thinking and application of knowledge
3. Is NOT specific to the video content, but rather about the general concepts
4. Encourages problem-solving and creative thinking
5. Could be answered by anyone who understands these concepts well

Format: Create a clear, challenging question that tests conceptual understanding rather than specific video details.`

const defaultEvaluationPrompt = `Question: {question}
User's Answer: {answer}

Evaluate if this answer is correct. Respond with only 'CORRECT' or 'INCORRECT' followed by a brief explanation.`

const defaultProjectBriefPrompt = `Generate a concise but challenging project problem for {topic}.
Keep the total response under 3000 characters.

The project should test practical implementation while being concise:
1. Core functionality that demonstrates mastery
2. Clear but brief requirements
3. Essential test cases only
4. Focus on key concepts learned

Format (be brief but clear):
🎯 PROJECT: [Short title]

📋 Goal: [One sentence objective]

📝 Must Have:
• [Core requirement]
• [Core requirement]
• [Core requirement]

💡 Example:
[One clear input/output example]

⭐ Success Criteria:
• Working implementation
• Clean code
• Good documentation
• Error handling`

const defaultProjectReviewPrompt = `A student of {topic} submitted a capstone project as the file "{file}".
Assess whether a submission of this kind plausibly demonstrates mastery of {topic}.
Respond with only 'PASS' or 'FAIL' followed by brief, constructive feedback.`

// DefaultPrompts returns the built-in templates.
func DefaultPrompts() *Prompts {
	return &Prompts{
		Curriculum:    defaultCurriculumPrompt,
		Question:      defaultQuestionPrompt,
		Evaluation:    defaultEvaluationPrompt,
		ProjectBrief:  defaultProjectBriefPrompt,
		ProjectReview: defaultProjectReviewPrompt,
	}
}

// LoadPrompts returns the defaults overlaid with any templates defined in the
// YAML file at path. An empty path returns the defaults unchanged.
func LoadPrompts(path string) (*Prompts, error) {
	p := DefaultPrompts()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading prompts file: %w", err)
	}

	var overrides Prompts
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parsing prompts file: %w", err)
	}

	if overrides.Curriculum != "" {
		p.Curriculum = overrides.Curriculum
	}
	if overrides.Question != "" {
		p.Question = overrides.Question
	}
	if overrides.Evaluation != "" {
		p.Evaluation = overrides.Evaluation
	}
	if overrides.ProjectBrief != "" {
		p.ProjectBrief = overrides.ProjectBrief
	}
	if overrides.ProjectReview != "" {
		p.ProjectReview = overrides.ProjectReview
	}
	return p, nil
}

func render(template string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// CurriculumPrompt renders the curriculum template for a topic.
func (p *Prompts) CurriculumPrompt(topic string) string {
	return render(p.Curriculum, map[string]string{"topic": topic})
}

// QuestionPrompt renders the assessment-question template.
func (p *Prompts) QuestionPrompt(topic string, module int, description string) string {
	if description == "" {
		description = "(module description unavailable; ask about the fundamentals of the topic at this stage)"
	}
	return render(p.Question, map[string]string{
		"topic":       topic,
		"module":      fmt.Sprintf("%d", module),
		"description": description,
	})
}

// EvaluationPrompt renders the answer-evaluation template.
func (p *Prompts) EvaluationPrompt(question, answer string) string {
	return render(p.Evaluation, map[string]string{
		"question": question,
		"answer":   answer,
	})
}

// ProjectBriefPrompt renders the capstone brief template.
func (p *Prompts) ProjectBriefPrompt(topic string) string {
	return render(p.ProjectBrief, map[string]string{"topic": topic})
}

// ProjectReviewPrompt renders the submission review template.
func (p *Prompts) ProjectReviewPrompt(topic, file string) string {
	return render(p.ProjectReview, map[string]string{
		"topic": topic,
		"file":  file,
	})
}

package course

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pathwise/learnbot/internal/ai"
)

// renderLimit caps any single curriculum or module rendering sent to a chat
// channel, in runes. Longer text is truncated with a trailing ellipsis.
const renderLimit = 4000

var moduleMarkerRe = regexp.MustCompile(`(?m)^📚 Module (\d+):\s*(.*)$`)

// Generator produces and parses five-module curricula for arbitrary topics.
type Generator struct {
	ai      *ai.Router
	prompts *Prompts
}

// NewGenerator creates a curriculum generator backed by the AI router.
func NewGenerator(router *ai.Router, prompts *Prompts) *Generator {
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	return &Generator{ai: router, prompts: prompts}
}

// Generate asks the AI for a curriculum on topic and parses the result. A
// provider failure is returned as an error; no degraded curriculum is built
// from an absent response.
func (g *Generator) Generate(ctx context.Context, topic string) (Curriculum, error) {
	text, err := g.ai.Generate(ctx, ai.TaskCurriculum, g.prompts.CurriculumPrompt(topic), 2048)
	if err != nil {
		return Curriculum{}, fmt.Errorf("generating curriculum: %w", err)
	}
	return ParseCurriculum(text), nil
}

// ParseCurriculum splits generated text on the module markers. When the text
// does not contain exactly the expected markers numbered 1..5, the curriculum
// is kept unstructured and only the raw text is used.
func ParseCurriculum(text string) Curriculum {
	c := Curriculum{Raw: strings.TrimSpace(text)}

	locs := moduleMarkerRe.FindAllStringSubmatchIndex(c.Raw, -1)
	if len(locs) != ModuleCount {
		return c
	}

	modules := make([]Module, 0, ModuleCount)
	for i, loc := range locs {
		num, err := strconv.Atoi(c.Raw[loc[2]:loc[3]])
		if err != nil || num != i+1 {
			return c
		}
		end := len(c.Raw)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		body := strings.TrimSpace(c.Raw[loc[0]:end])
		modules = append(modules, Module{
			Number:       num,
			Title:        strings.TrimSpace(c.Raw[loc[4]:loc[5]]),
			Description:  extractDescription(body),
			KeyTopics:    extractKeyTopics(body),
			ResourceLink: extractLink(body),
			Raw:          body,
		})
	}
	c.Modules = modules
	return c
}

// extractDescription pulls the text between the description header and the
// next section header.
func extractDescription(body string) string {
	_, rest, ok := strings.Cut(body, "📝 Description:")
	if !ok {
		return ""
	}
	for _, marker := range []string{"🔑", "🎬", "📚"} {
		if idx := strings.Index(rest, marker); idx >= 0 {
			rest = rest[:idx]
		}
	}
	return strings.TrimSpace(rest)
}

func extractKeyTopics(body string) []string {
	_, rest, ok := strings.Cut(body, "🔑 Key Topics:")
	if !ok {
		return nil
	}
	if idx := strings.Index(rest, "🎬"); idx >= 0 {
		rest = rest[:idx]
	}
	var topics []string
	for _, line := range strings.Split(rest, "\n") {
		line = strings.TrimSpace(line)
		if t, ok := strings.CutPrefix(line, "•"); ok {
			if t = strings.TrimSpace(t); t != "" {
				topics = append(topics, t)
			}
		}
	}
	return topics
}

var linkRe = regexp.MustCompile(`https?://\S+`)

func extractLink(body string) string {
	return linkRe.FindString(body)
}

// RenderModule formats one module for sending to a chat channel. For an
// unstructured curriculum the whole raw text is rendered on module 1 and a
// short pointer afterwards.
func RenderModule(c *Curriculum, n int) string {
	if !c.Structured() {
		if n == 1 {
			return Truncate(c.Raw, renderLimit)
		}
		return fmt.Sprintf("Continue with Module %d from the learning path above. Send the video link once you have watched it.", n)
	}
	m := c.Module(n)
	if m == nil {
		return ""
	}
	return Truncate(m.Raw, renderLimit)
}

// Truncate limits text to max runes, appending an ellipsis when cut.
func Truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max-3]) + "..."
}

package course

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pathwise/learnbot/internal/ai"
	"github.com/pathwise/learnbot/internal/chat"
)

// Certificate request forms.
const (
	regularCertificationForm = "https://forms.gle/h1PimKbwbafAGux28"
	courseCompletionForm     = "https://forms.gle/2vwrpeRL39F5rS4j8"
)

var completedModuleRe = regexp.MustCompile(`^completed module (\d+)$`)
var certifyModuleRe = regexp.MustCompile(`^certify (\d+)$`)

// lowerCaser normalizes user commands without assuming a locale.
var lowerCaser = cases.Lower(language.Und)

// EngineConfig wires the engine's collaborators.
type EngineConfig struct {
	AIRouter *ai.Router
	Store    SessionStore
	Prompts  *Prompts
	Events   EventLogger

	// FinalProjectEnabled turns on the optional capstone stage after all
	// modules are certified complete.
	FinalProjectEnabled bool
}

// Engine drives the tutoring conversation. One instance serves all users;
// turns for the same user are serialized, distinct users run concurrently.
type Engine struct {
	store    SessionStore
	events   EventLogger
	gen      *Generator
	assessor *Assessor
	project  *ProjectFlow

	finalProject bool

	mu     sync.Mutex
	userMu map[string]*userLock
}

// userLock serializes turns for one user. The refcount covers holders and
// waiters so the map entry can be dropped once the last turn finishes.
type userLock struct {
	mu   sync.Mutex
	refs int
}

// NewEngine creates a conversation engine from the config.
func NewEngine(cfg EngineConfig) *Engine {
	prompts := cfg.Prompts
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	return &Engine{
		store:        cfg.Store,
		events:       events,
		gen:          NewGenerator(cfg.AIRouter, prompts),
		assessor:     NewAssessor(cfg.AIRouter, prompts),
		project:      NewProjectFlow(cfg.AIRouter, prompts),
		finalProject: cfg.FinalProjectEnabled,
	}
}

func (e *Engine) acquireUser(userID string) *userLock {
	e.mu.Lock()
	if e.userMu == nil {
		e.userMu = make(map[string]*userLock)
	}
	l, ok := e.userMu[userID]
	if !ok {
		l = &userLock{}
		e.userMu[userID] = l
	}
	l.refs++
	e.mu.Unlock()

	l.mu.Lock()
	return l
}

func (e *Engine) releaseUser(userID string, l *userLock) {
	l.mu.Unlock()

	e.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(e.userMu, userID)
	}
	e.mu.Unlock()
}

// ProcessMessage handles one inbound chat message and returns the reply text.
func (e *Engine) ProcessMessage(ctx context.Context, msg chat.InboundMessage) (string, error) {
	if msg.UserID == "" {
		return "", fmt.Errorf("message has no user id")
	}

	lock := e.acquireUser(msg.UserID)
	defer e.releaseUser(msg.UserID, lock)

	text := strings.TrimSpace(msg.Text)
	normalized := lowerCaser.String(text)

	if strings.HasPrefix(normalized, "/") {
		return e.handleCommand(msg.UserID, normalized)
	}

	s, ok := e.store.Get(msg.UserID)
	if !ok {
		return e.handleTopic(ctx, msg, text)
	}

	switch s.State {
	case StateLearning:
		return e.handleLearning(ctx, s, text, normalized)
	case StateAssessment:
		return e.handleAssessment(ctx, s, text, normalized)
	case StateCertification:
		return e.handleCertification(ctx, s, normalized)
	case StateFinalProject:
		return e.handleFinalProject(ctx, s, msg, normalized)
	default:
		slog.Error("session in unknown state, resetting", "user_id", s.UserID, "state", s.State)
		if err := e.store.Delete(s.UserID); err != nil {
			return "", err
		}
		return "Something went wrong with your session. Send a topic to start over.", nil
	}
}

func (e *Engine) handleCommand(userID, cmd string) (string, error) {
	switch cmd {
	case "/start":
		if err := e.store.Delete(userID); err != nil {
			return "", err
		}
		return "👋 Welcome! I build a 5-module learning path on any topic and guide you through it with videos, assessments, and certificates.\n\nWhat would you like to learn?", nil
	case "/cancel":
		if err := e.store.Delete(userID); err != nil {
			return "", err
		}
		e.events.Log(userID, "course_cancelled", nil)
		return "Your course has been cancelled. Send /start whenever you want to begin a new one.", nil
	default:
		return "I only understand /start and /cancel. Anything else, just type it as a message.", nil
	}
}

func (e *Engine) handleTopic(ctx context.Context, msg chat.InboundMessage, topic string) (string, error) {
	if topic == "" {
		return "Send me a topic you would like to learn, for example: machine learning.", nil
	}

	curriculum, err := e.gen.Generate(ctx, topic)
	if err != nil {
		slog.Error("curriculum generation failed", "user_id", msg.UserID, "topic", topic, "error", err)
		return "I could not generate a learning path right now. Please send your topic again in a moment.", nil
	}

	s := NewSession(msg.UserID, topic, curriculum)
	s.Channel = msg.Channel
	if err := e.store.Put(s); err != nil {
		return "", fmt.Errorf("saving session: %w", err)
	}
	e.events.Log(s.UserID, "course_started", map[string]any{"topic": topic})

	reply := fmt.Sprintf("🎓 Here is your 5-module learning path for %s.\n\n%s\n\nWatch the video for Module 1, then send me its link here.",
		topic, RenderModule(&s.Curriculum, 1))
	return reply, nil
}

func (e *Engine) handleLearning(ctx context.Context, s *Session, text, normalized string) (string, error) {
	if m := completedModuleRe.FindStringSubmatch(normalized); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n < 1 || n > ModuleCount || n != s.CurrentModule {
			e.events.Log(s.UserID, "module_out_of_order", map[string]any{"claimed": n, "expected": s.CurrentModule})
			return fmt.Sprintf("Modules must be completed in order. You are on Module %d — finish that one first.", s.CurrentModule), nil
		}
		s.PendingLinkModule = n
		if err := e.store.Put(s); err != nil {
			return "", fmt.Errorf("saving session: %w", err)
		}
		return fmt.Sprintf("Great! Send me the link of the video you watched for Module %d and I will give you an assessment question.", n), nil
	}

	if strings.HasPrefix(normalized, "http") {
		return e.handleVideoLink(ctx, s, text)
	}

	if normalized == "course completed" || normalized == "done" {
		if s.AllCompleted() {
			return e.courseCompletedReply(s), nil
		}
		return fmt.Sprintf("Not yet! You have completed %d of %d modules, %d to go. Keep working on Module %d.",
			s.CompletedCount(), ModuleCount, ModuleCount-s.CompletedCount(), s.CurrentModule), nil
	}

	if s.PendingLinkModule != 0 {
		return fmt.Sprintf("I am waiting for the link of the video you watched for Module %d. Send it here and I will prepare your assessment.",
			s.PendingLinkModule), nil
	}

	return fmt.Sprintf("%s\n\nWhen you have watched the video for Module %d, send me its link. You can also send 'completed module %d'.",
		RenderModule(&s.Curriculum, s.CurrentModule), s.CurrentModule, s.CurrentModule), nil
}

func (e *Engine) handleVideoLink(ctx context.Context, s *Session, link string) (string, error) {
	module := s.PendingLinkModule
	if module == 0 {
		module = s.CurrentModule
	}

	description := ""
	if m := s.Curriculum.Module(module); m != nil {
		description = m.Description
	}

	question, err := e.assessor.GenerateQuestion(ctx, s.Topic, module, description)
	if err != nil {
		// Keep the pending module so resending the link retries.
		slog.Error("question generation failed", "user_id", s.UserID, "module", module, "error", err)
		return "I could not prepare your assessment question right now. Please send the link again in a moment.", nil
	}

	// The user's own link replaces the generated placeholder for the module.
	if m := s.Curriculum.Module(module); m != nil {
		if m.ResourceLink != "" {
			m.Raw = strings.ReplaceAll(m.Raw, m.ResourceLink, link)
		}
		m.ResourceLink = link
	}

	s.PendingLinkModule = 0
	s.ActiveQuestion = question
	s.QuestionModule = module
	s.State = StateAssessment
	if err := e.store.Put(s); err != nil {
		return "", fmt.Errorf("saving session: %w", err)
	}
	e.events.Log(s.UserID, "assessment_started", map[string]any{"module": module})

	return fmt.Sprintf("📝 Assessment for Module %d:\n\n%s\n\nSend your answer, or 'retry' to see the question again.", module, question), nil
}

func (e *Engine) handleAssessment(ctx context.Context, s *Session, text, normalized string) (string, error) {
	if normalized == "retry" {
		return fmt.Sprintf("📝 Assessment for Module %d:\n\n%s", s.QuestionModule, s.ActiveQuestion), nil
	}
	// Certificate requests for earlier modules are allowed mid-assessment and
	// are never graded as answers.
	if strings.HasPrefix(normalized, "certify") {
		return e.certifyReply(s, normalized) + "\n\nYour assessment is still open. Send 'retry' to see the question again.", nil
	}
	if text == "" {
		return "Send your answer as a message, or 'retry' to see the question again.", nil
	}

	verdict, err := e.assessor.Evaluate(ctx, s.ActiveQuestion, text)
	if err != nil {
		slog.Error("answer evaluation failed", "user_id", s.UserID, "module", s.QuestionModule, "error", err)
		return "I could not evaluate your answer right now. Please send it again in a moment.", nil
	}

	if !verdict.Correct {
		e.events.Log(s.UserID, "answer_incorrect", map[string]any{"module": s.QuestionModule})
		return verdict.Feedback + "\n\nHave another go, or send 'retry' to see the question again.", nil
	}

	module := s.QuestionModule
	if err := MarkCompleted(s, module); err != nil {
		var ooo *OutOfOrderError
		if errors.As(err, &ooo) {
			return fmt.Sprintf("Modules must be completed in order. You are on Module %d.", ooo.Expected), nil
		}
		return "", err
	}
	s.ActiveQuestion = ""
	s.QuestionModule = 0
	s.State = StateCertification
	if err := e.store.Put(s); err != nil {
		return "", fmt.Errorf("saving session: %w", err)
	}
	e.events.Log(s.UserID, "module_completed", map[string]any{"module": module})

	reply := fmt.Sprintf("%s\n\n✅ Module %d complete!\n\n%s", verdict.Feedback, module, CertificationOptions(s))
	if s.AllCompleted() {
		reply += "\n\n🏁 That was the final module! Send 'course completed' to claim your course certificate."
	}
	return reply, nil
}

func (e *Engine) handleCertification(ctx context.Context, s *Session, normalized string) (string, error) {
	switch {
	case strings.HasPrefix(normalized, "certify"):
		return e.certifyReply(s, normalized), nil

	case normalized == "continue":
		if s.AllCompleted() {
			return e.courseCompletedReply(s), nil
		}
		s.State = StateLearning
		if err := e.store.Put(s); err != nil {
			return "", fmt.Errorf("saving session: %w", err)
		}
		return fmt.Sprintf("%s\n\nWatch the video for Module %d, then send me its link.",
			RenderModule(&s.Curriculum, s.CurrentModule), s.CurrentModule), nil

	case normalized == "course completed" || normalized == "done":
		if !s.AllCompleted() {
			remaining := ModuleCount - s.CompletedCount()
			return fmt.Sprintf("You have completed %d of %d modules — %d to go. Send 'continue' to keep learning.",
				s.CompletedCount(), ModuleCount, remaining), nil
		}
		e.events.Log(s.UserID, "course_completed", map[string]any{"topic": s.Topic})
		return e.courseCompletedReply(s), nil

	case normalized == "start project":
		return e.handleStartProject(ctx, s)

	default:
		return CertificationOptions(s), nil
	}
}

// certifyReply answers any message starting with "certify": a single module
// number, "certify all", or anything else (which re-lists the options).
func (e *Engine) certifyReply(s *Session, normalized string) string {
	if m := certifyModuleRe.FindStringSubmatch(normalized); m != nil {
		n, _ := strconv.Atoi(m[1])
		if !s.Completed[n] {
			return fmt.Sprintf("Module %d is not completed yet, so it cannot be certified. %s", n, CertificationOptions(s))
		}
		e.events.Log(s.UserID, "certificate_requested", map[string]any{"module": n, "price": PriceSingle})
		return fmt.Sprintf("🎓 Certificate for Module %d costs ₹%d.\n\nFill in this form to request it: %s\n\nSend 'continue' to keep learning.",
			n, PriceSingle, regularCertificationForm)
	}

	if normalized == "certify all" {
		done := s.CompletedCount()
		if done < 2 {
			return "Bulk certification needs at least two completed modules. " + CertificationOptions(s)
		}
		e.events.Log(s.UserID, "certificate_requested", map[string]any{"modules": s.CompletedList(), "price": BulkPrice(done)})
		return fmt.Sprintf("🎓 Certificates for all %d completed modules cost ₹%d together (you save ₹%d).\n\nFill in this form to request them: %s\n\nSend 'continue' to keep learning.",
			done, BulkPrice(done), Savings(done), regularCertificationForm)
	}

	return CertificationOptions(s)
}

func (e *Engine) courseCompletedReply(s *Session) string {
	reply := fmt.Sprintf("🏆 Congratulations, you completed the whole course on %s!\n\nRequest your course completion certificate here: %s",
		s.Topic, courseCompletionForm)
	if e.finalProject && !s.ProjectAssigned {
		reply += "\n\nWant to go further? Send 'start project' for a capstone project that puts everything together."
	}
	return reply
}

func (e *Engine) handleStartProject(ctx context.Context, s *Session) (string, error) {
	if !e.finalProject {
		return "The capstone project is not available on this course. " + CertificationOptions(s), nil
	}
	if !s.AllCompleted() {
		return fmt.Sprintf("The capstone project unlocks after all %d modules are completed. Send 'continue' to keep learning.", ModuleCount), nil
	}

	brief, err := e.project.Brief(ctx, s.Topic)
	if err != nil {
		slog.Error("project brief generation failed", "user_id", s.UserID, "error", err)
		return "I could not generate your project right now. Please send 'start project' again in a moment.", nil
	}

	s.ProjectAssigned = true
	s.State = StateFinalProject
	if err := e.store.Put(s); err != nil {
		return "", fmt.Errorf("saving session: %w", err)
	}
	e.events.Log(s.UserID, "project_assigned", map[string]any{"topic": s.Topic})
	return brief, nil
}

func (e *Engine) handleFinalProject(ctx context.Context, s *Session, msg chat.InboundMessage, normalized string) (string, error) {
	if !msg.HasDocument {
		if normalized == "done" {
			return e.courseCompletedReply(s), nil
		}
		return "Send your project as a file attachment when it is ready (.zip, .pdf, .md, .txt, .py, .js, .go or .ipynb).", nil
	}

	if !AllowedSubmission(msg.DocumentName) {
		return "That file type is not accepted. Submit your project as .zip, .pdf, .md, .txt, .py, .js, .go or .ipynb.", nil
	}

	verdict, err := e.project.Review(ctx, s.Topic, msg.DocumentName)
	if err != nil {
		slog.Error("project review failed", "user_id", s.UserID, "error", err)
		return "I could not review your submission right now. Please send the file again in a moment.", nil
	}

	if !verdict.Correct {
		e.events.Log(s.UserID, "project_rejected", map[string]any{"file": msg.DocumentName})
		return verdict.Feedback + "\n\nRevise your project and send the file again.", nil
	}

	e.events.Log(s.UserID, "project_passed", map[string]any{"file": msg.DocumentName})
	return fmt.Sprintf("%s\n\n🏆 Outstanding work — your capstone project passed review!\n\nRequest your course completion certificate here: %s",
		verdict.Feedback, courseCompletionForm), nil
}

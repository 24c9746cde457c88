// Package course implements the tutoring course domain: per-user sessions,
// curriculum generation, ordered module progression, assessments, and the
// certification and capstone-project flows, driven by a conversation engine.
package course

import (
	"sort"
	"time"
)

// ModuleCount is the fixed number of modules in every generated course.
const ModuleCount = 5

// State identifies the conversation stage a session is in.
type State string

const (
	StateLearning      State = "learning"
	StateAssessment    State = "assessment"
	StateCertification State = "certification"
	StateFinalProject  State = "final_project"
)

// Module is one of the five curriculum units generated for a topic.
type Module struct {
	Number       int      `json:"number"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	KeyTopics    []string `json:"key_topics,omitempty"`
	ResourceLink string   `json:"resource_link,omitempty"`
	Raw          string   `json:"raw,omitempty"`
}

// Curriculum is the parsed result of a curriculum generation. When the
// generated text could not be split into the expected modules, Modules is
// empty and only the Raw rendering is available (the degraded case).
type Curriculum struct {
	Modules []Module `json:"modules,omitempty"`
	Raw     string   `json:"raw"`
}

// Structured reports whether per-module data is available.
func (c Curriculum) Structured() bool {
	return len(c.Modules) == ModuleCount
}

// Module returns the module with the given number, or nil.
func (c *Curriculum) Module(n int) *Module {
	for i := range c.Modules {
		if c.Modules[i].Number == n {
			return &c.Modules[i]
		}
	}
	return nil
}

// Session is the per-user course record. Topic and Curriculum are set once at
// creation; CurrentModule and Completed only ever grow. The scratch fields
// (PendingLinkModule, ActiveQuestion, QuestionModule, ProjectAssigned) carry
// in-between-turn state and are cleared by the transition that consumes them.
type Session struct {
	UserID     string       `json:"user_id"`
	Channel    string       `json:"channel,omitempty"`
	Topic      string       `json:"topic"`
	Curriculum Curriculum   `json:"curriculum"`
	State      State        `json:"state"`
	CurrentModule int       `json:"current_module"` // 1..ModuleCount+1; ModuleCount+1 means all attempted
	Completed  map[int]bool `json:"completed"`

	PendingLinkModule int    `json:"pending_link_module,omitempty"`
	ActiveQuestion    string `json:"active_question,omitempty"`
	QuestionModule    int    `json:"question_module,omitempty"`
	ProjectAssigned   bool   `json:"project_assigned,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates a fresh session in the learning stage.
func NewSession(userID, topic string, curriculum Curriculum) *Session {
	now := time.Now()
	return &Session{
		UserID:        userID,
		Topic:         topic,
		Curriculum:    curriculum,
		State:         StateLearning,
		CurrentModule: 1,
		Completed:     make(map[int]bool),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// CompletedCount returns the number of modules that passed assessment.
func (s *Session) CompletedCount() int {
	return len(s.Completed)
}

// CompletedList returns the completed module numbers in ascending order.
func (s *Session) CompletedList() []int {
	nums := make([]int, 0, len(s.Completed))
	for n := range s.Completed {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// AllCompleted reports whether every module passed assessment.
func (s *Session) AllCompleted() bool {
	return len(s.Completed) == ModuleCount
}

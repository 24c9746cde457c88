package course

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Event is one recorded step of a user's course progression.
type Event struct {
	UserID    string         `json:"user_id"`
	EventType string         `json:"event_type"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// EventLogger records course progression events. Logging never blocks a
// conversation turn; failures are logged and swallowed.
type EventLogger interface {
	Log(userID, eventType string, data map[string]any)
}

// NopEventLogger discards all events.
type NopEventLogger struct{}

func (NopEventLogger) Log(string, string, map[string]any) {}

// MemoryEventLogger keeps events in memory, mainly for tests.
type MemoryEventLogger struct {
	mu     sync.Mutex
	events []Event
}

func (m *MemoryEventLogger) Log(userID, eventType string, data map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, Event{
		UserID:    userID,
		EventType: eventType,
		Data:      data,
		CreatedAt: time.Now(),
	})
}

// Events returns a copy of the recorded events.
func (m *MemoryEventLogger) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// PostgresEventLogger appends events to the events table.
type PostgresEventLogger struct {
	pool *pgxpool.Pool
}

// NewPostgresEventLogger creates a PostgreSQL-backed event logger. The table
// is created by the session store's schema setup.
func NewPostgresEventLogger(pool *pgxpool.Pool) *PostgresEventLogger {
	return &PostgresEventLogger{pool: pool}
}

func (p *PostgresEventLogger) Log(userID, eventType string, data map[string]any) {
	payload, err := json.Marshal(data)
	if err != nil {
		payload = []byte("{}")
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	_, err = p.pool.Exec(ctx,
		`INSERT INTO events (user_id, event_type, data) VALUES ($1, $2, $3::jsonb)`,
		userID, eventType, string(payload),
	)
	if err != nil {
		slog.Error("event insert failed", "user_id", userID, "event_type", eventType, "error", err)
	}
}

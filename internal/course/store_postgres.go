package course

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresStore persists session snapshots as JSON rows, keyed by user id.
// It is the deployment-grade option; the in-memory store remains the default.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed session store and ensures the
// sessions table exists.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	s := &PostgresStore{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (p *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS sessions (
			user_id    TEXT PRIMARY KEY,
			data       JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("ensure sessions table: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS events (
			id         BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			user_id    TEXT NOT NULL,
			event_type TEXT NOT NULL,
			data       JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("ensure events table: %w", err)
	}
	return nil
}

func (p *PostgresStore) Get(userID string) (*Session, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	var data []byte
	err := p.pool.QueryRow(ctx,
		`SELECT data FROM sessions WHERE user_id = $1`,
		userID,
	).Scan(&data)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			slog.Error("postgres session get failed", "user_id", userID, "error", err)
		}
		return nil, false
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		slog.Error("corrupt session row, dropping", "user_id", userID, "error", err)
		_ = p.Delete(userID)
		return nil, false
	}
	return &s, true
}

func (p *PostgresStore) Put(s *Session) error {
	s.UpdatedAt = time.Now()

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	_, err = p.pool.Exec(ctx,
		`INSERT INTO sessions (user_id, data, updated_at)
		 VALUES ($1, $2::jsonb, NOW())
		 ON CONFLICT (user_id) DO UPDATE SET data = $2::jsonb, updated_at = NOW()`,
		s.UserID,
		string(data),
	)
	if err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (p *PostgresStore) Delete(userID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	if _, err := p.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (p *PostgresStore) All() []*Session {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	rows, err := p.pool.Query(ctx, `SELECT data FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		slog.Error("postgres session list failed", "error", err)
		return nil
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			continue
		}
		var s Session
		if err := json.Unmarshal(data, &s); err != nil {
			continue
		}
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		slog.Error("postgres session iterate failed", "error", err)
	}
	return out
}

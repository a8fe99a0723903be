package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// Event types emitted by the player.
const (
	EventSessionStarted   = "session_started"
	EventAnswerSubmitted  = "answer_submitted"
	EventQuestionSkipped  = "question_skipped"
	EventQuestionJumped   = "question_jumped"
	EventSessionCompleted = "session_completed"
	EventSessionRetried   = "session_retried"
)

// Event is one learner action worth recording for later analysis.
type Event struct {
	SessionID string
	ExamID    string
	EventType string
	Index     int
	Data      map[string]any
	CreatedAt time.Time
}

// EventLogger defines event logging behavior.
type EventLogger interface {
	LogEvent(ctx context.Context, event Event) error
}

// NopEventLogger ignores all events.
type NopEventLogger struct{}

func (NopEventLogger) LogEvent(context.Context, Event) error {
	return nil
}

// MemoryEventLogger stores events in memory for tests.
type MemoryEventLogger struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryEventLogger() *MemoryEventLogger {
	return &MemoryEventLogger{
		events: []Event{},
	}
}

func (l *MemoryEventLogger) LogEvent(_ context.Context, event Event) error {
	if event.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()

	return nil
}

func (l *MemoryEventLogger) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event{}, l.events...)
}

// EventsSchema creates the table PostgresEventLogger writes to.
const EventsSchema = `CREATE TABLE IF NOT EXISTS exam_events (
	id             BIGSERIAL PRIMARY KEY,
	session_id     TEXT NOT NULL,
	exam_id        TEXT NOT NULL,
	event_type     TEXT NOT NULL,
	exercise_index INT NOT NULL,
	data           JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS exam_events_session_idx ON exam_events (session_id, created_at);`

// PostgresEventLogger inserts events into the exam_events table.
type PostgresEventLogger struct {
	pool *pgxpool.Pool
}

func NewPostgresEventLogger(pool *pgxpool.Pool) *PostgresEventLogger {
	return &PostgresEventLogger{pool: pool}
}

// EnsureSchema creates the events table if it does not exist.
func (l *PostgresEventLogger) EnsureSchema(ctx context.Context) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("event logger pool is nil")
	}
	if _, err := l.pool.Exec(ctx, EventsSchema); err != nil {
		return fmt.Errorf("create exam_events: %w", err)
	}
	return nil
}

func (l *PostgresEventLogger) LogEvent(ctx context.Context, event Event) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("event logger pool is nil")
	}
	if event.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if event.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}

	payload := event.Data
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := l.pool.Exec(ctx,
		`INSERT INTO exam_events (session_id, exam_id, event_type, exercise_index, data, created_at)
		 VALUES ($1, $2, $3, $4, $5::jsonb, $6)`,
		event.SessionID,
		event.ExamID,
		event.EventType,
		event.Index,
		string(data),
		createdAt,
	); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	slog.Debug("event logged",
		"type", event.EventType,
		"session_id", event.SessionID,
		"exam_id", event.ExamID,
	)
	return nil
}

// CountEvents returns how many events of eventType a session has logged.
func (l *PostgresEventLogger) CountEvents(ctx context.Context, sessionID, eventType string) (int, error) {
	if l == nil || l.pool == nil {
		return 0, fmt.Errorf("event logger pool is nil")
	}
	var n int
	err := l.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_events WHERE session_id = $1 AND event_type = $2`,
		sessionID,
		eventType,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

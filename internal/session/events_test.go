package session_test

import (
	"context"
	"testing"

	"github.com/p-n-ai/pai-exam/internal/session"
)

func TestMemoryEventLogger_LogEvent(t *testing.T) {
	logger := session.NewMemoryEventLogger()

	err := logger.LogEvent(context.Background(), session.Event{
		SessionID: "s1",
		ExamID:    "mcq",
		EventType: session.EventAnswerSubmitted,
		Index:     2,
		Data: map[string]any{
			"verdict": "correct",
		},
	})
	if err != nil {
		t.Fatalf("LogEvent() error = %v", err)
	}

	events := logger.Events()
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	if events[0].EventType != session.EventAnswerSubmitted {
		t.Errorf("EventType = %q, want answer_submitted", events[0].EventType)
	}
	if events[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestMemoryEventLogger_RequiresType(t *testing.T) {
	logger := session.NewMemoryEventLogger()
	if err := logger.LogEvent(context.Background(), session.Event{SessionID: "s1"}); err == nil {
		t.Fatal("expected error for missing event type")
	}
}

func TestNopEventLogger(t *testing.T) {
	if err := (session.NopEventLogger{}).LogEvent(context.Background(), session.Event{}); err != nil {
		t.Errorf("LogEvent() error = %v", err)
	}
}

func TestPostgresEventLogger_LogEvent_NilPool(t *testing.T) {
	logger := session.NewPostgresEventLogger(nil)

	err := logger.LogEvent(context.Background(), session.Event{
		SessionID: "s1",
		EventType: session.EventSessionStarted,
	})
	if err == nil {
		t.Fatal("expected error for nil pool")
	}
}

package events

import (
	"context"
	"testing"
)

func TestMemoryLogger_LogEvent(t *testing.T) {
	logger := NewMemoryLogger()

	err := logger.LogEvent(context.Background(), Event{
		SessionID: "s-1",
		Type:      BatchStarted,
		Data:      map[string]any{"paths": 3},
	})
	if err != nil {
		t.Fatalf("LogEvent() error = %v", err)
	}

	events := logger.Events()
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	if events[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should be defaulted")
	}
	if got := logger.Types(); len(got) != 1 || got[0] != BatchStarted {
		t.Errorf("Types() = %v, want [%s]", got, BatchStarted)
	}
}

func TestMemoryLogger_RequiresType(t *testing.T) {
	logger := NewMemoryLogger()
	if err := logger.LogEvent(context.Background(), Event{SessionID: "s-1"}); err == nil {
		t.Fatal("LogEvent() should reject an event without type")
	}
}

func TestPostgresLogger_Validation(t *testing.T) {
	var nilLogger *PostgresLogger
	if err := nilLogger.LogEvent(context.Background(), Event{Type: BatchStarted, SessionID: "s"}); err == nil {
		t.Error("nil logger should return error")
	}

	logger := NewPostgresLogger(nil)
	if err := logger.LogEvent(context.Background(), Event{Type: BatchStarted, SessionID: "s"}); err == nil {
		t.Error("logger without pool should return error")
	}
}

func TestNopLogger(t *testing.T) {
	if err := (NopLogger{}).LogEvent(context.Background(), Event{}); err != nil {
		t.Errorf("NopLogger.LogEvent() error = %v", err)
	}
}

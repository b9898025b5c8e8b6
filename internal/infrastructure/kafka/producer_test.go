package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"horizon/internal/domain/events"
	"horizon/internal/shared/logging"
)

type MockWriter struct {
	WriteMessagesFunc func(ctx context.Context, msgs ...kafka.Message) error
	written           []kafka.Message
	closed            bool
}

func (m *MockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	m.written = append(m.written, msgs...)
	if m.WriteMessagesFunc != nil {
		return m.WriteMessagesFunc(ctx, msgs...)
	}
	return nil
}

func (m *MockWriter) Close() error {
	m.closed = true
	return nil
}

func TestNewProducer_NoBrokers(t *testing.T) {
	p := NewProducer(nil, "horizon.events", logging.Discard())
	if p != nil {
		t.Fatal("expected nil producer without brokers")
	}
	if err := p.Publish(context.Background(), events.Event{Type: events.TypeUserEnrolled}); err != nil {
		t.Errorf("nil producer Publish() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("nil producer Close() error = %v", err)
	}
}

func TestPublish(t *testing.T) {
	w := &MockWriter{}
	p := &Producer{writer: w, logger: logging.Discard()}
	at := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

	err := p.Publish(context.Background(), events.Event{
		Type:       events.TypeBankAccountLinked,
		UserID:     "user-1",
		OccurredAt: at,
		Data:       map[string]any{"bankId": "item-1"},
	})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if len(w.written) != 1 {
		t.Fatalf("messages = %d, want 1", len(w.written))
	}
	msg := w.written[0]
	if string(msg.Key) != "user-1" {
		t.Errorf("key = %q", msg.Key)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != events.TypeBankAccountLinked {
		t.Errorf("headers = %v", msg.Headers)
	}

	var decoded map[string]any
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("value is not JSON: %v", err)
	}
	if decoded["type"] != "bank_account.linked" || decoded["userId"] != "user-1" || decoded["occurredAt"] != "2024-06-01T09:30:00Z" {
		t.Errorf("value = %s", msg.Value)
	}
}

func TestPublish_WriteError(t *testing.T) {
	w := &MockWriter{
		WriteMessagesFunc: func(ctx context.Context, msgs ...kafka.Message) error {
			if _, ok := ctx.Deadline(); !ok {
				t.Error("publish context has no deadline")
			}
			return errors.New("broker unavailable")
		},
	}
	p := &Producer{writer: w}

	if err := p.Publish(context.Background(), events.Event{Type: events.TypeUserEnrolled, UserID: "u"}); err == nil {
		t.Error("expected error")
	}
}

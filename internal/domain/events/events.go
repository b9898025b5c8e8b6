// Package events defines the domain events emitted after successful flows.
package events

import (
	"context"
	"time"
)

const (
	TypeUserEnrolled      = "user.enrolled"
	TypeBankAccountLinked = "bank_account.linked"
)

type Event struct {
	Type       string         `json:"type"`
	UserID     string         `json:"userId"`
	OccurredAt time.Time      `json:"occurredAt"`
	Data       map[string]any `json:"data,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventTurnStart          EventType = "turn_start"
	EventActionSelected     EventType = "action_selected"
	EventActionDone         EventType = "action_done"
	EventValidationRejected EventType = "validation_rejected"
	EventTurnEnd            EventType = "turn_end"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp      time.Time `json:"timestamp"`
	Type           EventType `json:"type"`
	ConversationID string    `json:"conversation_id"`
}

// TurnEvent marks the start or the end of a turn.
type TurnEvent struct {
	EventBase
	Intent string `json:"intent,omitempty"`
	// Outcome is set on turn end: "reply", "fallback", "no_intent" or "error".
	Outcome  string        `json:"outcome,omitempty"`
	Replies  int           `json:"replies,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// ActionEvent reports an action chosen for the turn or completed during it.
type ActionEvent struct {
	EventBase
	Action string `json:"action"`
	// Blocked is the action whose dependencies redirected the selection, if any.
	Blocked string `json:"blocked,omitempty"`
	Chained bool   `json:"chained,omitempty"`
}

// ValidationEvent reports an entity refused by a validator.
type ValidationEvent struct {
	EventBase
	Alias   string `json:"alias"`
	Entity  string `json:"entity"`
	Payload any    `json:"payload,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
// Any hook may be nil.
type LifecycleHooks struct {
	OnTurnStart          func(context.Context, *TurnEvent)
	OnActionSelected     func(context.Context, *ActionEvent)
	OnActionDone         func(context.Context, *ActionEvent)
	OnValidationRejected func(context.Context, *ValidationEvent)
	OnTurnEnd            func(context.Context, *TurnEvent)
}

// NewEventBase stamps an event of type t for the conversation.
func NewEventBase(t EventType, conversationID string) EventBase {
	return EventBase{Timestamp: time.Now(), Type: t, ConversationID: conversationID}
}

// ChainHooks combines several hook sets; each callback runs in order.
func ChainHooks(hooks ...LifecycleHooks) LifecycleHooks {
	var out LifecycleHooks
	for _, h := range hooks {
		out.OnTurnStart = chain(out.OnTurnStart, h.OnTurnStart)
		out.OnActionSelected = chain(out.OnActionSelected, h.OnActionSelected)
		out.OnActionDone = chain(out.OnActionDone, h.OnActionDone)
		out.OnValidationRejected = chain(out.OnValidationRejected, h.OnValidationRejected)
		out.OnTurnEnd = chain(out.OnTurnEnd, h.OnTurnEnd)
	}
	return out
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}

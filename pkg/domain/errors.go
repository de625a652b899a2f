package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is matched by every *ConfigurationError.
	ErrConfiguration = errors.New("invalid action configuration")

	// ErrReferential is matched by every *ReferentialError.
	ErrReferential = errors.New("unknown action reference")

	// ErrNoActionForIntent is matched by every *NoActionForIntentError.
	ErrNoActionForIntent = errors.New("no action for intent")

	// ErrNoIntentMatched is returned when the classifier found no intent, no
	// contextual continuation exists and no fallback reply is configured.
	ErrNoIntentMatched = errors.New("no intent matched and no fallback reply configured")

	// ErrNoReplyAvailable is returned when a complete action has no reply producer.
	ErrNoReplyAvailable = errors.New("no reply available")

	// ErrNotReady can be returned by a ReplyProducer to signal that the action
	// should not be considered done this turn.
	ErrNotReady = errors.New("action not ready")

	// ErrSessionNotFound is returned by stores when a conversation has never been saved.
	ErrSessionNotFound = errors.New("conversation not found")

	// ErrNoClassifier is returned when text is submitted to a bot without classifier.
	ErrNoClassifier = errors.New("no classifier configured")

	// ErrClassifierUnavailable is returned when the classifier is temporarily
	// refusing calls after repeated failures.
	ErrClassifierUnavailable = errors.New("classifier unavailable")

	// ErrUnsupportedSchema is returned when a persisted state carries an unknown schema version.
	ErrUnsupportedSchema = errors.New("unsupported conversation schema version")
)

// ConfigurationError reports a malformed action or a registration conflict.
type ConfigurationError struct {
	Action string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Action == "" {
		return fmt.Sprintf("invalid action: %s", e.Reason)
	}
	return fmt.Sprintf("invalid action %q: %s", e.Action, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// ReferentialError reports a dependency on an action that is not registered.
type ReferentialError struct {
	Action  string
	Missing string
}

func (e *ReferentialError) Error() string {
	return fmt.Sprintf("action %q references unknown action %q", e.Action, e.Missing)
}

func (e *ReferentialError) Unwrap() error { return ErrReferential }

// NoActionForIntentError is returned when an intent was detected but no
// registered action carries it.
type NoActionForIntentError struct {
	Intent string
}

func (e *NoActionForIntentError) Error() string {
	return fmt.Sprintf("no action found for intent %q", e.Intent)
}

func (e *NoActionForIntentError) Unwrap() error { return ErrNoActionForIntent }

// ValidationRejected is the error a Validator returns to refuse an entity.
// Payload is surfaced to the user as the turn's informational reply.
type ValidationRejected struct {
	Alias   string
	Payload any
}

func (e *ValidationRejected) Error() string {
	if e.Alias == "" {
		return fmt.Sprintf("entity rejected: %v", e.Payload)
	}
	return fmt.Sprintf("entity rejected for %q: %v", e.Alias, e.Payload)
}

// Reject builds the error a Validator returns to refuse an entity with a
// reply value (string, Choices or Localized) shown to the user.
func Reject(payload any) error {
	return &ValidationRejected{Payload: payload}
}

package domain

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// SchemaVersion is the version written in every persisted conversation document.
const SchemaVersion = 1

// Memory maps notion aliases to their filled values.
// Values are either plain strings or structured values (Entity, map[string]any)
// as produced by validators.
type Memory map[string]any

// Has reports whether alias holds a usable value.
func (m Memory) Has(alias string) bool {
	v, ok := m[alias]
	if !ok || v == nil {
		return false
	}
	if s, isString := v.(string); isString && s == "" {
		return false
	}
	return true
}

// Clone returns a shallow copy of the memory.
func (m Memory) Clone() Memory {
	if m == nil {
		return Memory{}
	}
	return maps.Clone(m)
}

// ConversationState is the mutable record of one ongoing dialogue.
type ConversationState struct {
	ConversationID string
	Memory         Memory
	// CompletedActions is the set of action names marked done.
	CompletedActions map[string]bool
	// LastAction is the name of the last action processed ("" when none).
	LastAction string
	// UserData is an opaque bag left untouched by the engine.
	UserData map[string]any
}

// NewConversationState creates an empty state for the given conversation.
func NewConversationState(conversationID string) *ConversationState {
	return &ConversationState{
		ConversationID:   conversationID,
		Memory:           Memory{},
		CompletedActions: map[string]bool{},
		UserData:         map[string]any{},
	}
}

// Normalize makes sure every map of the state is allocated.
func (s *ConversationState) Normalize() {
	if s.Memory == nil {
		s.Memory = Memory{}
	}
	if s.CompletedActions == nil {
		s.CompletedActions = map[string]bool{}
	}
	if s.UserData == nil {
		s.UserData = map[string]any{}
	}
}

// MarkDone records the action as completed in this conversation.
func (s *ConversationState) MarkDone(name string) {
	if s.CompletedActions == nil {
		s.CompletedActions = map[string]bool{}
	}
	s.CompletedActions[name] = true
}

// IsDone reports whether the named action was completed.
func (s *ConversationState) IsDone(name string) bool {
	return s.CompletedActions[name]
}

// Reset restarts the conversation: memory, completed actions, last action and
// user data are cleared while the conversation id is kept.
func (s *ConversationState) Reset() {
	s.Memory = Memory{}
	s.CompletedActions = map[string]bool{}
	s.LastAction = ""
	s.UserData = map[string]any{}
}

// Completed returns the names of completed actions, sorted.
func (s *ConversationState) Completed() []string {
	names := make([]string, 0, len(s.CompletedActions))
	for name, done := range s.CompletedActions {
		if done {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Clone returns a copy of the state whose maps can be mutated independently.
// Memory values themselves are shared.
func (s *ConversationState) Clone() *ConversationState {
	c := *s
	c.Memory = s.Memory.Clone()
	c.CompletedActions = maps.Clone(s.CompletedActions)
	c.UserData = maps.Clone(s.UserData)
	c.Normalize()
	return &c
}

// stateDocument is the persisted shape of a ConversationState.
type stateDocument struct {
	SchemaVersion    int            `json:"schema_version"`
	ConversationID   string         `json:"conversation_id"`
	Memory           Memory         `json:"memory"`
	CompletedActions []string       `json:"completed_actions"`
	LastAction       *string        `json:"last_action"`
	UserData         map[string]any `json:"user_data"`
}

// MarshalJSON encodes the state with an explicit schema version.
func (s ConversationState) MarshalJSON() ([]byte, error) {
	doc := stateDocument{
		SchemaVersion:    SchemaVersion,
		ConversationID:   s.ConversationID,
		Memory:           s.Memory,
		CompletedActions: s.Completed(),
		UserData:         s.UserData,
	}
	if doc.Memory == nil {
		doc.Memory = Memory{}
	}
	if doc.UserData == nil {
		doc.UserData = map[string]any{}
	}
	if s.LastAction != "" {
		last := s.LastAction
		doc.LastAction = &last
	}
	return json.Marshal(doc)
}

// UnmarshalJSON decodes a persisted state, rejecting unknown schema versions.
func (s *ConversationState) UnmarshalJSON(data []byte) error {
	var doc stateDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc.SchemaVersion != SchemaVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedSchema, doc.SchemaVersion)
	}

	*s = ConversationState{
		ConversationID:   doc.ConversationID,
		Memory:           doc.Memory,
		CompletedActions: make(map[string]bool, len(doc.CompletedActions)),
		UserData:         doc.UserData,
	}
	for _, name := range doc.CompletedActions {
		s.CompletedActions[name] = true
	}
	if doc.LastAction != nil {
		s.LastAction = *doc.LastAction
	}
	s.Normalize()
	return nil
}

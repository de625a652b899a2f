package ports

import (
	"context"

	"github.com/zxsted/dialogmanager/pkg/domain"
)

// StateStore defines the interface for persisting conversation state.
// A turn loads the state, mutates it and saves it back.
type StateStore interface {
	// Save persists the state for a given conversation ID.
	Save(ctx context.Context, conversationID string, state *domain.ConversationState) error

	// Load retrieves the state for a given conversation ID.
	// Returns domain.ErrSessionNotFound if the conversation was never saved.
	Load(ctx context.Context, conversationID string) (*domain.ConversationState, error)

	// Delete removes the state for a given conversation ID.
	Delete(ctx context.Context, conversationID string) error

	// List returns the IDs of every stored conversation.
	List(ctx context.Context) ([]string, error)
}

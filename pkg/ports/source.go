package ports

import (
	"context"

	"github.com/zxsted/dialogmanager/pkg/domain"
)

// ActionSource supplies action definitions from outside the program
// (catalog files, a Loam repository).
// This allows the storage of the catalog to be decoupled from the engine.
type ActionSource interface {
	// Actions returns the compiled actions in a stable order.
	Actions(ctx context.Context) ([]*domain.Action, error)
}

// Watchable defines an interface for sources that can notify about backend changes.
// This is typically used for hot-reload or dev-mode functionality.
type Watchable interface {
	// Watch returns a channel that receives the ID of each changed document.
	Watch(ctx context.Context) (<-chan string, error)
}

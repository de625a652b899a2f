package runner

import (
	"context"
)

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (CLI/TUI) and JSON (Structured) modes.
type IOHandler interface {
	// Output presents the replies of one turn.
	Output(ctx context.Context, replies []any) error

	// Input reads the next user message.
	Input(ctx context.Context) (string, error)

	// SystemOutput presents a meta-message to the user (errors, status
	// updates). This is distinct from replies.
	SystemOutput(ctx context.Context, msg string) error
}

// ContentRenderer is a function that transforms a reply before outputting it.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)

package runner

import (
	"log/slog"

	"github.com/zxsted/dialogmanager"
)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithInputHandler configures a custom IOHandler.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithConversationID sets the conversation the runner talks in.
func WithConversationID(id string) Option {
	return func(r *Runner) {
		r.ConversationID = id
	}
}

// WithRenderer configures the content renderer (e.g. TUI, Markdown).
func WithRenderer(renderer ContentRenderer) Option {
	return func(r *Runner) {
		r.Renderer = renderer
	}
}

// WithReplyOptions sets per-message options such as the language.
func WithReplyOptions(opts ...dialogmanager.ReplyOption) Option {
	return func(r *Runner) {
		r.replyOpts = append(r.replyOpts, opts...)
	}
}

// WithExitCommands replaces the words that end the loop.
func WithExitCommands(cmds ...string) Option {
	return func(r *Runner) {
		r.ExitCommands = cmds
	}
}

package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/zxsted/dialogmanager"
	"github.com/zxsted/dialogmanager/internal/logging"
	"github.com/zxsted/dialogmanager/pkg/domain"
)

// Replier answers one user message of a conversation. *dialogmanager.Bot
// satisfies it.
type Replier interface {
	Reply(ctx context.Context, input, conversationID string, opts ...dialogmanager.ReplyOption) (*dialogmanager.Result, error)
}

// Runner drives an interactive conversation: it reads user messages
// from an IOHandler, submits them to a Replier and writes the replies
// back until the input ends, the user exits or the context is canceled.
type Runner struct {
	// Handler is the strategy for IO. Defaults to a TextHandler on stdio.
	Handler IOHandler

	// Logger is used for internal debug logging.
	Logger *slog.Logger

	// ConversationID identifies the conversation in the bot's store.
	ConversationID string

	// Renderer is applied to text replies when the default handler is used.
	Renderer ContentRenderer

	// ExitCommands end the loop when typed by the user.
	ExitCommands []string

	replyOpts []dialogmanager.ReplyOption
}

// DefaultConversationID is used when no conversation ID is configured.
const DefaultConversationID = "cli"

// NewRunner creates a Runner reading from stdin and writing to stdout.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		Logger:         logging.NewNop(),
		ConversationID: DefaultConversationID,
		ExitCommands:   []string{"exit", "quit"},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the chat loop. It returns nil when the input ends or an
// exit command is entered, and the context error when ctx is canceled.
// Errors that only concern one message (nothing matched, invalid input)
// are reported through SystemOutput and the loop continues.
func (r *Runner) Run(ctx context.Context, bot Replier) error {
	handler := r.resolveHandler()

	// Either the caller or an OS signal stops the loop.
	signals := NewSignalManager(ctx)
	defer signals.Stop()
	loopCtx := signals.Context()

	for {

		input, err := handler.Input(loopCtx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				// Interrupted by a signal.
				return nil
			}
			if errors.Is(err, ErrInputTooLarge) || errors.Is(err, ErrInvalidUTF8) {
				_ = handler.SystemOutput(ctx, err.Error())
				continue
			}
			if signals.Settle() {
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}

		if r.isExit(input) {
			return nil
		}

		res, err := bot.Reply(loopCtx, input, r.ConversationID, r.replyOpts...)
		if err != nil {
			if recoverable(err) {
				r.Logger.Debug("message not understood", "conversation", r.ConversationID, "err", err)
				if err := handler.SystemOutput(ctx, describe(err)); err != nil {
					return fmt.Errorf("output error: %w", err)
				}
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if signals.Interrupted() {
				return nil
			}
			return fmt.Errorf("reply error: %w", err)
		}

		r.Logger.Debug("turn completed", "conversation", r.ConversationID, "action", res.Action, "replies", len(res.Replies))

		if err := handler.Output(ctx, res.Replies); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
		if res.Ended {
			if err := handler.SystemOutput(ctx, "Conversation ended."); err != nil {
				return fmt.Errorf("output error: %w", err)
			}
		}
	}
}

func (r *Runner) resolveHandler() IOHandler {
	if r.Handler != nil {
		return r.Handler
	}
	return NewTextHandler(nil, nil, WithTextHandlerRenderer(r.Renderer))
}

func (r *Runner) isExit(input string) bool {
	for _, cmd := range r.ExitCommands {
		if strings.EqualFold(input, cmd) {
			return true
		}
	}
	return false
}

func recoverable(err error) bool {
	return errors.Is(err, domain.ErrNoIntentMatched) ||
		errors.Is(err, domain.ErrNoActionForIntent) ||
		errors.Is(err, domain.ErrNoReplyAvailable) ||
		errors.Is(err, domain.ErrClassifierUnavailable)
}

func describe(err error) string {
	var noAction *domain.NoActionForIntentError
	switch {
	case errors.As(err, &noAction):
		return fmt.Sprintf("I don't know how to handle %q yet.", noAction.Intent)
	case errors.Is(err, domain.ErrNoIntentMatched):
		return "Sorry, I did not understand."
	case errors.Is(err, domain.ErrClassifierUnavailable):
		return "I can't understand anything right now, try again in a moment."
	default:
		return err.Error()
	}
}

package cli

import (
	"context"
	"time"

	"github.com/zxsted/dialogmanager"
	"github.com/zxsted/dialogmanager/pkg/domain"
	"github.com/zxsted/dialogmanager/pkg/ports"
)

// The App forwards to the current Bot so that servers keep working across
// reloads.

// Bot returns the Bot built by the last successful Reload.
func (a *App) Bot() *dialogmanager.Bot {
	return a.bot.Load()
}

func (a *App) Reply(ctx context.Context, input, conversationID string, opts ...dialogmanager.ReplyOption) (*dialogmanager.Result, error) {
	return a.Bot().Reply(ctx, input, conversationID, opts...)
}

func (a *App) Conversation(ctx context.Context, conversationID string) (*domain.ConversationState, error) {
	return a.Bot().Conversation(ctx, conversationID)
}

func (a *App) Conversations(ctx context.Context) ([]string, error) {
	return a.Bot().Conversations(ctx)
}

func (a *App) ResetConversation(ctx context.Context, conversationID string) error {
	return a.Bot().ResetConversation(ctx, conversationID)
}

func (a *App) Actions() []*domain.Action {
	return a.Bot().Actions()
}

// Watcher returns the action source when it can report changes.
func (a *App) Watcher() (ports.Watchable, bool) {
	w, ok := a.Source.(ports.Watchable)
	return w, ok
}

// WatchAndReload reloads the actions on every catalog change until ctx is
// done. A failed reload keeps the previous Bot.
func (a *App) WatchAndReload(ctx context.Context) error {
	w, ok := a.Watcher()
	if !ok {
		return nil
	}
	events, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			a.Logger.Info("change detected, triggering reload", "event", event)
			// Let the editor finish writing.
			time.Sleep(100 * time.Millisecond)
			if err := a.Reload(ctx); err != nil {
				a.Logger.Error("reload failed", "err", err)
			}
		}
	}
}

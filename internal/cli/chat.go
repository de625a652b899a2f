package cli

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/zxsted/dialogmanager"
	"github.com/zxsted/dialogmanager/internal/presentation/tui"
	"github.com/zxsted/dialogmanager/pkg/ports"
	"github.com/zxsted/dialogmanager/pkg/runner"
)

// ChatOptions configure an interactive session.
type ChatOptions struct {
	ConversationID string
	Language       string
	JSON           bool
	Watch          bool
	Fresh          bool

	In  io.Reader
	Out io.Writer
	// Interactive enables the banner and markdown rendering.
	Interactive bool
}

// RunChat talks to the bot over In/Out until the input ends or ctx is
// canceled. With Watch, the bot is rebuilt whenever the action catalog
// changes and the conversation goes on with the new actions.
func RunChat(ctx context.Context, app *App, opts ChatOptions) error {
	if opts.ConversationID == "" {
		opts.ConversationID = "chat-" + uuid.NewString()[:8]
	}

	if opts.Fresh {
		if err := app.ResetConversation(ctx, opts.ConversationID); err != nil {
			return err
		}
	}

	// One handler for every iteration so that a single pump reads In.
	var handler runner.IOHandler
	if opts.JSON {
		handler = runner.NewJSONHandler(opts.In, opts.Out)
	} else {
		handler = runner.NewTextHandler(opts.In, opts.Out,
			runner.WithTextHandlerRenderer(tui.RendererFor(opts.Interactive)))
		if opts.Interactive {
			tui.PrintBanner(opts.Out, dialogmanager.Version)
			printSystemMessage(opts.Out, "Conversation '%s'. Type 'exit' to quit.", opts.ConversationID)
		}
	}

	runnerOpts := []runner.Option{
		runner.WithLogger(app.Logger),
		runner.WithConversationID(opts.ConversationID),
		runner.WithInputHandler(handler),
	}
	if opts.Language != "" {
		runnerOpts = append(runnerOpts, runner.WithReplyOptions(dialogmanager.InLanguage(opts.Language)))
	}

	watchable, ok := app.Watcher()
	if !opts.Watch || !ok {
		if opts.Watch {
			app.Logger.Warn("action source cannot be watched, hot reload disabled", "source", app.Config.Actions)
		}
		return runner.NewRunner(runnerOpts...).Run(ctx, app)
	}

	for {
		reload, err := runWatchIteration(ctx, app, watchable, runnerOpts)
		if err != nil || !reload {
			return err
		}
		if err := app.Reload(ctx); err != nil {
			// Keep the previous bot until the catalog is fixed.
			app.Logger.Error("reload failed", "err", err)
			_ = handler.SystemOutput(ctx, "Reload failed: "+err.Error())
			continue
		}
		_ = handler.SystemOutput(ctx, "Actions reloaded.")
	}
}

// runWatchIteration runs the chat until it ends (reload=false) or the
// catalog changes (reload=true).
func runWatchIteration(ctx context.Context, app *App, source ports.Watchable, runnerOpts []runner.Option) (bool, error) {
	iterCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, err := source.Watch(iterCtx)
	if err != nil {
		return false, err
	}

	reloadCh := make(chan struct{}, 1)
	go func() {
		select {
		case <-iterCtx.Done():
		case event, ok := <-events:
			if !ok {
				return
			}
			app.Logger.Info("change detected, triggering reload", "event", event)
			// Delay slightly to ensure file system is stable
			time.Sleep(100 * time.Millisecond)
			reloadCh <- struct{}{}
			cancel()
		}
	}()

	err = runner.NewRunner(runnerOpts...).Run(iterCtx, app)
	select {
	case <-reloadCh:
		return true, nil
	default:
	}
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return false, ctx.Err()
	}
	return false, err
}

package runtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/zxsted/dialogmanager/internal/logging"
	"github.com/zxsted/dialogmanager/pkg/domain"
	"github.com/zxsted/dialogmanager/pkg/ports"
	"github.com/zxsted/dialogmanager/pkg/registry"
)

// Engine runs conversational turns over an action registry.
// It holds no per-conversation state: every turn receives the state to mutate.
type Engine struct {
	registry *registry.Registry
	store    ports.StateStore
	choose   domain.Chooser
	logger   *slog.Logger
	hooks    domain.LifecycleHooks

	mu       sync.RWMutex
	fallback any
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithStore sets the store the state is written to at the end of each turn.
func WithStore(store ports.StateStore) EngineOption {
	return func(e *Engine) {
		e.store = store
	}
}

// WithChooser replaces the random choice used for prompts, transitions and replies.
func WithChooser(choose domain.Chooser) EngineOption {
	return func(e *Engine) {
		if choose != nil {
			e.choose = choose
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithFallbackReplies sets the reply used when nothing matches the input.
func WithFallbackReplies(replies any) EngineOption {
	return func(e *Engine) {
		e.fallback = replies
	}
}

// NewEngine creates an engine bound to the registry.
func NewEngine(reg *registry.Registry, opts ...EngineOption) *Engine {
	e := &Engine{
		registry: reg,
		choose:   domain.RandomChooser,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the registry the engine resolves actions from.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// SetFallbackReplies replaces the fallback reply value.
func (e *Engine) SetFallbackReplies(replies any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fallback = replies
}

// FallbackReplies returns the current fallback reply value.
func (e *Engine) FallbackReplies() any {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.fallback
}

func (e *Engine) emitTurnStart(ctx context.Context, conversationID, intent string) {
	if e.hooks.OnTurnStart == nil {
		return
	}
	e.hooks.OnTurnStart(ctx, &domain.TurnEvent{
		EventBase: domain.NewEventBase(domain.EventTurnStart, conversationID),
		Intent:    intent,
	})
}

func (e *Engine) emitTurnEnd(ctx context.Context, ev *domain.TurnEvent) {
	if e.hooks.OnTurnEnd == nil {
		return
	}
	ev.EventBase = domain.NewEventBase(domain.EventTurnEnd, ev.ConversationID)
	e.hooks.OnTurnEnd(ctx, ev)
}

func (e *Engine) emitActionSelected(ctx context.Context, conversationID, action, blocked string) {
	if e.hooks.OnActionSelected == nil {
		return
	}
	e.hooks.OnActionSelected(ctx, &domain.ActionEvent{
		EventBase: domain.NewEventBase(domain.EventActionSelected, conversationID),
		Action:    action,
		Blocked:   blocked,
	})
}

func (e *Engine) emitActionDone(ctx context.Context, conversationID, action string, chained bool) {
	if e.hooks.OnActionDone == nil {
		return
	}
	e.hooks.OnActionDone(ctx, &domain.ActionEvent{
		EventBase: domain.NewEventBase(domain.EventActionDone, conversationID),
		Action:    action,
		Chained:   chained,
	})
}

func (e *Engine) emitValidationRejected(ctx context.Context, conversationID string, target resolvedEntity, payload any) {
	if e.hooks.OnValidationRejected == nil {
		return
	}
	e.hooks.OnValidationRejected(ctx, &domain.ValidationEvent{
		EventBase: domain.NewEventBase(domain.EventValidationRejected, conversationID),
		Alias:     target.ref.Alias,
		Entity:    target.ref.Entity,
		Payload:   payload,
	})
}

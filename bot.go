package dialogmanager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zxsted/dialogmanager/internal/logging"
	"github.com/zxsted/dialogmanager/internal/runtime"
	"github.com/zxsted/dialogmanager/pkg/adapters/memory"
	"github.com/zxsted/dialogmanager/pkg/domain"
	"github.com/zxsted/dialogmanager/pkg/ports"
	"github.com/zxsted/dialogmanager/pkg/registry"
	"github.com/zxsted/dialogmanager/pkg/session"
)

// Bot is the high-level entry point of the library.
// It owns an action registry, runs one turn per user message and keeps
// conversation states in a store, one writer per conversation at a time.
type Bot struct {
	registry   *registry.Registry
	engine     *runtime.Engine
	sessions   *session.Manager
	classifier ports.Classifier

	store    ports.StateStore
	locker   ports.DistributedLocker
	lockTTL  time.Duration
	language string
	token    string
	fallback any
	chooser  domain.Chooser
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	actions  []*domain.Action
}

// Option defines a functional option for configuring the Bot.
type Option func(*Bot)

// WithClassifier sets the classifier used by Reply.
func WithClassifier(c ports.Classifier) Option {
	return func(b *Bot) {
		b.classifier = c
	}
}

// WithStore sets where conversation states are kept. Defaults to memory.
func WithStore(store ports.StateStore) Option {
	return func(b *Bot) {
		b.store = store
	}
}

// WithLocker enables distributed locking of conversations across replicas.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(b *Bot) {
		b.locker = locker
	}
}

// WithLockTTL sets the lease of distributed conversation locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(b *Bot) {
		b.lockTTL = ttl
	}
}

// WithLanguage sets the default language hint sent to the classifier.
func WithLanguage(language string) Option {
	return func(b *Bot) {
		b.language = language
	}
}

// WithToken sets the default classifier token.
func WithToken(token string) Option {
	return func(b *Bot) {
		b.token = token
	}
}

// WithFallbackReplies sets the reply used when nothing matches the input.
func WithFallbackReplies(replies any) Option {
	return func(b *Bot) {
		b.fallback = replies
	}
}

// WithChooser replaces the random choice (prompts, transitions, replies).
func WithChooser(choose domain.Chooser) Option {
	return func(b *Bot) {
		b.chooser = choose
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(b *Bot) {
		b.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bot) {
		b.logger = logger
	}
}

// WithActions registers actions at construction time.
func WithActions(actions ...*domain.Action) Option {
	return func(b *Bot) {
		b.actions = append(b.actions, actions...)
	}
}

// New creates a Bot. It fails if one of the WithActions actions is invalid.
func New(opts ...Option) (*Bot, error) {
	b := &Bot{
		registry: registry.NewRegistry(),
		language: domain.DefaultLanguage,
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.logger == nil {
		b.logger = logging.NewNop()
	}
	if b.store == nil {
		b.store = memory.NewStore()
	}

	sessionOpts := []session.Option{session.WithLogger(b.logger)}
	if b.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(b.locker))
	}
	if b.lockTTL > 0 {
		sessionOpts = append(sessionOpts, session.WithLockTTL(b.lockTTL))
	}
	b.sessions = session.NewManager(b.store, sessionOpts...)

	b.engine = runtime.NewEngine(b.registry,
		runtime.WithStore(b.store),
		runtime.WithChooser(b.chooser),
		runtime.WithLogger(b.logger),
		runtime.WithLifecycleHooks(b.hooks),
		runtime.WithFallbackReplies(b.fallback),
	)

	if err := b.registry.RegisterAll(b.actions...); err != nil {
		return nil, err
	}
	b.actions = nil
	return b, nil
}

// Register adds one action. Invalid or duplicate actions are rejected with
// a *domain.ConfigurationError and leave the registry unchanged.
func (b *Bot) Register(action *domain.Action) error {
	return b.registry.Register(action)
}

// RegisterAll registers actions in order and stops at the first failure.
func (b *Bot) RegisterAll(actions ...*domain.Action) error {
	return b.registry.RegisterAll(actions...)
}

// Load registers every action of the source.
func (b *Bot) Load(ctx context.Context, src ports.ActionSource) error {
	actions, err := src.Actions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load actions: %w", err)
	}
	return b.RegisterAll(actions...)
}

// FindAction returns a registered action by name.
func (b *Bot) FindAction(name string) (*domain.Action, bool) {
	return b.registry.Action(name)
}

// MarkDone marks the named action as completed in the state.
func (b *Bot) MarkDone(name string, state *domain.ConversationState) error {
	if _, ok := b.registry.Action(name); !ok {
		return &domain.ReferentialError{Missing: name}
	}
	state.MarkDone(name)
	return nil
}

// SetFallbackReplies replaces the fallback reply value.
func (b *Bot) SetFallbackReplies(replies any) {
	b.engine.SetFallbackReplies(replies)
}

// Actions returns the registered actions in registration order.
func (b *Bot) Actions() []*domain.Action {
	return b.registry.All()
}

// Registry returns the underlying action registry.
func (b *Bot) Registry() *registry.Registry {
	return b.registry
}

// Sessions returns the conversation manager.
func (b *Bot) Sessions() *session.Manager {
	return b.sessions
}

// ReplyOptions override the bot defaults for one message.
type ReplyOptions struct {
	Language string
	Token    string
}

// ReplyOption customizes a single Reply call.
type ReplyOption func(*ReplyOptions)

// InLanguage overrides the language hint sent to the classifier.
func InLanguage(language string) ReplyOption {
	return func(o *ReplyOptions) {
		o.Language = language
	}
}

// WithRequestToken overrides the classifier token.
func WithRequestToken(token string) ReplyOption {
	return func(o *ReplyOptions) {
		o.Token = token
	}
}

// Result is the outcome of one turn.
type Result struct {
	Replies   []any
	Action    string
	Blocked   string
	Chained   string
	Completed bool
	Ended     bool
	Fallback  bool
	// State is a snapshot of the conversation after the turn.
	State *domain.ConversationState
}

// Reply classifies the input and runs one turn of the conversation.
func (b *Bot) Reply(ctx context.Context, input, conversationID string, opts ...ReplyOption) (*Result, error) {
	if b.classifier == nil {
		return nil, domain.ErrNoClassifier
	}

	o := ReplyOptions{Language: b.language, Token: b.token}
	for _, opt := range opts {
		opt(&o)
	}

	analysis, err := b.classifier.Analyze(ctx, ports.ClassifyRequest{
		Text:     input,
		Language: o.Language,
		Token:    o.Token,
	})
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	return b.Process(ctx, analysis, conversationID)
}

// Process runs one turn from an already classified message. The
// conversation is created on its first turn.
func (b *Bot) Process(ctx context.Context, analysis *domain.Analysis, conversationID string) (*Result, error) {
	var result *Result
	err := b.sessions.Update(ctx, conversationID, func(ctx context.Context, state *domain.ConversationState) error {
		res, err := b.engine.Turn(ctx, state, analysis)
		if err != nil {
			return err
		}
		result = &Result{
			Replies:   res.Replies,
			Action:    res.Action,
			Blocked:   res.Blocked,
			Chained:   res.Chained,
			Completed: res.Completed,
			Ended:     res.Ended,
			Fallback:  res.Fallback,
			State:     state.Clone(),
		}
		return nil
	})
	if err != nil {
		b.logger.Debug("turn failed", "conversation_id", conversationID, "error", err)
		return nil, err
	}
	return result, nil
}

// Conversation loads a conversation state. It returns
// domain.ErrSessionNotFound for an unknown ID.
func (b *Bot) Conversation(ctx context.Context, conversationID string) (*domain.ConversationState, error) {
	return b.sessions.Load(ctx, conversationID)
}

// Conversations lists the IDs of the stored conversations.
func (b *Bot) Conversations(ctx context.Context) ([]string, error) {
	return b.sessions.List(ctx)
}

// ResetConversation forgets a conversation. Unknown IDs are not an error.
func (b *Bot) ResetConversation(ctx context.Context, conversationID string) error {
	err := b.sessions.Delete(ctx, conversationID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil
	}
	return err
}

package runtime_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zxsted/dialogmanager/internal/runtime"
	"github.com/zxsted/dialogmanager/pkg/domain"
)

type recordingStore struct {
	mu    sync.Mutex
	saved map[string]*domain.ConversationState
	err   error
}

func (s *recordingStore) Save(_ context.Context, id string, state *domain.ConversationState) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saved == nil {
		s.saved = make(map[string]*domain.ConversationState)
	}
	s.saved[id] = state.Clone()
	return nil
}

func (s *recordingStore) Load(_ context.Context, id string) (*domain.ConversationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.saved[id]; ok {
		return st.Clone(), nil
	}
	return nil, domain.ErrSessionNotFound
}

func (s *recordingStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.saved, id)
	return nil
}

func (s *recordingStore) List(context.Context) ([]string, error) { return nil, nil }

func intent(slug string, entities map[string][]domain.Entity) *domain.Analysis {
	a := &domain.Analysis{Entities: entities, Language: "en"}
	if slug != "" {
		a.Intents = []domain.Intent{{Slug: slug, Confidence: 0.9}}
	}
	return a
}

func TestTurn_FullConversation(t *testing.T) {
	store := &recordingStore{}
	engine := newEngine(t, shopGraph(), runtime.WithStore(store))
	ctx := context.Background()
	state := domain.NewConversationState("conv-1")

	res, err := engine.Turn(ctx, state, intent("goodbyes", nil))
	require.NoError(t, err)
	assert.Equal(t, []any{"Let's start with introductions.", "What is your name?"}, res.Replies)
	assert.Equal(t, "Greetings", res.Action)
	assert.Equal(t, "Greetings", state.LastAction)

	res, err = engine.Turn(ctx, state, intent("", map[string][]domain.Entity{
		"person": {{"raw": "Jean"}},
	}))
	require.NoError(t, err)
	assert.Equal(t, []any{"Hello Jean!"}, res.Replies)
	assert.True(t, res.Completed)
	assert.True(t, state.IsDone("Greetings"))

	res, err = engine.Turn(ctx, state, intent("order", map[string][]domain.Entity{
		"product": {{"raw": "pizza"}},
	}))
	require.NoError(t, err)
	assert.Equal(t, []any{"One pizza coming up."}, res.Replies)

	res, err = engine.Turn(ctx, state, intent("delivery", map[string][]domain.Entity{
		"datetime": {{"raw": "tomorrow", "formatted": "Tomorrow at 9"}},
	}))
	require.NoError(t, err)
	assert.Equal(t, []any{"Delivery on Tomorrow at 9."}, res.Replies)

	saved, err := store.Load(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Delivery", "Greetings", "Order"}, saved.Completed())
	assert.Equal(t, "Delivery", saved.LastAction)

	res, err = engine.Turn(ctx, state, intent("goodbyes", nil))
	require.NoError(t, err)
	assert.Equal(t, []any{"Bye Jean"}, res.Replies, "ending reply sees the memory before reset")
	assert.True(t, res.Ended)
	assert.Empty(t, state.Memory)
	assert.Empty(t, state.Completed())
	assert.Empty(t, state.LastAction)
	assert.Equal(t, "conv-1", state.ConversationID)

	saved, err = store.Load(ctx, "conv-1")
	require.NoError(t, err)
	assert.Empty(t, saved.Completed())
}

func TestTurn_Fallback(t *testing.T) {
	ctx := context.Background()

	t.Run("no fallback configured", func(t *testing.T) {
		engine := newEngine(t, shopGraph())
		_, err := engine.Turn(ctx, domain.NewConversationState("c"), intent("", nil))
		assert.ErrorIs(t, err, domain.ErrNoIntentMatched)
	})

	t.Run("fallback is localized and not persisted", func(t *testing.T) {
		store := &recordingStore{}
		engine := newEngine(t, shopGraph(),
			runtime.WithStore(store),
			runtime.WithFallbackReplies(domain.Localized{"en": domain.Choices{"Sorry?"}, "fr": "Pardon ?"}))

		a := intent("", nil)
		a.Language = "fr"
		res, err := engine.Turn(ctx, domain.NewConversationState("c"), a)
		require.NoError(t, err)
		assert.True(t, res.Fallback)
		assert.Equal(t, []any{"Pardon ?"}, res.Replies)
		assert.Empty(t, store.saved)
	})

	t.Run("set after construction", func(t *testing.T) {
		engine := newEngine(t, shopGraph())
		engine.SetFallbackReplies(domain.Choices{"Come again?"})
		res, err := engine.Turn(ctx, domain.NewConversationState("c"), intent("", nil))
		require.NoError(t, err)
		assert.Equal(t, []any{"Come again?"}, res.Replies)
	})
}

func TestTurn_UnknownIntent(t *testing.T) {
	engine := newEngine(t, shopGraph())
	_, err := engine.Turn(context.Background(), domain.NewConversationState("c"), intent("weather", nil))

	var noAction *domain.NoActionForIntentError
	require.ErrorAs(t, err, &noAction)
	assert.Equal(t, "weather", noAction.Intent)
}

func TestTurn_AmbiguousDependency(t *testing.T) {
	actions := []*domain.Action{
		{Name: "Login", Intent: "login", Producer: reply("Logged in")},
		{Name: "Guest", Intent: "guest", Producer: reply("Welcome guest")},
		{Name: "Checkout", Intent: "checkout", Dependencies: []domain.DependencyGroup{
			requires("Log in or continue as a guest?", "Login", "Guest"),
		}, Producer: reply("Paid")},
		{Name: "Cart", Intent: "cart", Notions: []domain.NotionGroup{notion("product", "item", nil)}},
	}
	store := &recordingStore{}
	engine := newEngine(t, actions, runtime.WithStore(store))
	state := domain.NewConversationState("c")

	res, err := engine.Turn(context.Background(), state, intent("checkout", map[string][]domain.Entity{
		"product": {{"raw": "book"}},
	}))
	require.NoError(t, err)
	assert.Equal(t, []any{"Log in or continue as a guest?"}, res.Replies)
	assert.Empty(t, res.Action)
	assert.Equal(t, "Checkout", res.Blocked)
	assert.Equal(t, "Checkout", state.LastAction)
	assert.Equal(t, domain.Entity{"raw": "book"}, state.Memory["item"], "global slots are still filled")
	assert.Contains(t, store.saved, "c")
}

func TestTurn_ChainedAction(t *testing.T) {
	actions := []*domain.Action{
		{Name: "Pay", Intent: "pay", Next: "Survey", Producer: reply("Payment received.")},
		{Name: "Survey", Intent: "survey", Notions: []domain.NotionGroup{
			notion("number", "rating", domain.Localized{"en": "How would you rate us?"}),
		}},
	}
	engine := newEngine(t, actions)
	state := domain.NewConversationState("c")

	res, err := engine.Turn(context.Background(), state, intent("pay", nil))
	require.NoError(t, err)
	assert.Equal(t, []any{"Payment received.", "How would you rate us?"}, res.Replies)
	assert.Equal(t, "Survey", res.Chained)
	assert.True(t, state.IsDone("Pay"))
	assert.False(t, state.IsDone("Survey"))
}

func TestTurn_ChainedActionMissing(t *testing.T) {
	engine := newEngine(t, []*domain.Action{{Name: "Pay", Intent: "pay", Next: "Ghost", Producer: reply("ok")}})
	_, err := engine.Turn(context.Background(), domain.NewConversationState("c"), intent("pay", nil))
	assert.ErrorIs(t, err, domain.ErrReferential)
}

func TestTurn_ProducerNotReady(t *testing.T) {
	actions := []*domain.Action{{
		Name:   "Quote",
		Intent: "quote",
		Producer: domain.ReplyFunc(func(context.Context, *domain.TurnContext) (any, error) {
			return nil, domain.ErrNotReady
		}),
	}}
	engine := newEngine(t, actions)
	state := domain.NewConversationState("c")

	res, err := engine.Turn(context.Background(), state, intent("quote", nil))
	require.NoError(t, err)
	assert.Empty(t, res.Replies)
	assert.False(t, res.Completed)
	assert.False(t, state.IsDone("Quote"))
}

func TestTurn_NoReplyAvailable(t *testing.T) {
	engine := newEngine(t, []*domain.Action{{Name: "Silent", Intent: "silent"}})
	_, err := engine.Turn(context.Background(), domain.NewConversationState("c"), intent("silent", nil))
	assert.ErrorIs(t, err, domain.ErrNoReplyAvailable)
}

func TestTurn_RejectionComesBeforeReply(t *testing.T) {
	actions := []*domain.Action{{
		Name:   "Age",
		Intent: "age",
		Notions: []domain.NotionGroup{{
			Entities: []domain.EntityRef{{
				Entity: "number",
				Alias:  "age",
				Validator: func(context.Context, domain.Entity, domain.Memory) (any, error) {
					return nil, domain.Reject("You must be an adult.")
				},
			}},
			IsMissing: "How old are you?",
		}},
		Producer: reply("Thanks"),
	}}
	engine := newEngine(t, actions)

	res, err := engine.Turn(context.Background(), domain.NewConversationState("c"), intent("age", map[string][]domain.Entity{
		"number": {{"raw": "12"}},
	}))
	require.NoError(t, err)
	assert.Equal(t, []any{"You must be an adult.", "How old are you?"}, res.Replies)
}

func TestTurn_PersistFailure(t *testing.T) {
	boom := errors.New("disk full")
	engine := newEngine(t, shopGraph(), runtime.WithStore(&recordingStore{err: boom}))

	_, err := engine.Turn(context.Background(), domain.NewConversationState("c"), intent("greetings", nil))
	assert.ErrorIs(t, err, boom)
}

func TestTurn_Hooks(t *testing.T) {
	var (
		outcomes []string
		selected []string
		done     []string
	)
	hooks := domain.LifecycleHooks{
		OnActionSelected: func(_ context.Context, ev *domain.ActionEvent) { selected = append(selected, ev.Action) },
		OnActionDone:     func(_ context.Context, ev *domain.ActionEvent) { done = append(done, ev.Action) },
		OnTurnEnd:        func(_ context.Context, ev *domain.TurnEvent) { outcomes = append(outcomes, ev.Outcome) },
	}
	engine := newEngine(t, shopGraph(), runtime.WithLifecycleHooks(hooks))
	state := domain.NewConversationState("c")

	_, err := engine.Turn(context.Background(), state, intent("greetings", map[string][]domain.Entity{
		"person": {{"raw": "Ana"}},
	}))
	require.NoError(t, err)
	_, err = engine.Turn(context.Background(), state, intent("weather", nil))
	require.Error(t, err)

	assert.Equal(t, []string{"Greetings"}, selected)
	assert.Equal(t, []string{"Greetings"}, done)
	assert.Equal(t, []string{runtime.OutcomeReply, runtime.OutcomeNoIntent}, outcomes)
}

package dialogmanager_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zxsted/dialogmanager"
	"github.com/zxsted/dialogmanager/pkg/adapters/memory"
	"github.com/zxsted/dialogmanager/pkg/domain"
	"github.com/zxsted/dialogmanager/pkg/ports"
)

// keywordClassifier maps the first word of the text to an intent and the
// remaining "type:value" words to entities.
func keywordClassifier(requests *[]ports.ClassifyRequest) ports.Classifier {
	var mu sync.Mutex
	return ports.ClassifierFunc(func(_ context.Context, req ports.ClassifyRequest) (*domain.Analysis, error) {
		if requests != nil {
			mu.Lock()
			*requests = append(*requests, req)
			mu.Unlock()
		}
		a := &domain.Analysis{Entities: map[string][]domain.Entity{}, Language: req.Language}
		for i, word := range strings.Fields(req.Text) {
			if typ, value, ok := strings.Cut(word, ":"); ok {
				a.Entities[typ] = append(a.Entities[typ], domain.Entity{"raw": value})
				continue
			}
			if i == 0 && word != "-" {
				a.Intents = []domain.Intent{{Slug: word, Confidence: 0.9}}
			}
		}
		return a, nil
	})
}

func shop() []*domain.Action {
	return []*domain.Action{
		{
			Name:   "Greetings",
			Intent: "greetings",
			Notions: []domain.NotionGroup{{
				Entities:  []domain.EntityRef{{Entity: "person", Alias: "name"}},
				IsMissing: domain.Localized{"en": "What is your name?", "fr": "Comment vous appelez-vous ?"},
			}},
			Producer: domain.StaticReply{Value: domain.Localized{"en": "Hello {{name}}!", "fr": "Bonjour {{name}} !"}},
		},
		{
			Name:   "Order",
			Intent: "order",
			Dependencies: []domain.DependencyGroup{{
				Actions:   []string{"Greetings"},
				IsMissing: "Let's start with introductions.",
			}},
			Notions: []domain.NotionGroup{{
				Entities:  []domain.EntityRef{{Entity: "product", Alias: "product"}},
				IsMissing: "What would you like?",
			}},
			Producer: domain.StaticReply{Value: "One {{product}} coming up."},
		},
		{
			Name:   "Goodbyes",
			Intent: "goodbyes",
			Dependencies: []domain.DependencyGroup{{
				Actions:   []string{"Order"},
				IsMissing: "You have not ordered yet.",
			}},
			EndsConversation: true,
			Producer:         domain.StaticReply{Value: "Bye {{name}}"},
		},
	}
}

func newBot(t *testing.T, opts ...dialogmanager.Option) *dialogmanager.Bot {
	t.Helper()
	opts = append([]dialogmanager.Option{
		dialogmanager.WithClassifier(keywordClassifier(nil)),
		dialogmanager.WithChooser(domain.FirstChooser),
		dialogmanager.WithActions(shop()...),
	}, opts...)
	bot, err := dialogmanager.New(opts...)
	require.NoError(t, err)
	return bot
}

func TestBot_Conversation(t *testing.T) {
	store := memory.NewStore()
	bot := newBot(t, dialogmanager.WithStore(store))
	ctx := context.Background()

	res, err := bot.Reply(ctx, "order product:pizza", "c1")
	require.NoError(t, err)
	assert.Equal(t, []any{"Let's start with introductions.", "What is your name?"}, res.Replies)
	assert.Equal(t, "Greetings", res.Action)
	assert.Equal(t, domain.Entity{"raw": "pizza"}, res.State.Memory["product"], "unique open slot is filled")

	res, err = bot.Reply(ctx, "- person:Jean", "c1")
	require.NoError(t, err)
	assert.Equal(t, []any{"Hello Jean!"}, res.Replies)

	res, err = bot.Reply(ctx, "order", "c1")
	require.NoError(t, err)
	assert.Equal(t, []any{"One pizza coming up."}, res.Replies)

	saved, err := bot.Conversation(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Greetings", "Order"}, saved.Completed())
	assert.Equal(t, "Order", saved.LastAction)

	res, err = bot.Reply(ctx, "goodbyes", "c1")
	require.NoError(t, err)
	assert.Equal(t, []any{"Bye Jean"}, res.Replies)
	assert.True(t, res.Ended)

	saved, err = store.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, saved.Memory)
	assert.Empty(t, saved.Completed())
}

func TestBot_ReplyOptions(t *testing.T) {
	var requests []ports.ClassifyRequest
	bot := newBot(t,
		dialogmanager.WithClassifier(keywordClassifier(&requests)),
		dialogmanager.WithToken("default-token"),
	)

	res, err := bot.Reply(context.Background(), "greetings", "c1",
		dialogmanager.InLanguage("fr"),
		dialogmanager.WithRequestToken("per-call"))
	require.NoError(t, err)
	assert.Equal(t, []any{"Comment vous appelez-vous ?"}, res.Replies)

	_, err = bot.Reply(context.Background(), "greetings", "c2")
	require.NoError(t, err)

	require.Len(t, requests, 2)
	assert.Equal(t, ports.ClassifyRequest{Text: "greetings", Language: "fr", Token: "per-call"}, requests[0])
	assert.Equal(t, ports.ClassifyRequest{Text: "greetings", Language: "en", Token: "default-token"}, requests[1])
}

func TestBot_Fallback(t *testing.T) {
	bot := newBot(t)
	ctx := context.Background()

	_, err := bot.Reply(ctx, "- nothing", "c1")
	assert.ErrorIs(t, err, domain.ErrNoIntentMatched)

	bot.SetFallbackReplies(domain.Choices{"Sorry?"})
	res, err := bot.Reply(ctx, "- nothing", "c1")
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Equal(t, []any{"Sorry?"}, res.Replies)

	_, err = bot.Conversation(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound, "fallback turns are not persisted")
}

func TestBot_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("no classifier", func(t *testing.T) {
		bot, err := dialogmanager.New()
		require.NoError(t, err)
		_, err = bot.Reply(ctx, "hello", "c1")
		assert.ErrorIs(t, err, domain.ErrNoClassifier)
	})

	t.Run("classifier failure", func(t *testing.T) {
		boom := errors.New("classifier down")
		bot := newBot(t, dialogmanager.WithClassifier(ports.ClassifierFunc(
			func(context.Context, ports.ClassifyRequest) (*domain.Analysis, error) { return nil, boom })))
		_, err := bot.Reply(ctx, "hello", "c1")
		assert.ErrorIs(t, err, boom)
	})

	t.Run("unknown intent", func(t *testing.T) {
		bot := newBot(t)
		_, err := bot.Reply(ctx, "weather", "c1")
		assert.ErrorIs(t, err, domain.ErrNoActionForIntent)
	})

	t.Run("invalid action at construction", func(t *testing.T) {
		_, err := dialogmanager.New(dialogmanager.WithActions(&domain.Action{Name: "NoIntent"}))
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})
}

func TestBot_Registration(t *testing.T) {
	bot := newBot(t)

	err := bot.Register(&domain.Action{Name: "Greetings", Intent: "hello"})
	assert.ErrorIs(t, err, domain.ErrConfiguration, "duplicate name")

	require.NoError(t, bot.RegisterAll(
		&domain.Action{Name: "Help", Intent: "help"},
		&domain.Action{Name: "About", Intent: "about"},
	))

	a, ok := bot.FindAction("Help")
	require.True(t, ok)
	assert.Equal(t, "help", a.Intent)

	_, ok = bot.FindAction("Missing")
	assert.False(t, ok)

	names := make([]string, 0)
	for _, a := range bot.Actions() {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"Greetings", "Order", "Goodbyes", "Help", "About"}, names)
}

func TestBot_MarkDone(t *testing.T) {
	bot := newBot(t)
	state := domain.NewConversationState("c1")

	require.NoError(t, bot.MarkDone("Greetings", state))
	assert.True(t, state.IsDone("Greetings"))

	assert.ErrorIs(t, bot.MarkDone("Ghost", state), domain.ErrReferential)
}

func TestBot_ResetConversation(t *testing.T) {
	bot := newBot(t)
	ctx := context.Background()

	_, err := bot.Reply(ctx, "greetings person:Ana", "c1")
	require.NoError(t, err)

	ids, err := bot.Conversations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, ids)

	require.NoError(t, bot.ResetConversation(ctx, "c1"))
	require.NoError(t, bot.ResetConversation(ctx, "never-seen"))

	_, err = bot.Conversation(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestBot_ConcurrentTurnsOnOneConversation(t *testing.T) {
	bot := newBot(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := bot.Reply(ctx, "greetings person:Ana", "shared")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	state, err := bot.Conversation(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, []string{"Greetings"}, state.Completed())
}

package testutils

import (
	"context"
	"strings"

	"github.com/zxsted/dialogmanager/pkg/domain"
	"github.com/zxsted/dialogmanager/pkg/ports"
)

// KeywordClassifier maps the first word of the text to an intent and the
// remaining "type:value" words to entities. A leading "-" means no intent.
func KeywordClassifier() ports.Classifier {
	return ports.ClassifierFunc(func(_ context.Context, req ports.ClassifyRequest) (*domain.Analysis, error) {
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

// GreetingActions is a two-step graph: Greetings asks for a name and
// Goodbyes, which depends on it, ends the conversation.
func GreetingActions() []*domain.Action {
	return []*domain.Action{
		{
			Name:   "Greetings",
			Intent: "greetings",
			Notions: []domain.NotionGroup{{
				Entities:  []domain.EntityRef{{Entity: "person", Alias: "name"}},
				IsMissing: "What is your name?",
			}},
			Producer: domain.StaticReply{Value: "Hello {{name}}!"},
		},
		{
			Name:             "Goodbyes",
			Intent:           "goodbyes",
			Dependencies:     []domain.DependencyGroup{{Actions: []string{"Greetings"}, IsMissing: "Say hello first."}},
			EndsConversation: true,
			Producer:         domain.StaticReply{Value: "Bye {{name}}"},
		},
	}
}

/*
Package dialogmanager decides, turn by turn, what a conversational agent
should do next.

A bot is a graph of actions. Each action answers one intent, needs some
pieces of information (notions, filled from classified entities) and may
depend on other actions being done first. On every user message the bot
picks the action matching the detected intent, walks its unmet dependencies
down to the step that can actually run, stores the new entities in the
conversation memory (running validators concurrently), runs the action and
returns the replies. Conversation states are persisted between turns.

# Usage

	greet := &domain.Action{
		Name:   "Greetings",
		Intent: "greetings",
		Notions: []domain.NotionGroup{{
			Entities:  []domain.EntityRef{{Entity: "person", Alias: "name"}},
			IsMissing: domain.Localized{"en": "What is your name?"},
		}},
		Producer: domain.StaticReply{Value: "Hello {{name}}!"},
	}

	bot, err := dialogmanager.New(
		dialogmanager.WithClassifier(recast.New(recast.WithToken(token))),
		dialogmanager.WithActions(greet),
		dialogmanager.WithFallbackReplies(domain.Choices{"Sorry?", "Come again?"}),
	)
	if err != nil {
		log.Fatal(err)
	}

	res, err := bot.Reply(ctx, "Hi, I'm Jean", "conversation-1")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(res.Replies...)

Actions can also be declared as data (see package catalog) and loaded from a
directory with the Loam adapter.
*/
package dialogmanager

package dsl_test

import (
	"context"
	"fmt"

	"github.com/zxsted/dialogmanager"
	"github.com/zxsted/dialogmanager/pkg/domain"
	"github.com/zxsted/dialogmanager/pkg/dsl"
	"github.com/zxsted/dialogmanager/pkg/schema"
)

func ExampleBuilder() {
	b := dsl.New()
	b.Add("Booking").
		On("booking").
		Needs("number", "guests").As(schema.Int(), "How many people, in digits?").Ask("For how many people?").
		Reply("Table for {{guests.value}}.")

	bot, err := dialogmanager.New()
	if err != nil {
		panic(err)
	}
	ctx := context.Background()
	if err := bot.Load(ctx, b); err != nil {
		panic(err)
	}

	res, _ := bot.Process(ctx, &domain.Analysis{
		Intents:  []domain.Intent{{Slug: "booking", Confidence: 0.9}},
		Entities: map[string][]domain.Entity{"number": {{"raw": "a few"}}},
	}, "c")
	fmt.Println(res.Replies...)

	res, _ = bot.Process(ctx, &domain.Analysis{
		Entities: map[string][]domain.Entity{"number": {{"raw": "4"}}},
	}, "c")
	fmt.Println(res.Replies...)

	// Output:
	// How many people, in digits? For how many people?
	// Table for 4.
}

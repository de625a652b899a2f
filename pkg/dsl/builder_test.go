package dsl

import (
	"context"
	"errors"
	"testing"

	"github.com/zxsted/dialogmanager/pkg/domain"
	"github.com/zxsted/dialogmanager/pkg/schema"
)

func TestBuilder_SimpleGraph(t *testing.T) {
	// 1. Build the graph using DSL
	b := New()

	b.Add("Greetings").
		On("greetings").
		Needs("person", "name").Or("email", "contact").Ask("What is your name?").
		Reply("Hello {{name}}!")

	b.Add("Login").On("login").Reply("Logged in.")
	b.Add("Guest").On("guest").Reply("Welcome.")

	b.Add("Checkout").
		On("checkout").
		After("Greetings").Otherwise("Introduce yourself first.").
		After("Login", "Guest").
		Then("Survey").
		Reply(domain.Choices{"Paid.", "Done."})

	b.Add("Survey").
		On("survey").
		Needs("number", "rating").As(schema.Int(), "A number please.").
		Ends().
		Reply("Thanks!")

	// 2. Compile
	actions, err := b.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if len(actions) != 5 {
		t.Fatalf("Expected 5 actions, got %d", len(actions))
	}

	// 3. Verify specific actions
	greet := actions[0]
	if greet.Name != "Greetings" || greet.Intent != "greetings" {
		t.Errorf("Unexpected first action %s/%s", greet.Name, greet.Intent)
	}
	if len(greet.Notions) != 1 || len(greet.Notions[0].Entities) != 2 {
		t.Fatalf("Expected one notion group with 2 entities, got %+v", greet.Notions)
	}
	if greet.Notions[0].IsMissing != "What is your name?" {
		t.Errorf("Unexpected IsMissing %v", greet.Notions[0].IsMissing)
	}

	checkout := actions[3]
	if len(checkout.Dependencies) != 2 {
		t.Fatalf("Expected 2 dependency groups, got %d", len(checkout.Dependencies))
	}
	if checkout.Dependencies[0].IsMissing != "Introduce yourself first." {
		t.Errorf("Unexpected dependency IsMissing %v", checkout.Dependencies[0].IsMissing)
	}
	if got := checkout.Dependencies[1].Actions; len(got) != 2 || got[0] != "Login" || got[1] != "Guest" {
		t.Errorf("Unexpected alternatives %v", got)
	}
	if checkout.Next != "Survey" {
		t.Errorf("Expected Next 'Survey', got %q", checkout.Next)
	}

	survey := actions[4]
	if !survey.EndsConversation {
		t.Error("Expected Survey to end the conversation")
	}
	validator := survey.Notions[0].Entities[0].Validator
	if validator == nil {
		t.Fatal("Expected a typed validator on rating")
	}
	out, err := validator(context.Background(), domain.Entity{"raw": "5"}, nil)
	if err != nil {
		t.Fatalf("validator failed: %v", err)
	}
	if out.(domain.Entity)["value"] != 5 {
		t.Errorf("Expected coerced value 5, got %v", out)
	}
}

func TestBuilder_AddReturnsExisting(t *testing.T) {
	b := New()
	first := b.Add("A").On("a")
	if b.Add("A") != first {
		t.Error("Add should return the existing builder")
	}

	actions, err := b.Actions(context.Background())
	if err != nil {
		t.Fatalf("Actions() failed: %v", err)
	}
	if len(actions) != 1 {
		t.Errorf("Expected 1 action, got %d", len(actions))
	}
}

func TestBuilder_ValidatorsRunAfterCoercion(t *testing.T) {
	var seen any
	b := New()
	b.Add("Age").
		On("age").
		Needs("number", "age").
		Validate(func(_ context.Context, e domain.Entity, _ domain.Memory) (any, error) {
			seen = e["value"]
			return nil, nil
		}).
		As(schema.Int(), nil).
		Reply("ok")

	actions, err := b.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if _, err := actions[0].Notions[0].Entities[0].Validator(context.Background(), domain.Entity{"raw": "30"}, nil); err != nil {
		t.Fatalf("validator failed: %v", err)
	}
	if seen != 30 {
		t.Errorf("Expected the validator to see 30, got %v", seen)
	}
}

func TestBuilder_Misuse(t *testing.T) {
	b := New()
	b.Add("A").On("a").Ask("What?").Or("x", "y").Otherwise("No.")
	b.Add("B") // no intent

	_, err := b.Build()
	if err == nil {
		t.Fatal("Expected Build() to fail")
	}
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("Expected a configuration error, got %v", err)
	}
}

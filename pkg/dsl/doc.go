/*
Package dsl provides a Go DSL (Domain Specific Language) for declaring actions.

It allows developers to define a conversation graph using a type-safe,
fluent builder pattern instead of a YAML catalog. This is particularly
useful for actions with validators or computed replies, for unit testing,
and for leveraging IDE autocompletion/type-checking.

Example usage:

	b := dsl.New()

	b.Add("Greetings").
		On("greetings").
		Needs("person", "name").Ask("What is your name?").
		Reply("Hello {{name}}!")

	b.Add("Goodbyes").
		On("goodbyes").
		After("Greetings").Otherwise("Say hello first.").
		Ends().
		Reply("Bye {{name}}")

	// The builder is a ports.ActionSource.
	err := bot.Load(ctx, b)
*/
package dsl

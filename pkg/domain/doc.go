/*
Package domain contains the core domain models of the dialog manager.

It defines the action graph (Actions with their notion and dependency groups),
the per-conversation state the engine reconciles turn after turn, and the shape
of classifier results. The package is kept free of I/O and persistence so that
every adapter (stores, classifiers, transports) depends on it and never the
other way around.

# Key Entities

  - Action: one dialog step, identified by name and tagged with an intent.
  - NotionGroup: information the action needs; satisfied when any alias is in memory.
  - DependencyGroup: alternative prerequisite actions; satisfied when any is done.
  - ConversationState: memory, completed actions and the last processed action.
  - Analysis: the classifier output (intents, entities, language) for one utterance.
*/
package domain

/*
Package ports defines the driven ports (interfaces) of the dialog manager.

These interfaces decouple the turn engine from external implementations, allowing
it to work with various storage backends and natural-language classifiers.

# Key Interfaces

  - StateStore: Responsible for persisting and loading ConversationState.
  - Classifier: Maps an utterance to intents and typed entities.
  - DistributedLocker: Provides distributed locking for concurrent turns on one conversation.
*/
package ports

// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - SourceLoader: Reads structured and unstructured knowledge base files
//   - EmbeddingService: Generates vector embeddings. Building and querying need it.
//   - VectorIndex: Exact nearest-neighbour search over document vectors
//   - IndexStore: Persists and loads the index as a directory
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Deck generation. Retrieval works without it.
//   - DeckStore: Deck persistence. Decks are generated but not kept without it.
//   - PromptStore: Prompt templates. Built-in defaults are used without it.
//   - SourceWatcher: Marks the index stale when sources change.
//   - Metrics: Operational counters. A no-op is used without it.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven

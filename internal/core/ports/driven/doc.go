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
//   - VaultStore: Reads, writes and watches notes in the vault
//   - IndexStore: Master index persistence (atomic full-file saves)
//   - EmbeddingStore: Sharded per-document embedding vector persistence
//   - FailureStore: Durable failure log for smart retry
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Generates embedding vectors. Without it, the
//     pipeline cannot discover new relationships.
//   - LLMService: Scores candidate pairs and suggests tags. Without it,
//     only previously scored pairs produce links.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven

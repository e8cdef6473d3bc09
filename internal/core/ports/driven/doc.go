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
//   - EmbeddingService: Generates vector embeddings (OpenAI, Ollama)
//   - LLMService: Produces grounded completions (OpenAI, Ollama, Anthropic)
//   - IndexStore: Durable per-document vector index storage (SQLite)
//   - Normaliser: Converts one file format to plain text
//   - NormaliserRegistry: Selects the normaliser for a MIME type
//   - ConfigStore: Application configuration (TOML)
//   - CredentialProvider: One source of API keys in the credential chain
//
// # Optional Interfaces
//
// These can be nil - the application falls back to built-in defaults:
//
//   - PromptStore: User-editable prompt templates
//   - AIConfigValidator: Connectivity checks for AI settings
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven

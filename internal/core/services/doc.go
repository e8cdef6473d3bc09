// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The question answering pipeline is composed from:
//   - Embedder: batches texts through a driven.EmbeddingService
//   - IndexCache: builds or loads one vector index per document
//   - Answerer: retrieves context and asks a driven.LLMService
//   - QAService: resolves documents and ties the pieces together
//
// Services are pure Go with no CGO or external dependencies.
package services

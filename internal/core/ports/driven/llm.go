// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// LLMService is the completion service that turns retrieved context and a
// question into an answer.
//
// Implementations include:
//   - OpenAI (chat completions)
//   - Anthropic (messages)
//   - Ollama (local models)
type LLMService interface {
	// Generate produces text completion from a prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness. Zero is deterministic and is always
	// sent explicitly, never left to the provider default.
	Temperature float64

	// System is an optional system instruction.
	System string

	// StopWords are sequences that stop generation when encountered.
	StopWords []string
}

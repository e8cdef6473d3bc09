package domain

import "errors"

// Domain errors represent pipeline failures.
// Callers match them with errors.Is; every core operation wraps one of these.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Document Source Errors.

	// ErrExtraction indicates the plain text of a source could not be produced.
	// It is always accompanied by ErrUnsupportedFormat or ErrUnreadableFile.
	ErrExtraction = errors.New("text extraction failed")

	// ErrUnsupportedFormat indicates a file type with no normaliser.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrUnreadableFile indicates the file exists but could not be read or parsed.
	ErrUnreadableFile = errors.New("unreadable document")

	// Embedding Errors.

	// ErrEmbeddingService indicates the embedding service was unreachable,
	// rejected the request or returned malformed data.
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrEmbeddingDimension indicates vectors of differing dimension in one batch.
	ErrEmbeddingDimension = errors.New("embedding dimension mismatch")

	// Index Errors.

	// ErrEmptyDocument indicates there were no chunks to index.
	ErrEmptyDocument = errors.New("empty document")

	// ErrInvalidQuery indicates a query vector or query text that cannot be searched.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrPersistence indicates an I/O failure while writing an index.
	ErrPersistence = errors.New("index persistence failed")

	// ErrCorruptIndex indicates stored index data that cannot be decoded.
	ErrCorruptIndex = errors.New("corrupt index")

	// ErrEmbedderMismatch indicates a stored index built by a different embedder.
	ErrEmbedderMismatch = errors.New("embedder mismatch")

	// Completion Errors.

	// ErrAnswerService indicates the completion service call failed.
	ErrAnswerService = errors.New("answer service error")

	// Configuration Errors.

	// ErrMissingCredential indicates no credential provider yielded a value.
	ErrMissingCredential = errors.New("missing credential")

	// ErrRateLimited indicates an external service refused the request for rate reasons.
	ErrRateLimited = errors.New("rate limited")

	// ErrEmbeddingUnavailable indicates the embedding provider is not configured
	// or failed its connectivity check.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable indicates the LLM provider is not configured
	// or failed its connectivity check.
	ErrLLMUnavailable = errors.New("LLM service unavailable")
)

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/vectorindex"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure Embedder implements the interface.
var _ vectorindex.Embedder = (*Embedder)(nil)

// Embedder maps texts to vectors through an embedding service.
// Inputs are split into batches that run with bounded concurrency
// and are reassembled in input order.
type Embedder struct {
	service     driven.EmbeddingService
	batchSize   int
	concurrency int
	timeout     time.Duration
	limiter     *rate.Limiter
}

// EmbedderOption configures an Embedder.
type EmbedderOption func(*Embedder)

// WithBatchSize sets the number of texts per request.
func WithBatchSize(n int) EmbedderOption {
	return func(e *Embedder) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithConcurrency sets the number of requests in flight.
func WithConcurrency(n int) EmbedderOption {
	return func(e *Embedder) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithEmbedTimeout bounds each service request.
func WithEmbedTimeout(d time.Duration) EmbedderOption {
	return func(e *Embedder) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithRateLimit throttles requests to rps per second. Zero disables throttling.
func WithRateLimit(rps float64) EmbedderOption {
	return func(e *Embedder) {
		if rps > 0 {
			e.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// NewEmbedder wraps an embedding service.
func NewEmbedder(service driven.EmbeddingService, opts ...EmbedderOption) *Embedder {
	e := &Embedder{
		service:     service,
		batchSize:   domain.DefaultEmbeddingBatchSize,
		concurrency: domain.DefaultEmbeddingConcurrency,
		timeout:     time.Duration(domain.DefaultEmbeddingTimeoutSeconds) * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewEmbedderFromSettings wraps service using the embedding settings.
func NewEmbedderFromSettings(service driven.EmbeddingService, s domain.EmbeddingSettings) *Embedder {
	return NewEmbedder(service,
		WithBatchSize(s.BatchSize),
		WithConcurrency(s.Concurrency),
		WithEmbedTimeout(time.Duration(s.TimeoutSeconds)*time.Second),
		WithRateLimit(s.RequestsPerSecond),
	)
}

// Embed returns one vector per text in input order.
// Service failures wrap domain.ErrEmbeddingService; cancellation of ctx is
// returned as the context's own error. Vectors of differing dimension fail
// with domain.ErrEmbeddingDimension.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if e.service == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingService, domain.ErrEmbeddingUnavailable)
	}

	batches := (len(texts) + e.batchSize - 1) / e.batchSize
	logger.Debug("Embedding %d texts in %d batches (model %s)", len(texts), batches, e.service.ModelName())

	results := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		g.Go(func() error {
			vecs, err := e.call(gctx, texts[start:end])
			if err != nil {
				return err
			}
			copy(results[start:end], vecs)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	dims := len(results[0])
	for i, v := range results {
		if len(v) != dims {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, expected %d",
				domain.ErrEmbeddingDimension, i, len(v), dims)
		}
	}

	return results, nil
}

// EmbedOne embeds a single text.
func (e *Embedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// Dimensions returns the service's configured vector size.
func (e *Embedder) Dimensions() int {
	if e.service == nil {
		return 0
	}
	return e.service.Dimensions()
}

// ModelName returns the service's model name.
func (e *Embedder) ModelName() string {
	if e.service == nil {
		return ""
	}
	return e.service.ModelName()
}

// call makes one rate-limited, time-bounded batch request.
func (e *Embedder) call(ctx context.Context, batch []string) ([][]float32, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("%w: rate limiter: %w", domain.ErrEmbeddingService, err)
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	vecs, err := e.service.EmbedBatch(callCtx, batch)
	if err != nil {
		// The caller gave up; that is not a service failure.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, domain.ErrEmbeddingService) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingService, err)
	}
	if len(vecs) != len(batch) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", domain.ErrEmbeddingService, len(vecs), len(batch))
	}
	return vecs, nil
}

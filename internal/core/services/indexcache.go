package services

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/vectorindex"
	"github.com/custodia-labs/docqa/internal/logger"
)

// IndexCache maps document IDs to built vector indexes.
//
// A stored index is the cache-hit signal. Loaded indexes are memoised in
// process for as long as their stored location exists. At most one build
// runs per document ID; different documents build in parallel.
//
// A shared build runs detached from any single caller. Each caller waits
// under its own context, and the build is cancelled only once every caller
// waiting on it has gone.
type IndexCache struct {
	store      driven.IndexStore
	chunker    driven.Chunker
	embedder   vectorindex.Embedder
	verifyHash bool

	group singleflight.Group

	mu      sync.Mutex
	loaded  map[string]*vectorindex.Index
	waiters map[string]*waiterSet
}

// waiterSet counts the callers interested in one document's build and owns
// the context the build runs under.
type waiterSet struct {
	ctx    context.Context
	cancel context.CancelFunc
	n      int
}

// flightResult is what one shared build hands to its callers.
type flightResult struct {
	index *vectorindex.Index

	// rebuilt is set when the flight built a fresh index.
	rebuilt bool

	// abandoned is set when the flight stopped because its callers left.
	abandoned bool
}

// IndexCacheOption configures an IndexCache.
type IndexCacheOption func(*IndexCache)

// WithContentHashCheck rebuilds stored indexes whose content hash differs
// from the document's.
func WithContentHashCheck(enabled bool) IndexCacheOption {
	return func(c *IndexCache) {
		c.verifyHash = enabled
	}
}

// NewIndexCache creates a cache over store.
func NewIndexCache(
	store driven.IndexStore,
	chunker driven.Chunker,
	embedder vectorindex.Embedder,
	opts ...IndexCacheOption,
) *IndexCache {
	c := &IndexCache{
		store:    store,
		chunker:  chunker,
		embedder: embedder,
		loaded:   make(map[string]*vectorindex.Index),
		waiters:  make(map[string]*waiterSet),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DocumentLoader produces the document an index is built from.
type DocumentLoader func(ctx context.Context) (*domain.Document, error)

// GetOrBuild returns the document's index, loading it from the store when
// present and otherwise chunking, embedding and persisting it.
func (c *IndexCache) GetOrBuild(ctx context.Context, doc *domain.Document) (*vectorindex.Index, error) {
	if doc == nil || doc.ID == "" {
		return nil, fmt.Errorf("%w: document has no ID", domain.ErrInvalidInput)
	}
	return c.Get(ctx, doc.ID, func(context.Context) (*domain.Document, error) {
		return doc, nil
	})
}

// Get is GetOrBuild for callers that can name the document before reading
// it. load runs only when a build is needed or content hashes are checked.
func (c *IndexCache) Get(ctx context.Context, documentID string, load DocumentLoader) (*vectorindex.Index, error) {
	return c.do(ctx, documentID, load, false)
}

// Rebuild builds a fresh index for the document and replaces the stored
// one. The previous index stays stored and in use until the new one has
// been persisted, so a failed rebuild leaves it intact.
func (c *IndexCache) Rebuild(ctx context.Context, documentID string, load DocumentLoader) (*vectorindex.Index, error) {
	return c.do(ctx, documentID, load, true)
}

func (c *IndexCache) do(ctx context.Context, id string, load DocumentLoader, force bool) (*vectorindex.Index, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty document ID", domain.ErrInvalidInput)
	}

	w := c.join(ctx, id)
	defer c.leave(id, w)

	for {
		ch := c.group.DoChan(id, func() (any, error) {
			return c.fly(w.ctx, id, load, force)
		})

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case r := <-ch:
			res, _ := r.Val.(flightResult)
			if r.Err != nil {
				// Joined a flight whose own callers all left.
				if res.abandoned && ctx.Err() == nil {
					continue
				}
				return nil, r.Err
			}
			// Joined a plain load while a rebuild was asked for.
			if force && !res.rebuilt {
				continue
			}
			if r.Shared {
				logger.Debug("Index %s shared with a concurrent caller", id)
			}
			return res.index, nil
		}
	}
}

func (c *IndexCache) fly(ctx context.Context, id string, load DocumentLoader, force bool) (any, error) {
	var (
		x       *vectorindex.Index
		rebuilt bool
		err     error
	)
	if force {
		x, err = c.rebuild(ctx, id, load)
		rebuilt = err == nil
	} else {
		x, rebuilt, err = c.getOrBuild(ctx, id, load)
	}
	if err != nil {
		return flightResult{abandoned: ctx.Err() != nil}, err
	}
	return flightResult{index: x, rebuilt: rebuilt}, nil
}

// join registers a caller for id's build and returns the shared waiter set.
func (c *IndexCache) join(ctx context.Context, id string) *waiterSet {
	c.mu.Lock()
	defer c.mu.Unlock()

	w := c.waiters[id]
	if w == nil {
		bctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		w = &waiterSet{ctx: bctx, cancel: cancel}
		c.waiters[id] = w
	}
	w.n++
	return w
}

// leave unregisters a caller and cancels the build when none remain.
func (c *IndexCache) leave(id string, w *waiterSet) {
	c.mu.Lock()
	defer c.mu.Unlock()

	w.n--
	if w.n > 0 {
		return
	}
	w.cancel()
	if c.waiters[id] == w {
		delete(c.waiters, id)
	}
}

// Exists reports whether a stored index exists for the document.
func (c *IndexCache) Exists(ctx context.Context, documentID string) (bool, error) {
	return c.store.Exists(ctx, documentID)
}

// Manifest returns the stored manifest for the document.
func (c *IndexCache) Manifest(ctx context.Context, documentID string) (*domain.IndexManifest, error) {
	return c.store.Manifest(ctx, documentID)
}

// Location returns where the document's index is stored.
func (c *IndexCache) Location(documentID string) string {
	return c.store.Location(documentID)
}

func (c *IndexCache) getOrBuild(ctx context.Context, id string, load DocumentLoader) (*vectorindex.Index, bool, error) {
	var doc *domain.Document
	if c.verifyHash {
		d, err := load(ctx)
		if err != nil {
			return nil, false, err
		}
		doc = d
	}

	exists, err := c.store.Exists(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	if exists {
		if x := c.memo(id); x != nil && c.fresh(x.Manifest(), doc) {
			logger.Debug("Index %s: memory hit", id)
			return x, false, nil
		}

		x, err := vectorindex.Load(ctx, c.store, id, c.embedder)
		if err != nil {
			return nil, false, err
		}
		if c.fresh(x.Manifest(), doc) {
			logger.Info("Index %s: loaded %d entries from %s", id, x.Len(), c.store.Location(id))
			c.remember(id, x)
			return x, false, nil
		}
		logger.Info("Index %s: content changed since build, rebuilding", id)
	} else {
		c.forget(id)
		logger.Info("Index %s: not found, building", id)
	}

	if doc == nil {
		if doc, err = load(ctx); err != nil {
			return nil, false, err
		}
	}
	x, err := c.build(ctx, id, doc)
	return x, err == nil, err
}

func (c *IndexCache) rebuild(ctx context.Context, id string, load DocumentLoader) (*vectorindex.Index, error) {
	logger.Info("Index %s: rebuilding", id)
	doc, err := load(ctx)
	if err != nil {
		return nil, err
	}
	return c.build(ctx, id, doc)
}

func (c *IndexCache) build(ctx context.Context, id string, doc *domain.Document) (*vectorindex.Index, error) {
	done := logger.Timed("Index %s: build", id)
	defer done()

	chunks, err := c.chunker.Chunk(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", id, err)
	}
	logger.Debug("Index %s: %d chunks", id, len(chunks))

	x, err := vectorindex.Build(ctx, chunks, c.embedder,
		vectorindex.WithContentHash(doc.ContentHash),
		vectorindex.WithChunking(c.chunker.Size(), c.chunker.Overlap()),
	)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", id, err)
	}

	if err := x.Persist(ctx, c.store, id); err != nil {
		return nil, err
	}

	c.remember(id, x)
	return x, nil
}

// fresh reports whether an index built from m still matches doc.
func (c *IndexCache) fresh(m domain.IndexManifest, doc *domain.Document) bool {
	if !c.verifyHash || doc == nil || doc.ContentHash == "" {
		return true
	}
	return m.ContentHash == doc.ContentHash
}

func (c *IndexCache) memo(id string) *vectorindex.Index {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded[id]
}

func (c *IndexCache) remember(id string, x *vectorindex.Index) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded[id] = x
}

func (c *IndexCache) forget(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.loaded, id)
}

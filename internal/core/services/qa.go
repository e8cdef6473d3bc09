package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure QAService implements the interface.
var _ driving.QAService = (*QAService)(nil)

// QAService answers questions about documents in a documents directory.
type QAService struct {
	source   driven.DocumentSource
	cache    *IndexCache
	answerer *Answerer
}

// NewQAService creates a question answering service.
func NewQAService(source driven.DocumentSource, cache *IndexCache, answerer *Answerer) *QAService {
	return &QAService{
		source:   source,
		cache:    cache,
		answerer: answerer,
	}
}

// Ask answers question about the document at path, building its index on
// first use.
func (s *QAService) Ask(ctx context.Context, path, question string, k int) (*domain.Answer, error) {
	resolved, err := s.source.Resolve(path)
	if err != nil {
		return nil, err
	}

	index, err := s.cache.Get(ctx, domain.DocumentIDFromPath(resolved), s.loader(resolved))
	if err != nil {
		return nil, err
	}

	return s.answerer.Answer(ctx, question, index, k)
}

// Index builds or loads the document's index. rebuild builds a fresh index
// that replaces the stored one only once it has been persisted.
func (s *QAService) Index(ctx context.Context, path string, rebuild bool) (*domain.IndexManifest, error) {
	resolved, err := s.source.Resolve(path)
	if err != nil {
		return nil, err
	}
	id := domain.DocumentIDFromPath(resolved)

	get := s.cache.Get
	if rebuild {
		get = s.cache.Rebuild
	}
	index, err := get(ctx, id, s.loader(resolved))
	if err != nil {
		return nil, err
	}

	m := index.Manifest()
	return &m, nil
}

// Documents lists the supported documents and whether each is indexed.
func (s *QAService) Documents(ctx context.Context) ([]domain.DocumentInfo, error) {
	docs, err := s.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	for i := range docs {
		ok, err := s.cache.Exists(ctx, docs[i].ID)
		if err != nil {
			logger.Warn("Checking index for %s: %v", docs[i].ID, err)
			continue
		}
		docs[i].Indexed = ok
	}
	return docs, nil
}

// Resolve maps a document name, ID or path to a file path.
func (s *QAService) Resolve(_ context.Context, ref string) (string, error) {
	return s.source.Resolve(ref)
}

func (s *QAService) loader(path string) DocumentLoader {
	return func(ctx context.Context) (*domain.Document, error) {
		logger.Debug("Loading document %s", path)
		return s.source.Load(ctx, path)
	}
}

// Package bootstrap is the composition root. It turns settings into the
// services the CLI, TUI and MCP adapters drive.
//
// Settings are available immediately. The question answering service and
// its AI adapters are built on first use, so commands that only touch
// configuration never need credentials.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/docqa/internal/adapters/driven/ai"
	"github.com/custodia-labs/docqa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docqa/internal/adapters/driven/credentials"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docqa/internal/adapters/driving/cli"
	"github.com/custodia-labs/docqa/internal/connectors/filesystem"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/core/services"
	"github.com/custodia-labs/docqa/internal/logger"
	"github.com/custodia-labs/docqa/internal/normalisers"
	"github.com/custodia-labs/docqa/internal/postprocessors/chunker"
)

// Container owns the services of one invocation.
type Container struct {
	configDir    string
	documentsDir string
	settings     *services.SettingsService
	factory      *ai.Factory

	mu        sync.Mutex
	qa        *services.QAService
	source    *filesystem.Source
	resolved  *domain.AppSettings
	embedding driven.EmbeddingService
	llm       driven.LLMService
}

// New creates a container from the global options. An empty ConfigDir uses
// ~/.docqa. A .env file in the config directory is loaded without
// overriding variables already set.
func New(opts cli.Options) (*Container, error) {
	configDir := opts.ConfigDir
	if configDir == "" {
		dir, err := file.DefaultDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}

	envFile := filepath.Join(configDir, ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("Loading %s: %v", envFile, err)
	}

	store, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}

	chain := services.NewCredentialChain(
		credentials.NewConfigProvider(store),
		credentials.NewSecretsFile(filepath.Join(configDir, credentials.SecretsFileName)),
		credentials.NewEnvProvider(),
	)
	factory := ai.NewFactory(chain)

	return &Container{
		configDir:    configDir,
		documentsDir: opts.DocumentsDir,
		settings:     services.NewSettingsService(store, ai.NewConfigValidator(factory)),
		factory:      factory,
	}, nil
}

// NewServices adapts New to cli.ServiceFactory.
func NewServices(opts cli.Options) (*cli.Services, error) {
	c, err := New(opts)
	if err != nil {
		return nil, err
	}

	topK := domain.DefaultTopK
	if s, err := c.Settings(); err == nil {
		topK = s.Retrieval.TopK
	}

	return &cli.Services{
		Settings: c.settings,
		QA:       c.QA,
		Watcher: func(ctx context.Context) (cli.Runner, error) {
			return c.Watcher(ctx)
		},
		TopK:  topK,
		Close: c.Close,
	}, nil
}

// Settings returns the effective settings with command line overrides applied.
func (c *Container) Settings() (*domain.AppSettings, error) {
	s, err := c.settings.Get()
	if err != nil {
		return nil, err
	}
	if c.documentsDir != "" {
		s.DocumentsDir = c.documentsDir
	}
	s.DocumentsDir = expandHome(s.DocumentsDir)
	s.Index.Root = expandHome(s.Index.Root)
	return s, nil
}

// QA returns the question answering service, building it on first call.
func (c *Container) QA(ctx context.Context) (driving.QAService, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.qa != nil {
		return c.qa, nil
	}
	if err := c.build(ctx); err != nil {
		c.closeAI()
		return nil, err
	}
	return c.qa, nil
}

// Watcher returns a watcher over the documents directory.
func (c *Container) Watcher(ctx context.Context) (*filesystem.Watcher, error) {
	qa, err := c.QA(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return filesystem.NewWatcher(c.source, qa,
		filesystem.WithSchedule(c.resolved.Watch.RescanSchedule)), nil
}

// Close releases the AI adapters.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeAI()
	c.qa = nil
	return nil
}

func (c *Container) build(_ context.Context) error {
	s, err := c.Settings()
	if err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	store, err := sqlite.NewIndexStore(s.Index.Root)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	chunks, err := chunker.New(
		chunker.WithChunkSize(s.Chunker.Size),
		chunker.WithOverlap(s.Chunker.Overlap),
	)
	if err != nil {
		return err
	}

	c.embedding, err = c.factory.CreateEmbeddingService(&s.Embedding)
	if err != nil {
		return fmt.Errorf("embedding provider: %w. Run 'docqa settings embedding' to fix", err)
	}
	if c.embedding == nil {
		return fmt.Errorf("%w: no embedding provider configured. Run 'docqa settings embedding'", domain.ErrInvalidInput)
	}

	c.llm, err = c.factory.CreateLLMService(&s.LLM)
	if err != nil {
		return fmt.Errorf("LLM provider: %w. Run 'docqa settings llm' to fix", err)
	}
	if c.llm == nil {
		return fmt.Errorf("%w: no LLM provider configured. Run 'docqa settings llm'", domain.ErrInvalidInput)
	}

	prompts, err := file.NewPromptStore(filepath.Join(c.configDir, "prompts"))
	if err != nil {
		return err
	}

	logger.Debug("Documents: %s, indexes: %s", s.DocumentsDir, store.Root())
	logger.Debug("Embedding: %s/%s, LLM: %s/%s",
		s.Embedding.Provider, s.Embedding.Model, s.LLM.Provider, s.LLM.Model)

	c.source = filesystem.NewSource(s.DocumentsDir, normalisers.NewDefaultRegistry())
	cache := services.NewIndexCache(store, chunks,
		services.NewEmbedderFromSettings(c.embedding, s.Embedding),
		services.WithContentHashCheck(s.Index.VerifyContentHash),
	)
	answerer := services.NewAnswerer(c.llm, prompts,
		services.WithTopK(s.Retrieval.TopK),
		services.WithMaxContextChars(s.Retrieval.MaxContextChars),
		services.WithMaxTokens(s.LLM.MaxTokens),
		services.WithLLMTimeout(time.Duration(s.LLM.TimeoutSeconds)*time.Second),
	)

	c.qa = services.NewQAService(c.source, cache, answerer)
	c.resolved = s
	return nil
}

func (c *Container) closeAI() {
	if c.embedding != nil {
		if err := c.embedding.Close(); err != nil {
			logger.Debug("Closing embedding service: %v", err)
		}
		c.embedding = nil
	}
	if c.llm != nil {
		if err := c.llm.Close(); err != nil {
			logger.Debug("Closing LLM service: %v", err)
		}
		c.llm = nil
	}
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

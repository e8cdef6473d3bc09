package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

var (
	_ driving.QAService       = (*mockQAService)(nil)
	_ driving.SettingsService = (*mockSettingsService)(nil)
)

// mockQAService is a mock implementation of driving.QAService.
type mockQAService struct {
	answer    *domain.Answer
	manifests map[string]*domain.IndexManifest
	documents []domain.DocumentInfo
	askErr    error
	indexErr  map[string]error
	listErr   error

	askedRef      string
	askedQuestion string
	askedK        int
	indexed       []string
	rebuild       bool
}

func (m *mockQAService) Ask(_ context.Context, path, question string, k int) (*domain.Answer, error) {
	m.askedRef, m.askedQuestion, m.askedK = path, question, k
	if m.askErr != nil {
		return nil, m.askErr
	}
	if m.answer != nil {
		return m.answer, nil
	}
	return &domain.Answer{Question: question, Text: "no answer", DocumentID: domain.DocumentIDFromPath(path)}, nil
}

func (m *mockQAService) Index(_ context.Context, path string, rebuild bool) (*domain.IndexManifest, error) {
	m.indexed = append(m.indexed, path)
	m.rebuild = rebuild
	if err := m.indexErr[path]; err != nil {
		return nil, err
	}
	if mf, ok := m.manifests[path]; ok {
		return mf, nil
	}
	return &domain.IndexManifest{
		DocumentID: domain.DocumentIDFromPath(path),
		Model:      "test-model",
		Dimensions: 8,
		Count:      3,
	}, nil
}

func (m *mockQAService) Documents(_ context.Context) ([]domain.DocumentInfo, error) {
	return m.documents, m.listErr
}

func (m *mockQAService) Resolve(_ context.Context, ref string) (string, error) {
	if strings.HasPrefix(ref, "/") {
		return ref, nil
	}
	return "/docs/" + ref, nil
}

// mockSettingsService is a mock implementation of driving.SettingsService.
type mockSettingsService struct {
	settings    domain.AppSettings
	setErr      error
	validateErr error

	set       map[string]string
	embedding *providerConfig
	llm       *providerConfig
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{
		settings: domain.DefaultAppSettings(),
		set:      make(map[string]string),
	}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.settings = *settings
	return nil
}

func (m *mockSettingsService) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.set[key] = value
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	m.embedding = &providerConfig{provider: provider, model: model, apiKey: apiKey}
	return nil
}

func (m *mockSettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	m.llm = &providerConfig{provider: provider, model: model, apiKey: apiKey}
	return nil
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *mockSettingsService) ValidateEmbeddingConfig() error {
	return m.validateErr
}

func (m *mockSettingsService) ValidateLLMConfig() error {
	return m.validateErr
}

// mockRunner records whether Run was called.
type mockRunner struct {
	ran bool
	err error
}

func (r *mockRunner) Run(_ context.Context) error {
	r.ran = true
	return r.err
}

// setupTestServices installs mock services and returns a cleanup func.
func setupTestServices(qa *mockQAService, settings *mockSettingsService) func() {
	previous := services
	services = &Services{
		Settings: settings,
		QA: func(context.Context) (driving.QAService, error) {
			return qa, nil
		},
		TopK: 3,
	}
	return func() {
		services = previous
	}
}

// executeCommand runs the root command with args and returns its output.
func executeCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		resetFlags()
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags() {
	verbose = false
	configDir = ""
	documentsDir = ""
	askTopK = 0
	askFormat = formatText
	indexRebuild = false
	indexAll = false
	documentsJSON = false
	settingsYAML = false
}

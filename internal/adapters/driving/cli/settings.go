package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var settingsYAML bool

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure documents, AI providers, chunking and retrieval settings.

Settings are stored in config.toml in the configuration directory.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long: `Configure the embedding provider used to index documents and questions.

Changing the provider or model makes existing indexes incompatible; rebuild
them with 'docqa index --all --rebuild'.`,
	RunE: runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Configure the LLM provider used to answer questions.`,
	RunE:  runSettingsLLM,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a single setting",
	Long: `Set a single setting by its dotted key.

Keys:
  documents.dir                 embedding.provider     embedding.model
  embedding.base_url            embedding.api_key      embedding.dimensions
  embedding.batch_size          embedding.concurrency  embedding.requests_per_second
  embedding.timeout_seconds     llm.provider           llm.model
  llm.base_url                  llm.api_key            llm.max_tokens
  llm.timeout_seconds           chunker.size           chunker.overlap
  retrieval.top_k               retrieval.max_context_chars
  index.root                    index.verify_content_hash
  watch.rescan_schedule

Example:
  docqa settings set chunker.size 800`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

func init() {
	settingsShowCmd.Flags().BoolVar(&settingsYAML, "yaml", false, "output settings as YAML")
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

// settingsView is the YAML form of the settings. API keys are masked.
type settingsView struct {
	DocumentsDir string `yaml:"documents_dir"`
	Embedding    struct {
		Provider   string `yaml:"provider"`
		Model      string `yaml:"model"`
		BaseURL    string `yaml:"base_url,omitempty"`
		APIKey     string `yaml:"api_key,omitempty"`
		Dimensions int    `yaml:"dimensions,omitempty"`
		BatchSize  int    `yaml:"batch_size"`
	} `yaml:"embedding"`
	LLM struct {
		Provider  string `yaml:"provider"`
		Model     string `yaml:"model"`
		BaseURL   string `yaml:"base_url,omitempty"`
		APIKey    string `yaml:"api_key,omitempty"`
		MaxTokens int    `yaml:"max_tokens"`
	} `yaml:"llm"`
	Chunker struct {
		Size    int `yaml:"size"`
		Overlap int `yaml:"overlap"`
	} `yaml:"chunker"`
	Retrieval struct {
		TopK            int `yaml:"top_k"`
		MaxContextChars int `yaml:"max_context_chars"`
	} `yaml:"retrieval"`
	Index struct {
		Root              string `yaml:"root,omitempty"`
		VerifyContentHash bool   `yaml:"verify_content_hash"`
	} `yaml:"index"`
	Watch struct {
		RescanSchedule string `yaml:"rescan_schedule"`
	} `yaml:"watch"`
}

func newSettingsView(s *domain.AppSettings) settingsView {
	var v settingsView
	v.DocumentsDir = s.DocumentsDir
	v.Embedding.Provider = s.Embedding.Provider.String()
	v.Embedding.Model = s.Embedding.Model
	v.Embedding.BaseURL = s.Embedding.BaseURL
	if s.Embedding.APIKey != "" {
		v.Embedding.APIKey = maskAPIKey(s.Embedding.APIKey)
	}
	v.Embedding.Dimensions = s.Embedding.Dimensions
	v.Embedding.BatchSize = s.Embedding.BatchSize
	v.LLM.Provider = s.LLM.Provider.String()
	v.LLM.Model = s.LLM.Model
	v.LLM.BaseURL = s.LLM.BaseURL
	if s.LLM.APIKey != "" {
		v.LLM.APIKey = maskAPIKey(s.LLM.APIKey)
	}
	v.LLM.MaxTokens = s.LLM.MaxTokens
	v.Chunker.Size = s.Chunker.Size
	v.Chunker.Overlap = s.Chunker.Overlap
	v.Retrieval.TopK = s.Retrieval.TopK
	v.Retrieval.MaxContextChars = s.Retrieval.MaxContextChars
	v.Index.Root = s.Index.Root
	v.Index.VerifyContentHash = s.Index.VerifyContentHash
	v.Watch.RescanSchedule = s.Watch.RescanSchedule
	return v
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}

	settings, err := svc.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	if settingsYAML {
		return writeYAML(cmd.OutOrStdout(), newSettingsView(settings))
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Documents]")
	cmd.Printf("  Directory: %s\n", settings.DocumentsDir)
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	if settings.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", describeAPIKey(settings.Embedding.APIKey, settings.Embedding.Provider))
	}
	cmd.Printf("  Batch size: %d\n", settings.Embedding.BatchSize)
	cmd.Println()

	cmd.Println("[LLM]")
	cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.LLM.Model)
	if settings.LLM.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
	}
	if settings.LLM.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", describeAPIKey(settings.LLM.APIKey, settings.LLM.Provider))
	}
	cmd.Printf("  Max tokens: %d\n", settings.LLM.MaxTokens)
	cmd.Println()

	cmd.Println("[Chunker]")
	cmd.Printf("  Size: %d\n", settings.Chunker.Size)
	cmd.Printf("  Overlap: %d\n", settings.Chunker.Overlap)
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Top K: %d\n", settings.Retrieval.TopK)
	cmd.Printf("  Max context: %d chars\n", settings.Retrieval.MaxContextChars)
	cmd.Println()

	cmd.Println("[Index]")
	root := settings.Index.Root
	if root == "" {
		root = "~/.docqa/indexes"
	}
	cmd.Printf("  Root: %s\n", root)
	cmd.Printf("  Verify content hash: %t\n", settings.Index.VerifyContentHash)
	cmd.Println()

	if err := settings.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'docqa settings set' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func describeAPIKey(key string, provider domain.AIProvider) string {
	if key != "" {
		return maskAPIKey(key)
	}
	return fmt.Sprintf("(from %s)", provider.APIKeyEnvVar())
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if _, err := settingsService(); err != nil {
		return err
	}
	reader := bufio.NewReader(cmd.InOrStdin())
	return configureEmbeddingProvider(cmd, reader)
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if _, err := settingsService(); err != nil {
		return err
	}
	reader := bufio.NewReader(cmd.InOrStdin())
	return configureLLMProvider(cmd, reader)
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}

	if err := svc.Set(args[0], args[1]); err != nil {
		return fmt.Errorf("failed to set %s: %w", args[0], err)
	}
	cmd.Printf("Set %s = %s\n", args[0], args[1])
	return nil
}

// providerConfig collects the answers shared by both provider prompts.
type providerConfig struct {
	provider domain.AIProvider
	model    string
	apiKey   string
}

func promptProvider(
	cmd *cobra.Command,
	reader *bufio.Reader,
	title string,
	providers []domain.AIProvider,
	defaults map[domain.AIProvider]string,
) providerConfig {
	cmd.Println(title)
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	selected := providers[idx-1]

	defaultModel := defaults[selected]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if selected.RequiresAPIKey() {
		cmd.Printf("Enter API key (blank to use %s): ", selected.APIKeyEnvVar())
		apiKey = readPassword(cmd.InOrStdin(), reader)
		cmd.Println()
	}

	return providerConfig{provider: selected, model: model, apiKey: apiKey}
}

func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}

	cfg := promptProvider(cmd, reader, "Select Embedding Provider",
		domain.AllEmbeddingProviders(), domain.DefaultEmbeddingModels())

	if err := svc.SetEmbeddingProvider(cfg.provider, cfg.model, cfg.apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	// Validate the configuration by pinging the service
	cmd.Print("Validating configuration... ")
	if err := svc.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("Embedding provider configured: %s (%s)\n", cfg.provider.Description(), cfg.model)
	cmd.Println("Existing indexes were built with the previous model; run 'docqa index --all --rebuild'.")
	return nil
}

func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}

	cfg := promptProvider(cmd, reader, "Select LLM Provider",
		domain.AllLLMProviders(), domain.DefaultLLMModels())

	if err := svc.SetLLMProvider(cfg.provider, cfg.model, cfg.apiKey); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	cmd.Print("Validating configuration... ")
	if err := svc.ValidateLLMConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("LLM provider configured: %s (%s)\n", cfg.provider.Description(), cfg.model)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads a secret without echo when in is a terminal.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

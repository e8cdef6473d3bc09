// Package cli provides the cobra command tree for docqa.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=...".
var version = "dev"

var (
	verbose      bool
	configDir    string
	documentsDir string
)

// Options carries the global flag values to the service factory.
type Options struct {
	ConfigDir    string
	DocumentsDir string
}

// Runner is a long-running background task such as the directory watcher.
type Runner interface {
	Run(ctx context.Context) error
}

// Services holds the application services the commands drive.
type Services struct {
	// Settings reads and writes configuration. It never needs credentials.
	Settings driving.SettingsService

	// QA builds the question answering service on first use.
	QA func(ctx context.Context) (driving.QAService, error)

	// Watcher builds the documents directory watcher.
	Watcher func(ctx context.Context) (Runner, error)

	// TopK is the configured retrieval depth, used as the chat default.
	TopK int

	// Close releases resources held by the services.
	Close func() error
}

// ServiceFactory builds the services for one invocation.
type ServiceFactory func(opts Options) (*Services, error)

var (
	services       *Services
	serviceFactory ServiceFactory
)

// SetServiceFactory registers the composition root used by every command.
func SetServiceFactory(f ServiceFactory) {
	serviceFactory = f
}

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Ask questions about your local documents",
	Long: `docqa answers questions about local documents (PDF, Word, plain text)
using retrieval-augmented generation.

Each document is chunked, embedded and stored in a per-document vector
index on first use. Questions are answered from the most similar passages.`,
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  openServices,
	PersistentPostRunE: closeServices,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.docqa)")
	rootCmd.PersistentFlags().StringVar(&documentsDir, "documents-dir", "", "documents directory (overrides settings)")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func openServices(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if cmd == versionCmd || services != nil || serviceFactory == nil {
		return nil
	}

	svc, err := serviceFactory(Options{
		ConfigDir:    configDir,
		DocumentsDir: documentsDir,
	})
	if err != nil {
		return fmt.Errorf("initialising: %w", err)
	}
	services = svc
	return nil
}

func closeServices(_ *cobra.Command, _ []string) error {
	if services == nil || services.Close == nil {
		return nil
	}
	err := services.Close()
	services = nil
	return err
}

// qaService returns the question answering service, building it if needed.
func qaService(ctx context.Context) (driving.QAService, error) {
	if services == nil || services.QA == nil {
		return nil, errors.New("qa service not configured")
	}
	return services.QA(ctx)
}

// settingsService returns the settings service.
func settingsService() (driving.SettingsService, error) {
	if services == nil || services.Settings == nil {
		return nil, errors.New("settings service not configured")
	}
	return services.Settings, nil
}

package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

var chatCmd = &cobra.Command{
	Use:   "chat [document]",
	Short: "Chat with a document in the terminal UI",
	Long: `Launches the interactive terminal UI.

Without an argument a document picker is shown. With a document the chat
opens directly on it.

Controls:
  ↑/k, ↓/j - Navigate documents or sources
  Enter    - Select document / ask question
  Ctrl+S   - Toggle sources
  Esc      - Back to documents
  ?        - Toggle help
  q        - Quit`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	ctx := cmd.Context()
	qa, err := qaService(ctx)
	if err != nil {
		return err
	}

	ports := tui.NewPorts(qa)
	ports.TopK = services.TopK

	app, err := tui.NewApp(ports)
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(ctx)

	if len(args) == 1 {
		doc, err := findDocument(cmd, qa, args[0])
		if err != nil {
			return err
		}
		app.WithDocument(doc)
	}

	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// findDocument resolves ref and returns its listing entry, or a synthesised
// entry for files outside the documents directory.
func findDocument(cmd *cobra.Command, qa driving.QAService, ref string) (domain.DocumentInfo, error) {
	ctx := cmd.Context()
	path, err := qa.Resolve(ctx, ref)
	if err != nil {
		return domain.DocumentInfo{}, fmt.Errorf("resolving document: %w", err)
	}

	docs, err := qa.Documents(ctx)
	if err == nil {
		for i := range docs {
			if docs[i].Path == path {
				return docs[i], nil
			}
		}
	}

	info := domain.DocumentInfo{
		ID:   domain.DocumentIDFromPath(path),
		Name: filepath.Base(path),
		Path: path,
	}
	if st, err := os.Stat(path); err == nil {
		info.Size = st.Size()
	}
	return info, nil
}

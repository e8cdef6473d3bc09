package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep document indexes up to date",
	Long: `Watches the documents directory and rebuilds a document's index when the
file is created or changed. A periodic rescan (watch.rescan_schedule, a cron
expression) builds any index missing from storage.

Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if services == nil || services.Watcher == nil {
		return errors.New("watcher not configured")
	}

	ctx := cmd.Context()
	watcher, err := services.Watcher(ctx)
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}

	cmd.PrintErrln("Watching for document changes (Ctrl+C to stop)")
	if err := watcher.Run(ctx); err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	return nil
}

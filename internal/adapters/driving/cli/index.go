package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/logger"
)

var (
	indexRebuild bool
	indexAll     bool
)

var indexCmd = &cobra.Command{
	Use:   "index [document]",
	Short: "Build the vector index for a document",
	Long: `Builds the vector index for a document, or loads it when one is stored.

Use --rebuild after changing the embedding provider, the chunk settings or
the document itself. Use --all to index every document in the documents
directory.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if indexAll {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexRebuild, "rebuild", false, "discard any stored index and rebuild it")
	indexCmd.Flags().BoolVar(&indexAll, "all", false, "index every document in the documents directory")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	qa, err := qaService(ctx)
	if err != nil {
		return err
	}

	paths := args
	if indexAll {
		docs, err := qa.Documents(ctx)
		if err != nil {
			return fmt.Errorf("listing documents: %w", err)
		}
		paths = make([]string, len(docs))
		for i := range docs {
			paths[i] = docs[i].Path
		}
		if len(paths) == 0 {
			cmd.Println("No documents found.")
			return nil
		}
	}

	var failed int
	for _, path := range paths {
		done := logger.Timed("Indexing %s", path)
		manifest, err := qa.Index(ctx, path, indexRebuild)
		done()
		if err != nil {
			if !indexAll {
				return fmt.Errorf("index failed: %w", err)
			}
			failed++
			cmd.PrintErrf("%s: %v\n", path, err)
			continue
		}
		cmd.Println(manifestSummary(manifest))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed to index", failed, len(paths))
	}
	return nil
}

func manifestSummary(m *domain.IndexManifest) string {
	return fmt.Sprintf("Indexed %s: %d chunks (%s, %d dimensions)",
		m.DocumentID, m.Count, m.Model, m.Dimensions)
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var documentsJSON bool

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs", "ls"},
	Short:   "List documents available for questioning",
	Long: `Lists the supported documents (PDF, Word, plain text) in the documents
directory and whether each has a stored index.`,
	Args: cobra.NoArgs,
	RunE: runDocuments,
}

func init() {
	documentsCmd.Flags().BoolVar(&documentsJSON, "json", false, "output documents as JSON")
	rootCmd.AddCommand(documentsCmd)
}

func runDocuments(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	qa, err := qaService(ctx)
	if err != nil {
		return err
	}

	docs, err := qa.Documents(ctx)
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}

	if documentsJSON {
		if docs == nil {
			docs = []domain.DocumentInfo{}
		}
		return writeJSON(cmd.OutOrStdout(), docs)
	}

	if len(docs) == 0 {
		cmd.Println("No documents found.")
		return nil
	}

	cmd.Printf("%-40s  %10s  %s\n", "NAME", "SIZE", "INDEXED")
	for i := range docs {
		indexed := "no"
		if docs[i].Indexed {
			indexed = "yes"
		}
		cmd.Printf("%-40s  %10s  %s\n", docs[i].Name, formatBytes(docs[i].Size), indexed)
	}
	cmd.Printf("\n%d documents\n", len(docs))
	return nil
}

// formatBytes renders n in the largest whole binary unit.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

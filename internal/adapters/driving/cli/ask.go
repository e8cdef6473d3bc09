package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Output formats accepted by --format.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// sourcePreviewLength bounds each source line in text output.
const sourcePreviewLength = 160

var (
	askTopK   int
	askFormat string
)

var askCmd = &cobra.Command{
	Use:   "ask <document> <question>",
	Short: "Ask a question about a document",
	Long: `Answers a question using only the content of one document.

The document may be given as a path, a file name in the documents directory,
or a document ID. Its index is built on first use and reused afterwards.

Examples:
  docqa ask report.pdf "What was the revenue in Q3?"
  docqa ask notes.txt "Who attended?" -k 5 --format json`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of passages to retrieve (0 = settings default)")
	askCmd.Flags().StringVarP(&askFormat, "format", "f", formatText, "output format: text, json or yaml")
	rootCmd.AddCommand(askCmd)
}

// answerView is the serialised form of an answer.
type answerView struct {
	Question   string       `json:"question" yaml:"question"`
	Answer     string       `json:"answer" yaml:"answer"`
	DocumentID string       `json:"document_id" yaml:"document_id"`
	Sources    []sourceView `json:"sources" yaml:"sources"`
}

type sourceView struct {
	Position   int     `json:"position" yaml:"position"`
	Similarity float64 `json:"similarity" yaml:"similarity"`
	Content    string  `json:"content" yaml:"content"`
}

func newAnswerView(a *domain.Answer) answerView {
	v := answerView{
		Question:   a.Question,
		Answer:     a.Text,
		DocumentID: a.DocumentID,
		Sources:    make([]sourceView, len(a.Sources)),
	}
	for i, hit := range a.Sources {
		v.Sources[i] = sourceView{
			Position:   hit.Position,
			Similarity: hit.Similarity,
			Content:    hit.Content,
		}
	}
	return v
}

func runAsk(cmd *cobra.Command, args []string) error {
	switch askFormat {
	case formatText, formatJSON, formatYAML:
	default:
		return fmt.Errorf("%w: unknown format %q (want text, json or yaml)", domain.ErrInvalidInput, askFormat)
	}

	question := strings.TrimSpace(strings.Join(args[1:], " "))
	if question == "" {
		return fmt.Errorf("%w: question is empty", domain.ErrInvalidQuery)
	}

	ctx := cmd.Context()
	qa, err := qaService(ctx)
	if err != nil {
		return err
	}

	answer, err := qa.Ask(ctx, args[0], question, askTopK)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	out := cmd.OutOrStdout()
	switch askFormat {
	case formatJSON:
		return writeJSON(out, newAnswerView(answer))
	case formatYAML:
		return writeYAML(out, newAnswerView(answer))
	default:
		writeAnswerText(out, answer)
		return nil
	}
}

func writeAnswerText(w io.Writer, a *domain.Answer) {
	heading := color.New(color.FgGreen, color.Bold).SprintFunc()
	label := color.New(color.FgCyan, color.Bold).SprintFunc()
	muted := color.New(color.Faint).SprintFunc()

	fmt.Fprintln(w, heading("Answer:"))
	fmt.Fprintln(w, a.Text)

	if len(a.Sources) == 0 {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, heading("Sources:"))
	for i, hit := range a.Sources {
		fmt.Fprintf(w, "  %s %s %s\n",
			label(fmt.Sprintf("[%d]", i+1)),
			muted(fmt.Sprintf("(chunk %d, %.3f)", hit.Position, hit.Similarity)),
			preview(hit.Content, sourcePreviewLength))
	}
}

// preview collapses whitespace and truncates s to at most n runes.
func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	return enc.Close()
}

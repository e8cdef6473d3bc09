package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/vectorindex"
	"github.com/custodia-labs/docqa/internal/logger"
)

// contextSeparator joins retrieved chunks in the prompt.
const contextSeparator = "\n\n"

// Answerer retrieves the most similar chunks for a question and asks the
// completion service for an answer grounded in them.
type Answerer struct {
	llm        driven.LLMService
	prompts    driven.PromptStore
	topK       int
	maxContext int
	maxTokens  int
	timeout    time.Duration
}

// AnswererOption configures an Answerer.
type AnswererOption func(*Answerer)

// WithTopK sets the default number of chunks retrieved.
func WithTopK(k int) AnswererOption {
	return func(a *Answerer) {
		if k > 0 {
			a.topK = k
		}
	}
}

// WithMaxContextChars bounds the concatenated context. Zero means unbounded.
func WithMaxContextChars(n int) AnswererOption {
	return func(a *Answerer) {
		if n >= 0 {
			a.maxContext = n
		}
	}
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) AnswererOption {
	return func(a *Answerer) {
		if n > 0 {
			a.maxTokens = n
		}
	}
}

// WithLLMTimeout bounds each completion request.
func WithLLMTimeout(d time.Duration) AnswererOption {
	return func(a *Answerer) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// NewAnswerer creates an answerer. prompts may be nil, in which case the
// built-in templates are used.
func NewAnswerer(llm driven.LLMService, prompts driven.PromptStore, opts ...AnswererOption) *Answerer {
	a := &Answerer{
		llm:        llm,
		prompts:    prompts,
		topK:       domain.DefaultTopK,
		maxContext: domain.DefaultMaxContextChars,
		maxTokens:  domain.DefaultLLMMaxTokens,
		timeout:    time.Duration(domain.DefaultLLMTimeoutSeconds) * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// TopK returns the default retrieval depth.
func (a *Answerer) TopK() int {
	return a.topK
}

// Answer retrieves k chunks (the default when k <= 0) from index and returns
// the completion for query, verbatim, with the retrieved sources.
func (a *Answerer) Answer(ctx context.Context, query string, index *vectorindex.Index, k int) (*domain.Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidQuery)
	}
	if index == nil {
		return nil, fmt.Errorf("%w: no index", domain.ErrInvalidInput)
	}
	if k <= 0 {
		k = a.topK
	}

	logger.Section("Answer")
	logger.Debug("Question: %q (k=%d, document %s)", query, k, index.DocumentID())

	hits, err := index.SearchText(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	for _, h := range hits {
		logger.Debug("  #%d similarity=%.4f", h.Position, h.Similarity)
	}

	if a.llm == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAnswerService, domain.ErrLLMUnavailable)
	}

	prompt := fmt.Sprintf(a.template(), BuildContext(hits, a.maxContext), query)

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	text, err := a.llm.Generate(callCtx, prompt, driven.GenerateOptions{
		MaxTokens:   a.maxTokens,
		Temperature: 0,
		System:      a.load(driven.PromptAnswerSystem),
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrAnswerService, a.llm.ModelName(), err)
	}

	return &domain.Answer{
		Question:   query,
		Text:       text,
		Sources:    hits,
		DocumentID: index.DocumentID(),
	}, nil
}

// template returns the answer prompt, falling back to the built-in one when
// the stored template does not take exactly a context and a question.
func (a *Answerer) template() string {
	tmpl := a.load(driven.PromptAnswer)
	if strings.Count(tmpl, "%s") != 2 || strings.Count(tmpl, "%") != 2 {
		logger.Warn("Prompt %q needs exactly two %%s placeholders, using built-in", driven.PromptAnswer)
		return driven.DefaultPrompts[driven.PromptAnswer]
	}
	return tmpl
}

func (a *Answerer) load(name string) string {
	if a.prompts != nil {
		if p, err := a.prompts.Load(name); err == nil {
			return p
		}
	}
	return driven.DefaultPrompts[name]
}

// BuildContext joins hit contents in order, truncating the hit that would
// overflow maxChars runes and dropping the rest. maxChars <= 0 is unbounded.
func BuildContext(hits []domain.SearchHit, maxChars int) string {
	var b strings.Builder
	used := 0
	for i, h := range hits {
		sep := ""
		if i > 0 {
			sep = contextSeparator
		}
		if maxChars <= 0 {
			b.WriteString(sep)
			b.WriteString(h.Content)
			continue
		}

		need := utf8.RuneCountInString(sep) + utf8.RuneCountInString(h.Content)
		if used+need <= maxChars {
			b.WriteString(sep)
			b.WriteString(h.Content)
			used += need
			continue
		}

		room := maxChars - used - utf8.RuneCountInString(sep)
		if room > 0 {
			b.WriteString(sep)
			b.WriteString(string([]rune(h.Content)[:room]))
		}
		break
	}
	return b.String()
}

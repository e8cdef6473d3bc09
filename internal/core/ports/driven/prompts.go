package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)
}

// Well-known prompt names.
const (
	// PromptAnswer builds the grounded question prompt.
	// The template expects two %s placeholders: the context, then the question.
	PromptAnswer = "answer"

	// PromptAnswerSystem is the system instruction sent with every question.
	// This prompt has no format placeholders.
	PromptAnswerSystem = "answer_system"
)

// DefaultPrompts holds the built-in templates. Stores seed user-editable
// files from these and fall back to them when a file is missing.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var DefaultPrompts = map[string]string{
	PromptAnswer: `Use the following pieces of context to answer the question at the end. If you don't know the answer, just say that you don't know, don't try to make up an answer.

%s

Question: %s
Helpful Answer:`,

	PromptAnswerSystem: `You answer questions about a single document using only the context you are given. Quote figures and names exactly as they appear in the context.`,
}

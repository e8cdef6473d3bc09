// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/docqa/internal/core/domain"
)

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewDocuments is the document picker.
	ViewDocuments ViewType = iota
	// ViewChat is the question and answer transcript.
	ViewChat
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewDocuments:
		return "documents"
	case ViewChat:
		return "chat"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// DocumentsLoaded carries the documents available for questioning.
type DocumentsLoaded struct {
	Documents []domain.DocumentInfo
	Err       error
}

// DocumentSelected signals a document was chosen for chat.
type DocumentSelected struct {
	Document domain.DocumentInfo
}

// IndexReady signals the selected document's index was built or loaded.
type IndexReady struct {
	Path     string
	Manifest *domain.IndexManifest
	Err      error
}

// QuestionAsked is sent when the user submits a question.
type QuestionAsked struct {
	Question string
}

// AnswerReceived carries the answer to a question back to the model.
type AnswerReceived struct {
	Question string
	Answer   *domain.Answer
	Err      error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

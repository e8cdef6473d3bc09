// Package chat provides the question and answer view for the TUI.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Layout heights in lines.
const (
	headerHeight  = 2
	inputHeight   = 3
	footerHeight  = 1
	sourcesHeight = 8
)

// turn is one question and its outcome.
type turn struct {
	question string
	answer   *domain.Answer
	err      error
}

// View is the chat transcript for one document.
type View struct {
	styles    *styles.Styles
	qaService driving.QAService
	ctx       context.Context
	topK      int

	document *domain.DocumentInfo
	turns    []turn
	indexing bool
	pending  bool
	err      error

	input       *input.QuestionInput
	transcript  viewport.Model
	sources     *list.SourceList
	showSources bool

	width  int
	height int
}

// NewView creates a chat view. topK <= 0 uses the configured default.
func NewView(s *styles.Styles, qaService driving.QAService, topK int) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	v := &View{
		styles:     s,
		qaService:  qaService,
		ctx:        context.Background(),
		topK:       topK,
		input:      input.NewQuestionInput(s),
		transcript: viewport.New(80, 10),
		sources:    list.NewSourceList(s),
		width:      80,
		height:     24,
	}
	v.refresh()
	return v
}

// WithContext sets the context passed to the service.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init starts the input cursor.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// SetDocument starts a new conversation about doc and builds its index.
func (v *View) SetDocument(doc domain.DocumentInfo) tea.Cmd {
	v.document = &doc
	v.turns = nil
	v.err = nil
	v.pending = false
	v.indexing = true
	v.sources.SetHits(nil)
	v.input.Reset()
	v.refresh()

	ctx, svc, path := v.ctx, v.qaService, doc.Path
	return func() tea.Msg {
		if svc == nil {
			return messages.IndexReady{Path: path, Err: fmt.Errorf("qa service not available")}
		}
		manifest, err := svc.Index(ctx, path, false)
		return messages.IndexReady{Path: path, Manifest: manifest, Err: err}
	}
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.IndexReady:
		if v.document == nil || msg.Path != v.document.Path {
			return v, nil
		}
		v.indexing = false
		v.err = msg.Err
		if msg.Err == nil {
			v.document.Indexed = true
		}
		v.refresh()
		return v, nil

	case messages.AnswerReceived:
		v.pending = false
		if n := len(v.turns); n > 0 && v.turns[n-1].question == msg.Question {
			v.turns[n-1].answer = msg.Answer
			v.turns[n-1].err = msg.Err
		}
		if msg.Answer != nil {
			v.sources.SetHits(msg.Answer.Sources)
		}
		v.refresh()
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		v.refresh()
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "enter":
		return v, v.ask()
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewDocuments}
		}
	case "ctrl+s":
		v.showSources = !v.showSources
		v.layout()
		return v, nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		v.transcript, cmd = v.transcript.Update(msg)
		return v, cmd
	case "up", "down":
		if v.showSources {
			v.sources, _ = v.sources.Update(msg)
			return v, nil
		}
		var cmd tea.Cmd
		v.transcript, cmd = v.transcript.Update(msg)
		return v, cmd
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// ask submits the typed question. It is a no-op while indexing, while
// another question is in flight, or when the input is blank.
func (v *View) ask() tea.Cmd {
	question := v.input.Question()
	if question == "" || v.document == nil || v.indexing || v.pending {
		return nil
	}

	v.turns = append(v.turns, turn{question: question})
	v.pending = true
	v.input.Reset()
	v.refresh()

	ctx, svc, path, k := v.ctx, v.qaService, v.document.Path, v.topK
	return tea.Batch(
		func() tea.Msg { return messages.QuestionAsked{Question: question} },
		func() tea.Msg {
			if svc == nil {
				return messages.AnswerReceived{Question: question, Err: fmt.Errorf("qa service not available")}
			}
			answer, err := svc.Ask(ctx, path, question, k)
			return messages.AnswerReceived{Question: question, Answer: answer, Err: err}
		},
	)
}

// refresh re-renders the transcript and scrolls to the latest turn.
func (v *View) refresh() {
	v.layout()
	v.transcript.SetContent(v.renderTranscript())
	v.transcript.GotoBottom()
}

func (v *View) layout() {
	h := v.height - headerHeight - inputHeight - footerHeight - 1
	if v.showSources {
		h -= sourcesHeight
	}
	v.transcript.Width = v.width
	v.transcript.Height = max(h, 3)
	v.input.SetWidth(v.width)
	v.sources.SetDimensions(v.width, sourcesHeight)
}

func (v *View) renderTranscript() string {
	if v.document == nil {
		return v.styles.Muted.Render("No document selected.")
	}

	wrap := max(v.width-4, 20)
	var b strings.Builder

	switch {
	case v.indexing:
		b.WriteString(v.styles.Muted.Render("Preparing the index for " + v.document.Name + "..."))
		b.WriteString("\n\n")
	case v.err != nil && len(v.turns) == 0:
		b.WriteString(v.styles.Error.Width(wrap).Render("Error: " + v.err.Error()))
		b.WriteString("\n\n")
	case len(v.turns) == 0:
		b.WriteString(v.styles.Muted.Render("Ask anything about " + v.document.Name + "."))
		b.WriteString("\n\n")
	}

	for _, t := range v.turns {
		b.WriteString(v.styles.Question.Width(wrap).Render("You: " + t.question))
		b.WriteString("\n")
		switch {
		case t.err != nil:
			b.WriteString(v.styles.Error.Width(wrap).Render("  Error: " + t.err.Error()))
		case t.answer != nil:
			b.WriteString(v.styles.Answer.Width(wrap).Render(strings.TrimSpace(t.answer.Text)))
			if n := len(t.answer.Sources); n > 0 {
				b.WriteString("\n")
				b.WriteString(v.styles.Source.Render(fmt.Sprintf("%d sources, best %.3f", n, t.answer.Sources[0].Similarity)))
			}
		default:
			b.WriteString(v.styles.Muted.Render("  ..."))
		}
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// View renders the chat view.
func (v *View) View() string {
	var b strings.Builder

	title := "Chat"
	if v.document != nil {
		title = "Chat - " + v.document.Name
	}
	b.WriteString(v.styles.Title.Render(title))
	b.WriteString("\n\n")
	b.WriteString(v.transcript.View())
	b.WriteString("\n")
	if v.showSources {
		b.WriteString(v.styles.Border.Render(v.sources.View()))
		b.WriteString("\n")
	}
	b.WriteString(v.input.View())
	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.refresh()
}

// Document returns the document being discussed, or nil.
func (v *View) Document() *domain.DocumentInfo {
	return v.document
}

// Indexing reports whether the document's index is being prepared.
func (v *View) Indexing() bool {
	return v.indexing
}

// Pending reports whether a question is awaiting its answer.
func (v *View) Pending() bool {
	return v.pending
}

// Turns returns the number of questions asked.
func (v *View) Turns() int {
	return len(v.turns)
}

// ShowingSources reports whether the sources panel is visible.
func (v *View) ShowingSources() bool {
	return v.showSources
}

// Sources returns the passages retrieved for the last answer.
func (v *View) Sources() []domain.SearchHit {
	return v.sources.Hits()
}

// Err returns the last index error.
func (v *View) Err() error {
	return v.err
}

package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/views/chat"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/views/documents"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap

	documentsView *documents.View
	chatView      *chat.View
	statusBar     *status.Bar

	// initial is opened in the chat view on start instead of the picker.
	initial *domain.DocumentInfo

	currentView  messages.ViewType
	previousView messages.ViewType

	err    error
	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		ports:         ports,
		ctx:           context.Background(),
		styles:        s,
		keymap:        km,
		documentsView: documents.NewView(s, ports.QA),
		chatView:      chat.NewView(s, ports.QA, ports.TopK),
		statusBar:     status.NewBar(s, km),
		currentView:   messages.ViewDocuments,
	}, nil
}

// WithContext sets the context passed to the services.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.documentsView.WithContext(ctx)
	a.chatView.WithContext(ctx)
	return a
}

// WithDocument opens doc in the chat view when the program starts.
func (a *App) WithDocument(doc domain.DocumentInfo) *App {
	a.initial = &doc
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{tea.SetWindowTitle("docqa")}
	if a.initial != nil {
		doc := *a.initial
		cmds = append(cmds, func() tea.Msg { return messages.DocumentSelected{Document: doc} })
	} else {
		cmds = append(cmds, a.documentsView.Init(), a.statusBar.SetState(status.StateLoading))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		return a, a.handleKey(msg)

	case spinner.TickMsg:
		a.statusBar, cmd = a.statusBar.Update(msg)
		return a, cmd

	case messages.DocumentsLoaded:
		a.documentsView, cmd = a.documentsView.Update(msg)
		if msg.Err != nil {
			a.setError(msg.Err)
		} else {
			a.statusBar.SetState(status.StateReady)
			a.statusBar.SetMessage(fmt.Sprintf("%d documents", len(msg.Documents)))
		}
		return a, cmd

	case messages.DocumentSelected:
		a.switchTo(messages.ViewChat)
		a.statusBar.SetMessage("Indexing " + msg.Document.Name)
		return a, tea.Batch(a.chatView.SetDocument(msg.Document), a.statusBar.SetState(status.StateIndexing))

	case messages.IndexReady:
		a.chatView, cmd = a.chatView.Update(msg)
		if msg.Err != nil {
			a.setError(msg.Err)
		} else {
			a.err = nil
			a.statusBar.SetState(status.StateReady)
			a.statusBar.SetMessage(indexSummary(msg.Manifest))
		}
		return a, cmd

	case messages.QuestionAsked:
		a.statusBar.SetMessage("")
		return a, a.statusBar.SetState(status.StateThinking)

	case messages.AnswerReceived:
		a.chatView, cmd = a.chatView.Update(msg)
		if msg.Err != nil {
			a.setError(msg.Err)
		} else {
			a.err = nil
			a.statusBar.SetState(status.StateReady)
			a.statusBar.SetMessage(fmt.Sprintf("%d sources", len(msg.Answer.Sources)))
		}
		return a, cmd

	case messages.ViewChanged:
		return a, a.switchTo(msg.View)

	case messages.ErrorOccurred:
		a.setError(msg.Err)
		if a.currentView == messages.ViewChat {
			a.chatView, cmd = a.chatView.Update(msg)
		} else {
			a.documentsView, cmd = a.documentsView.Update(msg)
		}
		return a, cmd

	case messages.Quit:
		return a, tea.Quit
	}

	// Forward other messages (cursor blinks) to the active view.
	switch a.currentView {
	case messages.ViewChat:
		a.chatView, cmd = a.chatView.Update(msg)
	case messages.ViewDocuments:
		a.documentsView, cmd = a.documentsView.Update(msg)
	case messages.ViewHelp:
	}
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	switch a.currentView {
	case messages.ViewHelp:
		switch msg.String() {
		case "esc", "?", "q":
			return a.switchTo(a.previousView)
		}
		return nil
	case messages.ViewChat:
		a.chatView, cmd = a.chatView.Update(msg)
	case messages.ViewDocuments:
		a.documentsView, cmd = a.documentsView.Update(msg)
	}
	return cmd
}

// switchTo activates view and returns its start command.
func (a *App) switchTo(view messages.ViewType) tea.Cmd {
	if view == messages.ViewHelp && a.currentView != messages.ViewHelp {
		a.previousView = a.currentView
	}
	a.currentView = view

	switch view {
	case messages.ViewDocuments:
		a.statusBar.SetChat(false)
		a.statusBar.Clear()
		// Reload so index flags reflect indexes built while chatting.
		return tea.Batch(a.documentsView.Load(), a.statusBar.SetState(status.StateLoading))
	case messages.ViewChat:
		a.statusBar.SetChat(true)
		return a.chatView.Init()
	case messages.ViewHelp:
		a.statusBar.SetState(status.StateHelp)
	}
	return nil
}

func (a *App) setError(err error) {
	a.err = err
	a.statusBar.SetState(status.StateError)
	a.statusBar.SetMessage(err.Error())
}

func indexSummary(m *domain.IndexManifest) string {
	if m == nil {
		return "Ready"
	}
	return fmt.Sprintf("%d chunks, %s", m.Count, m.Model)
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	var body string
	switch a.currentView {
	case messages.ViewChat:
		body = a.chatView.View()
	case messages.ViewHelp:
		body = a.viewHelp()
	default:
		body = a.documentsView.View()
	}

	// Pin the status bar to the last line.
	bodyHeight := max(a.height-1, 1)
	body = lipgloss.NewStyle().Height(bodyHeight).MaxHeight(bodyHeight).Render(body)
	return body + "\n" + a.statusBar.View()
}

// viewHelp renders the key bindings.
func (a *App) viewHelp() string {
	out := a.styles.Title.Render("Help") + "\n\n"
	for _, group := range a.keymap.FullHelp() {
		for _, b := range group {
			h := b.Help()
			out += fmt.Sprintf("  %-10s %s\n", h.Key, h.Desc)
		}
		out += "\n"
	}
	return out + a.styles.Help.Render("[esc] back")
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has received its dimensions.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	// One line for the status bar.
	a.documentsView.SetDimensions(width, height-1)
	a.chatView.SetDimensions(width, height-1)
	a.statusBar.SetWidth(width)
}

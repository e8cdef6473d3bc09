// Package status provides status bar components for the TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
)

// State represents the current application state for display.
type State string

const (
	StateReady    State = "ready"
	StateLoading  State = "loading"
	StateIndexing State = "indexing"
	StateThinking State = "thinking"
	StateError    State = "error"
	StateHelp     State = "help"
)

// Busy reports whether the state shows the spinner.
func (s State) Busy() bool {
	return s == StateLoading || s == StateIndexing || s == StateThinking
}

// Bar displays application status and keybinding hints.
type Bar struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	spinner spinner.Model
	state   State
	message string
	chat    bool
	width   int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles:  s,
		keymap:  km,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(s.Spinner)),
		state:   StateReady,
		width:   80,
	}
}

// Init initialises the status bar.
func (s *Bar) Init() tea.Cmd {
	return nil
}

// Update advances the spinner while the bar is busy.
func (s *Bar) Update(msg tea.Msg) (*Bar, tea.Cmd) {
	tick, ok := msg.(spinner.TickMsg)
	if !ok || !s.state.Busy() {
		return s, nil
	}
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(tick)
	return s, cmd
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	padding := s.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}

	return s.styles.StatusBar.Render(left + strings.Repeat(" ", padding) + right)
}

func (s *Bar) renderLeft() string {
	label := s.message
	switch s.state {
	case StateLoading, StateIndexing, StateThinking:
		if label == "" {
			label = busyLabel(s.state)
		}
		return s.spinner.View() + " " + s.styles.Muted.Render(label)
	case StateError:
		if label != "" {
			return s.styles.Error.Render(fmt.Sprintf("Error: %s", label))
		}
		return s.styles.Error.Render("Error")
	case StateHelp:
		return s.styles.Normal.Render("Help")
	case StateReady:
		if label != "" {
			return s.styles.Normal.Render(label)
		}
	}
	return s.styles.Muted.Render("Ready")
}

func busyLabel(state State) string {
	switch state {
	case StateLoading:
		return "Loading documents..."
	case StateIndexing:
		return "Indexing..."
	default:
		return "Thinking..."
	}
}

// renderRight renders keybinding hints.
func (s *Bar) renderRight() string {
	var bindings []key.Binding
	if s.chat {
		bindings = s.keymap.ChatHelp()
	} else {
		bindings = s.keymap.ShortHelp()
	}

	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState sets the current state. Entering a busy state returns the
// command that starts the spinner.
func (s *Bar) SetState(state State) tea.Cmd {
	wasBusy := s.state.Busy()
	s.state = state
	if state.Busy() && !wasBusy {
		return s.spinner.Tick
	}
	return nil
}

// State returns the current state.
func (s *Bar) State() State {
	return s.state
}

// SetMessage sets a custom message.
func (s *Bar) SetMessage(message string) {
	s.message = message
}

// Message returns the current message.
func (s *Bar) Message() string {
	return s.message
}

// SetChat switches the keybinding hints between the picker and the chat.
func (s *Bar) SetChat(chat bool) {
	s.chat = chat
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Width returns the current width.
func (s *Bar) Width() int {
	return s.width
}

// Clear resets the status bar to default state.
func (s *Bar) Clear() {
	s.state = StateReady
	s.message = ""
}

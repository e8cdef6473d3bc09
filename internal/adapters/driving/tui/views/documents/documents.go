// Package documents provides the document picker view for the TUI.
package documents

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// View lists the documents available for questioning.
type View struct {
	styles    *styles.Styles
	qaService driving.QAService
	ctx       context.Context

	documents    []domain.DocumentInfo
	selected     int
	scrollOffset int
	width        int
	height       int
	loading      bool
	err          error
}

// NewView creates a new documents view.
func NewView(s *styles.Styles, qaService driving.QAService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:    s,
		qaService: qaService,
		ctx:       context.Background(),
	}
}

// WithContext sets the context passed to the service.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init loads the document list.
func (v *View) Init() tea.Cmd {
	return v.Load()
}

// Load returns a command that lists the documents.
func (v *View) Load() tea.Cmd {
	v.loading = true
	ctx := v.ctx
	svc := v.qaService
	return func() tea.Msg {
		if svc == nil {
			return messages.DocumentsLoaded{Err: fmt.Errorf("qa service not available")}
		}
		docs, err := svc.Documents(ctx)
		return messages.DocumentsLoaded{Documents: docs, Err: err}
	}
}

// Update handles messages for the documents view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.DocumentsLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.documents = msg.Documents
		if v.selected >= len(v.documents) {
			v.selected = max(len(v.documents)-1, 0)
		}
		v.adjustScroll()
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}

	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.selected > 0 {
			v.selected--
			v.adjustScroll()
		}
	case "down", "j":
		if v.selected < len(v.documents)-1 {
			v.selected++
			v.adjustScroll()
		}
	case "enter":
		if doc := v.SelectedDocument(); doc != nil {
			selected := *doc
			return v, func() tea.Msg {
				return messages.DocumentSelected{Document: selected}
			}
		}
	case "r":
		return v, v.Load()
	case "q":
		return v, func() tea.Msg { return messages.Quit{} }
	case "?":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewHelp}
		}
	}
	return v, nil
}

// adjustScroll keeps the selected item visible.
func (v *View) adjustScroll() {
	visibleItems := v.visibleItemCount()
	if v.selected < v.scrollOffset {
		v.scrollOffset = v.selected
	} else if v.selected >= v.scrollOffset+visibleItems {
		v.scrollOffset = v.selected - visibleItems + 1
	}
}

func (v *View) visibleItemCount() int {
	// Title, blank line, footer and status bar.
	return max(v.height-6, 1)
}

// View renders the documents view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render(fmt.Sprintf("Documents (%d)", len(v.documents))))
	b.WriteString("\n\n")

	switch {
	case v.loading && len(v.documents) == 0:
		b.WriteString(v.styles.Muted.Render("Loading documents..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
	case len(v.documents) == 0:
		b.WriteString(v.styles.Muted.Render("No supported documents (.pdf, .docx, .txt) found."))
	default:
		visibleItems := v.visibleItemCount()
		end := min(v.scrollOffset+visibleItems, len(v.documents))
		for i := v.scrollOffset; i < end; i++ {
			b.WriteString(v.renderDocument(i, v.documents[i]))
			b.WriteString("\n")
		}
		if len(v.documents) > visibleItems {
			b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d-%d of %d]",
				v.scrollOffset+1, end, len(v.documents))))
		}
	}

	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render("[↑/↓] navigate  [enter] chat  [r] reload  [q] quit"))
	return b.String()
}

func (v *View) renderDocument(index int, doc domain.DocumentInfo) string {
	indicator := "  "
	if index == v.selected {
		indicator = "> "
	}

	nameWidth := max(v.width-30, 10)
	name := doc.Name
	if len([]rune(name)) > nameWidth {
		name = string([]rune(name)[:nameWidth-3]) + "..."
	}
	size := formatSize(doc.Size)

	if index == v.selected {
		return v.styles.Selected.Render(fmt.Sprintf("%s%-*s %8s  %s", indicator, nameWidth, name, size, indexLabel(doc)))
	}

	status := v.styles.Warning.Render(indexLabel(doc))
	if doc.Indexed {
		status = v.styles.Success.Render(indexLabel(doc))
	}
	return v.styles.Normal.Render(fmt.Sprintf("%s%-*s ", indicator, nameWidth, name)) +
		v.styles.Muted.Render(fmt.Sprintf("%8s  ", size)) + status
}

func indexLabel(doc domain.DocumentInfo) string {
	if doc.Indexed {
		return "indexed"
	}
	return "not indexed"
}

func formatSize(n int64) string {
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

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.adjustScroll()
}

// Documents returns the listed documents.
func (v *View) Documents() []domain.DocumentInfo {
	return v.documents
}

// SelectedIndex returns the currently selected document index.
func (v *View) SelectedIndex() int {
	return v.selected
}

// SelectedDocument returns the currently selected document, or nil.
func (v *View) SelectedDocument() *domain.DocumentInfo {
	if v.selected < 0 || v.selected >= len(v.documents) {
		return nil
	}
	return &v.documents[v.selected]
}

// Loading reports whether a list request is in flight.
func (v *View) Loading() bool {
	return v.loading
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

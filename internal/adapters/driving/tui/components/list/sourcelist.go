// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

// SourceList displays the passages retrieved for an answer, most similar first.
type SourceList struct {
	hits     []domain.SearchHit
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewSourceList creates an empty source list.
func NewSourceList(s *styles.Styles) *SourceList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &SourceList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the list.
func (r *SourceList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (r *SourceList) Update(msg tea.Msg) (*SourceList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			r.MoveUp()
		case "down", "j":
			r.MoveDown()
		}
	}
	return r, nil
}

// View renders the list.
func (r *SourceList) View() string {
	if len(r.hits) == 0 {
		return r.styles.Muted.Render("No sources")
	}

	lines := make([]string, 0, len(r.hits)+2)
	lines = append(lines, r.styles.Subtitle.Render(fmt.Sprintf("Sources (%d)", len(r.hits))), "")

	// Each hit renders as a header line and a preview line.
	visible := (r.height - 2) / 2
	if visible < 1 {
		visible = 1
	}

	start := 0
	if r.selected >= visible {
		start = r.selected - visible + 1
	}
	end := min(start+visible, len(r.hits))

	for i := start; i < end; i++ {
		lines = append(lines, r.renderHit(i, r.hits[i]))
	}
	return strings.Join(lines, "\n")
}

func (r *SourceList) renderHit(index int, hit domain.SearchHit) string {
	indicator := "  "
	if index == r.selected {
		indicator = "> "
	}

	header := fmt.Sprintf("%s[%d] chunk %d  %.3f", indicator, index+1, hit.Position, hit.Similarity)
	if index == r.selected {
		header = r.styles.Selected.Render(header)
	} else {
		header = r.styles.Normal.Render(header)
	}

	preview := Preview(hit.Content, r.width-6)
	return header + "\n" + r.styles.Muted.Render("    "+preview)
}

// Preview collapses whitespace in s and truncates it to width runes.
func Preview(s string, width int) string {
	if width < 20 {
		width = 20
	}
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}

// SetHits replaces the listed passages.
func (r *SourceList) SetHits(hits []domain.SearchHit) {
	r.hits = hits
	r.selected = 0
}

// Hits returns the listed passages.
func (r *SourceList) Hits() []domain.SearchHit {
	return r.hits
}

// Selected returns the index of the selected passage.
func (r *SourceList) Selected() int {
	return r.selected
}

// SelectedHit returns the selected passage, or nil if the list is empty.
func (r *SourceList) SelectedHit() *domain.SearchHit {
	if r.selected < 0 || r.selected >= len(r.hits) {
		return nil
	}
	return &r.hits[r.selected]
}

// MoveUp moves selection up.
func (r *SourceList) MoveUp() {
	if r.selected > 0 {
		r.selected--
	}
}

// MoveDown moves selection down.
func (r *SourceList) MoveDown() {
	if r.selected < len(r.hits)-1 {
		r.selected++
	}
}

// SetDimensions sets the component dimensions.
func (r *SourceList) SetDimensions(width, height int) {
	r.width = width
	r.height = height
}

// Count returns the number of passages.
func (r *SourceList) Count() int {
	return len(r.hits)
}

package documents

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

// MockQAService implements driving.QAService for testing.
type MockQAService struct {
	DocumentsFunc func(ctx context.Context) ([]domain.DocumentInfo, error)
}

func (m *MockQAService) Ask(_ context.Context, _, _ string, _ int) (*domain.Answer, error) {
	return &domain.Answer{}, nil
}

func (m *MockQAService) Index(_ context.Context, _ string, _ bool) (*domain.IndexManifest, error) {
	return &domain.IndexManifest{}, nil
}

func (m *MockQAService) Documents(ctx context.Context) ([]domain.DocumentInfo, error) {
	if m.DocumentsFunc != nil {
		return m.DocumentsFunc(ctx)
	}
	return nil, nil
}

func (m *MockQAService) Resolve(_ context.Context, ref string) (string, error) {
	return ref, nil
}

func testDocuments() []domain.DocumentInfo {
	return []domain.DocumentInfo{
		{ID: "guide_pdf", Name: "guide.pdf", Path: "/docs/guide.pdf", Size: 2048, Indexed: true},
		{ID: "notes_txt", Name: "notes.txt", Path: "/docs/notes.txt", Size: 120},
		{ID: "plan_docx", Name: "plan.docx", Path: "/docs/plan.docx", Size: 5 << 20},
	}
}

func loadedView(t *testing.T) *View {
	t.Helper()
	v := NewView(nil, &MockQAService{})
	v.SetDimensions(100, 30)
	v, _ = v.Update(messages.DocumentsLoaded{Documents: testDocuments()})
	return v
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewView(t *testing.T) {
	v := NewView(nil, nil)

	require.NotNil(t, v)
	assert.NotNil(t, v.styles)
	assert.Empty(t, v.Documents())
	assert.Nil(t, v.SelectedDocument())
}

func TestView_Init_LoadsDocuments(t *testing.T) {
	mock := &MockQAService{
		DocumentsFunc: func(context.Context) ([]domain.DocumentInfo, error) {
			return testDocuments(), nil
		},
	}
	v := NewView(nil, mock)

	cmd := v.Init()
	require.NotNil(t, cmd)
	assert.True(t, v.Loading())

	loaded, ok := cmd().(messages.DocumentsLoaded)
	require.True(t, ok)
	assert.NoError(t, loaded.Err)
	assert.Len(t, loaded.Documents, 3)

	v, _ = v.Update(loaded)
	assert.False(t, v.Loading())
	assert.Len(t, v.Documents(), 3)
}

func TestView_Load_NilService(t *testing.T) {
	v := NewView(nil, nil)

	msg := v.Load()()

	loaded, ok := msg.(messages.DocumentsLoaded)
	require.True(t, ok)
	assert.Error(t, loaded.Err)
}

func TestView_Load_Error(t *testing.T) {
	mock := &MockQAService{
		DocumentsFunc: func(context.Context) ([]domain.DocumentInfo, error) {
			return nil, domain.ErrNotFound
		},
	}
	v := NewView(nil, mock)

	v, _ = v.Update(v.Load()())

	assert.ErrorIs(t, v.Err(), domain.ErrNotFound)
	assert.Contains(t, v.View(), "Error:")
}

func TestView_Navigation(t *testing.T) {
	v := loadedView(t)

	v, _ = v.Update(key("up"))
	assert.Equal(t, 0, v.SelectedIndex())

	v, _ = v.Update(key("down"))
	v, _ = v.Update(key("j"))
	assert.Equal(t, 2, v.SelectedIndex())

	v, _ = v.Update(key("j"))
	assert.Equal(t, 2, v.SelectedIndex())

	v, _ = v.Update(key("k"))
	assert.Equal(t, "notes.txt", v.SelectedDocument().Name)
}

func TestView_Enter_SelectsDocument(t *testing.T) {
	v := loadedView(t)
	v, _ = v.Update(key("down"))

	_, cmd := v.Update(key("enter"))
	require.NotNil(t, cmd)

	selected, ok := cmd().(messages.DocumentSelected)
	require.True(t, ok)
	assert.Equal(t, "/docs/notes.txt", selected.Document.Path)
}

func TestView_Enter_EmptyList(t *testing.T) {
	v := NewView(nil, &MockQAService{})

	_, cmd := v.Update(key("enter"))

	assert.Nil(t, cmd)
}

func TestView_Keys(t *testing.T) {
	v := loadedView(t)

	_, cmd := v.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, messages.Quit{}, cmd())

	_, cmd = v.Update(key("?"))
	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewHelp}, cmd())

	_, cmd = v.Update(key("r"))
	require.NotNil(t, cmd)
	assert.True(t, v.Loading())
}

func TestView_Reload_ClampsSelection(t *testing.T) {
	v := loadedView(t)
	v, _ = v.Update(key("down"))
	v, _ = v.Update(key("down"))

	v, _ = v.Update(messages.DocumentsLoaded{Documents: testDocuments()[:1]})

	assert.Equal(t, 0, v.SelectedIndex())
}

func TestView_View(t *testing.T) {
	v := loadedView(t)

	view := v.View()

	assert.Contains(t, view, "Documents (3)")
	assert.Contains(t, view, "guide.pdf")
	assert.Contains(t, view, "2.0 KiB")
	assert.Contains(t, view, "5.0 MiB")
	assert.Contains(t, view, "not indexed")
}

func TestView_View_Empty(t *testing.T) {
	v := NewView(nil, &MockQAService{})
	v, _ = v.Update(messages.DocumentsLoaded{})

	assert.Contains(t, v.View(), "No supported documents")
}

func TestView_View_Scrolls(t *testing.T) {
	v := NewView(nil, &MockQAService{})
	v.SetDimensions(100, 7)
	v, _ = v.Update(messages.DocumentsLoaded{Documents: testDocuments()})

	v, _ = v.Update(key("down"))
	view := v.View()

	assert.Contains(t, view, "notes.txt")
	assert.NotContains(t, view, "guide.pdf")
	assert.Contains(t, view, "[2-2 of 3]")
}

func TestView_ErrorOccurred(t *testing.T) {
	v := loadedView(t)
	err := errors.New("boom")

	v, _ = v.Update(messages.ErrorOccurred{Err: err})

	assert.Equal(t, err, v.Err())
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{3 << 30, "3.0 GiB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatSize(tt.in))
		})
	}
}

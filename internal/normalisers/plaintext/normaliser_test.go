package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = New()
}

func TestSupportedMIMETypes(t *testing.T) {
	assert.Equal(t, []string{"text/plain"}, New().SupportedMIMETypes())
	assert.Equal(t, 5, New().Priority())
}

func TestNormalise(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		want    string
	}{
		{"plain", []byte("The sky is blue."), "The sky is blue."},
		{"bom stripped", append([]byte{0xEF, 0xBB, 0xBF}, "héllo"...), "héllo"},
		{"whitespace kept", []byte("  line one\r\nline two\n"), "  line one\r\nline two\n"},
		{"empty", []byte{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := New().Normalise(context.Background(), &domain.RawDocument{
				URI:      "/docs/sky_notes.txt",
				MIMEType: "text/plain",
				Content:  tt.content,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Document.Content)
			assert.Equal(t, "sky notes", result.Document.Title)
			assert.Equal(t, "text/plain", result.Document.MIMEType)
			assert.Equal(t, "text", result.Document.Metadata["format"])
		})
	}
}

func TestNormalise_InvalidUTF8(t *testing.T) {
	_, err := New().Normalise(context.Background(), &domain.RawDocument{
		URI:     "/docs/latin1.txt",
		Content: []byte{'c', 'a', 'f', 0xE9},
	})
	assert.ErrorIs(t, err, domain.ErrUnreadableFile)
}

func TestNormalise_Nil(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNormalise_MetadataTitleAndCopy(t *testing.T) {
	meta := map[string]any{"title": "Quarterly Notes"}
	result, err := New().Normalise(context.Background(), &domain.RawDocument{
		URI:      "/docs/q3.txt",
		Content:  []byte("x"),
		Metadata: meta,
	})
	require.NoError(t, err)
	assert.Equal(t, "Quarterly Notes", result.Document.Title)

	result.Document.Metadata["extra"] = true
	_, leaked := meta["extra"]
	assert.False(t, leaked)
}

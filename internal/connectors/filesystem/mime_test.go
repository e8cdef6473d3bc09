package filesystem

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"notes.txt", "text/plain"},
		{"NOTES.TXT", "text/plain"},
		{"README", "text/plain"},
		{"report.pdf", "application/pdf"},
		{"Report.PDF", "application/pdf"},
		{"memo.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		{"file.zzzzunknown", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, detectMIMEType(tt.filename))
		})
	}

	t.Run("strips parameters", func(t *testing.T) {
		for _, name := range []string{"page.html", "style.css"} {
			assert.NotContains(t, detectMIMEType(name), ";")
		}
	})
}

func TestIsHidden(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{".hidden", true},
		{"path/to/.hidden", true},
		{"/path/.git/config", true},
		{".config/.cache/data", true},
		{"file.txt", false},
		{"path/to/file.txt", false},
		{"file.hidden", false},
		{".", false},
		{"..", false},
		{"path/../file", false},
		{"", false},
		{"/", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, isHidden(tt.path))
		})
	}
}

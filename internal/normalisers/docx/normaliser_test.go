package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// createTestDOCX creates a minimal DOCX archive in memory.
func createTestDOCX(t *testing.T, documentXML, coreXML string) []byte {
	t.Helper()

	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	write := func(name, body string) {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(body))
		require.NoError(t, err)
	}

	write("[Content_Types].xml", `<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
</Types>`)
	if documentXML != "" {
		write("word/document.xml", documentXML)
	}
	if coreXML != "" {
		write("docProps/core.xml", coreXML)
	}

	require.NoError(t, w.Close())
	return buf.Bytes()
}

func wrapBody(inner string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		inner + `</w:body></w:document>`
}

func normalise(t *testing.T, data []byte, uri string) (*driven.NormaliseResult, error) {
	t.Helper()
	return New().Normalise(context.Background(), &domain.RawDocument{
		URI:      uri,
		MIMEType: MIMEType,
		Content:  data,
	})
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = New()
	assert.Equal(t, []string{MIMEType}, New().SupportedMIMETypes())
	assert.Equal(t, 50, New().Priority())
}

func TestNormalise_Paragraphs(t *testing.T) {
	body := wrapBody(`
<w:p><w:r><w:t>The sky is blue.</w:t></w:r></w:p>
<w:p><w:r><w:t xml:space="preserve">The grass </w:t></w:r><w:r><w:t>is green.</w:t></w:r></w:p>
<w:p><w:r><w:t>Paris</w:t><w:tab/><w:t>France</w:t></w:r></w:p>`)

	result, err := normalise(t, createTestDOCX(t, body, ""), "/docs/facts.docx")
	require.NoError(t, err)

	assert.Equal(t, "The sky is blue.\nThe grass is green.\nParis\tFrance", result.Document.Content)
	assert.Equal(t, "facts", result.Document.Title)
	assert.Equal(t, "docx", result.Document.Metadata["format"])
	assert.Equal(t, 3, result.Document.Metadata["paragraphs"])
}

func TestNormalise_TablesAndBreaks(t *testing.T) {
	body := wrapBody(`
<w:p><w:r><w:t>Header</w:t></w:r></w:p>
<w:tbl><w:tr><w:tc><w:p><w:r><w:t>cell one</w:t></w:r></w:p></w:tc>
<w:tc><w:p><w:r><w:t>cell</w:t><w:br/><w:t>two</w:t></w:r></w:p></w:tc></w:tr></w:tbl>`)

	result, err := normalise(t, createTestDOCX(t, body, ""), "/docs/table.docx")
	require.NoError(t, err)

	assert.Equal(t, "Header\ncell one\ncell\ntwo", result.Document.Content)
}

func TestNormalise_TitleFromCoreXML(t *testing.T) {
	core := `<?xml version="1.0" encoding="UTF-8"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
 xmlns:dc="http://purl.org/dc/elements/1.1/"><dc:title> Annual Report </dc:title></cp:coreProperties>`

	result, err := normalise(t, createTestDOCX(t, wrapBody(`<w:p/>`), core), "/docs/ar_2024.docx")
	require.NoError(t, err)

	assert.Equal(t, "Annual Report", result.Document.Title)
	assert.Empty(t, result.Document.Content)
}

func TestNormalise_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"not a zip", []byte("plain text pretending")},
		{"missing document.xml", createTestDOCX(t, "", "")},
		{"broken xml", createTestDOCX(t, `<w:document xmlns:w="x"><w:body>`, "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := normalise(t, tt.data, "/docs/bad.docx")
			assert.ErrorIs(t, err, domain.ErrUnreadableFile)
		})
	}
}

func TestNormalise_Nil(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

package document

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), mode))
	return path
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"crlf", "a\r\nb\rc", "a\nb\nc"},
		{"nfkc ligature", "ﬁle ①", "file 1"},
		{"control chars", "a\x00b\x07c\td", "abc\td"},
		{"form feed", "page1\fpage2", "page1\npage2"},
		{"trailing spaces", "line  \t\nnext", "line\nnext"},
		{"blank runs", "a\n\n\n\n\nb", "a\n\nb"},
		{"trim", "  \n text \n ", "text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestReader_PlainText(t *testing.T) {
	path := writeFile(t, "policy.md", "# Privacy Policy\r\n\r\nWe collect data.\r\n", 0o600)

	text, err := NewReader("").Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "# Privacy Policy\n\nWe collect data.", text)
}

func TestReader_UnsupportedType(t *testing.T) {
	path := writeFile(t, "sheet.xlsx", "x", 0o600)
	_, err := NewReader("").Read(context.Background(), path)
	assert.ErrorContains(t, err, `unsupported file type ".xlsx"`)
}

func TestReader_EmptyDocument(t *testing.T) {
	path := writeFile(t, "empty.txt", " \n\n\t", 0o600)
	_, err := NewReader("").Read(context.Background(), path)
	assert.ErrorContains(t, err, "contains no text")
}

func TestReader_MissingFile(t *testing.T) {
	_, err := NewReader("").Read(context.Background(), filepath.Join(t.TempDir(), "nope.txt"))
	assert.ErrorContains(t, err, "document: read")
}

func TestReader_PDFViaPdfToText(t *testing.T) {
	fakeBin := writeFile(t, "pdftotext", "#!/bin/sh\nprintf 'Extracted   \\n\\n\\n\\ntext content\\n'\n", 0o755)
	pdf := writeFile(t, "doc.pdf", "%PDF-1.4", 0o600)

	text, err := NewReader(fakeBin).Read(context.Background(), pdf)
	require.NoError(t, err)
	assert.Equal(t, "Extracted\n\ntext content", text)
}

func TestPdfToText_BinaryNotFound(t *testing.T) {
	p := NewPdfToText("/nonexistent/pdftotext")
	_, err := p.Extract(context.Background(), "/tmp/test.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdftotext failed")
}

func TestPdfToText_DefaultBinary(t *testing.T) {
	assert.Equal(t, "pdftotext", NewPdfToText("").binPath)
}

type staticExtractor string

func (s staticExtractor) Extract(context.Context, string) (string, error) { return string(s), nil }

func TestReader_Register(t *testing.T) {
	r := NewReader("")
	r.Register(".HTML", staticExtractor("from html"))

	text, err := r.Read(context.Background(), "/any/page.html")
	require.NoError(t, err)
	assert.Equal(t, "from html", text)
}

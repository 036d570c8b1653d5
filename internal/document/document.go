// Package document turns input files into normalized text.
package document

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"
)

// Extractor pulls raw text out of one file format.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// PlainText reads UTF-8 text and markdown files.
type PlainText struct{}

// Extract implements Extractor.
func (PlainText) Extract(_ context.Context, path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", eris.Wrapf(err, "document: read %s", path)
	}
	return string(b), nil
}

// Reader picks an Extractor by file extension and normalizes the result.
type Reader struct {
	byExt map[string]Extractor
}

// NewReader returns a Reader for plain text, markdown and PDF files. PDFs are
// converted by the pdftotext binary at pdfToTextPath.
func NewReader(pdfToTextPath string) *Reader {
	plain := PlainText{}
	return &Reader{byExt: map[string]Extractor{
		"":          plain,
		".txt":      plain,
		".text":     plain,
		".md":       plain,
		".markdown": plain,
		".pdf":      NewPdfToText(pdfToTextPath),
	}}
}

// Register adds or replaces the extractor for ext (including the dot).
func (r *Reader) Register(ext string, e Extractor) {
	r.byExt[strings.ToLower(ext)] = e
}

// Read extracts and normalizes the text of path.
func (r *Reader) Read(ctx context.Context, path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	e, ok := r.byExt[ext]
	if !ok {
		return "", eris.Errorf("document: unsupported file type %q", ext)
	}
	raw, err := e.Extract(ctx, path)
	if err != nil {
		return "", err
	}
	text := Normalize(raw)
	if strings.TrimSpace(text) == "" {
		return "", eris.Errorf("document: %s contains no text", filepath.Base(path))
	}
	return text, nil
}

var (
	trailingSpaceRe = regexp.MustCompile(`[ \t]+\n`)
	blankRunRe      = regexp.MustCompile(`\n{3,}`)
)

// Normalize applies NFKC, unifies line endings, drops control characters
// other than newline and tab, strips trailing spaces and collapses runs of
// blank lines to one.
func Normalize(text string) string {
	text = norm.NFKC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r == '\f':
			return '\n'
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, text)
	text = trailingSpaceRe.ReplaceAllString(text, "\n")
	text = blankRunRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

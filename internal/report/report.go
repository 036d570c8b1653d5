// Package report renders analysis results as text, JSON and XLSX.
package report

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/compliance-cli/internal/model"
)

// Format is an export format.
type Format string

const (
	FormatPlainText Format = "text"
	FormatJSON      Format = "json"
	FormatXLSX      Format = "xlsx"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatPlainText, FormatJSON, FormatXLSX:
		return f, nil
	case "":
		return FormatPlainText, nil
	default:
		return "", eris.Errorf("report: unknown format %q", s)
	}
}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatXLSX:
		return ".xlsx"
	default:
		return ".txt"
	}
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Write renders res to w in format f.
func Write(w io.Writer, res *model.DocumentAnalysisResult, f Format) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, res)
	case FormatXLSX:
		return WriteXLSX(w, res)
	default:
		_, err := io.WriteString(w, FormatText(res))
		return eris.Wrap(err, "report: write text")
	}
}

// WriteJSON writes res as indented JSON.
func WriteJSON(w io.Writer, res *model.DocumentAnalysisResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return eris.Wrap(err, "report: encode json")
	}
	return nil
}

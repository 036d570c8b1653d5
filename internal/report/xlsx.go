package report

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/compliance-cli/internal/model"
)

// Sheet names in the exported workbook.
const (
	SheetFindings       = "Findings"
	SheetContradictions = "Contradictions"
	SheetChunks         = "Chunks"
)

var (
	findingsHeader       = []string{"Confidence", "Regulation", "Issue", "Sections", "Explanation", "Citation"}
	contradictionsHeader = []string{"Type", "Confidence", "Regulation", "Issue", "Sections", "Explanation"}
	chunksHeader         = []string{"Index", "Position", "Kind", "Size", "Score", "Analyzed", "Reason", "Issues", "Error"}
)

// WriteXLSX writes a workbook with one sheet each for findings,
// contradictions and chunk decisions.
func WriteXLSX(w io.Writer, res *model.DocumentAnalysisResult) error {
	f := xlsx.NewFile()
	bold := xlsx.NewStyle()
	bold.Font.Bold = true
	bold.ApplyFont = true

	findings, err := addSheet(f, SheetFindings, findingsHeader, bold)
	if err != nil {
		return err
	}
	for _, fd := range res.Findings {
		addStrings(findings.AddRow(), string(fd.Confidence), fd.Regulation, fd.Issue,
			fd.Section.String(), fd.Explanation, fd.Citation)
	}

	contradictions, err := addSheet(f, SheetContradictions, contradictionsHeader, bold)
	if err != nil {
		return err
	}
	for _, c := range res.Contradictions {
		addStrings(contradictions.AddRow(), c.FindingType, string(c.Confidence), c.Regulation, c.Issue,
			model.Sections(c.Section).String(), c.Explanation)
	}

	chunks, err := addSheet(f, SheetChunks, chunksHeader, bold)
	if err != nil {
		return err
	}
	for _, c := range res.Chunks {
		row := chunks.AddRow()
		row.AddCell().SetInt(c.Chunk.Index)
		addStrings(row, c.Chunk.Position, string(c.Chunk.Kind))
		row.AddCell().SetInt(c.Chunk.Size)
		row.AddCell().SetFloat(c.Decision.Score.TotalScore)
		row.AddCell().SetBool(c.Analyzed)
		addStrings(row, c.Decision.Explain())
		row.AddCell().SetInt(len(c.Issues))
		addStrings(row, c.Error)
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "report: write xlsx")
	}
	return nil
}

func addSheet(f *xlsx.File, name string, header []string, style *xlsx.Style) (*xlsx.Sheet, error) {
	sheet, err := f.AddSheet(name)
	if err != nil {
		return nil, eris.Wrapf(err, "report: add sheet %s", name)
	}
	row := sheet.AddRow()
	for _, h := range header {
		cell := row.AddCell()
		cell.SetString(h)
		cell.SetStyle(style)
	}
	return sheet, nil
}

func addStrings(row *xlsx.Row, values ...string) {
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

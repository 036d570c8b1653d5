// Package chunker splits document text into ordered chunks for scoring and
// analysis.
package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sells-group/compliance-cli/internal/model"
)

// Method names a splitting strategy.
type Method string

const (
	Smart     Method = "smart"
	Paragraph Method = "paragraph"
	Sentence  Method = "sentence"
	Simple    Method = "simple"
)

// Options controls splitting. Size and Overlap are in characters.
type Options struct {
	Method  Method
	Size    int
	Overlap int
}

// DefaultOptions matches the default chunking configuration.
func DefaultOptions() Options {
	return Options{Method: Smart, Size: 800, Overlap: 100}
}

const (
	maxSections       = 100
	minAvgSectionSize = 100
	smallSection      = 150
	boundaryLookback  = 100
)

var (
	markdownHeadingRe = regexp.MustCompile(`^#{1,6}\s+(.+)$`)
	numberedHeadingRe = regexp.MustCompile(`^\d+(\.\d+)*\.?\s+[A-Z]`)
	namedHeadingRe    = regexp.MustCompile(`^(Article|Section|Chapter|Part)\s+\S+`)
	sentenceEndRe     = regexp.MustCompile(`[.!?]\s+`)
)

// Split splits text into chunks numbered from 0 in document order. Blank
// input yields nil.
func Split(text string, opts Options) []model.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	d := DefaultOptions()
	if opts.Size <= 0 {
		opts.Size = d.Size
	}
	if opts.Overlap < 0 || opts.Overlap >= opts.Size {
		opts.Overlap = 0
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var chunks []model.Chunk
	switch opts.Method {
	case Paragraph:
		chunks = splitParagraphs(text, opts, chunkLabel, model.ChunkKindParagraphGroup)
	case Sentence:
		chunks = splitSentences(text, opts)
	case Simple:
		chunks = splitSimple(text, opts)
	default:
		chunks = splitSmart(text, opts)
	}

	for i := range chunks {
		chunks[i].Index = i
	}
	return chunks
}

func chunkLabel(n int) string { return fmt.Sprintf("Chunk %d", n) }

type section struct {
	title string
	lines []string
}

func (s section) text() string { return strings.TrimSpace(strings.Join(s.lines, "\n")) }

func splitSmart(text string, opts Options) []model.Chunk {
	sections := detectSections(text)
	if !reasonable(sections) {
		return splitParagraphs(text, opts, chunkLabel, model.ChunkKindParagraphGroup)
	}

	var out []model.Chunk
	for _, s := range sections {
		body := s.text()
		if body == "" {
			continue
		}
		if runeLen(body) <= opts.Size {
			out = append(out, newChunk(s.title, body, model.ChunkKindSection))
			continue
		}
		title := s.title
		out = append(out, splitParagraphs(body, opts, func(n int) string {
			return fmt.Sprintf("%s (Part %d)", title, n)
		}, model.ChunkKindSectionPart)...)
	}
	return out
}

func detectSections(text string) []section {
	var sections []section
	current := section{title: "Introduction"}
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			current.lines = append(current.lines, "")
			continue
		}
		if title, ok := heading(line); ok {
			if current.text() != "" {
				sections = append(sections, current)
			}
			current = section{title: title}
			continue
		}
		current.lines = append(current.lines, line)
	}
	if current.text() != "" {
		sections = append(sections, current)
	}
	return sections
}

// heading reports whether line starts a section and returns its title.
func heading(line string) (string, bool) {
	if m := markdownHeadingRe.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(strings.TrimRight(m[1], "#")), true
	}
	if utf8.RuneCountInString(line) > 120 {
		return "", false
	}
	if numberedHeadingRe.MatchString(line) || namedHeadingRe.MatchString(line) || allCaps(line) {
		return line, true
	}
	return "", false
}

func allCaps(line string) bool {
	if utf8.RuneCountInString(line) > 80 {
		return false
	}
	letters := 0
	for _, r := range line {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters >= 3
}

func reasonable(sections []section) bool {
	if len(sections) < 2 || len(sections) > maxSections {
		return false
	}
	total, small := 0, 0
	for _, s := range sections {
		n := runeLen(s.text())
		total += n
		if n < smallSection {
			small++
		}
	}
	if total/len(sections) < minAvgSectionSize {
		return false
	}
	return float64(small) <= float64(len(sections))*0.6
}

func splitParagraphs(text string, opts Options, label func(int) string, kind model.ChunkKind) []model.Chunk {
	var units []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if runeLen(p) > opts.Size {
			units = append(units, sentences(p)...)
			continue
		}
		units = append(units, p)
	}

	var out []model.Chunk
	var b strings.Builder
	for _, u := range units {
		if b.Len() > 0 && runeLen(b.String())+runeLen(u)+2 > opts.Size {
			prev := b.String()
			out = append(out, newChunk(label(len(out)+1), prev, kind))
			b.Reset()
			b.WriteString(overlapTail(prev, opts.Overlap))
		} else if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(u)
	}
	if strings.TrimSpace(b.String()) != "" {
		out = append(out, newChunk(label(len(out)+1), b.String(), kind))
	}
	return out
}

func splitSentences(text string, opts Options) []model.Chunk {
	var out []model.Chunk
	var current []string
	size := 0
	for _, s := range sentences(text) {
		if len(current) > 0 && size+runeLen(s)+1 > opts.Size {
			out = append(out, newChunk(chunkLabel(len(out)+1), strings.Join(current, " "), model.ChunkKindSentenceGroup))
			last := current[len(current)-1]
			current, size = nil, 0
			if opts.Overlap > 0 && len(out[len(out)-1].Text) > len(last) {
				current, size = []string{last}, runeLen(last)
			}
		}
		if len(current) > 0 {
			size++
		}
		current = append(current, s)
		size += runeLen(s)
	}
	if len(current) > 0 {
		out = append(out, newChunk(chunkLabel(len(out)+1), strings.Join(current, " "), model.ChunkKindSentenceGroup))
	}
	return out
}

func splitSimple(text string, opts Options) []model.Chunk {
	runes := []rune(text)
	var out []model.Chunk
	for start := 0; start < len(runes); {
		end := start + opts.Size
		if end >= len(runes) {
			if t := strings.TrimSpace(string(runes[start:])); t != "" {
				out = append(out, newChunk(chunkLabel(len(out)+1), t, model.ChunkKindSimple))
			}
			break
		}
		brk := wordBoundary(runes, end, start)
		if t := strings.TrimSpace(string(runes[start:brk])); t != "" {
			out = append(out, newChunk(chunkLabel(len(out)+1), t, model.ChunkKindSimple))
		}
		next := brk - opts.Overlap
		if next <= start {
			next = brk
		}
		start = next
	}
	return out
}

// wordBoundary looks back from pos for a break character and returns the
// index just past it, or pos when none is close.
func wordBoundary(runes []rune, pos, floor int) int {
	for i := pos; i > max(pos-boundaryLookback, floor); i-- {
		if strings.ContainsRune(" \n\t.,;!?", runes[i]) {
			return i + 1
		}
	}
	return pos
}

// overlapTail returns up to n trailing characters of text, starting at a
// sentence or word boundary, followed by a paragraph break.
func overlapTail(text string, n int) string {
	runes := []rune(text)
	if n <= 0 || len(runes) <= n {
		return ""
	}
	tail := string(runes[len(runes)-n:])
	if i := strings.Index(tail, ". "); i >= 0 && runeLen(tail[i+2:]) > 50 {
		return tail[i+2:] + "\n\n"
	}
	if i := strings.IndexByte(tail, ' '); i >= 0 {
		return tail[i+1:] + "\n\n"
	}
	return tail + "\n\n"
}

func sentences(text string) []string {
	var out []string
	last := 0
	for _, loc := range sentenceEndRe.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[last : loc[0]+1]); s != "" {
			out = append(out, s)
		}
		last = loc[1]
	}
	if s := strings.TrimSpace(text[last:]); s != "" {
		out = append(out, s)
	}
	return out
}

func newChunk(position, text string, kind model.ChunkKind) model.Chunk {
	text = strings.TrimSpace(text)
	return model.Chunk{Position: position, Text: text, Size: runeLen(text), Kind: kind}
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

// Package knowledge indexes a framework's regulation articles and retrieves
// the passages most similar to a chunk of document text.
package knowledge

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

// Article is one regulation passage.
type Article struct {
	ID    string
	Title string
	Text  string
}

var (
	headingRe  = regexp.MustCompile(`^(?:(?:Article|Section|Rule|Regulation|Chapter)\s+\S+|§\s*\S+|\d+\.\s*[A-Z])`)
	slugRe     = regexp.MustCompile(`[^a-z0-9]+`)
	maxLineLen = 1 << 20
)

// ParseArticles splits r into articles. A heading line (Article 5, Section
// 164.502, § 1798.100, "12. Title") starts a new article and the lines up to
// the next heading form its text. Input without headings is split into
// blank-line separated passages instead.
func ParseArticles(r io.Reader) ([]Article, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineLen)

	var (
		articles []Article
		lines    []string
		current  *Article
	)
	flush := func() {
		if current != nil {
			current.Text = strings.TrimSpace(strings.Join(lines, "\n"))
			articles = append(articles, *current)
		}
		lines = lines[:0]
	}

	var all []string
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t\r")
		all = append(all, line)
		trimmed := strings.TrimSpace(line)
		if headingRe.MatchString(trimmed) {
			flush()
			current = &Article{ID: articleID(trimmed), Title: trimmed}
			continue
		}
		if current != nil {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "knowledge: read articles")
	}
	flush()

	if len(articles) == 0 {
		return passages(all), nil
	}
	return dedupeIDs(articles), nil
}

// ParseArticlesFile reads articles from a file.
func ParseArticlesFile(path string) ([]Article, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "knowledge: open %s", path)
	}
	defer f.Close() //nolint:errcheck
	return ParseArticles(f)
}

func passages(lines []string) []Article {
	var out []Article
	var para []string
	emit := func() {
		if text := strings.TrimSpace(strings.Join(para, "\n")); text != "" {
			n := len(out) + 1
			out = append(out, Article{ID: fmt.Sprintf("passage-%d", n), Title: fmt.Sprintf("Passage %d", n), Text: text})
		}
		para = para[:0]
	}
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			emit()
			continue
		}
		para = append(para, l)
	}
	emit()
	return out
}

// articleID slugs the reference part of a heading: "Article 5 - Principles"
// becomes "article-5".
func articleID(heading string) string {
	ref := heading
	if i := strings.Index(ref, " - "); i > 0 {
		ref = ref[:i]
	}
	ref = strings.ReplaceAll(ref, "§", "section ")
	return strings.Trim(slugRe.ReplaceAllString(strings.ToLower(ref), "-"), "-")
}

func dedupeIDs(articles []Article) []Article {
	seen := make(map[string]int, len(articles))
	for i := range articles {
		id := articles[i].ID
		seen[id]++
		if n := seen[id]; n > 1 {
			articles[i].ID = fmt.Sprintf("%s-%d", id, n)
		}
	}
	return articles
}

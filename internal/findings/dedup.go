package findings

import (
	"sort"
	"strings"

	"github.com/sells-group/compliance-cli/internal/model"
)

// DedupOptions tunes deduplication.
type DedupOptions struct {
	// KeyLength is the normalized issue prefix length used in the key.
	// Zero means DefaultKeyLength.
	KeyLength int
}

// Deduplicate merges per-chunk findings that share a dedup key. Findings with
// an empty issue are dropped. Merging keeps the first-seen issue text, unions
// sections in order of first appearance, keeps the highest confidence, the
// longest explanation and the first non-empty citation. Input is visited in
// canonical order (chunk, then section and the finding's text fields) so the
// result does not depend on how the input was ordered. The output is sorted
// by confidence, then regulation, then issue.
func Deduplicate(raw []model.RawFinding, opts DedupOptions) []model.AggregatedFinding {
	ordered := make([]model.RawFinding, len(raw))
	copy(ordered, raw)
	sort.Slice(ordered, func(i, j int) bool {
		return rawLess(ordered[i], ordered[j])
	})

	m := newMerger(opts)
	for _, f := range ordered {
		m.add(model.AggregatedFinding{
			Issue:       f.Issue,
			Regulation:  f.Regulation,
			Confidence:  f.Confidence,
			Explanation: f.Explanation,
			Section:     model.Sections(nil).Add(f.Section),
			Citation:    f.Citation,
		})
	}
	return m.result()
}

// DeduplicateAggregated runs the same merge over already aggregated
// findings. Applied to the output of Deduplicate it returns that output
// unchanged.
func DeduplicateAggregated(findings []model.AggregatedFinding, opts DedupOptions) []model.AggregatedFinding {
	m := newMerger(opts)
	for _, f := range findings {
		m.add(f)
	}
	return m.result()
}

func rawLess(a, b model.RawFinding) bool {
	if a.ChunkIndex != b.ChunkIndex {
		return a.ChunkIndex < b.ChunkIndex
	}
	if a.Section != b.Section {
		return a.Section < b.Section
	}
	if a.Regulation != b.Regulation {
		return a.Regulation < b.Regulation
	}
	if a.Issue != b.Issue {
		return a.Issue < b.Issue
	}
	if a.Explanation != b.Explanation {
		return a.Explanation < b.Explanation
	}
	if a.Citation != b.Citation {
		return a.Citation < b.Citation
	}
	return a.Confidence < b.Confidence
}

type merger struct {
	keyLength int
	byKey     map[string]int
	out       []model.AggregatedFinding
}

func newMerger(opts DedupOptions) *merger {
	return &merger{keyLength: opts.KeyLength, byKey: make(map[string]int)}
}

func (m *merger) add(f model.AggregatedFinding) {
	if strings.TrimSpace(f.Issue) == "" {
		return
	}
	f.Confidence = normalizeConfidence(f.Confidence)

	key := Key(f.Regulation, f.Issue, m.keyLength)
	idx, seen := m.byKey[key]
	if !seen {
		sections := make(model.Sections, 0, len(f.Section))
		for _, s := range f.Section {
			sections = sections.Add(s)
		}
		f.Section = sections
		m.byKey[key] = len(m.out)
		m.out = append(m.out, f)
		return
	}

	cur := &m.out[idx]
	for _, s := range f.Section {
		cur.Section = cur.Section.Add(s)
	}
	if f.Confidence.Rank() > cur.Confidence.Rank() {
		cur.Confidence = f.Confidence
	}
	if len(f.Explanation) > len(cur.Explanation) {
		cur.Explanation = f.Explanation
	}
	if cur.Citation == "" {
		cur.Citation = f.Citation
	}
}

func (m *merger) result() []model.AggregatedFinding {
	out := m.out
	if out == nil {
		out = []model.AggregatedFinding{}
	}
	SortFindings(out)
	return out
}

// SortFindings orders findings by confidence (High first), then regulation,
// then issue.
func SortFindings(findings []model.AggregatedFinding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if ra, rb := a.Confidence.Rank(), b.Confidence.Rank(); ra != rb {
			return ra > rb
		}
		if a.Regulation != b.Regulation {
			return a.Regulation < b.Regulation
		}
		return a.Issue < b.Issue
	})
}

// normalizeConfidence defaults a missing confidence to Medium and maps
// recognized spellings onto the enum.
func normalizeConfidence(c model.Confidence) model.Confidence {
	return model.ParseConfidence(string(c))
}

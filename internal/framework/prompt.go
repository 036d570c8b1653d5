package framework

import (
	"fmt"
	"strings"

	"github.com/sells-group/compliance-cli/internal/model"
)

const analysisResponseFormat = `Return ONLY JSON in this shape:
{"issues": [{"issue": "Clear description of the violation", "regulation": "Provision violated", "confidence": "High|Medium|Low", "explanation": "Why this violates the provision", "citation": "Exact quote from the text"}]}

Rules:
- Only flag statements that describe bad practices or clear violations.
- Ignore statements that describe compliant practices or safeguards.
- Quote the document exactly.
- If unsure whether something is a violation, leave it out.
- If nothing is found return {"issues": []}.`

const analysisUserPrompt = `DOCUMENT SECTION: %s

DOCUMENT TEXT:
%s

RELEVANT %s PROVISIONS:
%s

Find the %s violations in this section.`

const reconcileUserPrompt = `Below are the first-pass %s findings for one document, grouped by section.

%s

Review them together and identify cross-section problems:
1. Direct contradictions: two sections make incompatible statements.
2. Unresolved issues: one section raises a concern that no section addresses.
3. Implementation gaps: a promised control has no implementation detail anywhere.
4. Scope inconsistencies: the stated scope of a policy varies across sections.
%s
Respond with a JSON array:
[{"issue": "Description of the problem", "section": "Sections involved (e.g. 'Section 2 vs Section 6')", "confidence": "High|Medium|Low", "explanation": "Why this creates a compliance risk", "regulation": "Affected provision", "finding_type": "contradiction"}]

Return [] if there are none.`

// SystemPrompt returns the judge guidance with the response contract appended.
func (d *definition) SystemPrompt() string {
	return fmt.Sprintf("You are a %s compliance auditor.\n\n%s\n\n%s", d.name, strings.TrimSpace(d.guidance), analysisResponseFormat)
}

// BuildAnalysisPrompt renders the per-chunk user prompt.
func (d *definition) BuildAnalysisPrompt(section, text string, regulations []model.Regulation) string {
	return fmt.Sprintf(analysisUserPrompt, section, text, strings.ToUpper(d.name), FormatRegulations(regulations), d.name)
}

// BuildReconcilePrompt renders the single cross-section prompt.
func (d *definition) BuildReconcilePrompt(digest string) string {
	focus := ""
	if d.reconcile != "" {
		focus = "\nPay particular attention to:\n" + strings.TrimSpace(d.reconcile) + "\n"
	}
	return fmt.Sprintf(reconcileUserPrompt, d.name, digest, focus)
}

// FormatRegulations renders retrieved passages for a prompt.
func FormatRegulations(regulations []model.Regulation) string {
	if len(regulations) == 0 {
		return "(no provisions retrieved)"
	}
	var b strings.Builder
	for i, r := range regulations {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%s\n%s", r.Title, strings.TrimSpace(r.Text))
	}
	return b.String()
}

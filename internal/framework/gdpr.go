package framework

import (
	_ "embed"
	"regexp"
	"strings"
)

//go:embed data/gdpr.txt
var gdprArticles string

var gdprArticleRe = regexp.MustCompile(`(?i)^(?:gdpr\s+)?art(?:icle|s?\.)?\s*(\d+)(.*)$`)

// standardizeGDPR rewrites "Art. 5(1)(e)", "art 5" and "GDPR Article 5" to
// the canonical "Article 5(1)(e)" form.
func standardizeGDPR(label string) string {
	m := gdprArticleRe.FindStringSubmatch(label)
	if m == nil {
		return label
	}
	return "Article " + m[1] + strings.TrimRight(m[2], " ")
}

// GDPR returns the EU General Data Protection Regulation framework.
func GDPR() Framework {
	return &definition{
		id:          "gdpr",
		name:        "GDPR",
		description: "EU General Data Protection Regulation",
		articles:    gdprArticles,
		standardize: standardizeGDPR,
		terms: Terms{
			DataTerms: []string{
				"personal data", "personal information", "data subject", "user data",
				"customer data", "email address", "ip address", "location data",
				"cookies", "browsing history", "biometric", "health data", "profile",
				"identifier", "processing",
			},
			RegulatoryKeywords: []string{
				"gdpr", "consent", "lawful basis", "legitimate interest", "controller",
				"processor", "supervisory authority", "data protection officer",
				"privacy notice", "right to erasure", "right of access", "portability",
				"retention period", "impact assessment", "article",
			},
			HighRiskPatterns: []string{
				"indefinitely", "without consent", "no opt-out", "must agree",
				"by default", "pre-selected", "automatically enrolled", "irrevocable",
				"cannot be withdrawn", "any purpose", "future use", "no encryption",
				"without human", "all available information", "sell",
			},
			PriorityKeywords: []string{
				"consent", "retention", "erasure", "transfer", "breach",
				"special category", "automated decision",
			},
			Phrases: []string{
				"retained indefinitely", "without your consent", "no option to decline",
				"consent cannot be withdrawn", "shared with third parties",
				"for any purpose", "automatically enrolled", "comprehensive profile",
				"without human intervention", "sell your personal data",
			},
			ContextPatterns: []ContextPattern{
				{
					Name:           "storage limitation",
					DataIndicators: []string{"data", "information", "records"},
					RiskIndicators: []string{"indefinitely", "forever", "permanently", "as long as"},
					Weight:         2.0,
				},
				{
					Name:           "disclosure",
					DataIndicators: []string{"personal data", "personal information", "profile"},
					RiskIndicators: []string{"third parties", "partners", "advertisers", "sell"},
					Weight:         1.5,
				},
				{
					Name:           "forced consent",
					DataIndicators: []string{"data", "processing"},
					RiskIndicators: []string{"must agree", "required to accept", "by default", "pre-selected"},
					Weight:         2.0,
				},
			},
		},
		guidance: `Find statements in the document that violate the GDPR. Look for:
- Indefinite storage ("indefinitely", "as long as necessary", "no deletion policy"): Article 5(1)(e).
- Forced or bundled consent ("must agree", "no option to decline", "consent to all"): Article 7(2) and 7(4).
- No withdrawal mechanism ("irrevocable consent", "cannot be withdrawn", "no opt-out"): Article 7(3).
- Excessive collection ("all available information", "comprehensive profile"): Article 5(1)(c).
- Unclear purpose ("various purposes", "future use", "any purpose"): Article 5(1)(b).
- Automatic opt-in ("by default", "pre-selected", "automatically enrolled"): Article 4(11) and 7(1).
- Weak security ("no encryption", "security may be deferred", "minimal protection"): Article 5(1)(f) and Article 32.
- Restricted data subject rights ("no access right", "deletion when resources permit"): Articles 15 to 20.
- Automated decisions without human oversight: Article 22.
- Special category data without safeguards (health, biometric, religion, ethnicity): Article 9.
- International transfers without safeguards ("global storage", "worldwide access"): Article 44.
Use "Article N" style references.`,
		reconcile: `- Retention statements that disagree between sections (Article 5(1)(e)).
- Consent described as optional in one place and mandatory in another (Article 7).
- Rights promised in one section and exempted in another (Articles 15 to 22).
- Security commitments contradicted by performance or cost trade-offs (Article 32).
- Purpose limitation contradicted by open-ended reuse (Article 5(1)(b)).`,
	}
}

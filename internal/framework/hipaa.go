package framework

import (
	_ "embed"
	"regexp"
)

//go:embed data/hipaa.txt
var hipaaArticles string

var hipaaSectionRe = regexp.MustCompile(`(?i)^(?:45\s*cfr\s*)?(?:§+|sec(?:tion|\.)?)\s*(164\.\d+.*)$`)

// standardizeHIPAA rewrites "Section 164.502" and "§164.502" to "§ 164.502".
func standardizeHIPAA(label string) string {
	if m := hipaaSectionRe.FindStringSubmatch(label); m != nil {
		return "§ " + m[1]
	}
	return label
}

// HIPAA returns the US Health Insurance Portability and Accountability Act framework.
func HIPAA() Framework {
	return &definition{
		id:          "hipaa",
		name:        "HIPAA",
		description: "US Health Insurance Portability and Accountability Act",
		articles:    hipaaArticles,
		standardize: standardizeHIPAA,
		terms: Terms{
			DataTerms: []string{
				"protected health information", "phi", "medical record", "health information",
				"patient", "diagnosis", "treatment", "health record", "health plan",
				"claims", "prescription", "lab results",
			},
			RegulatoryKeywords: []string{
				"hipaa", "privacy rule", "security rule", "breach notification",
				"business associate", "covered entity", "authorization",
				"minimum necessary", "notice of privacy practices", "safeguards", "164.",
			},
			HighRiskPatterns: []string{
				"without authorization", "unencrypted", "not encrypted", "unsecured",
				"marketing", "sold", "no business associate agreement", "no audit",
				"indefinitely", "without consent", "disclosed to employers",
			},
			PriorityKeywords: []string{
				"authorization", "breach", "business associate", "encryption",
				"minimum necessary", "disclosure",
			},
			Phrases: []string{
				"without patient authorization", "no business associate agreement",
				"unencrypted health information", "sold to third parties",
				"for marketing purposes", "no breach notification",
				"shared with employers", "access logs are not",
			},
			ContextPatterns: []ContextPattern{
				{
					Name:           "unauthorized disclosure",
					DataIndicators: []string{"health information", "phi", "medical record", "patient"},
					RiskIndicators: []string{"shared", "disclosed", "sold", "marketing"},
					Weight:         2.0,
				},
				{
					Name:           "technical safeguards",
					DataIndicators: []string{"phi", "health information", "records"},
					RiskIndicators: []string{"unencrypted", "not encrypted", "no audit", "shared password"},
					Weight:         2.0,
				},
			},
		},
		guidance: `Check the section against the HIPAA Privacy, Security and Breach Notification Rules:
- Uses or disclosures of PHI without a valid authorization (§ 164.508) or outside permitted purposes (§ 164.502).
- Missing or inadequate business associate agreements (§ 164.504(e)).
- Disclosures beyond the minimum necessary (§ 164.502(b), § 164.514(d)).
- Missing administrative, physical or technical safeguards such as encryption, access control and audit logs (§ 164.308 to § 164.312).
- Retention and disposal of PHI without safeguards (§ 164.310(d), § 164.530(c)).
- Breach notification gaps (§ 164.404 to § 164.410).
- Denied or delayed patient access to records (§ 164.524).
Prefer one or two well-evidenced issues over many speculative ones.`,
		reconcile: `- PHI handling practices that differ between sections.
- Security safeguards promised in one section and absent in another.
- Authorization and consent gaps.
- Contradictory retention and disposal statements.
- Inconsistent business associate policies.`,
	}
}

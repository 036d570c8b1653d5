package framework

import (
	_ "embed"
	"regexp"
)

//go:embed data/ccpa.txt
var ccpaArticles string

var ccpaSectionRe = regexp.MustCompile(`(?i)^(?:cal\.?\s*civ\.?\s*code\s*)?(?:§+|sec(?:tion|\.)?)?\s*(1798\.\d+.*)$`)

// standardizeCCPA rewrites bare and prefixed civil code references to "§ 1798.x".
func standardizeCCPA(label string) string {
	if m := ccpaSectionRe.FindStringSubmatch(label); m != nil {
		return "§ " + m[1]
	}
	return label
}

// CCPA returns the California Consumer Privacy Act framework (as amended by CPRA).
func CCPA() Framework {
	return &definition{
		id:          "ccpa",
		name:        "CCPA",
		description: "California Consumer Privacy Act",
		articles:    ccpaArticles,
		standardize: standardizeCCPA,
		terms: Terms{
			DataTerms: []string{
				"personal information", "consumer", "household", "device", "browsing",
				"geolocation", "inferences", "identifiers", "sensitive personal information",
			},
			RegulatoryKeywords: []string{
				"ccpa", "cpra", "right to know", "right to delete", "opt-out",
				"do not sell", "notice at collection", "service provider",
				"business purpose", "financial incentive", "1798.",
			},
			HighRiskPatterns: []string{
				"sell", "share", "without notice", "no opt-out", "cannot opt out",
				"discriminate", "minors", "cross-context behavioral advertising",
				"indefinitely", "denied",
			},
			PriorityKeywords: []string{
				"sell", "opt-out", "delete", "notice", "minors",
			},
			Phrases: []string{
				"sell your personal information", "no right to opt out",
				"without notice at collection", "charge a different price",
				"cross-context behavioral advertising", "under 16 years",
			},
			ContextPatterns: []ContextPattern{
				{
					Name:           "sale or sharing",
					DataIndicators: []string{"personal information", "data", "browsing"},
					RiskIndicators: []string{"sell", "share", "advertising", "data brokers"},
					Weight:         2.0,
				},
			},
		},
		guidance: `Check the section against the CCPA as amended by the CPRA:
- Missing notice at collection of categories and purposes (§ 1798.100).
- Denied or conditioned rights to know, delete or correct (§ 1798.105, § 1798.106, § 1798.110).
- Selling or sharing personal information without a clear opt-out (§ 1798.120, § 1798.135).
- Selling data of consumers under 16 without opt-in (§ 1798.120(c)).
- Unrestricted use of sensitive personal information (§ 1798.121).
- Discrimination against consumers exercising rights (§ 1798.125).
Use "§ 1798.x" style references.`,
	}
}

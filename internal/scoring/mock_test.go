package scoring

import "github.com/sells-group/compliance-cli/internal/framework"

// stubFramework overrides the vocabulary of an embedded framework.
type stubFramework struct {
	framework.Framework
	terms framework.Terms
}

func (s stubFramework) ID() string              { return "stub" }
func (s stubFramework) Terms() framework.Terms { return s.terms }

func testTerms() framework.Terms {
	return framework.Terms{
		DataTerms:          []string{"personal data"},
		RegulatoryKeywords: []string{"consent"},
		HighRiskPatterns:   []string{"indefinitely"},
		PriorityKeywords:   []string{"retention"},
	}
}

func testFramework() framework.Framework {
	return stubFramework{Framework: framework.GDPR(), terms: testTerms()}
}

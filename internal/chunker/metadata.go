package chunker

import (
	"regexp"
	"strings"

	"github.com/sells-group/compliance-cli/internal/model"
)

// Document types reported by ExtractMetadata.
const (
	TypePrivacyPolicy  = "privacy_policy"
	TypeTermsOfService = "terms_of_service"
	TypeDPA            = "data_processing_agreement"
	TypeSecurityPolicy = "security_policy"
	TypeContract       = "contract"
	TypeOther          = "other"
)

var docTypes = []struct {
	kind string
	re   *regexp.Regexp
}{
	{TypeDPA, regexp.MustCompile(`\b(data processing (agreement|addendum)|dpa)\b`)},
	{TypePrivacyPolicy, regexp.MustCompile(`\bprivacy (policy|notice|statement)\b`)},
	{TypeTermsOfService, regexp.MustCompile(`\bterms (of service|of use|and conditions)\b`)},
	{TypeSecurityPolicy, regexp.MustCompile(`\b(information )?security policy\b`)},
	{TypeContract, regexp.MustCompile(`\b(contract|agreement)\b`)},
}

var (
	dataMentionRe = regexp.MustCompile(`\b(personal data|personal information|information|data|email|address|name|phone|user|customer|profile|account|location|tracking)\b`)
	complianceRe  = regexp.MustCompile(`\b(consent|opt-in|opt-out|privacy|compliance|regulation|rights|retain|retention|delete|deletion|access|security|cookie|cookies)\b`)
)

// ExtractMetadata classifies the document and counts data and compliance
// vocabulary. The document type is the one whose marker appears earliest,
// so a title usually decides it. Filename and Framework are left empty.
func ExtractMetadata(text string) model.DocumentMetadata {
	lower := strings.ToLower(text)

	docType, first := TypeOther, -1
	for _, dt := range docTypes {
		loc := dt.re.FindStringIndex(lower)
		if loc != nil && (first < 0 || loc[0] < first) {
			docType, first = dt.kind, loc[0]
		}
	}

	return model.DocumentMetadata{
		DocumentType:         docType,
		Characters:           runeLen(text),
		Words:                len(strings.Fields(text)),
		DataMentions:         len(dataMentionRe.FindAllStringIndex(lower, -1)),
		ComplianceIndicators: len(complianceRe.FindAllStringIndex(lower, -1)),
	}
}

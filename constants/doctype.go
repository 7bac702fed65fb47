package constants

import (
	"strings"
)

type DocumentType string

const (
	PropertyCertificate    DocumentType = "PropertyCertificate"
	Contract               DocumentType = "Contract"
	SupplementaryAgreement DocumentType = "SupplementaryAgreement"
	Invoice                DocumentType = "Invoice"
	Unknown                DocumentType = "Unknown"
)

// DocumentTypePriority is the tie-break order used by the classifier.
// Unknown is never ranked.
var DocumentTypePriority = []DocumentType{
	PropertyCertificate,
	Contract,
	SupplementaryAgreement,
	Invoice,
}

func DocumentTypesAsStrings() []string {
	result := make([]string, 0, len(DocumentTypePriority)+1)
	for _, t := range DocumentTypePriority {
		result = append(result, string(t))
	}
	return append(result, string(Unknown))
}

// PriorityRank returns the position of t in DocumentTypePriority, or len for Unknown.
func PriorityRank(t DocumentType) int {
	for i, p := range DocumentTypePriority {
		if p == t {
			return i
		}
	}
	return len(DocumentTypePriority)
}

// ParseDocumentType accepts canonical names and common Chinese labels.
func ParseDocumentType(input string) (DocumentType, bool) {
	if input == "" {
		return Unknown, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	synonyms := map[string]DocumentType{
		"房产证":         PropertyCertificate,
		"不动产权证书":      PropertyCertificate,
		"房屋所有权证":      PropertyCertificate,
		"certificate": PropertyCertificate,
		"合同":          Contract,
		"买卖合同":        Contract,
		"补充协议":        SupplementaryAgreement,
		"发票":          Invoice,
	}

	if t, ok := synonyms[normalized]; ok {
		return t, true
	}

	for _, t := range append(DocumentTypePriority, Unknown) {
		if normalized == strings.ToLower(string(t)) {
			return t, true
		}
	}

	return Unknown, false
}

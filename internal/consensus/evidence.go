// evidence.go: evidence types ordered by probative weight
package consensus

// EvidenceType classifies the support behind a proposal, ordered by probative
// weight. Sworn or official sources outweigh inference.
type EvidenceType string

const (
	EvidenceOfficialRelease EvidenceType = "official_release" // unredacted copy in a later official release
	EvidenceCourtRecord     EvidenceType = "court_record"     // sworn testimony, depositions, filings
	EvidenceNewsReport      EvidenceType = "news_report"      // published reporting naming the content
	EvidenceDocumentContext EvidenceType = "document_context" // surrounding text in the same document
	EvidencePublicRecord    EvidenceType = "public_record"    // flight logs, registries, directories
	EvidenceInference       EvidenceType = "inference"        // pattern-based deduction
	EvidenceOther           EvidenceType = "other"
)

// evidenceWeights holds the base confidence contribution of each evidence
// type. An official release alone clears the default auto-confirm threshold;
// everything below court_record needs crowd agreement on top.
var evidenceWeights = map[EvidenceType]float64{
	EvidenceOfficialRelease: 1.0,
	EvidenceCourtRecord:     0.9,
	EvidenceNewsReport:      0.65,
	EvidenceDocumentContext: 0.5,
	EvidencePublicRecord:    0.45,
	EvidenceInference:       0.3,
	EvidenceOther:           0.2,
}

// Weight returns the evidence type's base confidence contribution.
func (e EvidenceType) Weight() float64 {
	return evidenceWeights[e]
}

// Valid reports whether the evidence type is one of the enumerated set.
func (e EvidenceType) Valid() bool {
	_, ok := evidenceWeights[e]
	return ok
}

// EvidenceTypes returns all known evidence types, strongest first.
func EvidenceTypes() []EvidenceType {
	return []EvidenceType{
		EvidenceOfficialRelease,
		EvidenceCourtRecord,
		EvidenceNewsReport,
		EvidenceDocumentContext,
		EvidencePublicRecord,
		EvidenceInference,
		EvidenceOther,
	}
}

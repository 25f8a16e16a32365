// confidence.go: the composite confidence scorer
package consensus

import (
	"math"

	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/datastore"
)

const (
	corroborationTermWeight = 0.15
	netUpvoteTermWeight     = 0.10
	netUpvoteSaturation     = 5.0
	lengthMatchTerm         = 0.15
)

// CompositeConfidence blends evidence-type weight, vote tallies and the
// physical length match into one bounded score.
//
// Each term saturates independently so no single signal except evidence
// authority can force auto-confirmation on its own: corroborations cap at
// the quorum, net upvotes cap at five, and the length match contributes a
// fixed bonus or penalty. A nil lengthMatch (no known length estimate) is
// neutral.
func CompositeConfidence(evidenceType EvidenceType, tally datastore.VoteTally, lengthMatch *bool, quorum int) float64 {
	if quorum < 1 {
		quorum = 1
	}

	score := evidenceType.Weight()
	score += corroborationTermWeight * math.Min(1, float64(tally.Corroborations)/float64(quorum))
	score += netUpvoteTermWeight * math.Min(1, math.Max(0, float64(tally.Upvotes-tally.Downvotes))/netUpvoteSaturation)

	switch {
	case lengthMatch == nil:
		// no length estimate, physical plausibility unknown
	case *lengthMatch:
		score += lengthMatchTerm
	default:
		score -= lengthMatchTerm
	}

	return clamp(score, 0, 1)
}

// LengthMatch applies the slack-tolerant length heuristic. Returns nil when
// the redaction has no character-length estimate. The slack tolerates OCR
// width-estimation noise.
func LengthMatch(proposedText string, charLengthEstimate *int, slack int) *bool {
	if charLengthEstimate == nil {
		return nil
	}
	diff := len([]rune(proposedText)) - *charLengthEstimate
	if diff < 0 {
		diff = -diff
	}
	match := diff <= slack
	return &match
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

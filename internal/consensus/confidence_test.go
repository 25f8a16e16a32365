package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/datastore"
)

func boolPtr(b bool) *bool { return &b }

func intPtr(i int) *int { return &i }

func TestCompositeConfidenceBaseline(t *testing.T) {
	t.Parallel()

	// No votes, no length estimate: score equals the evidence weight.
	score := CompositeConfidence(EvidenceNewsReport, datastore.VoteTally{}, nil, 3)
	assert.InDelta(t, 0.65, score, 1e-9)
}

func TestCompositeConfidenceFullFormula(t *testing.T) {
	t.Parallel()

	tally := datastore.VoteTally{Upvotes: 7, Downvotes: 2, Corroborations: 2}

	// 0.65 + 0.15*(2/3) + 0.10*min(1, 5/5) + 0.15
	score := CompositeConfidence(EvidenceNewsReport, tally, boolPtr(true), 3)
	assert.InDelta(t, 0.65+0.1+0.1+0.15, score, 1e-9)
}

func TestCompositeConfidenceTermSaturation(t *testing.T) {
	t.Parallel()

	// Corroborations beyond the quorum and net upvotes beyond five add nothing.
	saturated := datastore.VoteTally{Upvotes: 100, Downvotes: 0, Corroborations: 50}
	exact := datastore.VoteTally{Upvotes: 5, Downvotes: 0, Corroborations: 3}

	assert.Equal(t,
		CompositeConfidence(EvidenceInference, exact, nil, 3),
		CompositeConfidence(EvidenceInference, saturated, nil, 3))
}

func TestCompositeConfidenceNetUpvotesNeverNegative(t *testing.T) {
	t.Parallel()

	downvoted := datastore.VoteTally{Upvotes: 0, Downvotes: 40}
	neutral := datastore.VoteTally{}

	// A downvote pile drives the upvote term to zero, not below.
	assert.Equal(t,
		CompositeConfidence(EvidenceCourtRecord, neutral, nil, 3),
		CompositeConfidence(EvidenceCourtRecord, downvoted, nil, 3))
}

func TestCompositeConfidenceClamped(t *testing.T) {
	t.Parallel()

	high := datastore.VoteTally{Upvotes: 10, Corroborations: 10}
	score := CompositeConfidence(EvidenceOfficialRelease, high, boolPtr(true), 3)
	assert.Equal(t, 1.0, score)

	low := datastore.VoteTally{Downvotes: 10}
	score = CompositeConfidence(EvidenceOther, low, boolPtr(false), 3)
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
}

func TestCompositeConfidenceOfficialReleaseSurvivesLengthMismatch(t *testing.T) {
	t.Parallel()

	// An official release with a failed length match still clears the 0.75
	// auto-confirm default: 1.0 - 0.15 = 0.85. The estimate is a heuristic
	// and must not override authoritative evidence.
	score := CompositeConfidence(EvidenceOfficialRelease, datastore.VoteTally{}, boolPtr(false), 3)
	assert.InDelta(t, 0.85, score, 1e-9)
	assert.GreaterOrEqual(t, score, 0.75)
}

func TestLengthMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		text     string
		estimate *int
		want     *bool
	}{
		{"no estimate", "John Doe", nil, nil},
		{"exact", "John Doe", intPtr(8), boolPtr(true)},
		{"within slack", "John Doe", intPtr(11), boolPtr(true)},
		{"just outside slack", "John Doe", intPtr(12), boolPtr(false)},
		{"shorter within slack", "John Doe", intPtr(5), boolPtr(true)},
		{"multibyte runes counted once", "Łukasz", intPtr(6), boolPtr(true)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := LengthMatch(tt.text, tt.estimate, 3)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			assert.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

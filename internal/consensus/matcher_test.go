package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTokens(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"plain", "flight to Palm Beach", []string{"flight", "to", "palm", "beach"}},
		{"punctuation stripped", "met with [REDACTED], on Jan. 5th", []string{"met", "with", "redacted", "on", "jan", "5th"}},
		{"curly quotes and ligatures", "the “oﬃce” files", []string{"the", "office", "files"}},
		{"empty", "   \t\n", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := normalizeTokens(tt.in)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContextSimilarity(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1.0, contextSimilarity("flight manifest for", "Flight manifest FOR"))
	assert.Equal(t, 0.0, contextSimilarity("flight manifest", "deposition transcript"))

	// {flight, manifest, for} vs {flight, manifest, from}: 2 shared, 4 union.
	assert.InDelta(t, 0.5, contextSimilarity("flight manifest for", "flight manifest from"), 1e-9)
}

func TestContextSimilarityEmptyContext(t *testing.T) {
	t.Parallel()

	// Blank OCR context gives no basis to claim compatibility.
	assert.Equal(t, 0.0, contextSimilarity("", "flight manifest"))
	assert.Equal(t, 0.0, contextSimilarity("flight manifest", ""))
	assert.Equal(t, 0.0, contextSimilarity("", ""))
}

func TestContextCompatible(t *testing.T) {
	t.Parallel()

	a := "passenger list for the flight from Palm Beach"
	b := "Passenger list for the flight from Teterboro"

	assert.True(t, contextCompatible(a, b, 0.6))
	assert.False(t, contextCompatible(a, "deposition of the witness", 0.6))
}

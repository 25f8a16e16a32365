package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/datastore"
)

func TestCanTransition(t *testing.T) {
	t.Parallel()

	allowed := []struct {
		from, to datastore.RedactionStatus
	}{
		{datastore.StatusUnsolved, datastore.StatusProposed},
		{datastore.StatusUnsolved, datastore.StatusCorroborated},
		{datastore.StatusProposed, datastore.StatusCorroborated},
		{datastore.StatusProposed, datastore.StatusConfirmed},
		{datastore.StatusCorroborated, datastore.StatusConfirmed},
		{datastore.StatusUnsolved, datastore.StatusDisputed},
		{datastore.StatusProposed, datastore.StatusDisputed},
		{datastore.StatusCorroborated, datastore.StatusDisputed},
	}
	for _, tr := range allowed {
		assert.True(t, CanTransition(tr.from, tr.to), "%s -> %s should be allowed", tr.from, tr.to)
	}

	denied := []struct {
		from, to datastore.RedactionStatus
	}{
		{datastore.StatusUnsolved, datastore.StatusConfirmed},
		{datastore.StatusConfirmed, datastore.StatusProposed},
		{datastore.StatusConfirmed, datastore.StatusDisputed},
		{datastore.StatusDisputed, datastore.StatusConfirmed},
		{datastore.StatusDisputed, datastore.StatusProposed},
		{datastore.StatusProposed, datastore.StatusUnsolved},
	}
	for _, tr := range denied {
		assert.False(t, CanTransition(tr.from, tr.to), "%s -> %s should be denied", tr.from, tr.to)
	}
}

func TestTerminalStatesHaveNoOutgoingEdges(t *testing.T) {
	t.Parallel()

	for to, froms := range transitionTable {
		for _, from := range froms {
			assert.False(t, from.IsTerminal(),
				"terminal status %s must not allow transition to %s", from, to)
		}
	}
}

func TestEvidenceWeightsOrdered(t *testing.T) {
	t.Parallel()

	types := EvidenceTypes()
	for i := 1; i < len(types); i++ {
		assert.GreaterOrEqual(t, types[i-1].Weight(), types[i].Weight(),
			"%s should not outweigh %s", types[i], types[i-1])
	}

	assert.False(t, EvidenceType("hearsay").Valid())
	assert.Equal(t, 0.0, EvidenceType("hearsay").Weight())
}

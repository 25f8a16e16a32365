// status.go: the guarded transition table of the consensus state machine
package consensus

import (
	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/datastore"
)

// transition identifies one edge of the state machine.
type transition struct {
	To datastore.RedactionStatus
}

// transitionTable maps each target status to the statuses it may be entered
// from. Keeping the table as data rather than branching logic makes new
// states additive. The allowed-from sets are enforced atomically by the
// datastore's compare-and-transition primitive.
var transitionTable = map[datastore.RedactionStatus][]datastore.RedactionStatus{
	datastore.StatusProposed: {
		datastore.StatusUnsolved,
	},
	datastore.StatusCorroborated: {
		datastore.StatusUnsolved,
		datastore.StatusProposed,
	},
	datastore.StatusConfirmed: {
		datastore.StatusProposed,
		datastore.StatusCorroborated,
	},
	datastore.StatusDisputed: {
		datastore.StatusUnsolved,
		datastore.StatusProposed,
		datastore.StatusCorroborated,
	},
}

// AllowedFrom returns the statuses from which the given target status may be
// entered. Reverting a confirmed redaction is not in the table: it restores
// snapshotted prior state through the cascade revert path instead.
func AllowedFrom(to datastore.RedactionStatus) []datastore.RedactionStatus {
	return transitionTable[to]
}

// CanTransition reports whether the state machine permits from -> to.
func CanTransition(from, to datastore.RedactionStatus) bool {
	for _, allowed := range transitionTable[to] {
		if allowed == from {
			return true
		}
	}
	return false
}

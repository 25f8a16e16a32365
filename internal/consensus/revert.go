// revert.go: atomic undo of a confirmation and everything it cascaded to
package consensus

import (
	"strings"

	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/datastore"
	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/errors"
)

const (
	minRevertReason = 5
	maxRevertReason = 2000
)

// RevertResult reports the outcome of a cascade revert.
type RevertResult struct {
	Reverted             bool   `json:"reverted"`
	Reason               string `json:"reason,omitempty"`
	AffectedCount        int    `json:"affectedCount"`
	AffectedRedactionIDs []uint `json:"affectedRedactionIds,omitempty"`
}

// Revert atomically undoes a confirmation and its entire cascade tree. Every
// node, root included, is restored to the status snapshotted at propagation
// time, its resolved text is cleared, the nodes are tombstoned, and one
// audit entry records the admin, the reason and every affected redaction.
//
// Revert is idempotent: a second revert of the same root is a no-op that
// reports Reverted=false with reason "already reverted", because concurrent
// double-submission from an admin UI is expected.
func (e *Engine) Revert(rootRedactionID uint, actor Actor, reason string) (*RevertResult, error) {
	if !actor.Admin {
		return nil, forbiddenError("cascade revert requires an admin identity",
			"actor", actor.ID)
	}

	reasonLen := len([]rune(strings.TrimSpace(reason)))
	if reasonLen < minRevertReason || reasonLen > maxRevertReason {
		return nil, validationError("revert reason must be 5-2000 characters", "reason", reasonLen)
	}

	var result *RevertResult
	err := e.ds.Transaction(func(tx datastore.Interface) error {
		exists, active, err := tx.CascadeTreeExists(rootRedactionID)
		if err != nil {
			return err
		}
		if !exists {
			return errors.Newf("no cascade tree rooted at redaction %d", rootRedactionID).
				Component("consensus").
				Category(errors.CategoryNotFound).
				Context("root_redaction_id", rootRedactionID).
				Build()
		}
		if !active {
			result = &RevertResult{Reverted: false, Reason: "already reverted"}
			return nil
		}

		nodes, err := tx.GetCascadeTree(rootRedactionID)
		if err != nil {
			return err
		}

		affected := make([]uint, 0, len(nodes))
		for i := range nodes {
			node := &nodes[i]

			err := tx.CompareAndTransitionStatus(node.RedactionID, node.PriorStatus,
				[]datastore.RedactionStatus{datastore.StatusConfirmed})
			switch {
			case err == nil:
				if e.metrics != nil {
					e.metrics.RecordStatusTransition(string(datastore.StatusConfirmed), string(node.PriorStatus))
				}
			case errors.IsCategory(err, errors.CategoryConflict):
				// The node is no longer confirmed; status closure is
				// enforced upstream, so restore proceeds regardless.
			default:
				return err
			}

			if err := tx.SetResolvedText(node.RedactionID, ""); err != nil {
				return err
			}
			affected = append(affected, node.RedactionID)
		}

		if err := tx.DeactivateCascadeTree(rootRedactionID); err != nil {
			return err
		}

		if err := tx.SaveAuditLog(&datastore.AuditLog{
			Action:       "revert",
			Actor:        actor.ID,
			Reason:       reason,
			RedactionIDs: affected,
		}); err != nil {
			return err
		}

		result = &RevertResult{
			Reverted:             true,
			AffectedCount:        len(affected),
			AffectedRedactionIDs: affected,
		}
		return nil
	})
	if err != nil {
		if e.metrics != nil {
			e.metrics.RecordRevert("error", 0)
		}
		return nil, err
	}

	if e.metrics != nil {
		if result.Reverted {
			e.metrics.RecordRevert("reverted", result.AffectedCount)
		} else {
			e.metrics.RecordRevert("already_reverted", 0)
		}
	}
	e.logger.Info("cascade revert",
		"root_redaction_id", rootRedactionID,
		"admin", actor.ID,
		"reverted", result.Reverted,
		"affected_count", result.AffectedCount)

	return result, nil
}

// admin.go: explicit administrative confirm and dispute operations
package consensus

import (
	"strings"

	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/datastore"
	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/errors"
)

// Confirm performs an explicit admin confirmation of a proposal, bypassing
// the confidence threshold. The guarded transition and cascade propagation
// run in one transaction, exactly as for threshold-driven confirmation.
func (e *Engine) Confirm(redactionID uint, proposalPublicID string, actor Actor) (*CascadeResult, error) {
	if !actor.Admin {
		return nil, forbiddenError("explicit confirmation requires an admin identity",
			"actor", actor.ID)
	}

	proposal, err := e.ds.GetProposalByPublicID(proposalPublicID)
	if err != nil {
		return nil, err
	}
	if proposal.RedactionID != redactionID {
		return nil, errors.Newf("proposal does not belong to redaction %d", redactionID).
			Component("consensus").
			Category(errors.CategoryNotFound).
			Context("proposal_id", proposalPublicID).
			Context("redaction_id", redactionID).
			Build()
	}

	var cascade *CascadeResult
	err = e.ds.Transaction(func(tx datastore.Interface) error {
		confirmed, cascadeResult, err := e.confirmAndPropagate(tx, redactionID, &proposal, "admin")
		if err != nil {
			return err
		}
		if !confirmed {
			redaction, err := tx.GetRedaction(redactionID)
			if err != nil {
				return err
			}
			return closedError(redactionID, redaction.Status)
		}
		cascade = cascadeResult

		return tx.SaveAuditLog(&datastore.AuditLog{
			Action:       "confirm",
			Actor:        actor.ID,
			Reason:       "explicit admin confirmation",
			RedactionIDs: []uint{redactionID},
		})
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("admin confirmation",
		"redaction_id", redactionID,
		"proposal_id", proposalPublicID,
		"admin", actor.ID,
		"cascade_count", cascade.CascadeCount)

	return cascade, nil
}

// Dispute marks a redaction's evidence as deemed false. Any non-terminal
// status may be disputed; the terminal status closes further voting.
func (e *Engine) Dispute(redactionID uint, actor Actor, reason string) error {
	if !actor.Admin {
		return forbiddenError("disputing a redaction requires an admin identity",
			"actor", actor.ID)
	}
	if len([]rune(strings.TrimSpace(reason))) < minRevertReason {
		return validationError("dispute reason must be at least 5 characters", "reason", reason)
	}

	return e.ds.Transaction(func(tx datastore.Interface) error {
		current, err := tx.GetRedaction(redactionID)
		if err != nil {
			return err
		}

		if err := tx.CompareAndTransitionStatus(redactionID, datastore.StatusDisputed, AllowedFrom(datastore.StatusDisputed)); err != nil {
			return err
		}
		if e.metrics != nil {
			e.metrics.RecordStatusTransition(string(current.Status), string(datastore.StatusDisputed))
		}

		return tx.SaveAuditLog(&datastore.AuditLog{
			Action:       "dispute",
			Actor:        actor.ID,
			Reason:       reason,
			RedactionIDs: []uint{redactionID},
		})
	})
}

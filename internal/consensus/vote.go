// vote.go: vote aggregation and the threshold-driven transitions
package consensus

import (
	"time"

	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/datastore"
	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/errors"
)

// VoteResult is the outcome of a cast vote, including any state machine
// progress it triggered.
type VoteResult struct {
	VoteType      datastore.VoteType  `json:"voteType"`
	Tally         datastore.VoteTally `json:"tallies"`
	Confidence    float64             `json:"compositeConfidence"`
	AutoConfirmed bool                `json:"autoConfirmed"`
	CascadeCount  int                 `json:"cascadeCount"`
}

// CastVote records one user's reaction to a proposal and recomputes the
// proposal's tally and confidence within the same unit of work.
//
// A repeat vote from the same voter replaces the prior one. Voting closes
// once the redaction reaches a terminal status, and a user may never vote on
// their own proposal. Crossing the corroboration quorum advances the
// redaction to corroborated; crossing the auto-confirm threshold confirms it
// and propagates the resolution, all inside the same transaction so a crash
// can never leave a confirmed redaction without its cascade records.
func (e *Engine) CastVote(redactionID uint, proposalPublicID string, voter string, voteType datastore.VoteType) (*VoteResult, error) {
	start := time.Now()

	if !voteType.Valid() {
		return nil, validationError("unknown vote type", "voteType", voteType)
	}

	proposal, err := e.ds.GetProposalByPublicID(proposalPublicID)
	if err != nil {
		e.recordVoteError(err)
		return nil, err
	}
	if proposal.RedactionID != redactionID {
		e.recordVoteErrorType("not_found")
		return nil, errors.Newf("proposal does not belong to redaction %d", redactionID).
			Component("consensus").
			Category(errors.CategoryNotFound).
			Context("proposal_id", proposalPublicID).
			Context("redaction_id", redactionID).
			Build()
	}

	redaction, err := e.ds.GetRedaction(redactionID)
	if err != nil {
		e.recordVoteError(err)
		return nil, err
	}
	if redaction.Status.IsTerminal() {
		e.recordVoteErrorType("closed")
		return nil, closedError(redaction.ID, redaction.Status)
	}

	if proposal.Author == voter {
		e.recordVoteErrorType("self_vote")
		return nil, forbiddenError("voting on your own proposal is not allowed",
			"proposal_id", proposalPublicID,
			"voter", voter)
	}

	result := &VoteResult{VoteType: voteType}
	var cascade *CascadeResult

	err = e.ds.Transaction(func(tx datastore.Interface) error {
		tally, err := tx.UpsertVoteAndRecount(proposal.ID, voter, voteType)
		if err != nil {
			return err
		}
		result.Tally = tally

		confidence := CompositeConfidence(EvidenceType(proposal.EvidenceType), tally, proposal.LengthMatch, e.settings.CorroborationQuorum)
		if err := tx.UpdateProposalConfidence(proposal.ID, confidence); err != nil {
			return err
		}
		result.Confidence = confidence

		if tally.Corroborations >= e.settings.CorroborationQuorum {
			err := tx.CompareAndTransitionStatus(redaction.ID, datastore.StatusCorroborated, AllowedFrom(datastore.StatusCorroborated))
			switch {
			case err == nil:
				if e.metrics != nil {
					e.metrics.RecordStatusTransition(string(redaction.Status), string(datastore.StatusCorroborated))
				}
			case errors.IsCategory(err, errors.CategoryConflict):
				// already corroborated or further along
			default:
				return err
			}
		}

		if confidence >= e.settings.AutoConfirmThreshold {
			confirmed, cascadeResult, err := e.confirmAndPropagate(tx, redaction.ID, &proposal, "auto")
			if err != nil {
				return err
			}
			result.AutoConfirmed = confirmed
			cascade = cascadeResult
		}

		return nil
	})
	if err != nil {
		e.recordVoteError(err)
		return nil, err
	}

	if cascade != nil {
		result.CascadeCount = cascade.CascadeCount
	}

	if e.metrics != nil {
		e.metrics.RecordVoteCast(string(voteType), time.Since(start).Seconds())
		e.metrics.RecordConfidence(result.Confidence)
	}
	e.logger.Info("vote cast",
		"redaction_id", redactionID,
		"proposal_id", proposalPublicID,
		"vote_type", voteType,
		"confidence", result.Confidence,
		"auto_confirmed", result.AutoConfirmed,
		"cascade_count", result.CascadeCount)

	return result, nil
}

// confirmAndPropagate attempts the guarded transition into confirmed and, on
// success, runs cascade propagation inside the same transaction. A failed
// guard means a concurrent voter or admin confirmed first; that is reported
// as not-confirmed rather than an error.
func (e *Engine) confirmAndPropagate(tx datastore.Interface, redactionID uint, proposal *datastore.Proposal, trigger string) (bool, *CascadeResult, error) {
	// Snapshot the pre-confirmation status inside the transaction; the
	// cascade records it so a later revert can restore it exactly.
	current, err := tx.GetRedaction(redactionID)
	if err != nil {
		return false, nil, err
	}

	err = tx.CompareAndTransitionStatus(redactionID, datastore.StatusConfirmed, AllowedFrom(datastore.StatusConfirmed))
	if err != nil {
		if errors.IsCategory(err, errors.CategoryConflict) {
			if e.metrics != nil {
				e.metrics.RecordTransitionConflict(string(datastore.StatusConfirmed))
			}
			return false, nil, nil
		}
		return false, nil, err
	}
	if e.metrics != nil {
		e.metrics.RecordStatusTransition(string(current.Status), string(datastore.StatusConfirmed))
	}

	if err := tx.SetResolvedText(redactionID, proposal.ProposedText); err != nil {
		return false, nil, err
	}

	cascadeResult, err := e.propagate(tx, redactionID, current.Status, proposal.ProposedText, trigger)
	if err != nil {
		return false, nil, err
	}

	return true, cascadeResult, nil
}

func (e *Engine) recordVoteError(err error) {
	switch {
	case errors.IsCategory(err, errors.CategoryNotFound):
		e.recordVoteErrorType("not_found")
	case errors.IsCategory(err, errors.CategoryConflict):
		e.recordVoteErrorType("closed")
	case errors.IsCategory(err, errors.CategoryForbidden):
		e.recordVoteErrorType("self_vote")
	default:
		e.recordVoteErrorType("database")
	}
}

func (e *Engine) recordVoteErrorType(errorType string) {
	if e.metrics != nil {
		e.metrics.RecordVoteError(errorType)
	}
}

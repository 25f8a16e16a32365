// proposal.go: proposal intake and the first state machine transition
package consensus

import (
	"strings"

	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/datastore"
	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/errors"
	"github.com/google/uuid"
)

const (
	maxProposedTextLen     = 1000
	minEvidenceDescription = 10
	maxEvidenceDescription = 5000
	maxEvidenceSources     = 10
	maxSupportingChunks    = 20
)

// ProposalRequest carries a user's candidate resolution for a redaction.
type ProposalRequest struct {
	RedactionID         uint
	Author              string
	Text                string
	EvidenceType        EvidenceType
	EvidenceDescription string
	EvidenceSources     []string
	SupportingChunkIDs  []string
	EntityID            *uint
}

// SubmitProposal validates and records a guess for a redaction's contents.
//
// The proposal is written with zero vote counters and a baseline confidence
// computed from the formula with an empty tally. If the redaction is still
// unsolved it advances to proposed through the guarded primitive; losing that
// race to a concurrent first proposal is legal and swallowed, since competing
// theories may coexist on a proposed or corroborated redaction.
//
// Submission never triggers cascade logic, regardless of the baseline score:
// confirmation requires either votes or explicit admin action.
func (e *Engine) SubmitProposal(req *ProposalRequest) (*datastore.Proposal, error) {
	if err := e.validateProposal(req); err != nil {
		if e.metrics != nil {
			e.metrics.RecordProposalError("validation")
		}
		return nil, err
	}

	redaction, err := e.ds.GetRedaction(req.RedactionID)
	if err != nil {
		if e.metrics != nil {
			e.metrics.RecordProposalError("not_found")
		}
		return nil, err
	}
	if redaction.Status.IsTerminal() {
		if e.metrics != nil {
			e.metrics.RecordProposalError("closed")
		}
		return nil, closedError(redaction.ID, redaction.Status)
	}

	lengthMatch := LengthMatch(req.Text, redaction.CharLengthEstimate, e.settings.LengthSlack)
	baseline := CompositeConfidence(req.EvidenceType, datastore.VoteTally{}, lengthMatch, e.settings.CorroborationQuorum)

	proposal := &datastore.Proposal{
		PublicID:            uuid.NewString(),
		RedactionID:         redaction.ID,
		Author:              req.Author,
		ProposedText:        req.Text,
		EntityID:            req.EntityID,
		EvidenceType:        string(req.EvidenceType),
		EvidenceDescription: req.EvidenceDescription,
		EvidenceSources:     req.EvidenceSources,
		SupportingChunkIDs:  req.SupportingChunkIDs,
		LengthMatch:         lengthMatch,
		CompositeConfidence: baseline,
	}

	err = e.ds.Transaction(func(tx datastore.Interface) error {
		if err := tx.SaveProposal(proposal); err != nil {
			return err
		}

		if redaction.Status == datastore.StatusUnsolved {
			err := tx.CompareAndTransitionStatus(redaction.ID, datastore.StatusProposed, AllowedFrom(datastore.StatusProposed))
			switch {
			case err == nil:
				if e.metrics != nil {
					e.metrics.RecordStatusTransition(string(datastore.StatusUnsolved), string(datastore.StatusProposed))
				}
			case errors.IsCategory(err, errors.CategoryConflict):
				// a concurrent proposal won the first transition
				if e.metrics != nil {
					e.metrics.RecordTransitionConflict(string(datastore.StatusProposed))
				}
			default:
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.RecordProposalSubmitted(string(req.EvidenceType))
		e.metrics.RecordConfidence(baseline)
	}
	e.logger.Info("proposal submitted",
		"redaction_id", redaction.ID,
		"proposal_id", proposal.PublicID,
		"author", req.Author,
		"evidence_type", req.EvidenceType,
		"baseline_confidence", baseline)

	return proposal, nil
}

func (e *Engine) validateProposal(req *ProposalRequest) error {
	if req.Author == "" {
		return validationError("author must not be empty", "author", req.Author)
	}

	textLen := len([]rune(req.Text))
	if textLen < 1 || textLen > maxProposedTextLen {
		return validationError("proposed text must be 1-1000 characters", "text", textLen)
	}
	if strings.TrimSpace(req.Text) == "" {
		return validationError("proposed text must not be blank", "text", req.Text)
	}

	if !req.EvidenceType.Valid() {
		return validationError("unknown evidence type", "evidenceType", req.EvidenceType)
	}

	descLen := len([]rune(req.EvidenceDescription))
	if descLen < minEvidenceDescription || descLen > maxEvidenceDescription {
		return validationError("evidence description must be 10-5000 characters", "evidenceDescription", descLen)
	}

	if len(req.EvidenceSources) > maxEvidenceSources {
		return validationError("at most 10 evidence sources allowed", "evidenceSources", len(req.EvidenceSources))
	}
	if len(req.SupportingChunkIDs) > maxSupportingChunks {
		return validationError("at most 20 supporting chunks allowed", "supportingChunkIds", len(req.SupportingChunkIDs))
	}

	return nil
}

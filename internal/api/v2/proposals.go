// internal/api/v2/proposals.go
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/consensus"
)

// SubmitProposalRequest is the request body for proposal submission.
// The author is never taken from the body; it comes from the authenticated
// identity so a researcher cannot submit under another's name.
type SubmitProposalRequest struct {
	ProposedText        string   `json:"proposedText"`
	EvidenceType        string   `json:"evidenceType"`
	EvidenceDescription string   `json:"evidenceDescription"`
	EvidenceSources     []string `json:"evidenceSources"`
	SupportingChunkIDs  []string `json:"supportingChunkIds"`
	EntityID            *uint    `json:"entityId"`
}

// initProposalRoutes registers proposal submission endpoints
func (c *Controller) initProposalRoutes() {
	c.Group.POST("/redactions/:id/proposals", c.SubmitProposal)
}

// SubmitProposal handles POST /api/v2/redactions/:id/proposals
func (c *Controller) SubmitProposal(ctx echo.Context) error {
	redactionID, err := c.redactionIDParam(ctx)
	if err != nil {
		return err
	}

	actor, err := c.requireActor(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Authentication required", http.StatusUnauthorized)
	}

	var req SubmitProposalRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	proposal, err := c.Engine.SubmitProposal(&consensus.ProposalRequest{
		RedactionID:         redactionID,
		Author:              actor.ID,
		Text:                req.ProposedText,
		EvidenceType:        consensus.EvidenceType(req.EvidenceType),
		EvidenceDescription: req.EvidenceDescription,
		EvidenceSources:     req.EvidenceSources,
		SupportingChunkIDs:  req.SupportingChunkIDs,
		EntityID:            req.EntityID,
	})
	if err != nil {
		return c.HandleEngineError(ctx, err, "Failed to submit proposal")
	}

	c.invalidateProposalCache(redactionID)

	if c.apiLogger != nil {
		c.apiLogger.Info("Proposal submitted",
			"redaction_id", redactionID,
			"proposal_id", proposal.PublicID,
			"author", actor.ID,
			"evidence_type", proposal.EvidenceType,
			"ip", ctx.RealIP(),
		)
	}

	return ctx.JSON(http.StatusCreated, proposalResponse(proposal))
}

// internal/api/v2/votes.go
package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/datastore"
)

// CastVoteRequest is the request body for voting on a proposal.
type CastVoteRequest struct {
	VoteType string `json:"voteType"`
}

// initVoteRoutes registers voting endpoints
func (c *Controller) initVoteRoutes() {
	c.Group.POST("/redactions/:id/proposals/:proposalId/votes", c.CastVote)
}

// CastVote handles POST /api/v2/redactions/:id/proposals/:proposalId/votes.
// A repeat vote from the same user replaces their previous one. The response
// reports the recomputed tallies and whether the vote pushed the redaction
// over the auto-confirm threshold, including the resulting cascade size.
func (c *Controller) CastVote(ctx echo.Context) error {
	redactionID, err := c.redactionIDParam(ctx)
	if err != nil {
		return err
	}

	proposalID := strings.TrimSpace(ctx.Param("proposalId"))
	if proposalID == "" {
		return c.HandleError(ctx, nil, "Missing proposal ID", http.StatusBadRequest)
	}

	actor, err := c.requireActor(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Authentication required", http.StatusUnauthorized)
	}

	var req CastVoteRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	result, err := c.Engine.CastVote(redactionID, proposalID, actor.ID, datastore.VoteType(req.VoteType))
	if err != nil {
		return c.HandleEngineError(ctx, err, "Failed to cast vote")
	}

	c.invalidateProposalCache(redactionID)

	if c.apiLogger != nil {
		c.apiLogger.Info("Vote cast",
			"redaction_id", redactionID,
			"proposal_id", proposalID,
			"voter", actor.ID,
			"vote_type", result.VoteType,
			"confidence", result.Confidence,
			"auto_confirmed", result.AutoConfirmed,
			"cascade_count", result.CascadeCount,
			"ip", ctx.RealIP(),
		)
	}

	return ctx.JSON(http.StatusOK, result)
}

// internal/api/v2/admin.go
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// Admin moderation endpoints. Every handler re-checks the admin flag through
// the engine; the routes here only shape requests and responses.

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// ConfirmRequest is the request body for an admin confirmation.
type ConfirmRequest struct {
	ProposalID string `json:"proposalId"`
}

// DisputeRequest is the request body for marking a redaction disputed.
type DisputeRequest struct {
	Reason string `json:"reason"`
}

// ConfirmResponse reports the outcome of an admin confirmation.
type ConfirmResponse struct {
	Confirmed    bool `json:"confirmed"`
	CascadeCount int  `json:"cascadeCount"`
}

// AuditLogResponse is the API representation of one audit entry.
type AuditLogResponse struct {
	ID           uint      `json:"id"`
	Action       string    `json:"action"`
	Actor        string    `json:"actor"`
	Reason       string    `json:"reason,omitempty"`
	RedactionIDs []uint    `json:"redactionIds"`
	CreatedAt    time.Time `json:"createdAt"`
}

// initAdminRoutes registers admin moderation endpoints
func (c *Controller) initAdminRoutes() {
	c.Group.POST("/redactions/:id/confirm", c.ConfirmRedaction)
	c.Group.POST("/redactions/:id/dispute", c.DisputeRedaction)
	c.Group.GET("/audit", c.GetAuditLog)
}

// ConfirmRedaction handles POST /api/v2/redactions/:id/confirm.
// Confirms the named proposal regardless of its confidence and runs the
// same cascade propagation as an automatic confirmation.
func (c *Controller) ConfirmRedaction(ctx echo.Context) error {
	id, err := c.redactionIDParam(ctx)
	if err != nil {
		return err
	}

	actor, err := c.requireActor(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Authentication required", http.StatusUnauthorized)
	}

	var req ConfirmRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	if req.ProposalID == "" {
		return c.HandleError(ctx, nil, "Missing proposal ID", http.StatusBadRequest)
	}

	cascade, err := c.Engine.Confirm(id, req.ProposalID, actor)
	if err != nil {
		return c.HandleEngineError(ctx, err, "Failed to confirm redaction")
	}

	c.invalidateProposalCache(id)

	if c.apiLogger != nil {
		c.apiLogger.Info("Admin confirmation",
			"redaction_id", id,
			"proposal_id", req.ProposalID,
			"admin", actor.ID,
			"cascade_count", cascade.CascadeCount,
			"ip", ctx.RealIP(),
		)
	}

	return ctx.JSON(http.StatusOK, ConfirmResponse{
		Confirmed:    true,
		CascadeCount: cascade.CascadeCount,
	})
}

// DisputeRedaction handles POST /api/v2/redactions/:id/dispute
func (c *Controller) DisputeRedaction(ctx echo.Context) error {
	id, err := c.redactionIDParam(ctx)
	if err != nil {
		return err
	}

	actor, err := c.requireActor(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Authentication required", http.StatusUnauthorized)
	}

	var req DisputeRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	if err := c.Engine.Dispute(id, actor, req.Reason); err != nil {
		return c.HandleEngineError(ctx, err, "Failed to dispute redaction")
	}

	c.invalidateProposalCache(id)

	if c.apiLogger != nil {
		c.apiLogger.Info("Redaction disputed",
			"redaction_id", id,
			"admin", actor.ID,
			"ip", ctx.RealIP(),
		)
	}

	return ctx.JSON(http.StatusOK, map[string]any{"disputed": true})
}

// GetAuditLog handles GET /api/v2/audit, newest entries first.
func (c *Controller) GetAuditLog(ctx echo.Context) error {
	actor, err := c.requireActor(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Authentication required", http.StatusUnauthorized)
	}
	if !actor.Admin {
		return c.HandleError(ctx, nil, "Admin privileges required", http.StatusForbidden)
	}

	limit := defaultAuditLimit
	if raw := ctx.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxAuditLimit {
			return c.HandleError(ctx, err, "Invalid limit parameter", http.StatusBadRequest)
		}
		limit = parsed
	}

	offset := 0
	if raw := ctx.QueryParam("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return c.HandleError(ctx, err, "Invalid offset parameter", http.StatusBadRequest)
		}
		offset = parsed
	}

	entries, err := c.DS.GetAuditLogs(limit, offset)
	if err != nil {
		return c.HandleEngineError(ctx, err, "Failed to list audit entries")
	}

	response := make([]AuditLogResponse, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		response = append(response, AuditLogResponse{
			ID:           e.ID,
			Action:       e.Action,
			Actor:        e.Actor,
			Reason:       e.Reason,
			RedactionIDs: e.RedactionIDs,
			CreatedAt:    e.CreatedAt,
		})
	}

	return ctx.JSON(http.StatusOK, response)
}

// internal/api/v2/cascade.go
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// RevertCascadeRequest is the request body for a cascade revert.
type RevertCascadeRequest struct {
	Reason string `json:"reason"`
}

// CascadeNodeResponse is one node of a cascade tree, nested under its parent.
type CascadeNodeResponse struct {
	RedactionID  uint                   `json:"redactionId"`
	DocumentID   string                 `json:"documentId"`
	Depth        int                    `json:"depth"`
	ResolvedText string                 `json:"resolvedText"`
	PriorStatus  string                 `json:"priorStatus"`
	CreatedAt    time.Time              `json:"createdAt"`
	Children     []*CascadeNodeResponse `json:"children,omitempty"`
}

// initCascadeRoutes registers cascade inspection and revert endpoints
func (c *Controller) initCascadeRoutes() {
	c.Group.GET("/redactions/:id/cascade", c.GetCascadeTree)
	c.Group.POST("/redactions/:id/revert", c.RevertCascade)
}

// GetCascadeTree handles GET /api/v2/redactions/:id/cascade.
// Returns the active cascade tree rooted at the redaction, or 404 when no
// cascade originated there.
func (c *Controller) GetCascadeTree(ctx echo.Context) error {
	id, err := c.redactionIDParam(ctx)
	if err != nil {
		return err
	}

	nodes, err := c.DS.GetCascadeTree(id)
	if err != nil {
		return c.HandleEngineError(ctx, err, "Failed to get cascade tree")
	}
	if len(nodes) == 0 {
		return c.HandleError(ctx, nil, "No active cascade for redaction", http.StatusNotFound)
	}

	// Assemble the nested tree. Nodes arrive ordered by depth, so every
	// parent is placed before its children are visited.
	byID := make(map[uint]*CascadeNodeResponse, len(nodes))
	var root *CascadeNodeResponse
	for i := range nodes {
		n := &nodes[i]
		resp := &CascadeNodeResponse{
			RedactionID:  n.RedactionID,
			DocumentID:   n.DocumentID,
			Depth:        n.Depth,
			ResolvedText: n.ResolvedText,
			PriorStatus:  string(n.PriorStatus),
			CreatedAt:    n.CreatedAt,
		}
		byID[n.ID] = resp

		if n.ParentID == nil {
			root = resp
			continue
		}
		if parent, ok := byID[*n.ParentID]; ok {
			parent.Children = append(parent.Children, resp)
		}
	}

	if root == nil {
		return c.HandleError(ctx, nil, "Cascade tree has no root node", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, root)
}

// RevertCascade handles POST /api/v2/redactions/:id/revert.
// Admin only. Reverting twice is a no-op reported with reverted=false.
func (c *Controller) RevertCascade(ctx echo.Context) error {
	id, err := c.redactionIDParam(ctx)
	if err != nil {
		return err
	}

	actor, err := c.requireActor(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Authentication required", http.StatusUnauthorized)
	}

	var req RevertCascadeRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	result, err := c.Engine.Revert(id, actor, req.Reason)
	if err != nil {
		return c.HandleEngineError(ctx, err, "Failed to revert cascade")
	}

	c.invalidateProposalCache(result.AffectedRedactionIDs...)

	if c.apiLogger != nil {
		c.apiLogger.Info("Cascade revert requested",
			"root_redaction_id", id,
			"admin", actor.ID,
			"reverted", result.Reverted,
			"affected_count", result.AffectedCount,
			"ip", ctx.RealIP(),
		)
	}

	return ctx.JSON(http.StatusOK, result)
}

// internal/api/v2/redactions.go
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/datastore"
)

// RedactionResponse is the API representation of one redaction slot.
type RedactionResponse struct {
	ID                 uint      `json:"id"`
	DocumentID         string    `json:"documentId"`
	PageNumber         int       `json:"pageNumber"`
	SurroundingText    string    `json:"surroundingText"`
	CharLengthEstimate *int      `json:"charLengthEstimate"`
	Status             string    `json:"status"`
	ResolvedText       string    `json:"resolvedText,omitempty"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// ProposalResponse is the API representation of one proposal. The numeric
// primary key stays internal; clients address proposals by public id.
type ProposalResponse struct {
	PublicID            string    `json:"id"`
	RedactionID         uint      `json:"redactionId"`
	Author              string    `json:"author"`
	ProposedText        string    `json:"proposedText"`
	EntityID            *uint     `json:"entityId,omitempty"`
	EvidenceType        string    `json:"evidenceType"`
	EvidenceDescription string    `json:"evidenceDescription"`
	EvidenceSources     []string  `json:"evidenceSources,omitempty"`
	SupportingChunkIDs  []string  `json:"supportingChunkIds,omitempty"`
	LengthMatch         *bool     `json:"lengthMatch"`
	Upvotes             int       `json:"upvotes"`
	Downvotes           int       `json:"downvotes"`
	Corroborations      int       `json:"corroborations"`
	CompositeConfidence float64   `json:"compositeConfidence"`
	CreatedAt           time.Time `json:"createdAt"`
}

// initRedactionRoutes registers redaction read endpoints
func (c *Controller) initRedactionRoutes() {
	c.Group.GET("/redactions/:id", c.GetRedaction)
	c.Group.GET("/redactions/:id/proposals", c.GetProposals)
}

// GetRedaction handles GET /api/v2/redactions/:id
func (c *Controller) GetRedaction(ctx echo.Context) error {
	id, err := c.redactionIDParam(ctx)
	if err != nil {
		return err
	}

	redaction, err := c.Engine.Redaction(id)
	if err != nil {
		return c.HandleEngineError(ctx, err, "Failed to get redaction")
	}

	return ctx.JSON(http.StatusOK, redactionResponse(&redaction))
}

// GetProposals handles GET /api/v2/redactions/:id/proposals.
// Proposals are returned ordered by composite confidence descending, ties
// broken by submission time, so the leading theory is always first.
func (c *Controller) GetProposals(ctx echo.Context) error {
	id, err := c.redactionIDParam(ctx)
	if err != nil {
		return err
	}

	cacheKey := proposalCacheKey(id)
	if cached, found := c.proposalCache.Get(cacheKey); found {
		if response, ok := cached.([]ProposalResponse); ok {
			return ctx.JSON(http.StatusOK, response)
		}
	}

	proposals, err := c.Engine.Proposals(id)
	if err != nil {
		return c.HandleEngineError(ctx, err, "Failed to list proposals")
	}

	response := make([]ProposalResponse, 0, len(proposals))
	for i := range proposals {
		response = append(response, proposalResponse(&proposals[i]))
	}

	c.proposalCache.SetDefault(cacheKey, response)
	return ctx.JSON(http.StatusOK, response)
}

// redactionIDParam parses the :id path parameter.
func (c *Controller) redactionIDParam(ctx echo.Context) (uint, error) {
	raw := ctx.Param("id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, c.HandleError(ctx, err,
			fmt.Sprintf("Invalid redaction ID: %s", raw), http.StatusBadRequest)
	}
	return uint(id), nil
}

func proposalCacheKey(redactionID uint) string {
	return "proposals:" + strconv.FormatUint(uint64(redactionID), 10)
}

func redactionResponse(r *datastore.Redaction) RedactionResponse {
	return RedactionResponse{
		ID:                 r.ID,
		DocumentID:         r.DocumentID,
		PageNumber:         r.PageNumber,
		SurroundingText:    r.SurroundingText,
		CharLengthEstimate: r.CharLengthEstimate,
		Status:             string(r.Status),
		ResolvedText:       r.ResolvedText,
		UpdatedAt:          r.UpdatedAt,
	}
}

func proposalResponse(p *datastore.Proposal) ProposalResponse {
	return ProposalResponse{
		PublicID:            p.PublicID,
		RedactionID:         p.RedactionID,
		Author:              p.Author,
		ProposedText:        p.ProposedText,
		EntityID:            p.EntityID,
		EvidenceType:        p.EvidenceType,
		EvidenceDescription: p.EvidenceDescription,
		EvidenceSources:     p.EvidenceSources,
		SupportingChunkIDs:  p.SupportingChunkIDs,
		LengthMatch:         p.LengthMatch,
		Upvotes:             p.Upvotes,
		Downvotes:           p.Downvotes,
		Corroborations:      p.Corroborations,
		CompositeConfidence: p.CompositeConfidence,
		CreatedAt:           p.CreatedAt,
	}
}

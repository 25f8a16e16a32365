package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/api/auth"
	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/conf"
	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/consensus"
	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/datastore"
)

const testAdminToken = "test-admin-token"

// testAPI bundles everything a handler test needs.
type testAPI struct {
	echo *echo.Echo
	ds   datastore.Interface
}

// newTestAPI wires a controller against a temporary SQLite database with
// the gateway auth stack in front, mirroring the production route setup.
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	settings := &conf.Settings{}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = t.TempDir() + "/api.db"
	settings.Consensus = conf.ConsensusSettings{
		AutoConfirmThreshold: 0.75,
		CorroborationQuorum:  3,
		LengthSlack:          3,
		ContextSimilarity:    0.6,
		CascadeMaxDepth:      2,
		CascadeScanLimit:     5000,
	}
	settings.Security.RequireAuth = true
	settings.Security.AdminToken = testAdminToken

	ds := datastore.New(settings)
	require.NoError(t, ds.Open())
	t.Cleanup(func() {
		assert.NoError(t, ds.Close())
	})

	engine := consensus.New(ds, settings.Consensus, nil)

	e := echo.New()
	authMiddleware := auth.NewMiddleware(auth.NewGatewayService(testAdminToken, true))
	_, err := New(e, ds, settings, engine, nil, nil,
		WithAuthMiddleware(authMiddleware.Authenticate))
	require.NoError(t, err)

	return &testAPI{echo: e, ds: ds}
}

// request performs an HTTP request as the given user. An empty userID sends
// no identity header; admin requests add the shared bearer token.
func (ta *testAPI) request(method, path, userID string, admin bool, body any) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != nil {
		encoded, _ := json.Marshal(body)
		reader = strings.NewReader(string(encoded))
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if userID != "" {
		req.Header.Set(auth.HeaderUserID, userID)
	}
	if admin {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+testAdminToken)
	}

	rec := httptest.NewRecorder()
	ta.echo.ServeHTTP(rec, req)
	return rec
}

func (ta *testAPI) seedRedaction(t *testing.T, estimate *int) datastore.Redaction {
	t.Helper()
	r := datastore.Redaction{
		DocumentID:      "DOJ-OGR-00012345",
		PageNumber:      3,
		SurroundingText: "passenger list for the flight from Palm Beach",
	}
	r.CharLengthEstimate = estimate
	require.NoError(t, ta.ds.SaveRedaction(&r))
	return r
}

func (ta *testAPI) submitProposal(t *testing.T, redactionID uint, author string) ProposalResponse {
	t.Helper()
	rec := ta.request(http.MethodPost,
		fmt.Sprintf("/api/v2/redactions/%d/proposals", redactionID), author, false,
		SubmitProposalRequest{
			ProposedText:        "John Doe",
			EvidenceType:        "news_report",
			EvidenceDescription: "Named in the Miami Herald investigation series.",
		})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp ProposalResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	t.Parallel()
	ta := newTestAPI(t)
	r := ta.seedRedaction(t, nil)

	rec := ta.request(http.MethodGet, fmt.Sprintf("/api/v2/redactions/%d", r.ID), "", false, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetRedaction(t *testing.T) {
	t.Parallel()
	ta := newTestAPI(t)
	r := ta.seedRedaction(t, nil)

	rec := ta.request(http.MethodGet, fmt.Sprintf("/api/v2/redactions/%d", r.ID), "researcher-1", false, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp RedactionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, r.ID, resp.ID)
	assert.Equal(t, "unsolved", resp.Status)
	assert.Equal(t, "DOJ-OGR-00012345", resp.DocumentID)
}

func TestGetRedactionErrors(t *testing.T) {
	t.Parallel()
	ta := newTestAPI(t)

	rec := ta.request(http.MethodGet, "/api/v2/redactions/999999", "researcher-1", false, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ta.request(http.MethodGet, "/api/v2/redactions/not-a-number", "researcher-1", false, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.CorrelationID)
}

func TestSubmitProposalEndpoint(t *testing.T) {
	t.Parallel()
	ta := newTestAPI(t)
	r := ta.seedRedaction(t, intPtr(8))

	resp := ta.submitProposal(t, r.ID, "researcher-1")
	assert.NotEmpty(t, resp.PublicID)
	assert.Equal(t, "researcher-1", resp.Author, "author comes from the identity header")
	require.NotNil(t, resp.LengthMatch)
	assert.True(t, *resp.LengthMatch)

	// The redaction advanced to proposed.
	rec := ta.request(http.MethodGet, fmt.Sprintf("/api/v2/redactions/%d", r.ID), "researcher-1", false, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var red RedactionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &red))
	assert.Equal(t, "proposed", red.Status)
}

func TestSubmitProposalValidationError(t *testing.T) {
	t.Parallel()
	ta := newTestAPI(t)
	r := ta.seedRedaction(t, nil)

	rec := ta.request(http.MethodPost,
		fmt.Sprintf("/api/v2/redactions/%d/proposals", r.ID), "researcher-1", false,
		SubmitProposalRequest{
			ProposedText:        "",
			EvidenceType:        "news_report",
			EvidenceDescription: "Named in the Miami Herald investigation series.",
		})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetProposalsOrderedByConfidence(t *testing.T) {
	t.Parallel()
	ta := newTestAPI(t)
	r := ta.seedRedaction(t, nil)

	weak := ta.submitProposalWith(t, r.ID, "researcher-1", "Jane Roe", "inference")
	strong := ta.submitProposalWith(t, r.ID, "researcher-2", "John Doe", "court_record")

	rec := ta.request(http.MethodGet,
		fmt.Sprintf("/api/v2/redactions/%d/proposals", r.ID), "researcher-3", false, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []ProposalResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, strong.PublicID, list[0].PublicID)
	assert.Equal(t, weak.PublicID, list[1].PublicID)
}

func (ta *testAPI) submitProposalWith(t *testing.T, redactionID uint, author, text, evidence string) ProposalResponse {
	t.Helper()
	rec := ta.request(http.MethodPost,
		fmt.Sprintf("/api/v2/redactions/%d/proposals", redactionID), author, false,
		SubmitProposalRequest{
			ProposedText:        text,
			EvidenceType:        evidence,
			EvidenceDescription: "Cross-referenced against the unsealed exhibit list.",
		})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp ProposalResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestCastVoteEndpoint(t *testing.T) {
	t.Parallel()
	ta := newTestAPI(t)
	r := ta.seedRedaction(t, nil)
	p := ta.submitProposal(t, r.ID, "author")

	rec := ta.request(http.MethodPost,
		fmt.Sprintf("/api/v2/redactions/%d/proposals/%s/votes", r.ID, p.PublicID),
		"voter-1", false, CastVoteRequest{VoteType: "upvote"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "upvote", resp["voteType"])
	assert.Equal(t, false, resp["autoConfirmed"])
	tallies, ok := resp["tallies"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), tallies["upvotes"])
}

func TestCastVoteSelfVoteForbidden(t *testing.T) {
	t.Parallel()
	ta := newTestAPI(t)
	r := ta.seedRedaction(t, nil)
	p := ta.submitProposal(t, r.ID, "author")

	rec := ta.request(http.MethodPost,
		fmt.Sprintf("/api/v2/redactions/%d/proposals/%s/votes", r.ID, p.PublicID),
		"author", false, CastVoteRequest{VoteType: "upvote"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCastVoteUnknownProposal(t *testing.T) {
	t.Parallel()
	ta := newTestAPI(t)
	r := ta.seedRedaction(t, nil)

	rec := ta.request(http.MethodPost,
		fmt.Sprintf("/api/v2/redactions/%d/proposals/no-such-id/votes", r.ID),
		"voter-1", false, CastVoteRequest{VoteType: "upvote"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVoteAutoConfirmReportedInResponse(t *testing.T) {
	t.Parallel()
	ta := newTestAPI(t)
	r := ta.seedRedaction(t, nil)
	p := ta.submitProposalWith(t, r.ID, "author", "John Doe", "official_release")

	rec := ta.request(http.MethodPost,
		fmt.Sprintf("/api/v2/redactions/%d/proposals/%s/votes", r.ID, p.PublicID),
		"voter-1", false, CastVoteRequest{VoteType: "upvote"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["autoConfirmed"])
	assert.Equal(t, float64(0), resp["cascadeCount"])

	// Voting again on the now-confirmed redaction conflicts.
	rec = ta.request(http.MethodPost,
		fmt.Sprintf("/api/v2/redactions/%d/proposals/%s/votes", r.ID, p.PublicID),
		"voter-2", false, CastVoteRequest{VoteType: "upvote"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRevertEndpoint(t *testing.T) {
	t.Parallel()
	ta := newTestAPI(t)
	r := ta.seedRedaction(t, nil)
	p := ta.submitProposalWith(t, r.ID, "author", "John Doe", "official_release")

	rec := ta.request(http.MethodPost,
		fmt.Sprintf("/api/v2/redactions/%d/proposals/%s/votes", r.ID, p.PublicID),
		"voter-1", false, CastVoteRequest{VoteType: "upvote"})
	require.Equal(t, http.StatusOK, rec.Code)

	// Non-admin revert is refused.
	rec = ta.request(http.MethodPost,
		fmt.Sprintf("/api/v2/redactions/%d/revert", r.ID),
		"researcher-1", false, RevertCascadeRequest{Reason: "confirmed from a forged document"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ta.request(http.MethodPost,
		fmt.Sprintf("/api/v2/redactions/%d/revert", r.ID),
		"admin-1", true, RevertCascadeRequest{Reason: "confirmed from a forged document"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["reverted"])
	assert.Equal(t, float64(1), resp["affectedCount"])

	// Idempotent second revert.
	rec = ta.request(http.MethodPost,
		fmt.Sprintf("/api/v2/redactions/%d/revert", r.ID),
		"admin-1", true, RevertCascadeRequest{Reason: "confirmed from a forged document"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["reverted"])
	assert.Equal(t, "already reverted", resp["reason"])
}

func TestCascadeTreeEndpoint(t *testing.T) {
	t.Parallel()
	ta := newTestAPI(t)
	r := ta.seedRedaction(t, nil)
	p := ta.submitProposalWith(t, r.ID, "author", "John Doe", "official_release")

	rec := ta.request(http.MethodGet,
		fmt.Sprintf("/api/v2/redactions/%d/cascade", r.ID), "researcher-1", false, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "no cascade before confirmation")

	rec = ta.request(http.MethodPost,
		fmt.Sprintf("/api/v2/redactions/%d/proposals/%s/votes", r.ID, p.PublicID),
		"voter-1", false, CastVoteRequest{VoteType: "upvote"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ta.request(http.MethodGet,
		fmt.Sprintf("/api/v2/redactions/%d/cascade", r.ID), "researcher-1", false, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var tree CascadeNodeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tree))
	assert.Equal(t, r.ID, tree.RedactionID)
	assert.Equal(t, 0, tree.Depth)
	assert.Equal(t, "John Doe", tree.ResolvedText)
}

func TestAdminConfirmEndpoint(t *testing.T) {
	t.Parallel()
	ta := newTestAPI(t)
	r := ta.seedRedaction(t, nil)
	p := ta.submitProposalWith(t, r.ID, "author", "John Doe", "inference")

	rec := ta.request(http.MethodPost,
		fmt.Sprintf("/api/v2/redactions/%d/confirm", r.ID),
		"researcher-1", false, ConfirmRequest{ProposalID: p.PublicID})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ta.request(http.MethodPost,
		fmt.Sprintf("/api/v2/redactions/%d/confirm", r.ID),
		"admin-1", true, ConfirmRequest{ProposalID: p.PublicID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ConfirmResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Confirmed)
}

func TestAdminDisputeEndpoint(t *testing.T) {
	t.Parallel()
	ta := newTestAPI(t)
	r := ta.seedRedaction(t, nil)
	ta.submitProposal(t, r.ID, "author")

	rec := ta.request(http.MethodPost,
		fmt.Sprintf("/api/v2/redactions/%d/dispute", r.ID),
		"admin-1", true, DisputeRequest{Reason: "claimed source does not exist"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	get := ta.request(http.MethodGet, fmt.Sprintf("/api/v2/redactions/%d", r.ID), "researcher-1", false, nil)
	var red RedactionResponse
	require.NoError(t, json.Unmarshal(get.Body.Bytes(), &red))
	assert.Equal(t, "disputed", red.Status)
}

func TestAuditEndpointRequiresAdmin(t *testing.T) {
	t.Parallel()
	ta := newTestAPI(t)
	r := ta.seedRedaction(t, nil)
	ta.submitProposal(t, r.ID, "author")

	rec := ta.request(http.MethodPost,
		fmt.Sprintf("/api/v2/redactions/%d/dispute", r.ID),
		"admin-1", true, DisputeRequest{Reason: "claimed source does not exist"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ta.request(http.MethodGet, "/api/v2/audit", "researcher-1", false, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ta.request(http.MethodGet, "/api/v2/audit", "admin-1", true, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []AuditLogResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "dispute", entries[0].Action)
}

func TestHealthCheckIsPublic(t *testing.T) {
	t.Parallel()
	ta := newTestAPI(t)

	// Health sits inside the group but reports regardless of identity.
	rec := ta.request(http.MethodGet, "/api/v2/health", "researcher-1", false, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}

func intPtr(i int) *int { return &i }

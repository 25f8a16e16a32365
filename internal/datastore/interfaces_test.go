package datastore

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/conf"
	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/errors"
)

// createDatabase initializes a temporary database for testing purposes.
// It ensures the database connection is opened and handles potential errors.
func createDatabase(t *testing.T, settings *conf.Settings) Interface {
	t.Helper()
	if settings == nil {
		settings = &conf.Settings{}
	}
	tempDir := t.TempDir()
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = tempDir + "/test.db"

	dataStore := New(settings)

	require.NoError(t, dataStore.Open(), "Failed to open database")

	t.Cleanup(func() {
		assert.NoError(t, dataStore.Close(), "Failed to close datastore")
	})

	return dataStore
}

// seedRedaction inserts one redaction and returns it.
func seedRedaction(t *testing.T, ds Interface, status RedactionStatus, estimate *int) Redaction {
	t.Helper()
	r := Redaction{
		DocumentID:         "DOJ-OGR-00012345",
		PageNumber:         3,
		SurroundingText:    "passenger list for the flight from Palm Beach",
		CharLengthEstimate: estimate,
		Status:             status,
	}
	require.NoError(t, ds.SaveRedaction(&r))
	return r
}

// seedProposal inserts one proposal against the given redaction.
func seedProposal(t *testing.T, ds Interface, redactionID uint, publicID string) Proposal {
	t.Helper()
	p := Proposal{
		PublicID:            publicID,
		RedactionID:         redactionID,
		Author:              "researcher-1",
		ProposedText:        "John Doe",
		EvidenceType:        "news_report",
		EvidenceDescription: "Named in the Miami Herald investigation series.",
	}
	require.NoError(t, ds.SaveProposal(&p))
	return p
}

func TestSaveRedactionDefaultsToUnsolved(t *testing.T) {
	t.Parallel()
	ds := createDatabase(t, nil)

	r := Redaction{DocumentID: "doc-1"}
	require.NoError(t, ds.SaveRedaction(&r))

	got, err := ds.GetRedaction(r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusUnsolved, got.Status)
}

func TestGetRedactionNotFound(t *testing.T) {
	t.Parallel()
	ds := createDatabase(t, nil)

	_, err := ds.GetRedaction(9999)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNotFound))
}

func TestCompareAndTransitionStatus(t *testing.T) {
	t.Parallel()
	ds := createDatabase(t, nil)
	r := seedRedaction(t, ds, StatusUnsolved, nil)

	// Allowed transition succeeds.
	err := ds.CompareAndTransitionStatus(r.ID, StatusProposed, []RedactionStatus{StatusUnsolved})
	require.NoError(t, err)

	got, err := ds.GetRedaction(r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusProposed, got.Status)

	// Same transition again fails: the guard no longer matches.
	err = ds.CompareAndTransitionStatus(r.ID, StatusProposed, []RedactionStatus{StatusUnsolved})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConflict))

	// Unknown id reports not-found, not conflict.
	err = ds.CompareAndTransitionStatus(42000, StatusProposed, []RedactionStatus{StatusUnsolved})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNotFound))
}

func TestCompareAndTransitionStatusConcurrent(t *testing.T) {
	t.Parallel()
	ds := createDatabase(t, nil)
	r := seedRedaction(t, ds, StatusUnsolved, nil)

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- ds.CompareAndTransitionStatus(r.ID, StatusProposed,
				[]RedactionStatus{StatusUnsolved})
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, errors.IsCategory(err, errors.CategoryConflict))
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one racer should win the transition")
}

func TestUpsertVoteAndRecountLastVoteWins(t *testing.T) {
	t.Parallel()
	ds := createDatabase(t, nil)
	r := seedRedaction(t, ds, StatusProposed, nil)
	p := seedProposal(t, ds, r.ID, "prop-upsert")

	tally, err := ds.UpsertVoteAndRecount(p.ID, "voter-1", VoteUpvote)
	require.NoError(t, err)
	assert.Equal(t, VoteTally{Upvotes: 1}, tally)

	// The same voter flips to corroborate: one row, recounted not incremented.
	tally, err = ds.UpsertVoteAndRecount(p.ID, "voter-1", VoteCorroborate)
	require.NoError(t, err)
	assert.Equal(t, VoteTally{Corroborations: 1}, tally)

	tally, err = ds.UpsertVoteAndRecount(p.ID, "voter-2", VoteDownvote)
	require.NoError(t, err)
	assert.Equal(t, VoteTally{Downvotes: 1, Corroborations: 1}, tally)

	// Counters on the proposal row match the recount.
	stored, err := ds.GetProposal(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Upvotes)
	assert.Equal(t, 1, stored.Downvotes)
	assert.Equal(t, 1, stored.Corroborations)
}

func TestUpsertVoteAndRecountRepeatIsStable(t *testing.T) {
	t.Parallel()
	ds := createDatabase(t, nil)
	r := seedRedaction(t, ds, StatusProposed, nil)
	p := seedProposal(t, ds, r.ID, "prop-repeat")

	for i := 0; i < 5; i++ {
		tally, err := ds.UpsertVoteAndRecount(p.ID, "voter-1", VoteUpvote)
		require.NoError(t, err)
		assert.Equal(t, VoteTally{Upvotes: 1}, tally, "iteration %d", i)
	}

	final, err := ds.CountVotes(p.ID)
	require.NoError(t, err)
	assert.Equal(t, VoteTally{Upvotes: 1}, final)
}

func TestGetProposalsForRedactionOrdering(t *testing.T) {
	t.Parallel()
	ds := createDatabase(t, nil)
	r := seedRedaction(t, ds, StatusProposed, nil)

	for i, conf := range []float64{0.3, 0.9, 0.65} {
		p := seedProposal(t, ds, r.ID, fmt.Sprintf("prop-order-%d", i))
		require.NoError(t, ds.UpdateProposalConfidence(p.ID, conf))
	}

	proposals, err := ds.GetProposalsForRedaction(r.ID)
	require.NoError(t, err)
	require.Len(t, proposals, 3)
	assert.Equal(t, "prop-order-1", proposals[0].PublicID)
	assert.Equal(t, "prop-order-2", proposals[1].PublicID)
	assert.Equal(t, "prop-order-0", proposals[2].PublicID)
}

func TestFindCascadeCandidates(t *testing.T) {
	t.Parallel()
	ds := createDatabase(t, nil)

	within := seedRedaction(t, ds, StatusUnsolved, intPtr(8))
	tooLong := seedRedaction(t, ds, StatusUnsolved, intPtr(30))
	noEstimate := seedRedaction(t, ds, StatusUnsolved, nil)
	confirmed := seedRedaction(t, ds, StatusConfirmed, intPtr(8))
	excluded := seedRedaction(t, ds, StatusProposed, intPtr(8))

	got, err := ds.FindCascadeCandidates(5, 11, []uint{excluded.ID}, 100)
	require.NoError(t, err)

	ids := make([]uint, 0, len(got))
	for i := range got {
		ids = append(ids, got[i].ID)
	}
	assert.Contains(t, ids, within.ID)
	assert.NotContains(t, ids, tooLong.ID, "estimate outside the window")
	assert.NotContains(t, ids, noEstimate.ID, "nil estimate cannot length-match")
	assert.NotContains(t, ids, confirmed.ID, "terminal status is not a candidate")
	assert.NotContains(t, ids, excluded.ID)
}

func TestCascadeTreeLifecycle(t *testing.T) {
	t.Parallel()
	ds := createDatabase(t, nil)

	root := seedRedaction(t, ds, StatusCorroborated, nil)
	child := seedRedaction(t, ds, StatusProposed, intPtr(8))

	rootNode := CascadeNode{
		RootRedactionID: root.ID,
		RedactionID:     root.ID,
		Depth:           0,
		ResolvedText:    "John Doe",
		DocumentID:      root.DocumentID,
		PriorStatus:     StatusCorroborated,
		Active:          true,
	}
	require.NoError(t, ds.CreateCascadeNodes([]CascadeNode{rootNode}))

	nodes, err := ds.GetCascadeTree(root.ID)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	rootID := nodes[0].ID

	childNode := CascadeNode{
		RootRedactionID: root.ID,
		RedactionID:     child.ID,
		ParentID:        &rootID,
		Depth:           1,
		ResolvedText:    "John Doe",
		DocumentID:      child.DocumentID,
		PriorStatus:     StatusProposed,
		Active:          true,
	}
	require.NoError(t, ds.CreateCascadeNodes([]CascadeNode{childNode}))

	inCascade, err := ds.InActiveCascade(child.ID)
	require.NoError(t, err)
	assert.True(t, inCascade)

	exists, active, err := ds.CascadeTreeExists(root.ID)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.True(t, active)

	require.NoError(t, ds.DeactivateCascadeTree(root.ID))

	exists, active, err = ds.CascadeTreeExists(root.ID)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.False(t, active)

	inCascade, err = ds.InActiveCascade(child.ID)
	require.NoError(t, err)
	assert.False(t, inCascade, "deactivated nodes no longer claim the redaction")

	nodes, err = ds.GetCascadeTree(root.ID)
	require.NoError(t, err)
	assert.Empty(t, nodes, "tree listing only returns active nodes")
}

func TestAuditLogRoundTrip(t *testing.T) {
	t.Parallel()
	ds := createDatabase(t, nil)

	first := AuditLog{Action: "revert", Actor: "admin-1", Reason: "bad cascade", RedactionIDs: []uint{1, 2, 3}}
	second := AuditLog{Action: "dispute", Actor: "admin-2", Reason: "contested evidence", RedactionIDs: []uint{7}}
	require.NoError(t, ds.SaveAuditLog(&first))
	require.NoError(t, ds.SaveAuditLog(&second))

	entries, err := ds.GetAuditLogs(10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "dispute", entries[0].Action, "newest first")
	assert.Equal(t, []uint{1, 2, 3}, entries[1].RedactionIDs)
}

func TestTransactionRollsBackOnError(t *testing.T) {
	t.Parallel()
	ds := createDatabase(t, nil)
	r := seedRedaction(t, ds, StatusUnsolved, nil)

	sentinel := errors.NewStd("abort")
	err := ds.Transaction(func(tx Interface) error {
		if err := tx.CompareAndTransitionStatus(r.ID, StatusProposed,
			[]RedactionStatus{StatusUnsolved}); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	got, err := ds.GetRedaction(r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusUnsolved, got.Status, "transition must roll back with the transaction")
}

func intPtr(i int) *int { return &i }

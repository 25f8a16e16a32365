// vote.go: vote upsert and tally recomputation
package datastore

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpsertVoteAndRecount writes a (proposal, voter) vote row and recomputes the
// proposal's denormalized counters, all within one transaction.
//
// A repeat vote from the same voter replaces the prior vote via the unique
// index on (proposal_id, voter). The counters are recomputed by re-counting
// the vote rows rather than incremented in place; concurrent votes from
// different voters therefore cannot lose updates, since each transaction's
// recount observes the authoritative rows at commit time.
func (ds *DataStore) UpsertVoteAndRecount(proposalID uint, voter string, voteType VoteType) (VoteTally, error) {
	if !voteType.Valid() {
		return VoteTally{}, validationError("invalid vote type", "vote_type", voteType)
	}
	if voter == "" {
		return VoteTally{}, validationError("voter must not be empty", "voter", voter)
	}

	var tally VoteTally
	err := ds.DB.Transaction(func(tx *gorm.DB) error {
		vote := Vote{
			ProposalID: proposalID,
			Voter:      voter,
			VoteType:   voteType,
		}

		// Last-vote-wins upsert on the (proposal_id, voter) unique index.
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "proposal_id"}, {Name: "voter"}},
			DoUpdates: clause.AssignmentColumns([]string{"vote_type", "updated_at"}),
		}).Create(&vote).Error; err != nil {
			return dbError(err, "upsert_vote", "",
				"proposal_id", proposalID,
				"voter", voter)
		}

		recounted, err := recountVotes(tx, proposalID)
		if err != nil {
			return err
		}

		result := tx.Model(&Proposal{}).Where("id = ?", proposalID).Updates(map[string]any{
			"upvotes":        recounted.Upvotes,
			"downvotes":      recounted.Downvotes,
			"corroborations": recounted.Corroborations,
		})
		if result.Error != nil {
			return dbError(result.Error, "write_vote_tally", "",
				"proposal_id", proposalID)
		}
		if result.RowsAffected == 0 {
			return notFoundError("proposal", fmt.Sprintf("%d", proposalID))
		}

		tally = recounted
		return nil
	})

	return tally, err
}

// CountVotes recomputes the tally for a proposal from its vote rows.
func (ds *DataStore) CountVotes(proposalID uint) (VoteTally, error) {
	return recountVotes(ds.DB, proposalID)
}

// recountVotes derives the tally from the authoritative vote rows.
func recountVotes(tx *gorm.DB, proposalID uint) (VoteTally, error) {
	var rows []struct {
		VoteType VoteType
		Count    int
	}

	err := tx.Model(&Vote{}).
		Select("vote_type, COUNT(*) as count").
		Where("proposal_id = ?", proposalID).
		Group("vote_type").
		Scan(&rows).Error
	if err != nil {
		return VoteTally{}, dbError(err, "recount_votes", "",
			"proposal_id", proposalID)
	}

	var tally VoteTally
	for _, row := range rows {
		switch row.VoteType {
		case VoteUpvote:
			tally.Upvotes = row.Count
		case VoteDownvote:
			tally.Downvotes = row.Count
		case VoteCorroborate:
			tally.Corroborations = row.Count
		}
	}

	return tally, nil
}

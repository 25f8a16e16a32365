// proposal.go: proposal persistence
package datastore

import (
	"fmt"

	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/errors"
	"gorm.io/gorm"
)

// SaveProposal creates a new proposal row.
func (ds *DataStore) SaveProposal(proposal *Proposal) error {
	if err := ds.DB.Create(proposal).Error; err != nil {
		return dbError(err, "save_proposal", "",
			"redaction_id", proposal.RedactionID,
			"author", proposal.Author)
	}
	return nil
}

// GetProposal retrieves a proposal by its internal ID.
func (ds *DataStore) GetProposal(id uint) (Proposal, error) {
	var proposal Proposal
	if err := ds.DB.First(&proposal, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Proposal{}, notFoundError("proposal", fmt.Sprintf("%d", id))
		}
		return Proposal{}, dbError(err, "get_proposal", "",
			"proposal_id", id)
	}
	return proposal, nil
}

// GetProposalByPublicID retrieves a proposal by its public UUID.
func (ds *DataStore) GetProposalByPublicID(publicID string) (Proposal, error) {
	var proposal Proposal
	if err := ds.DB.Where("public_id = ?", publicID).First(&proposal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Proposal{}, notFoundError("proposal", publicID)
		}
		return Proposal{}, dbError(err, "get_proposal_by_public_id", "",
			"public_id", publicID)
	}
	return proposal, nil
}

// GetProposalsForRedaction returns all proposals for a redaction ordered by
// composite confidence descending, ties broken by age.
func (ds *DataStore) GetProposalsForRedaction(redactionID uint) ([]Proposal, error) {
	var proposals []Proposal
	err := ds.DB.
		Where("redaction_id = ?", redactionID).
		Order("composite_confidence DESC, created_at ASC").
		Find(&proposals).Error
	if err != nil {
		return nil, dbError(err, "get_proposals_for_redaction", "",
			"redaction_id", redactionID)
	}
	return proposals, nil
}

// UpdateProposalConfidence writes a freshly computed composite confidence.
func (ds *DataStore) UpdateProposalConfidence(id uint, confidence float64) error {
	result := ds.DB.Model(&Proposal{}).Where("id = ?", id).Update("composite_confidence", confidence)
	if result.Error != nil {
		return dbError(result.Error, "update_proposal_confidence", "",
			"proposal_id", id)
	}
	if result.RowsAffected == 0 {
		return notFoundError("proposal", fmt.Sprintf("%d", id))
	}
	return nil
}

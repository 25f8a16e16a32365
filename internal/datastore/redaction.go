// redaction.go: redaction persistence and the guarded status transition primitive
package datastore

import (
	"fmt"

	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/errors"
	"gorm.io/gorm"
)

// GetRedaction retrieves a redaction by its ID.
func (ds *DataStore) GetRedaction(id uint) (Redaction, error) {
	var redaction Redaction
	if err := ds.DB.First(&redaction, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Redaction{}, notFoundError("redaction", fmt.Sprintf("%d", id))
		}
		return Redaction{}, dbError(err, "get_redaction", "",
			"redaction_id", id)
	}
	return redaction, nil
}

// SaveRedaction creates or updates a redaction row. Status is initialized to
// unsolved when empty; all later status changes must go through
// CompareAndTransitionStatus.
func (ds *DataStore) SaveRedaction(redaction *Redaction) error {
	if redaction.Status == "" {
		redaction.Status = StatusUnsolved
	}
	if !redaction.Status.Valid() {
		return validationError("invalid redaction status", "status", redaction.Status)
	}
	if err := ds.DB.Save(redaction).Error; err != nil {
		return dbError(err, "save_redaction", "",
			"redaction_id", redaction.ID)
	}
	return nil
}

// CompareAndTransitionStatus is the sole mutator of a redaction's status.
// The allowed-from guard is part of the UPDATE's WHERE clause, so the check
// and the write are applied atomically: two concurrent transition attempts
// serialize on the row, and the loser observes zero affected rows.
// A failed guard returns a conflict error, never a silent no-op.
func (ds *DataStore) CompareAndTransitionStatus(id uint, newStatus RedactionStatus, allowedFrom []RedactionStatus) error {
	if !newStatus.Valid() {
		return validationError("invalid target status", "status", newStatus)
	}
	if len(allowedFrom) == 0 {
		return validationError("allowed-from set must not be empty", "allowed_from", allowedFrom)
	}

	result := ds.DB.Model(&Redaction{}).
		Where("id = ? AND status IN ?", id, allowedFrom).
		Update("status", newStatus)
	if result.Error != nil {
		return dbError(result.Error, "compare_and_transition", errors.PriorityHigh,
			"redaction_id", id,
			"new_status", newStatus)
	}

	if result.RowsAffected == 0 {
		// Distinguish a missing row from a failed guard.
		var count int64
		if err := ds.DB.Model(&Redaction{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return dbError(err, "compare_and_transition", "",
				"redaction_id", id)
		}
		if count == 0 {
			return notFoundError("redaction", fmt.Sprintf("%d", id))
		}
		return conflictError("compare_and_transition", "status_guard",
			"redaction_id", id,
			"new_status", newStatus)
	}

	return nil
}

// SetResolvedText writes the resolved text of a redaction. Callers pair this
// with a confirmed transition inside the same transaction.
func (ds *DataStore) SetResolvedText(id uint, text string) error {
	result := ds.DB.Model(&Redaction{}).Where("id = ?", id).Update("resolved_text", text)
	if result.Error != nil {
		return dbError(result.Error, "set_resolved_text", "",
			"redaction_id", id)
	}
	if result.RowsAffected == 0 {
		return notFoundError("redaction", fmt.Sprintf("%d", id))
	}
	return nil
}

// FindCascadeCandidates returns open redactions whose length estimate falls
// within [minLen, maxLen], excluding the given IDs. The context-similarity
// gate is applied by the caller; this query only narrows by the cheap
// indexed predicates. The limit bounds scan cost on large corpora.
func (ds *DataStore) FindCascadeCandidates(minLen, maxLen int, excludeIDs []uint, limit int) ([]Redaction, error) {
	var candidates []Redaction

	query := ds.DB.
		Where("status IN ?", OpenStatuses()).
		Where("char_length_estimate IS NOT NULL").
		Where("char_length_estimate BETWEEN ? AND ?", minLen, maxLen)
	if len(excludeIDs) > 0 {
		query = query.Where("id NOT IN ?", excludeIDs)
	}

	err := query.Order("id ASC").Limit(limit).Find(&candidates).Error
	if err != nil {
		return nil, dbError(err, "find_cascade_candidates", "",
			"min_len", minLen,
			"max_len", maxLen)
	}

	return candidates, nil
}

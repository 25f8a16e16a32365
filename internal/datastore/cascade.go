// cascade.go: cascade node and audit log persistence
package datastore

// CreateCascadeNodes writes a batch of cascade nodes. Callers invoke this
// inside the same transaction that flips the matched redactions, so a crash
// can never leave a confirmed redaction without its recorded node.
func (ds *DataStore) CreateCascadeNodes(nodes []CascadeNode) error {
	if len(nodes) == 0 {
		return nil
	}
	if err := ds.DB.Create(&nodes).Error; err != nil {
		return dbError(err, "create_cascade_nodes", "",
			"node_count", len(nodes),
			"root_redaction_id", nodes[0].RootRedactionID)
	}
	return nil
}

// GetCascadeTree returns the active cascade nodes rooted at the given
// redaction, ordered by depth then ID so parents precede children.
func (ds *DataStore) GetCascadeTree(rootRedactionID uint) ([]CascadeNode, error) {
	var nodes []CascadeNode
	err := ds.DB.
		Where("root_redaction_id = ? AND active = ?", rootRedactionID, true).
		Order("depth ASC, id ASC").
		Find(&nodes).Error
	if err != nil {
		return nil, dbError(err, "get_cascade_tree", "",
			"root_redaction_id", rootRedactionID)
	}
	return nodes, nil
}

// DeactivateCascadeTree tombstones every active node of a cascade tree.
// Nodes are kept for audit rather than deleted.
func (ds *DataStore) DeactivateCascadeTree(rootRedactionID uint) error {
	err := ds.DB.Model(&CascadeNode{}).
		Where("root_redaction_id = ? AND active = ?", rootRedactionID, true).
		Update("active", false).Error
	if err != nil {
		return dbError(err, "deactivate_cascade_tree", "",
			"root_redaction_id", rootRedactionID)
	}
	return nil
}

// CascadeTreeExists reports whether any cascade nodes are rooted at the
// given redaction, and whether any of them are still active. An existing but
// fully inactive tree means the cascade was already reverted.
func (ds *DataStore) CascadeTreeExists(rootRedactionID uint) (exists, active bool, err error) {
	var total, activeCount int64

	if err := ds.DB.Model(&CascadeNode{}).
		Where("root_redaction_id = ?", rootRedactionID).
		Count(&total).Error; err != nil {
		return false, false, dbError(err, "cascade_tree_exists", "",
			"root_redaction_id", rootRedactionID)
	}
	if total == 0 {
		return false, false, nil
	}

	if err := ds.DB.Model(&CascadeNode{}).
		Where("root_redaction_id = ? AND active = ?", rootRedactionID, true).
		Count(&activeCount).Error; err != nil {
		return false, false, dbError(err, "cascade_tree_exists", "",
			"root_redaction_id", rootRedactionID)
	}

	return true, activeCount > 0, nil
}

// InActiveCascade reports whether a redaction already belongs to an active
// cascade. A redaction appears in at most one active cascade at a time.
func (ds *DataStore) InActiveCascade(redactionID uint) (bool, error) {
	var count int64
	err := ds.DB.Model(&CascadeNode{}).
		Where("redaction_id = ? AND active = ?", redactionID, true).
		Count(&count).Error
	if err != nil {
		return false, dbError(err, "in_active_cascade", "",
			"redaction_id", redactionID)
	}
	return count > 0, nil
}

// SaveAuditLog appends one audit entry.
func (ds *DataStore) SaveAuditLog(entry *AuditLog) error {
	if err := ds.DB.Create(entry).Error; err != nil {
		return dbError(err, "save_audit_log", "",
			"action", entry.Action,
			"actor", entry.Actor)
	}
	return nil
}

// GetAuditLogs returns audit entries newest first.
func (ds *DataStore) GetAuditLogs(limit, offset int) ([]AuditLog, error) {
	var entries []AuditLog
	err := ds.DB.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	if err != nil {
		return nil, dbError(err, "get_audit_logs", "")
	}
	return entries, nil
}

// cascade.go: propagation of a confirmed resolution across the corpus
package consensus

import (
	"sort"
	"time"

	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/datastore"
	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/errors"
)

// CascadeResult summarizes one cascade propagation. It drives the UI cascade
// visualization downstream.
type CascadeResult struct {
	RootRedactionID     uint     `json:"rootRedactionId"`
	CascadeCount        int      `json:"cascadeCount"`
	AffectedDocumentIDs []string `json:"affectedDocumentIds"`
}

// propagate applies a newly confirmed resolution to every other matching open
// redaction. It must be called inside the transaction that performed the
// confirming transition: the whole scan-and-update batch commits or rolls
// back with it, so a redaction is never confirmed without its recorded
// cascade node.
//
// Matching requires a length estimate within the configured slack of the
// confirmed text and a context-compatible OCR window. Each first-pass match
// seeds one further scan against its own context; the depth cap keeps noisy
// corpora from chaining transitively, and deeper chains require a fresh
// human-triggered confirmation.
//
// Propagation is idempotent: confirmed redactions fall outside the open
// status set and redactions already claimed by an active cascade are
// skipped, so rescanning the same text never duplicates nodes.
func (e *Engine) propagate(tx datastore.Interface, rootRedactionID uint, rootPriorStatus datastore.RedactionStatus, resolvedText, trigger string) (*CascadeResult, error) {
	start := time.Now()

	root, err := tx.GetRedaction(rootRedactionID)
	if err != nil {
		return nil, err
	}

	rootLevel := []datastore.CascadeNode{{
		RootRedactionID: rootRedactionID,
		RedactionID:     rootRedactionID,
		ParentID:        nil,
		Depth:           0,
		ResolvedText:    resolvedText,
		DocumentID:      root.DocumentID,
		PriorStatus:     rootPriorStatus,
		Active:          true,
	}}
	if err := tx.CreateCascadeNodes(rootLevel); err != nil {
		return nil, err
	}

	textLen := len([]rune(resolvedText))
	slack := e.settings.LengthSlack

	included := map[uint]struct{}{rootRedactionID: {}}
	affectedDocs := map[string]struct{}{root.DocumentID: {}}
	cascadeCount := 0

	// Each frontier entry pairs a confirmed redaction with its persisted
	// node, so the next level's nodes can reference their parent by ID.
	type frontierEntry struct {
		redaction datastore.Redaction
		nodeID    uint
	}
	frontier := []frontierEntry{{redaction: root, nodeID: rootLevel[0].ID}}

	for depth := 1; depth <= e.settings.CascadeMaxDepth && len(frontier) > 0; depth++ {
		var levelNodes []datastore.CascadeNode
		var levelRedactions []datastore.Redaction

		for i := range frontier {
			parent := &frontier[i]

			exclude := make([]uint, 0, len(included))
			for id := range included {
				exclude = append(exclude, id)
			}

			candidates, err := tx.FindCascadeCandidates(textLen-slack, textLen+slack, exclude, e.settings.CascadeScanLimit)
			if err != nil {
				return nil, err
			}

			for j := range candidates {
				candidate := &candidates[j]
				if _, seen := included[candidate.ID]; seen {
					continue
				}
				if !contextCompatible(parent.redaction.SurroundingText, candidate.SurroundingText, e.settings.ContextSimilarity) {
					continue
				}

				claimed, err := tx.InActiveCascade(candidate.ID)
				if err != nil {
					return nil, err
				}
				if claimed {
					continue
				}

				priorStatus := candidate.Status
				err = tx.CompareAndTransitionStatus(candidate.ID, datastore.StatusConfirmed, datastore.OpenStatuses())
				if err != nil {
					if errors.IsCategory(err, errors.CategoryConflict) {
						// confirmed concurrently outside this cascade
						continue
					}
					return nil, err
				}
				if err := tx.SetResolvedText(candidate.ID, resolvedText); err != nil {
					return nil, err
				}

				parentNodeID := parent.nodeID
				levelNodes = append(levelNodes, datastore.CascadeNode{
					RootRedactionID: rootRedactionID,
					RedactionID:     candidate.ID,
					ParentID:        &parentNodeID,
					Depth:           depth,
					ResolvedText:    resolvedText,
					DocumentID:      candidate.DocumentID,
					PriorStatus:     priorStatus,
					Active:          true,
				})
				levelRedactions = append(levelRedactions, *candidate)

				included[candidate.ID] = struct{}{}
				affectedDocs[candidate.DocumentID] = struct{}{}
				cascadeCount++

				if e.metrics != nil {
					e.metrics.RecordStatusTransition(string(priorStatus), string(datastore.StatusConfirmed))
				}
			}
		}

		// Persist the level so its node IDs exist for the next pass.
		if err := tx.CreateCascadeNodes(levelNodes); err != nil {
			return nil, err
		}

		frontier = frontier[:0]
		for i := range levelNodes {
			frontier = append(frontier, frontierEntry{redaction: levelRedactions[i], nodeID: levelNodes[i].ID})
		}
	}

	docs := make([]string, 0, len(affectedDocs))
	for doc := range affectedDocs {
		docs = append(docs, doc)
	}
	sort.Strings(docs)

	result := &CascadeResult{
		RootRedactionID:     rootRedactionID,
		CascadeCount:        cascadeCount,
		AffectedDocumentIDs: docs,
	}

	if e.metrics != nil {
		e.metrics.RecordCascade(trigger, result.CascadeCount, time.Since(start).Seconds())
	}
	e.logger.Info("cascade propagated",
		"root_redaction_id", rootRedactionID,
		"cascade_count", result.CascadeCount,
		"affected_documents", len(result.AffectedDocumentIDs),
		"trigger", trigger)

	return result, nil
}

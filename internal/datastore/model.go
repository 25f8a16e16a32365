// model.go this code defines the data model for the consensus engine
package datastore

import "time"

// RedactionStatus is the lifecycle state of a redaction slot.
type RedactionStatus string

const (
	StatusUnsolved     RedactionStatus = "unsolved"
	StatusProposed     RedactionStatus = "proposed"
	StatusCorroborated RedactionStatus = "corroborated"
	StatusConfirmed    RedactionStatus = "confirmed"
	StatusDisputed     RedactionStatus = "disputed"
)

// VoteType is one of the three reactions a user may have to a proposal.
type VoteType string

const (
	VoteUpvote      VoteType = "upvote"
	VoteDownvote    VoteType = "downvote"
	VoteCorroborate VoteType = "corroborate"
)

// Redaction represents one physically redacted span in one document.
// Rows are created during document ingestion and never deleted; only the
// consensus engine mutates them, and status changes go exclusively through
// CompareAndTransitionStatus.
type Redaction struct {
	ID                 uint   `gorm:"primaryKey"`
	DocumentID         string `gorm:"index:idx_redactions_document;not null"` // external document reference from ingestion
	PageNumber         int
	SurroundingText    string          `gorm:"type:text"` // OCR context used for cascade matching
	CharLengthEstimate *int            // pixel-width-derived guess of hidden character count, nil when unknown
	Status             RedactionStatus `gorm:"type:varchar(20);index:idx_redactions_status;not null"`
	ResolvedText       string          `gorm:"type:text"` // set when status is confirmed
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Proposal represents one user's candidate resolution for one redaction.
// A user may submit multiple competing proposals for the same redaction.
// The vote counters are denormalized; they are recomputed from Vote rows
// inside the same transaction that writes a vote, never incremented in place.
type Proposal struct {
	ID                  uint   `gorm:"primaryKey"`
	PublicID            string `gorm:"uniqueIndex;type:varchar(36);not null"` // uuid exposed to the API layer
	RedactionID         uint   `gorm:"index:idx_proposals_redaction;not null;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;foreignKey:RedactionID;references:ID"`
	Author              string `gorm:"index;not null"` // user identity from the identity provider
	ProposedText        string `gorm:"type:text;not null"` // immutable after creation
	EntityID            *uint  // optional linked entity reference
	EvidenceType        string `gorm:"type:varchar(30);not null"`
	EvidenceDescription string `gorm:"type:text;not null"`
	EvidenceSources     []string `gorm:"serializer:json"` // bounded list, max 10
	SupportingChunkIDs  []string `gorm:"serializer:json"` // corroborating passage references, max 20
	LengthMatch         *bool    // nil when the redaction has no length estimate
	Upvotes             int
	Downvotes           int
	Corroborations      int
	CompositeConfidence float64 `gorm:"index:idx_proposals_confidence"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Vote represents one user's reaction to one proposal.
// Unique per (proposal, voter): a repeat vote replaces the prior one.
type Vote struct {
	ID         uint     `gorm:"primaryKey"`
	ProposalID uint     `gorm:"uniqueIndex:idx_votes_proposal_voter;not null;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;foreignKey:ProposalID;references:ID"`
	Voter      string   `gorm:"uniqueIndex:idx_votes_proposal_voter;type:varchar(64);not null"`
	VoteType   VoteType `gorm:"type:varchar(15);not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CascadeNode represents one redaction resolved as a side effect of another
// redaction's confirmation. Nodes form a tree rooted at the originally
// confirmed redaction; the root itself is stored at depth 0 with a nil parent.
// PriorStatus is snapshotted at propagation time so revert can restore exact
// pre-cascade state without re-deriving it.
type CascadeNode struct {
	ID              uint            `gorm:"primaryKey"`
	RootRedactionID uint            `gorm:"index:idx_cascade_root;not null"`
	RedactionID     uint            `gorm:"index:idx_cascade_redaction;not null"`
	ParentID        *uint           // nil for the root node
	Depth           int             `gorm:"not null"`
	ResolvedText    string          `gorm:"type:text"`
	DocumentID      string          `gorm:"index"`
	PriorStatus     RedactionStatus `gorm:"type:varchar(20);not null"`
	Active          bool            `gorm:"index;not null;default:true"` // false once reverted
	CreatedAt       time.Time
}

// AuditLog records an administrative action against the consensus state.
type AuditLog struct {
	ID           uint     `gorm:"primaryKey"`
	Action       string   `gorm:"type:varchar(30);not null"` // confirm, dispute, revert
	Actor        string   `gorm:"index;not null"`
	Reason       string   `gorm:"type:text"`
	RedactionIDs []uint   `gorm:"serializer:json"` // every redaction touched by the action
	CreatedAt    time.Time
}

// VoteTally is the recomputed per-type vote count for one proposal.
type VoteTally struct {
	Upvotes        int `json:"upvotes"`
	Downvotes      int `json:"downvotes"`
	Corroborations int `json:"corroborations"`
}

// OpenStatuses are the statuses a redaction can hold while still accepting
// proposals, votes and cascade resolution.
func OpenStatuses() []RedactionStatus {
	return []RedactionStatus{StatusUnsolved, StatusProposed, StatusCorroborated}
}

// IsTerminal reports whether a status closes the redaction to further voting.
func (s RedactionStatus) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusDisputed
}

// Valid reports whether the status is one of the five known states.
func (s RedactionStatus) Valid() bool {
	switch s {
	case StatusUnsolved, StatusProposed, StatusCorroborated, StatusConfirmed, StatusDisputed:
		return true
	default:
		return false
	}
}

// Valid reports whether the vote type is one of the three known reactions.
func (v VoteType) Valid() bool {
	switch v {
	case VoteUpvote, VoteDownvote, VoteCorroborate:
		return true
	default:
		return false
	}
}

// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"log"
	"os"
	"time"

	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/conf"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Interface abstracts the underlying database implementation and defines the
// operations the consensus engine performs against the store.
type Interface interface {
	Open() error
	Close() error

	// Transaction runs fn against a store view bound to one serializable
	// transaction; every datastore call made through it commits or rolls
	// back as a unit.
	Transaction(fn func(tx Interface) error) error

	// Redactions
	GetRedaction(id uint) (Redaction, error)
	SaveRedaction(redaction *Redaction) error
	CompareAndTransitionStatus(id uint, newStatus RedactionStatus, allowedFrom []RedactionStatus) error
	SetResolvedText(id uint, text string) error
	FindCascadeCandidates(minLen, maxLen int, excludeIDs []uint, limit int) ([]Redaction, error)

	// Proposals
	SaveProposal(proposal *Proposal) error
	GetProposal(id uint) (Proposal, error)
	GetProposalByPublicID(publicID string) (Proposal, error)
	GetProposalsForRedaction(redactionID uint) ([]Proposal, error)
	UpdateProposalConfidence(id uint, confidence float64) error

	// Votes
	UpsertVoteAndRecount(proposalID uint, voter string, voteType VoteType) (VoteTally, error)
	CountVotes(proposalID uint) (VoteTally, error)

	// Cascades
	CreateCascadeNodes(nodes []CascadeNode) error
	GetCascadeTree(rootRedactionID uint) ([]CascadeNode, error)
	DeactivateCascadeTree(rootRedactionID uint) error
	CascadeTreeExists(rootRedactionID uint) (exists, active bool, err error)
	InActiveCascade(redactionID uint) (bool, error)

	// Audit
	SaveAuditLog(entry *AuditLog) error
	GetAuditLogs(limit, offset int) ([]AuditLog, error)
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB // GORM database instance
}

// New creates a new datastore instance based on the provided configuration.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{
			Settings: settings,
		}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{
			Settings: settings,
		}
	default:
		return nil
	}
}

// Transaction runs fn against a transaction-bound view of the store. Nested
// calls reuse gorm's savepoint support.
func (ds *DataStore) Transaction(fn func(tx Interface) error) error {
	return ds.DB.Transaction(func(tx *gorm.DB) error {
		return fn(&DataStore{DB: tx})
	})
}

// Open is implemented by the driver-specific stores.
func (ds *DataStore) Open() error {
	return stateError(errOpenUnsupported, "open", "connection")
}

// Close is implemented by the driver-specific stores.
func (ds *DataStore) Close() error {
	return nil
}

// performAutoMigration automates database migrations with error handling.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(&Redaction{}, &Proposal{}, &Vote{}, &CascadeNode{}, &AuditLog{}); err != nil {
		return dbError(err, "auto_migration", "",
			"db_type", dbType)
	}

	if debug {
		log.Printf("%s database connection initialized: %s", dbType, connectionInfo)
	}

	return nil
}

// createGormLogger configures and returns a new GORM logger instance.
func createGormLogger() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: 200 * time.Millisecond,
			LogLevel:      logger.Warn,
			Colorful:      true,
		},
	)
}

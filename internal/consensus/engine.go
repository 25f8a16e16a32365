// Package consensus implements the redaction resolution consensus engine:
// proposal intake, weighted voting, the guarded state machine, cascade
// propagation and cascade revert.
package consensus

import (
	"log/slog"

	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/conf"
	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/datastore"
	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/errors"
	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/logging"
	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/observability/metrics"
)

// Actor is the authenticated identity performing an operation, as delivered
// by the host application's identity provider.
type Actor struct {
	ID    string
	Admin bool
}

// Engine coordinates all consensus operations against the datastore. Every
// mutating operation runs as one transaction; the engine holds no in-memory
// state of its own, so any number of concurrent requests may share it.
type Engine struct {
	ds       datastore.Interface
	settings conf.ConsensusSettings
	logger   *slog.Logger
	metrics  *metrics.ConsensusMetrics // nil when observability is disabled
}

// New creates a consensus engine backed by the given datastore.
func New(ds datastore.Interface, settings conf.ConsensusSettings, consensusMetrics *metrics.ConsensusMetrics) *Engine {
	logger := logging.ForService("consensus")
	if logger == nil {
		logger = slog.Default().With("service", "consensus")
	}

	return &Engine{
		ds:       ds,
		settings: settings,
		logger:   logger,
		metrics:  consensusMetrics,
	}
}

// Proposals returns the proposals for a redaction ordered by composite
// confidence descending.
func (e *Engine) Proposals(redactionID uint) ([]datastore.Proposal, error) {
	if _, err := e.ds.GetRedaction(redactionID); err != nil {
		return nil, err
	}
	return e.ds.GetProposalsForRedaction(redactionID)
}

// Redaction returns the current state of a redaction slot.
func (e *Engine) Redaction(redactionID uint) (datastore.Redaction, error) {
	return e.ds.GetRedaction(redactionID)
}

// forbiddenError builds a forbidden-category error for policy violations.
func forbiddenError(message string, context ...any) error {
	builder := errors.Newf("%s", message).
		Component("consensus").
		Category(errors.CategoryForbidden)
	for i := 0; i < len(context)-1; i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}
	return builder.Build()
}

// validationError builds a validation-category error naming the violated
// constraint, surfaced verbatim to the caller.
func validationError(message, field string, value any) error {
	return errors.Newf("%s", message).
		Component("consensus").
		Category(errors.CategoryValidation).
		Context("field", field).
		Context("value", value).
		Build()
}

// closedError builds the conflict error returned when an operation targets a
// redaction that has already reached a terminal status.
func closedError(redactionID uint, status datastore.RedactionStatus) error {
	return errors.Newf("redaction is %s; refresh redaction state", status).
		Component("consensus").
		Category(errors.CategoryConflict).
		Context("redaction_id", redactionID).
		Context("status", string(status)).
		Build()
}

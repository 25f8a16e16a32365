// Package metrics provides consensus engine metrics for observability
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ConsensusMetrics contains Prometheus metrics for consensus engine operations
type ConsensusMetrics struct {
	registry *prometheus.Registry

	// Proposal metrics
	proposalsSubmittedTotal *prometheus.CounterVec
	proposalErrorsTotal     *prometheus.CounterVec

	// Vote metrics
	votesCastTotal     *prometheus.CounterVec
	voteErrorsTotal    *prometheus.CounterVec
	voteDurationSecs   *prometheus.HistogramVec
	confidenceComputed prometheus.Histogram

	// State machine metrics
	statusTransitionsTotal *prometheus.CounterVec
	transitionConflicts    *prometheus.CounterVec

	// Cascade metrics
	cascadesTotal       *prometheus.CounterVec
	cascadeFanout       prometheus.Histogram
	cascadeDurationSecs prometheus.Histogram
	revertsTotal        *prometheus.CounterVec
	revertedNodesTotal  prometheus.Counter

	// collectors is a slice of all collectors for easier iteration
	collectors []prometheus.Collector
}

// NewConsensusMetrics creates and registers new consensus metrics
func NewConsensusMetrics(registry *prometheus.Registry) (*ConsensusMetrics, error) {
	m := &ConsensusMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// initMetrics initializes all Prometheus metrics
func (m *ConsensusMetrics) initMetrics() error {
	m.proposalsSubmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consensus_proposals_submitted_total",
			Help: "Total number of redaction proposals submitted",
		},
		[]string{"evidence_type"},
	)

	m.proposalErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consensus_proposal_errors_total",
			Help: "Total number of rejected proposal submissions",
		},
		[]string{"error_type"},
	)

	m.votesCastTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consensus_votes_cast_total",
			Help: "Total number of votes cast on proposals",
		},
		[]string{"vote_type"},
	)

	m.voteErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consensus_vote_errors_total",
			Help: "Total number of rejected vote attempts",
		},
		[]string{"error_type"}, // self_vote, closed, not_found, database
	)

	m.voteDurationSecs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "consensus_vote_duration_seconds",
			Help:    "Time taken to process a vote including tally recomputation",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12),
		},
		[]string{"vote_type"},
	)

	m.confidenceComputed = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "consensus_composite_confidence",
			Help:    "Distribution of computed composite confidence scores",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	m.statusTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consensus_status_transitions_total",
			Help: "Total number of redaction status transitions",
		},
		[]string{"from", "to"},
	)

	m.transitionConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consensus_transition_conflicts_total",
			Help: "Total number of status transitions rejected by the guard",
		},
		[]string{"to"},
	)

	m.cascadesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consensus_cascades_total",
			Help: "Total number of cascade propagations",
		},
		[]string{"trigger"}, // auto, admin
	)

	m.cascadeFanout = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "consensus_cascade_fanout",
			Help:    "Number of redactions resolved per cascade",
			Buckets: prometheus.ExponentialBuckets(1, BucketFactor2, BucketCount10),
		},
	)

	m.cascadeDurationSecs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "consensus_cascade_duration_seconds",
			Help:    "Time taken for cascade propagation transactions",
			Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12),
		},
	)

	m.revertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consensus_cascade_reverts_total",
			Help: "Total number of cascade revert operations",
		},
		[]string{"outcome"}, // reverted, already_reverted, error
	)

	m.revertedNodesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "consensus_cascade_reverted_nodes_total",
			Help: "Total number of cascade nodes restored by reverts",
		},
	)

	m.collectors = []prometheus.Collector{
		m.proposalsSubmittedTotal,
		m.proposalErrorsTotal,
		m.votesCastTotal,
		m.voteErrorsTotal,
		m.voteDurationSecs,
		m.confidenceComputed,
		m.statusTransitionsTotal,
		m.transitionConflicts,
		m.cascadesTotal,
		m.cascadeFanout,
		m.cascadeDurationSecs,
		m.revertsTotal,
		m.revertedNodesTotal,
	}

	return nil
}

// Describe implements the Collector interface
func (m *ConsensusMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *ConsensusMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordProposalSubmitted increments the proposal counter for an evidence type.
func (m *ConsensusMetrics) RecordProposalSubmitted(evidenceType string) {
	m.proposalsSubmittedTotal.WithLabelValues(evidenceType).Inc()
}

// RecordProposalError increments the proposal error counter.
func (m *ConsensusMetrics) RecordProposalError(errorType string) {
	m.proposalErrorsTotal.WithLabelValues(errorType).Inc()
}

// RecordVoteCast increments the vote counter and observes processing duration.
func (m *ConsensusMetrics) RecordVoteCast(voteType string, durationSecs float64) {
	m.votesCastTotal.WithLabelValues(voteType).Inc()
	m.voteDurationSecs.WithLabelValues(voteType).Observe(durationSecs)
}

// RecordVoteError increments the vote error counter.
func (m *ConsensusMetrics) RecordVoteError(errorType string) {
	m.voteErrorsTotal.WithLabelValues(errorType).Inc()
}

// RecordConfidence observes a computed composite confidence score.
func (m *ConsensusMetrics) RecordConfidence(score float64) {
	m.confidenceComputed.Observe(score)
}

// RecordStatusTransition increments the transition counter.
func (m *ConsensusMetrics) RecordStatusTransition(from, to string) {
	m.statusTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordTransitionConflict increments the guard rejection counter.
func (m *ConsensusMetrics) RecordTransitionConflict(to string) {
	m.transitionConflicts.WithLabelValues(to).Inc()
}

// RecordCascade records a completed cascade propagation.
func (m *ConsensusMetrics) RecordCascade(trigger string, fanout int, durationSecs float64) {
	m.cascadesTotal.WithLabelValues(trigger).Inc()
	m.cascadeFanout.Observe(float64(fanout))
	m.cascadeDurationSecs.Observe(durationSecs)
}

// RecordRevert records a revert operation outcome.
func (m *ConsensusMetrics) RecordRevert(outcome string, nodeCount int) {
	m.revertsTotal.WithLabelValues(outcome).Inc()
	if nodeCount > 0 {
		m.revertedNodesTotal.Add(float64(nodeCount))
	}
}

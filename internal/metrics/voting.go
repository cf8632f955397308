package metrics

import "github.com/prometheus/client_golang/prometheus"

// VotingMetrics counts vote writes and reason cache activity. It implements
// voting.Observer.
type VotingMetrics struct {
	VotesRecorded       *prometheus.CounterVec
	ReasonCacheHits     *prometheus.CounterVec
	ReasonCacheMisses   *prometheus.CounterVec
	ReasonInvalidations *prometheus.CounterVec
}

// NewVotingMetrics creates and registers voting metrics on the given registry.
func NewVotingMetrics(reg prometheus.Registerer) *VotingMetrics {
	m := &VotingMetrics{
		VotesRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_recorded_total",
			Help:      "Total number of vote writes, by content type, action and result.",
		}, []string{"content_type", "action", "result"}),
		ReasonCacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reason_cache",
			Name:      "hits_total",
			Help:      "Total number of vote reason cache hits, by content type.",
		}, []string{"content_type"}),
		ReasonCacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reason_cache",
			Name:      "misses_total",
			Help:      "Total number of vote reason cache misses, by content type.",
		}, []string{"content_type"}),
		ReasonInvalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reason_cache",
			Name:      "invalidations_total",
			Help:      "Total number of vote reason cache invalidations, by content type.",
		}, []string{"content_type"}),
	}

	reg.MustRegister(m.VotesRecorded, m.ReasonCacheHits, m.ReasonCacheMisses, m.ReasonInvalidations)
	return m
}

func (m *VotingMetrics) VoteRecorded(contentType, action string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.VotesRecorded.WithLabelValues(contentType, action, result).Inc()
}

func (m *VotingMetrics) ReasonCacheLookup(contentType string, hit bool) {
	if hit {
		m.ReasonCacheHits.WithLabelValues(contentType).Inc()
		return
	}
	m.ReasonCacheMisses.WithLabelValues(contentType).Inc()
}

func (m *VotingMetrics) ReasonCacheInvalidated(contentType string) {
	m.ReasonInvalidations.WithLabelValues(contentType).Inc()
}

package query

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts cache activity per resource. A nil *Metrics records nothing.
type Metrics struct {
	hits          *prometheus.CounterVec
	misses        *prometheus.CounterVec
	fetches       *prometheus.CounterVec
	dedups        *prometheus.CounterVec
	invalidations *prometheus.CounterVec
	errors        *prometheus.CounterVec
	discarded     *prometheus.CounterVec
}

func counter(name, help string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marketplace",
		Subsystem: "query_cache",
		Name:      name,
		Help:      help,
	}, []string{"resource"})
}

// NewMetrics creates the cache counters and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		hits:          counter("hits_total", "Reads served from fresh cached data."),
		misses:        counter("misses_total", "Reads that needed a fetch."),
		fetches:       counter("fetches_total", "Fetch functions actually executed."),
		dedups:        counter("dedup_joins_total", "Reads that joined an in-flight fetch."),
		invalidations: counter("invalidations_total", "Entries marked stale by invalidation."),
		errors:        counter("fetch_errors_total", "Fetches that ended in an error."),
		discarded:     counter("discarded_results_total", "Results dropped because a newer fetch had already been applied."),
	}
	for _, c := range []prometheus.Collector{m.hits, m.misses, m.fetches, m.dedups, m.invalidations, m.errors, m.discarded} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) hit(resource string) {
	if m == nil {
		return
	}
	m.hits.WithLabelValues(resource).Inc()
}

func (m *Metrics) miss(resource string) {
	if m == nil {
		return
	}
	m.misses.WithLabelValues(resource).Inc()
}

func (m *Metrics) fetch(resource string) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(resource).Inc()
}

func (m *Metrics) dedup(resource string) {
	if m == nil {
		return
	}
	m.dedups.WithLabelValues(resource).Inc()
}

func (m *Metrics) invalidation(resource string) {
	if m == nil {
		return
	}
	m.invalidations.WithLabelValues(resource).Inc()
}

func (m *Metrics) fetchError(resource string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(resource).Inc()
}

func (m *Metrics) discard(resource string) {
	if m == nil {
		return
	}
	m.discarded.WithLabelValues(resource).Inc()
}

func (m *Metrics) Hits() *prometheus.CounterVec          { return m.hits }
func (m *Metrics) Misses() *prometheus.CounterVec        { return m.misses }
func (m *Metrics) Fetches() *prometheus.CounterVec       { return m.fetches }
func (m *Metrics) DedupJoins() *prometheus.CounterVec    { return m.dedups }
func (m *Metrics) Invalidations() *prometheus.CounterVec { return m.invalidations }
func (m *Metrics) Errors() *prometheus.CounterVec        { return m.errors }
func (m *Metrics) Discarded() *prometheus.CounterVec     { return m.discarded }

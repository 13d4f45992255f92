package cart

import "github.com/prometheus/client_golang/prometheus"

// Metrics tracks cart synchronization outcomes. All methods are nil-safe so
// callers can run without a registry.
type Metrics struct {
	hydrations       prometheus.Counter
	mergedLines      prometheus.Counter
	skippedLines     prometheus.Counter
	droppedMutations prometheus.Counter
	enrichFailures   prometheus.Counter
}

// NewMetrics registers the cart counters on the provided registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	hydrations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_hydrations_total",
		Help: "Server cart fetch-and-replace cycles.",
	})
	merged := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_merged_lines_total",
		Help: "Guest lines replayed into the server cart on login.",
	})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_skipped_lines_total",
		Help: "Guest lines skipped during the login merge.",
	})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_dropped_mutations_total",
		Help: "Mutations dropped because no backend line item resolved.",
	})
	enrichFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_enrichment_failures_total",
		Help: "Best-effort catalog enrichment lookups that failed.",
	})
	reg.MustRegister(hydrations, merged, skipped, dropped, enrichFailures)
	return &Metrics{
		hydrations:       hydrations,
		mergedLines:      merged,
		skippedLines:     skipped,
		droppedMutations: dropped,
		enrichFailures:   enrichFailures,
	}
}

func (m *Metrics) IncHydration() {
	if m == nil || m.hydrations == nil {
		return
	}
	m.hydrations.Inc()
}

func (m *Metrics) IncMergedLine() {
	if m == nil || m.mergedLines == nil {
		return
	}
	m.mergedLines.Inc()
}

func (m *Metrics) IncSkippedLine() {
	if m == nil || m.skippedLines == nil {
		return
	}
	m.skippedLines.Inc()
}

func (m *Metrics) IncDroppedMutation() {
	if m == nil || m.droppedMutations == nil {
		return
	}
	m.droppedMutations.Inc()
}

func (m *Metrics) IncEnrichFailure() {
	if m == nil || m.enrichFailures == nil {
		return
	}
	m.enrichFailures.Inc()
}

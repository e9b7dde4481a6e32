package secrets

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records load activity. A nil *Metrics records nothing.
type Metrics struct {
	loads         *prometheus.CounterVec
	sourceQueries *prometheus.CounterVec
	loadDuration  *prometheus.HistogramVec
	state         *prometheus.GaugeVec
}

// NewMetrics registers the store collectors with reg. Passing nil creates
// unregistered collectors, which is convenient in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		loads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secretmgr_secret_loads_total",
				Help: "Completed secret loads by outcome state",
			},
			[]string{"secret", "state"},
		),
		sourceQueries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secretmgr_source_queries_total",
				Help: "Number of times the secret source was consulted",
			},
			[]string{"secret"},
		),
		loadDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "secretmgr_secret_load_duration_seconds",
				Help:    "Duration of secret loads including validation and transition",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"secret"},
		),
		state: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "secretmgr_secret_state",
				Help: "Current slot state (0=not_loaded, 1=load_failed, 2=not_present, 3=present)",
			},
			[]string{"secret"},
		),
	}
}

func (m *Metrics) observeQuery(id ID) {
	if m == nil {
		return
	}
	m.sourceQueries.WithLabelValues(id.String()).Inc()
}

func (m *Metrics) observeLoad(id ID, state State, d time.Duration) {
	if m == nil {
		return
	}
	m.loads.WithLabelValues(id.String(), state.String()).Inc()
	m.loadDuration.WithLabelValues(id.String()).Observe(d.Seconds())
	m.state.WithLabelValues(id.String()).Set(float64(state))
}

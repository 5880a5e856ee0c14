package services

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the pipeline.
type Metrics struct {
	TurnsTotal          *prometheus.CounterVec
	TurnDuration        prometheus.Histogram
	RecordsSaved        *prometheus.CounterVec
	ComplianceBlocks    *prometheus.CounterVec
	BackendDemotions    *prometheus.CounterVec
	ExtractionRetries   prometheus.Counter
	TokensConsumed      *prometheus.CounterVec
	ActiveConversations prometheus.Gauge
}

var (
	metricsInstance *Metrics
	metricsOnce     sync.Once
)

// InitMetrics registers all collectors once.
func InitMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = &Metrics{
			TurnsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "manejobot_turns_total",
				Help: "Conversational turns processed, by outcome.",
			}, []string{"status"}),

			TurnDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "manejobot_turn_duration_seconds",
				Help:    "Wall time of a full turn.",
				Buckets: prometheus.DefBuckets,
			}),

			RecordsSaved: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "manejobot_records_saved_total",
				Help: "Field notebook records saved, by activity type.",
			}, []string{"tipo"}),

			ComplianceBlocks: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "manejobot_compliance_blocks_total",
				Help: "Messages or records refused by compliance, by stage.",
			}, []string{"stage"}),

			BackendDemotions: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "manejobot_backend_demotions_total",
				Help: "Extraction backends demoted after rate limiting.",
			}, []string{"backend"}),

			ExtractionRetries: promauto.NewCounter(prometheus.CounterOpts{
				Name: "manejobot_extraction_retries_total",
				Help: "Re-asks triggered by malformed extraction output.",
			}),

			TokensConsumed: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "manejobot_tokens_consumed_total",
				Help: "Model tokens consumed, by kind.",
			}, []string{"kind"}),

			ActiveConversations: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "manejobot_active_conversations",
				Help: "Conversations updated in the last hour.",
			}),
		}
	})
	return metricsInstance
}

// GetMetrics returns the registered collectors, initializing on first call.
func GetMetrics() *Metrics { return InitMetrics() }

// BackendDemoted records one backend demotion. Satisfies the extraction
// observer so the selector stays decoupled from Prometheus.
func (m *Metrics) BackendDemoted(backend string) {
	m.BackendDemotions.WithLabelValues(backend).Inc()
}

// ExtractionRetried records one re-ask after malformed output.
func (m *Metrics) ExtractionRetried() {
	m.ExtractionRetries.Inc()
}

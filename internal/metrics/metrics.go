package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the decision core's Prometheus collectors.
type Metrics struct {
	SignalsIngested   *prometheus.CounterVec
	SignalsRejected   *prometheus.CounterVec
	ConfidenceScore   *prometheus.GaugeVec
	LevelTransitions  *prometheus.CounterVec
	TopCrossings      *prometheus.CounterVec
	IntentEvents      prometheus.Counter
	IntentConfirmed   prometheus.Counter
	VoiceMatches      *prometheus.CounterVec
	VaultOutcomes     *prometheus.CounterVec
	VaultEvidenceSize prometheus.Gauge
}

// New registers all collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SignalsIngested: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_signals_ingested_total",
			Help: "Signals accepted into a domain history",
		}, []string{"domain", "kind"}),
		SignalsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_signals_rejected_total",
			Help: "Signals rejected at validation",
		}, []string{"domain"}),
		ConfidenceScore: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "guardian_confidence_score",
			Help: "Most recently evaluated confidence score per domain",
		}, []string{"domain"}),
		LevelTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_level_transitions_total",
			Help: "Escalation level changes per domain and resulting level",
		}, []string{"domain", "level"}),
		TopCrossings: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_top_crossings_total",
			Help: "Edge-triggered crossings into a domain's highest level",
		}, []string{"domain"}),
		IntentEvents: factory.NewCounter(prometheus.CounterOpts{
			Name: "guardian_intent_events_total",
			Help: "Discrete intent events registered",
		}),
		IntentConfirmed: factory.NewCounter(prometheus.CounterOpts{
			Name: "guardian_intent_confirmations_total",
			Help: "One-shot intent confirmations fired",
		}),
		VoiceMatches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_voice_matches_total",
			Help: "Voice verification attempts by result",
		}, []string{"result"}),
		VaultOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_vault_outcomes_total",
			Help: "Terminal truth-lock outcomes",
		}, []string{"outcome"}),
		VaultEvidenceSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "guardian_vault_evidence_items",
			Help: "Evidence items appended to the active truth lock",
		}),
	}
}

package monitor

// #region imports
import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kestrel-safety/guardian/internal/confidence"
	"github.com/kestrel-safety/guardian/internal/logging"
	"github.com/kestrel-safety/guardian/internal/metrics"
	"github.com/kestrel-safety/guardian/internal/notify"
	"github.com/kestrel-safety/guardian/internal/signal"
)

// #endregion

// #region errors

// ErrStopped is returned when a signal arrives after Stop and before Resume.
var ErrStopped = errors.New("monitor is stopped")

// #endregion errors

// #region config

// Config wires a monitor's collaborators. Every field has a safe default:
// a nil Notifier logs, a nil Audit discards, a nil Now uses the wall clock.
type Config struct {
	Notifier notify.Notifier
	Audit    logging.Recorder
	Metrics  *metrics.Metrics
	Now      func() time.Time
}

func (c Config) withDefaults() Config {
	if c.Notifier == nil {
		c.Notifier = notify.LogNotifier{}
	}
	if c.Audit == nil {
		c.Audit = logging.Discard{}
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// #endregion config

// #region monitor

// Monitor owns one domain's aggregator and drives escalation from its
// score. Ingestion is serialized by the monitor's mutex (single-writer
// per domain); the notification callback runs after the lock is released
// so a slow alerting collaborator never stalls the state update.
type Monitor struct {
	mu        sync.Mutex
	agg       *confidence.Aggregator
	cfg       Config
	lastLevel confidence.Level
	atTop     bool
	stopped   bool
}

// New creates a monitor for the given domain profile.
func New(profile confidence.Profile, cfg Config) *Monitor {
	return &Monitor{
		agg:       confidence.NewAggregator(profile),
		cfg:       cfg.withDefaults(),
		lastLevel: profile.Lowest,
	}
}

// NewDanger creates the overt-danger monitor.
func NewDanger(cfg Config) *Monitor {
	return New(confidence.DangerProfile(), cfg)
}

// NewSituational creates the situational-risk monitor.
func NewSituational(cfg Config) *Monitor {
	return New(confidence.SituationalProfile(), cfg)
}

// Domain returns the monitored domain.
func (m *Monitor) Domain() signal.Domain {
	return m.agg.Profile().Domain
}

// #endregion monitor

// #region add-signal

// AddSignal ingests one signal and re-derives the escalation level.
// The call never blocks on I/O: alert delivery happens after the pure
// state update, outside the ingestion lock.
func (m *Monitor) AddSignal(kind signal.Kind, value float64, description string) (confidence.State, error) {
	m.mu.Lock()
	if m.stopped {
		st := m.agg.StateAt(m.cfg.Now())
		m.mu.Unlock()
		return st, ErrStopped
	}
	now := m.cfg.Now()
	st, err := m.agg.AddSignal(kind, value, description, now)
	if err != nil {
		m.mu.Unlock()
		if m.cfg.Metrics != nil {
			m.cfg.Metrics.SignalsRejected.WithLabelValues(string(m.Domain())).Inc()
		}
		return st, fmt.Errorf("add %s signal: %w", m.Domain(), err)
	}
	alert := m.evaluateLocked(st, now)
	m.mu.Unlock()

	if m.cfg.Metrics != nil {
		m.cfg.Metrics.SignalsIngested.WithLabelValues(string(m.Domain()), string(kind)).Inc()
	}
	m.dispatch(alert)
	return st, nil
}

// Poll re-evaluates the state at the current instant without inserting.
// Decay-driven de-escalation re-arms the top-level edge trigger here.
func (m *Monitor) Poll() confidence.State {
	m.mu.Lock()
	now := m.cfg.Now()
	st := m.agg.StateAt(now)
	alert := m.evaluateLocked(st, now)
	m.mu.Unlock()

	m.dispatch(alert)
	return st
}

// #endregion add-signal

// #region evaluate

// evaluateLocked records transitions and decides whether the top-level
// crossing fires. Returns a non-nil alert when it does. Caller holds mu.
func (m *Monitor) evaluateLocked(st confidence.State, now time.Time) *notify.Alert {
	domain := string(m.Domain())

	if m.cfg.Metrics != nil {
		m.cfg.Metrics.ConfidenceScore.WithLabelValues(domain).Set(float64(st.Score))
	}

	if st.Level != m.lastLevel {
		m.lastLevel = st.Level
		if err := m.cfg.Audit.Record(logging.Entry{
			Domain:    domain,
			Event:     logging.EventEscalation,
			Level:     string(st.Level),
			Score:     st.Score,
			CreatedAt: now,
		}); err != nil {
			log.Printf("[MONITOR] audit record failed: %v", err)
		}
		if m.cfg.Metrics != nil {
			m.cfg.Metrics.LevelTransitions.WithLabelValues(domain, string(st.Level)).Inc()
		}
	}

	top := st.Level == m.agg.Profile().Highest
	if !top {
		m.atTop = false
		return nil
	}
	if m.atTop {
		// Re-confirming the same level without dropping out first must not refire.
		return nil
	}
	m.atTop = true

	if err := m.cfg.Audit.Record(logging.Entry{
		Domain:    domain,
		Event:     logging.EventTopCrossing,
		Level:     string(st.Level),
		Score:     st.Score,
		CreatedAt: now,
	}); err != nil {
		log.Printf("[MONITOR] audit record failed: %v", err)
	}
	if m.cfg.Metrics != nil {
		m.cfg.Metrics.TopCrossings.WithLabelValues(domain).Inc()
	}

	return &notify.Alert{
		Domain:  m.Domain(),
		Level:   st.Level,
		Score:   st.Score,
		Signals: st.Signals,
		At:      now,
	}
}

// dispatch hands an alert to the collaborator. Failed deliveries are
// logged and dropped: retry policy belongs to the collaborator.
func (m *Monitor) dispatch(alert *notify.Alert) {
	if alert == nil {
		return
	}
	if err := m.cfg.Notifier.Notify(context.Background(), *alert); err != nil {
		log.Printf("[MONITOR] notify %s failed: %v", alert.Domain, err)
	}
}

// #endregion evaluate

// #region lifecycle

// Stop halts ingestion. Accumulated history is kept: after Resume the
// decay math continues against the original timestamps.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
}

// Resume re-enables ingestion.
func (m *Monitor) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = false
}

// #endregion lifecycle

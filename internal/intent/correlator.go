package intent

// #region imports
import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kestrel-safety/guardian/internal/logging"
	"github.com/kestrel-safety/guardian/internal/metrics"
)

// #endregion

// #region kinds

// Kind identifies a discrete intent event.
type Kind string

const (
	KindPhoneDrop   Kind = "phone_drop"
	KindKeyword     Kind = "keyword_detected"
	KindScream      Kind = "scream_detected"
	KindStressSpike Kind = "stress_spike"
	KindStillness   Kind = "stillness"
)

// scoreWeights feed the advisory confirmation score only; the boolean
// verdict never consults them.
var scoreWeights = map[Kind]float64{
	KindPhoneDrop:   30,
	KindKeyword:     25,
	KindScream:      20,
	KindStressSpike: 15,
	KindStillness:   10,
}

// #endregion kinds

// #region errors

var (
	// ErrUnknownEventKind is returned for kinds outside the taxonomy.
	ErrUnknownEventKind = errors.New("unknown intent event kind")
	// ErrConfidenceRange is returned when confidence is outside [0, 1].
	ErrConfidenceRange = errors.New("event confidence must be in [0, 1]")
)

// #endregion errors

// #region types

// Event is one discrete observation fed to the correlator.
type Event struct {
	ID         string
	Kind       Kind
	Confidence float64
	Timestamp  time.Time
}

// State is the correlator's output after a registration or poll.
// Confirmed is the latched one-shot verdict; Score is advisory.
type State struct {
	Confirmed bool
	Score     int
	Events    []Event // events inside the trailing window
}

// Config wires the correlator's collaborators.
type Config struct {
	OnConfirm func(State)
	Audit     logging.Recorder
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

// #endregion types

// #region correlator

const (
	historyCapacity = 50
	window          = 2 * time.Minute
)

// Correlator converts combinations of discrete events into a one-shot
// confirmed verdict: within the trailing two minutes, a phone drop plus
// a keyword, or two keywords, confirm intent. Nothing else does,
// regardless of the advisory score.
type Correlator struct {
	mu        sync.Mutex
	events    []Event
	triggered bool
	cfg       Config
}

// New creates a correlator.
func New(cfg Config) *Correlator {
	if cfg.Audit == nil {
		cfg.Audit = logging.Discard{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Correlator{cfg: cfg}
}

// #endregion correlator

// #region register

// RegisterEvent appends an event and evaluates the confirmation rule
// against the full trailing window. The confirmation callback fires at
// most once until Reset, outside the correlator's lock.
func (c *Correlator) RegisterEvent(kind Kind, confidence float64) (State, error) {
	if _, ok := scoreWeights[kind]; !ok {
		return c.State(), fmt.Errorf("register %q: %w", kind, ErrUnknownEventKind)
	}
	if confidence < 0 || confidence > 1 {
		return c.State(), fmt.Errorf("register %s: %w", kind, ErrConfidenceRange)
	}

	c.mu.Lock()
	now := c.cfg.Now()
	if len(c.events) == historyCapacity {
		copy(c.events, c.events[1:])
		c.events = c.events[:len(c.events)-1]
	}
	c.events = append(c.events, Event{
		ID:         uuid.New().String(),
		Kind:       kind,
		Confidence: confidence,
		Timestamp:  now,
	})

	st := c.evaluateLocked(now)
	fired := false
	if st.Confirmed && !c.triggered {
		c.triggered = true
		fired = true
	}
	st.Confirmed = c.triggered
	c.mu.Unlock()

	if c.cfg.Metrics != nil {
		c.cfg.Metrics.IntentEvents.Inc()
	}
	if fired {
		c.fireConfirmed(st, now)
	}
	return st, nil
}

// State evaluates the window at the current instant without inserting.
func (c *Correlator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.evaluateLocked(c.cfg.Now())
	st.Confirmed = c.triggered
	return st
}

// Reset clears the event history and re-arms the one-shot confirmation.
func (c *Correlator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
	c.triggered = false
}

// #endregion register

// #region evaluate

// evaluateLocked applies the OR-of-ANDs rule and the advisory score over
// events inside the trailing window. Older events stay in history but do
// not count. Caller holds mu.
func (c *Correlator) evaluateLocked(now time.Time) State {
	var active []Event
	for _, e := range c.events {
		if now.Sub(e.Timestamp) <= window {
			active = append(active, e)
		}
	}

	var drops, keywords, screams int
	var score float64
	for _, e := range active {
		switch e.Kind {
		case KindPhoneDrop:
			drops++
		case KindKeyword:
			keywords++
		case KindScream:
			screams++
		}
		score += scoreWeights[e.Kind] * e.Confidence
	}

	// Co-occurrence bonuses (advisory only).
	if drops >= 1 && keywords >= 1 {
		score += 20
	}
	if screams >= 1 && keywords >= 1 {
		score += 15
	}
	if keywords >= 2 {
		score += 25
	}
	if score > 100 {
		score = 100
	}

	confirmed := (drops >= 1 && keywords >= 1) || keywords >= 2

	return State{
		Confirmed: confirmed,
		Score:     int(score + 0.5),
		Events:    active,
	}
}

func (c *Correlator) fireConfirmed(st State, now time.Time) {
	if err := c.cfg.Audit.Record(logging.Entry{
		Domain:    "intent",
		Event:     logging.EventIntentConfirmed,
		Score:     st.Score,
		Detail:    fmt.Sprintf("%d events in window", len(st.Events)),
		CreatedAt: now,
	}); err != nil {
		log.Printf("[INTENT] audit record failed: %v", err)
	}
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.IntentConfirmed.Inc()
	}
	if c.cfg.OnConfirm != nil {
		c.cfg.OnConfirm(st)
	}
}

// #endregion evaluate

package monitor

import (
	"log"
	"sync"

	"github.com/kestrel-safety/guardian/internal/confidence"
	"github.com/kestrel-safety/guardian/internal/logging"
	"github.com/kestrel-safety/guardian/internal/signal"
)

// #region coercion-monitor

// CoercionMonitor adds the one deliberately sticky state in the system:
// once coercion is confirmed, silent mode stays set even after decay
// drops the score. Only an explicit reset clears it — a confirmation
// must not silently "undo" a moment later.
type CoercionMonitor struct {
	*Monitor

	silentMu sync.Mutex
	silent   bool
}

// NewCoercion creates the coercion-risk monitor.
func NewCoercion(cfg Config) *CoercionMonitor {
	return &CoercionMonitor{Monitor: New(confidence.CoercionProfile(), cfg)}
}

// #endregion coercion-monitor

// #region add-signal

// AddSignal ingests a coercion signal and latches silent mode on the
// first confirmed evaluation.
func (c *CoercionMonitor) AddSignal(kind signal.Kind, value float64, description string) (confidence.State, error) {
	st, err := c.Monitor.AddSignal(kind, value, description)
	if err == nil && st.Level == confidence.LevelConfirmed {
		c.latchSilent()
	}
	return st, err
}

func (c *CoercionMonitor) latchSilent() {
	c.silentMu.Lock()
	defer c.silentMu.Unlock()
	c.silent = true
}

// #endregion add-signal

// #region silent-mode

// SilentMode reports whether a coercion confirmation has latched.
func (c *CoercionMonitor) SilentMode() bool {
	c.silentMu.Lock()
	defer c.silentMu.Unlock()
	return c.silent
}

// ResetSilentMode explicitly clears the latch.
func (c *CoercionMonitor) ResetSilentMode() {
	c.silentMu.Lock()
	was := c.silent
	c.silent = false
	c.silentMu.Unlock()

	if was {
		if err := c.cfg.Audit.Record(logging.Entry{
			Domain:    string(c.Domain()),
			Event:     logging.EventSilentModeReset,
			CreatedAt: c.cfg.Now(),
		}); err != nil {
			log.Printf("[MONITOR] audit record failed: %v", err)
		}
	}
}

// #endregion silent-mode

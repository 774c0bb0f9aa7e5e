package notify

import (
	"context"
	"log"
	"time"

	"github.com/kestrel-safety/guardian/internal/confidence"
	"github.com/kestrel-safety/guardian/internal/signal"
)

// #region alert

// Alert is the payload handed to the alerting collaborator on an
// edge-triggered level crossing. Delivery, retries, and contact fan-out
// are the collaborator's responsibility, not the core's.
type Alert struct {
	Domain  signal.Domain
	Level   confidence.Level
	Score   int
	Signals []signal.Signal
	At      time.Time
}

// #endregion alert

// #region notifier-interface

// Notifier abstracts the alerting collaborator so monitors can be tested
// without any delivery backend.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// #endregion notifier-interface

// #region log-notifier

// LogNotifier writes alerts to the process log. Used by cmd tools and as
// the fallback when no delivery collaborator is wired.
type LogNotifier struct{}

// Notify logs the alert and always succeeds.
func (LogNotifier) Notify(_ context.Context, alert Alert) error {
	log.Printf("[ALERT] domain=%s level=%s score=%d signals=%d",
		alert.Domain, alert.Level, alert.Score, len(alert.Signals))
	return nil
}

// #endregion log-notifier

// #region multi-notifier

// MultiNotifier fans an alert out to several collaborators. The first
// error is returned after all notifiers have been attempted.
type MultiNotifier []Notifier

// Notify delivers the alert to every wrapped notifier.
func (m MultiNotifier) Notify(ctx context.Context, alert Alert) error {
	var first error
	for _, n := range m {
		if err := n.Notify(ctx, alert); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// #endregion multi-notifier

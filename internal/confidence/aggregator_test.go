package confidence

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/kestrel-safety/guardian/internal/signal"
)

var t0 = time.Date(2026, 3, 14, 22, 0, 0, 0, time.UTC)

// #region empty-and-invalid

func TestStateAt_EmptyHistory(t *testing.T) {
	a := NewAggregator(CoercionProfile())
	st := a.StateAt(t0)
	if st.Score != 0 {
		t.Fatalf("expected score 0, got %d", st.Score)
	}
	if st.Level != LevelNone {
		t.Fatalf("expected lowest level, got %s", st.Level)
	}
}

func TestAddSignal_UnknownKindLeavesStateUnchanged(t *testing.T) {
	a := NewAggregator(DangerProfile())
	if _, err := a.AddSignal(signal.KindMotion, 50, "", t0); err != nil {
		t.Fatalf("AddSignal: %v", err)
	}
	before := a.StateAt(t0)

	st, err := a.AddSignal(signal.KindForcedUnlock, 80, "wrong domain", t0)
	if !errors.Is(err, signal.ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
	if st.Score != before.Score || len(st.Signals) != len(before.Signals) {
		t.Fatal("rejected signal must not mutate the aggregator")
	}
}

func TestAddSignal_NegativeValueRejected(t *testing.T) {
	a := NewAggregator(DangerProfile())
	_, err := a.AddSignal(signal.KindMotion, -5, "", t0)
	if !errors.Is(err, signal.ErrNegativeValue) {
		t.Fatalf("expected ErrNegativeValue, got %v", err)
	}
}

// #endregion empty-and-invalid

// #region single-insertion

func TestAddSignal_SingleInsertionFormula(t *testing.T) {
	// At time of insertion decay is exactly 1, so
	// score = round(value * weight / normalizer).
	cases := []struct {
		profile Profile
		kind    signal.Kind
		value   float64
	}{
		{CoercionProfile(), signal.KindForcedUnlock, 45},
		{CoercionProfile(), signal.KindStressPattern, 60},
		{DangerProfile(), signal.KindVoice, 70},
		{SituationalProfile(), signal.KindHandling, 33},
	}
	for _, c := range cases {
		a := NewAggregator(c.profile)
		st, err := a.AddSignal(c.kind, c.value, "", t0)
		if err != nil {
			t.Fatalf("AddSignal(%s): %v", c.kind, err)
		}
		want := int(math.Round(c.value * c.profile.Weights[c.kind] / c.profile.Normalizer))
		if st.Score != want {
			t.Errorf("%s/%s: score = %d, want %d", c.profile.Domain, c.kind, st.Score, want)
		}
	}
}

// #endregion single-insertion

// #region decay

func TestStateAt_DecayMonotonicity(t *testing.T) {
	a := NewAggregator(CoercionProfile())
	a.AddSignal(signal.KindForcedUnlock, 80, "", t0)
	a.AddSignal(signal.KindShakingHands, 60, "", t0.Add(30*time.Second))

	prev := a.StateAt(t0.Add(30 * time.Second)).Score
	for elapsed := time.Minute; elapsed <= 10*time.Minute; elapsed += 30 * time.Second {
		score := a.StateAt(t0.Add(elapsed)).Score
		if score > prev {
			t.Fatalf("score rose from %d to %d at +%s with no insertions", prev, score, elapsed)
		}
		prev = score
	}
	if prev != 0 {
		t.Fatalf("expected full decay to 0 past half-life, got %d", prev)
	}
}

func TestStateAt_LevelFallsWithDecay(t *testing.T) {
	a := NewAggregator(CoercionProfile())
	a.AddSignal(signal.KindForcedUnlock, 100, "", t0)
	a.AddSignal(signal.KindStressPattern, 100, "", t0)

	if st := a.StateAt(t0); st.Level != LevelConfirmed {
		t.Fatalf("expected confirmed at insertion, got %s (score %d)", st.Level, st.Score)
	}
	if st := a.StateAt(t0.Add(4 * time.Minute)); st.Level == LevelConfirmed {
		t.Fatalf("expected de-escalation after decay, still %s (score %d)", st.Level, st.Score)
	}
}

func TestStateAt_FutureTimestampCappedAtFullWeight(t *testing.T) {
	// Clock skew: signal stamped ahead of the evaluation instant must not
	// contribute more than decay=1.
	a := NewAggregator(DangerProfile())
	a.AddSignal(signal.KindMotion, 50, "skewed", t0.Add(2*time.Minute))
	got := a.StateAt(t0).Score
	want := int(math.Round(50 * 1.2 / 2.5))
	if got != want {
		t.Fatalf("score = %d, want %d", got, want)
	}
}

// #endregion decay

// #region saturation

func TestStateAt_ScoreCappedAt100(t *testing.T) {
	a := NewAggregator(CoercionProfile())
	for i := 0; i < 10; i++ {
		a.AddSignal(signal.KindForcedUnlock, 100, "", t0)
	}
	if st := a.StateAt(t0); st.Score != 100 {
		t.Fatalf("expected cap at 100, got %d", st.Score)
	}
}

func TestStateAt_SingleStrongSignalDoesNotSaturate(t *testing.T) {
	for _, p := range []Profile{DangerProfile(), CoercionProfile(), SituationalProfile()} {
		for kind, w := range p.Weights {
			a := NewAggregator(p)
			st, _ := a.AddSignal(kind, 100, "", t0)
			if st.Score >= 100 {
				t.Errorf("%s/%s (weight %v): single signal saturated to %d", p.Domain, kind, w, st.Score)
			}
		}
	}
}

// #endregion saturation

// #region coercion-sequence

func TestCoercionSequence_SuspectedThenConfirmed(t *testing.T) {
	a := NewAggregator(CoercionProfile())

	a.AddSignal(signal.KindForcedUnlock, 45, "unlock under duress", t0)
	st, err := a.AddSignal(signal.KindShakingHands, 30, "tremor", t0.Add(time.Minute))
	if err != nil {
		t.Fatalf("AddSignal: %v", err)
	}
	if st.Level != LevelSuspected {
		t.Fatalf("expected suspected, got %s (score %d)", st.Level, st.Score)
	}
	if st.Score < 40 || st.Score >= 70 {
		t.Fatalf("expected 40 <= score < 70, got %d", st.Score)
	}

	st, err = a.AddSignal(signal.KindStressPattern, 40, "stress spike", t0.Add(time.Minute))
	if err != nil {
		t.Fatalf("AddSignal: %v", err)
	}
	if st.Level != LevelConfirmed {
		t.Fatalf("expected confirmed, got %s (score %d)", st.Level, st.Score)
	}
}

// #endregion coercion-sequence

// #region eviction

func TestAddSignal_FIFOEvictionAtCapacity(t *testing.T) {
	p := CoercionProfile()
	a := NewAggregator(p)
	for i := 0; i <= p.HistoryCapacity; i++ {
		a.AddSignal(signal.KindErraticTouch, float64(i), "", t0)
	}
	st := a.StateAt(t0)
	if len(st.Signals) != p.HistoryCapacity {
		t.Fatalf("expected %d signals, got %d", p.HistoryCapacity, len(st.Signals))
	}
	if st.Signals[0].Value != 1 {
		t.Fatalf("expected oldest arrival evicted, head value = %v", st.Signals[0].Value)
	}
}

// #endregion eviction

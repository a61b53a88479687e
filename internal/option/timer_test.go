package option

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestTimerFiresExactlyOnce(t *testing.T) {
	opened := time.Now()
	// 50ms is not a selectable timeframe, but the timer does not care; it
	// keeps the test fast.
	o := New(AccountDemo, "XRPUSDT", DirectionBuy, 10, 2.1, 50*time.Millisecond, opened)

	var fired atomic.Int32
	tm := NewTimer(o, func(Option) { fired.Add(1) })
	tm.interval = 5 * time.Millisecond
	tm.Start(context.Background())

	select {
	case <-tm.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not finish")
	}

	// Give any erroneous extra tick a chance to fire.
	time.Sleep(20 * time.Millisecond)

	if got := fired.Load(); got != 1 {
		t.Fatalf("expiry fired %d times, expected exactly 1", got)
	}
	if tm.State() != StateExpired {
		t.Fatalf("state=%v, expected StateExpired", tm.State())
	}
}

func TestTimerArmedAfterExpiryStillFiresOnce(t *testing.T) {
	// Simulates a resumed session where the first observed tick already has
	// remaining <= 0.
	opened := time.Now().Add(-time.Hour)
	o := New(AccountDemo, "BTCUSDT", DirectionSell, 5, 50000, time.Minute, opened)

	var fired atomic.Int32
	tm := NewTimer(o, func(expired Option) {
		fired.Add(1)
		if r := expired.Remaining(time.Now()); r != 0 {
			t.Errorf("Remaining=%v at expiry, expected 0", r)
		}
	})
	tm.Start(context.Background())

	select {
	case <-tm.Done():
	case <-time.After(time.Second):
		t.Fatal("late-armed timer did not finish immediately")
	}

	if got := fired.Load(); got != 1 {
		t.Fatalf("expiry fired %d times, expected exactly 1", got)
	}
}

func TestTimerTransitionsPendingToOpen(t *testing.T) {
	opened := time.Now()
	o := New(AccountDemo, "BTCUSDT", DirectionBuy, 5, 50000, time.Minute, opened)

	tm := NewTimer(o, func(Option) {})
	if tm.State() != StatePending {
		t.Fatalf("state=%v before the grace period, expected StatePending", tm.State())
	}

	// Drive ticks directly instead of waiting out the 1s grace period.
	openAt := opened.Add(pendingFor)
	if done := tm.tick(opened.Add(500*time.Millisecond), openAt); done {
		t.Fatal("timer expired during the grace period")
	}
	if tm.State() != StatePending {
		t.Fatalf("state=%v, expected StatePending", tm.State())
	}

	if done := tm.tick(opened.Add(2*time.Second), openAt); done {
		t.Fatal("timer expired mid-countdown")
	}
	if tm.State() != StateOpen {
		t.Fatalf("state=%v, expected StateOpen", tm.State())
	}

	if done := tm.tick(opened.Add(2*time.Minute), openAt); !done {
		t.Fatal("timer did not expire past the expiry timestamp")
	}
	if tm.State() != StateExpired {
		t.Fatalf("state=%v, expected StateExpired", tm.State())
	}
}

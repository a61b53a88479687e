package option

import (
	"context"
	"sync/atomic"
	"time"
)

// State is the lifecycle position of an armed option.
type State int32

const (
	StatePending State = iota // brief cosmetic phase right after creation
	StateOpen
	StateExpired
)

const (
	tickInterval = 100 * time.Millisecond
	pendingFor   = time.Second
)

// Timer owns one option's countdown and fires its expiry callback exactly
// once. The countdown check runs on a recurring sub-second tick so that
// remaining-time and progress reads stay smooth.
type Timer struct {
	opt      Option
	onExpire func(Option)

	interval time.Duration
	state    atomic.Int32
	fired    atomic.Bool
	done     chan struct{}
}

// NewTimer builds a timer for opt; onExpire runs at most once.
func NewTimer(opt Option, onExpire func(Option)) *Timer {
	return &Timer{
		opt:      opt,
		onExpire: onExpire,
		interval: tickInterval,
		done:     make(chan struct{}),
	}
}

// Start runs the countdown in its own goroutine. The timer owns the expiry,
// so ctx should be the process context, not a request or view context:
// navigating away from the trading screen must not cancel a settlement.
func (t *Timer) Start(ctx context.Context) {
	go t.run(ctx)
}

// Option returns the option this timer was armed with.
func (t *Timer) Option() Option { return t.opt }

// State reports the current lifecycle state.
func (t *Timer) State() State { return State(t.state.Load()) }

// Done is closed once the timer goroutine has finished.
func (t *Timer) Done() <-chan struct{} { return t.done }

func (t *Timer) run(ctx context.Context) {
	defer close(t.done)

	openAt := t.opt.OpenedAt.Add(pendingFor)

	// Check immediately: the timer may be armed after the expiry timestamp
	// already passed (resumed session) and must still fire exactly once.
	if t.tick(time.Now(), openAt) {
		return
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if t.tick(now, openAt) {
				return
			}
		}
	}
}

// tick advances the state machine; it returns true once the option expired.
// The expiry callback is guarded so it runs once no matter how often the
// tick function itself runs.
func (t *Timer) tick(now, openAt time.Time) bool {
	if !now.Before(t.opt.ExpiresAt) {
		if t.fired.CompareAndSwap(false, true) {
			t.state.Store(int32(StateExpired))
			t.onExpire(t.opt)
		}
		return true
	}
	if State(t.state.Load()) == StatePending && now.After(openAt) {
		t.state.Store(int32(StateOpen))
	}
	return false
}

// Package option models a single binary trade from placement to settlement.
package option

import (
	"time"

	"github.com/google/uuid"
)

// Direction is the price prediction attached to an option.
type Direction string

const (
	DirectionBuy  Direction = "buy"  // price will rise
	DirectionSell Direction = "sell" // price will fall
)

// AccountType selects which of the two balances an option trades against.
type AccountType string

const (
	AccountDemo AccountType = "demo"
	AccountReal AccountType = "real"
)

// Outcome of a settled option. Exact price equality is always a loss.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
)

// Timeframes lists the selectable option durations.
var Timeframes = []time.Duration{
	time.Minute,
	5 * time.Minute,
	10 * time.Minute,
	15 * time.Minute,
	30 * time.Minute,
	24 * time.Hour,
}

// ValidTimeframe reports whether d is one of the selectable durations.
func ValidTimeframe(d time.Duration) bool {
	for _, tf := range Timeframes {
		if d == tf {
			return true
		}
	}
	return false
}

// Option is a placed, not-yet-settled trade.
type Option struct {
	ID        string
	RemoteID  string // authoritative id assigned by the order service
	Account   AccountType
	Symbol    string
	Direction Direction
	Stake     float64
	OpenPrice float64
	OpenedAt  time.Time
	Timeframe time.Duration
	ExpiresAt time.Time
}

// New builds an option. The expiry timestamp is computed once, here, and is
// never recomputed afterwards.
func New(acct AccountType, symbol string, dir Direction, stake, openPrice float64, timeframe time.Duration, openedAt time.Time) Option {
	return Option{
		ID:        uuid.NewString(),
		Account:   acct,
		Symbol:    symbol,
		Direction: dir,
		Stake:     stake,
		OpenPrice: openPrice,
		OpenedAt:  openedAt,
		Timeframe: timeframe,
		ExpiresAt: openedAt.Add(timeframe),
	}
}

// Remaining reports time left until expiry, clamped at zero so a late
// observer never sees a negative countdown.
func (o Option) Remaining(now time.Time) time.Duration {
	if r := o.ExpiresAt.Sub(now); r > 0 {
		return r
	}
	return 0
}

// Progress is remaining/total clamped to [0,1]. It divides by the original
// timeframe, not the remaining duration, so an irregular tick cadence cannot
// drift the ratio.
func (o Option) Progress(now time.Time) float64 {
	if o.Timeframe <= 0 {
		return 0
	}
	p := float64(o.Remaining(now)) / float64(o.Timeframe)
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return p
}

// Result is the immutable settlement record that replaces an option.
type Result struct {
	ID         string
	Account    AccountType
	Symbol     string
	Direction  Direction
	Stake      float64
	Timeframe  time.Duration
	OpenedAt   time.Time
	ExpiresAt  time.Time
	OpenPrice  float64
	ClosePrice float64
	Outcome    Outcome
	Profit     float64
	SettledAt  time.Time
}

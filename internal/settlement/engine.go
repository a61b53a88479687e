// Package settlement converts expired options into settled results, exactly
// once each, and drives balance reconciliation afterwards.
package settlement

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"options-core/internal/account"
	"options-core/internal/events"
	"options-core/internal/notify"
	"options-core/internal/option"
	"options-core/pkg/platform"
)

// PayoutRatio is the fixed fraction of the stake paid as profit on a win.
// A loss forfeits the full stake.
const PayoutRatio = 0.9

// pricePrecision is the decimal precision prices are normalized to before
// the win/loss comparison.
const pricePrecision = 4

// PriceSource resolves a close price; market.Feed satisfies it. The source
// must always return a finite value, never an error.
type PriceSource interface {
	Price(symbol string) float64
}

// OutcomeWriter records the settlement on the remote order service.
type OutcomeWriter interface {
	PatchOutcome(ctx context.Context, id string, req platform.OutcomeRequest) error
}

// Resyncer requests an authoritative balance resync.
type Resyncer interface {
	Trigger()
}

// Journal persists settled results locally; failures are non-fatal.
type Journal interface {
	SaveResult(ctx context.Context, res option.Result) error
}

// Engine settles expired options. Resync, Journal, Bus and Notifier are
// optional; the rest are required.
type Engine struct {
	Feed     PriceSource
	Platform OutcomeWriter
	Store    *account.Store
	Resync   Resyncer
	Journal  Journal
	Bus      *events.Bus
	Notifier notify.Notifier
}

// Settle resolves an expired option: prices it, applies the win rule, pushes
// the outcome upstream and finalizes it locally. The option always leaves
// the active set, even when outcome persistence fails, so a remote outage
// cannot strand a "zombie" active option; the next resync restores balance
// consistency.
func (e *Engine) Settle(ctx context.Context, opt option.Option) option.Result {
	closePrice := e.Feed.Price(opt.Symbol)

	open := Normalize(opt.OpenPrice)
	clos := Normalize(closePrice)

	outcome := option.OutcomeLoss
	switch opt.Direction {
	case option.DirectionBuy:
		if clos > open {
			outcome = option.OutcomeWin
		}
	case option.DirectionSell:
		if clos < open {
			outcome = option.OutcomeWin
		}
	}

	var profit float64
	if outcome == option.OutcomeWin {
		profit = opt.Stake * PayoutRatio
		e.Store.Credit(opt.Account, opt.Stake+profit)
	}

	res := option.Result{
		ID:         opt.ID,
		Account:    opt.Account,
		Symbol:     opt.Symbol,
		Direction:  opt.Direction,
		Stake:      opt.Stake,
		Timeframe:  opt.Timeframe,
		OpenedAt:   opt.OpenedAt,
		ExpiresAt:  opt.ExpiresAt,
		OpenPrice:  open,
		ClosePrice: clos,
		Outcome:    outcome,
		Profit:     profit,
		SettledAt:  time.Now(),
	}

	remoteID := opt.RemoteID
	if remoteID == "" {
		remoteID = opt.ID
	}
	err := e.Platform.PatchOutcome(ctx, remoteID, platform.OutcomeRequest{
		AccountType: string(opt.Account),
		ClosePrice:  clos,
		Result:      string(outcome),
	})
	if err != nil {
		// Not retried: log, tell the user, and let the next resync repair
		// any balance drift.
		log.Printf("settlement: persist outcome for order %s: %v", remoteID, err)
		if e.Notifier != nil {
			e.Notifier.Error("Could not record your trade result. Your balance will update shortly.")
		}
	} else if e.Resync != nil {
		e.Resync.Trigger()
	}

	e.Store.Finalize(res)

	if e.Journal != nil {
		if jerr := e.Journal.SaveResult(ctx, res); jerr != nil {
			log.Printf("settlement: journal result %s: %v", res.ID, jerr)
		}
	}
	if e.Bus != nil {
		e.Bus.Publish(events.EventOptionSettled, res)
	}
	e.notifyOutcome(res)

	return res
}

func (e *Engine) notifyOutcome(res option.Result) {
	if e.Notifier == nil {
		return
	}
	if res.Outcome == option.OutcomeWin {
		e.Notifier.Success(fmt.Sprintf("%s trade won: +%.2f", res.Symbol, res.Profit))
		return
	}
	e.Notifier.Info(fmt.Sprintf("%s trade lost: -%.2f", res.Symbol, res.Stake))
}

// Normalize rounds a price to the settlement precision so floating-point
// noise cannot flip a near-tied comparison.
func Normalize(p float64) float64 {
	shift := math.Pow10(pricePrecision)
	return math.Round(p*shift) / shift
}

// Package trading implements the order placement flow: validation, the
// in-flight guard, optimistic state, remote submission and timer arming.
package trading

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"options-core/internal/account"
	"options-core/internal/events"
	"options-core/internal/notify"
	"options-core/internal/option"
	"options-core/internal/settlement"
	"options-core/pkg/platform"
)

var (
	// ErrOrderInFlight rejects a second placement while one is still being
	// submitted; it fires before any balance check or network call.
	ErrOrderInFlight = errors.New("another order is still being placed")

	ErrStakeTooSmall = errors.New("stake below minimum")
	ErrBadDirection  = errors.New("direction must be buy or sell")
	ErrBadTimeframe  = errors.New("unsupported timeframe")
	ErrNoSymbol      = errors.New("asset symbol is required")
)

const minStake = 1

// OrderAPI submits new orders to the remote order service.
type OrderAPI interface {
	CreateOrder(ctx context.Context, req platform.CreateOrderRequest) (string, error)
}

// PriceSource captures the entry price at placement.
type PriceSource interface {
	Price(symbol string) float64
}

// Journal persists placed options locally; failures are non-fatal.
type Journal interface {
	SaveOption(ctx context.Context, opt option.Option) error
}

// Request carries the user's trade parameters.
type Request struct {
	Symbol    string
	Direction option.Direction
	Stake     float64
	Timeframe time.Duration
}

// Placer validates and submits orders, arming each placed option's expiry
// timer. Journal, Bus and Notifier are optional.
type Placer struct {
	Feed     PriceSource
	Store    *account.Store
	Platform OrderAPI
	Engine   *settlement.Engine
	Journal  Journal
	Bus      *events.Bus
	Notifier notify.Notifier

	// timerCtx is the process context timers run on, so a settlement
	// outlives the request (and the screen) that placed the order.
	timerCtx context.Context

	inFlight atomic.Bool
}

// NewPlacer builds a placer whose option timers run on ctx.
func NewPlacer(ctx context.Context, feed PriceSource, store *account.Store, api OrderAPI, engine *settlement.Engine) *Placer {
	return &Placer{
		Feed:     feed,
		Store:    store,
		Platform: api,
		Engine:   engine,
		timerCtx: ctx,
	}
}

// Place runs the full order flow. Exactly one order can be in flight at a
// time; the guard is released on every path.
func (p *Placer) Place(ctx context.Context, req Request) (option.Option, error) {
	if !p.inFlight.CompareAndSwap(false, true) {
		return option.Option{}, ErrOrderInFlight
	}
	defer p.inFlight.Store(false)

	if err := validate(req); err != nil {
		p.notifyError(err.Error())
		return option.Option{}, err
	}

	acct := p.Store.Selected()
	if err := p.Store.Reserve(acct, req.Stake); err != nil {
		p.notifyError(err.Error())
		return option.Option{}, err
	}

	entry := p.Feed.Price(req.Symbol)
	opt := option.New(acct, req.Symbol, req.Direction, req.Stake, entry, req.Timeframe, time.Now())
	p.Store.AddActive(opt)

	remoteID, err := p.Platform.CreateOrder(ctx, platform.CreateOrderRequest{
		AccountType: string(acct),
		Asset:       opt.Symbol,
		Direction:   string(opt.Direction),
		OpenPrice:   opt.OpenPrice,
		Stake:       opt.Stake,
		Timeframe:   int64(opt.Timeframe / time.Second),
		Status:      "executed",
		Outcome:     "pending",
	})
	if err != nil {
		// Roll back the optimistic add and the reserved stake.
		p.Store.RemoveActive(opt.ID)
		p.Store.Refund(acct, req.Stake)
		log.Printf("trading: create order: %v", err)
		if p.Bus != nil {
			p.Bus.Publish(events.EventOrderRejected, err.Error())
		}
		p.notifyError("Order could not be placed. Please try again.")
		return option.Option{}, fmt.Errorf("create order: %w", err)
	}

	opt.RemoteID = remoteID
	p.Store.SetRemoteID(opt.ID, remoteID)

	if p.Journal != nil {
		if jerr := p.Journal.SaveOption(ctx, opt); jerr != nil {
			log.Printf("trading: journal option %s: %v", opt.ID, jerr)
		}
	}

	timer := option.NewTimer(opt, func(expired option.Option) {
		p.Engine.Settle(p.timerCtx, expired)
	})
	timer.Start(p.timerCtx)

	if p.Bus != nil {
		p.Bus.Publish(events.EventOptionOpened, opt)
	}
	if p.Notifier != nil {
		p.Notifier.Success(fmt.Sprintf("Order placed: %s %s, stake %.2f", opt.Symbol, opt.Direction, opt.Stake))
	}
	return opt, nil
}

func validate(req Request) error {
	if req.Symbol == "" {
		return ErrNoSymbol
	}
	if req.Direction != option.DirectionBuy && req.Direction != option.DirectionSell {
		return fmt.Errorf("%w: %q", ErrBadDirection, req.Direction)
	}
	if req.Stake < minStake {
		return fmt.Errorf("%w: minimum is %d", ErrStakeTooSmall, minStake)
	}
	if !option.ValidTimeframe(req.Timeframe) {
		return fmt.Errorf("%w: %s", ErrBadTimeframe, req.Timeframe)
	}
	return nil
}

func (p *Placer) notifyError(msg string) {
	if p.Notifier != nil {
		p.Notifier.Error(msg)
	}
}

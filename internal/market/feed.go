// Package market multiplexes live prices to any number of subscribers,
// sharing one upstream connection per symbol. The websocket stream is the
// primary source; when reconnect attempts are exhausted the symbol degrades
// permanently to REST polling, and when even the one-shot quote fails a
// simulated price stands in so settlement can always proceed.
package market

import (
	"context"
	"log"
	"math"
	"math/rand"
	"sync"
	"time"

	"options-core/internal/events"
	binance "options-core/pkg/market/binance"
)

// PriceAPI is the one-shot quote source.
type PriceAPI interface {
	GetPrice(symbol string) (float64, error)
}

// TickerStream is the push-based quote source.
type TickerStream interface {
	SubscribeTicker(ctx context.Context, symbol string) (<-chan binance.Ticker, func(), error)
}

// jitterBand bounds the simulated quote around the symbol's base price.
const jitterBand = 0.01

// Config tunes feed behavior.
type Config struct {
	MinDelta      float64            // suppress deliveries whose relative change is below this
	PollInterval  time.Duration      // fallback poll cadence
	MaxReconnects int                // stream attempts before degrading to poll
	BackoffBase   time.Duration      // first reconnect delay, doubled per attempt
	BasePrices    map[string]float64 // per-symbol base for simulated quotes
}

func (c *Config) defaults() {
	if c.MinDelta <= 0 {
		c.MinDelta = 0.0001
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.MaxReconnects <= 0 {
		c.MaxReconnects = 5
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 500 * time.Millisecond
	}
}

// Feed is the price-feed service. Construct one per trading session; Close
// releases every connection it owns.
type Feed struct {
	api    PriceAPI
	stream TickerStream
	bus    *events.Bus
	cfg    Config

	mu     sync.Mutex
	subs   map[string]*symbolSub
	prices map[string]float64 // last-write-wins cache
	closed bool
}

// symbolSub tracks the subscriber set and upstream lifecycle for one symbol.
type symbolSub struct {
	callbacks map[int]func(price float64)
	nextID    int
	cancel    context.CancelFunc
	last      float64 // last delivered price, for delta suppression
	hasLast   bool
}

// NewFeed builds a feed over the given quote sources. bus may be nil.
func NewFeed(api PriceAPI, stream TickerStream, bus *events.Bus, cfg Config) *Feed {
	cfg.defaults()
	return &Feed{
		api:    api,
		stream: stream,
		bus:    bus,
		cfg:    cfg,
		subs:   make(map[string]*symbolSub),
		prices: make(map[string]float64),
	}
}

// Subscribe registers fn for symbol ticks and returns an idempotent
// unsubscribe function. The first subscriber for a symbol opens the upstream
// connection; the last one to leave tears it down.
func (f *Feed) Subscribe(symbol string, fn func(price float64)) (unsub func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return func() {}
	}

	ss := f.subs[symbol]
	if ss == nil {
		ctx, cancel := context.WithCancel(context.Background())
		ss = &symbolSub{
			callbacks: make(map[int]func(float64)),
			cancel:    cancel,
		}
		f.subs[symbol] = ss
		go f.run(ctx, symbol)
	}

	id := ss.nextID
	ss.nextID++
	ss.callbacks[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if f.subs[symbol] != ss {
				// Symbol was already torn down (or replaced) elsewhere.
				return
			}
			delete(ss.callbacks, id)
			if len(ss.callbacks) == 0 {
				ss.cancel()
				delete(f.subs, symbol)
			}
		})
	}
}

// Price returns the latest known price for symbol: cache first, then a
// one-shot fetch, then a simulated quote. It never fails; settlement must
// always be able to price an option.
func (f *Feed) Price(symbol string) float64 {
	f.mu.Lock()
	cached, ok := f.prices[symbol]
	f.mu.Unlock()
	if ok && cached > 0 {
		return cached
	}

	price, err := f.api.GetPrice(symbol)
	if err != nil || price <= 0 {
		if err != nil {
			log.Printf("feed: %s one-shot quote error: %v", symbol, err)
		}
		price = f.simulated(symbol)
	}

	f.mu.Lock()
	f.prices[symbol] = price
	f.mu.Unlock()
	return price
}

// Prices returns a snapshot of the last-known price per symbol.
func (f *Feed) Prices() map[string]float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]float64, len(f.prices))
	for sym, p := range f.prices {
		out[sym] = p
	}
	return out
}

// Close tears down every symbol connection and drops all subscriber state.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for sym, ss := range f.subs {
		ss.cancel()
		delete(f.subs, sym)
	}
}

// run owns the single upstream source for a symbol: stream mode first, then
// a permanent poll fallback once reconnect attempts are exhausted. Exactly
// one mode is live at any moment, and both self-terminate once the
// subscriber set is empty.
func (f *Feed) run(ctx context.Context, symbol string) {
	attempts := 0
	delay := f.cfg.BackoffBase

	for {
		if ctx.Err() != nil || !f.hasSubscribers(symbol) {
			return
		}

		ch, stop, err := f.stream.SubscribeTicker(ctx, symbol)
		if err == nil {
			attempts = 0
			delay = f.cfg.BackoffBase
			f.consume(ctx, symbol, ch, stop)
			if ctx.Err() != nil {
				return
			}
			log.Printf("feed: %s stream closed, reconnecting", symbol)
		} else {
			log.Printf("feed: %s stream dial error: %v", symbol, err)
		}

		attempts++
		if attempts >= f.cfg.MaxReconnects {
			log.Printf("feed: %s reconnect attempts exhausted, degrading to poll every %v", symbol, f.cfg.PollInterval)
			f.poll(ctx, symbol)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
	}
}

// consume drains a live stream until it closes or the context ends.
func (f *Feed) consume(ctx context.Context, symbol string, ch <-chan binance.Ticker, stop func()) {
	defer stop()
	for {
		select {
		case <-ctx.Done():
			return
		case tk, ok := <-ch:
			if !ok {
				return
			}
			if tk.Price > 0 {
				f.deliver(symbol, tk.Price)
			}
		}
	}
}

// poll is the terminal fallback mode. Errors never escalate further: a
// failed fetch delivers a simulated quote instead.
func (f *Feed) poll(ctx context.Context, symbol string) {
	ticker := time.NewTicker(f.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !f.hasSubscribers(symbol) {
				return
			}
			price, err := f.api.GetPrice(symbol)
			if err != nil || price <= 0 {
				if err != nil {
					log.Printf("feed: %s poll error: %v", symbol, err)
				}
				price = f.simulated(symbol)
			}
			f.deliver(symbol, price)
		}
	}
}

// deliver caches the price and fans it out. Moves smaller than MinDelta are
// cached but not delivered, trading a little staleness for less UI churn.
func (f *Feed) deliver(symbol string, price float64) {
	f.mu.Lock()
	f.prices[symbol] = price

	ss := f.subs[symbol]
	if ss == nil {
		f.mu.Unlock()
		return
	}
	if ss.hasLast && ss.last != 0 {
		if math.Abs(price-ss.last)/math.Abs(ss.last) < f.cfg.MinDelta {
			f.mu.Unlock()
			return
		}
	}
	ss.last = price
	ss.hasLast = true
	fns := make([]func(float64), 0, len(ss.callbacks))
	for _, fn := range ss.callbacks {
		fns = append(fns, fn)
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn(price)
	}
	if f.bus != nil {
		f.bus.Publish(events.EventPriceTick, events.PriceTick{Symbol: symbol, Price: price})
	}
}

func (f *Feed) hasSubscribers(symbol string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	ss := f.subs[symbol]
	return ss != nil && len(ss.callbacks) > 0
}

// simulated derives a plausible quote from the symbol's configured base
// price plus bounded jitter.
func (f *Feed) simulated(symbol string) float64 {
	base := f.cfg.BasePrices[symbol]
	if base <= 0 {
		base = 1.0
	}
	return base * (1 + (rand.Float64()*2-1)*jitterBand)
}

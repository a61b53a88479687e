// Package reconciliation keeps the local balance store aligned with the
// remote account service: periodically, and immediately after every
// settlement via Trigger.
package reconciliation

import (
	"context"
	"log"
	"time"

	"options-core/internal/account"
	"options-core/internal/events"
	"options-core/pkg/platform"
)

// AccountAPI fetches the authoritative account snapshot.
type AccountAPI interface {
	GetAccount(ctx context.Context) (platform.AccountSnapshot, error)
}

// Service performs balance resyncs. The remote snapshot always wins.
type Service struct {
	Platform AccountAPI
	Store    *account.Store
	Bus      *events.Bus
	Interval time.Duration

	kick chan struct{}
}

// NewService creates a resync service. bus may be nil.
func NewService(api AccountAPI, store *account.Store, bus *events.Bus, interval time.Duration) *Service {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Service{
		Platform: api,
		Store:    store,
		Bus:      bus,
		Interval: interval,
		kick:     make(chan struct{}, 1),
	}
}

// Start runs an initial sync and then the periodic loop.
func (s *Service) Start(ctx context.Context) {
	if err := s.Sync(ctx); err != nil {
		log.Printf("reconciliation: initial sync: %v", err)
	}

	ticker := time.NewTicker(s.Interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			case <-s.kick:
			}
			if err := s.Sync(ctx); err != nil {
				log.Printf("reconciliation: sync: %v", err)
			}
		}
	}()

	log.Printf("reconciliation service started (interval: %v)", s.Interval)
}

// Trigger requests an immediate resync; concurrent triggers coalesce.
func (s *Service) Trigger() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Sync overwrites cached balances with the service's authoritative values.
func (s *Service) Sync(ctx context.Context) error {
	snap, err := s.Platform.GetAccount(ctx)
	if err != nil {
		return err
	}
	s.Store.ApplySnapshot(account.Snapshot{
		UserID: snap.UserID,
		Demo:   snap.DemoBalance,
		Real:   snap.RealBalance,
	})
	if s.Bus != nil {
		s.Bus.Publish(events.EventBalanceSynced, snap)
	}
	return nil
}

// Package account caches the user's balances, active options and settled
// history in memory. The remote account service stays the source of truth;
// every settlement triggers a resync that overwrites the cached balances.
package account

import (
	"errors"
	"fmt"
	"sync"

	"options-core/internal/option"
)

// ErrInsufficientFunds is returned when a stake exceeds the cached balance.
var ErrInsufficientFunds = errors.New("insufficient balance")

// Snapshot is the authoritative balance view from the account service.
type Snapshot struct {
	UserID string
	Demo   float64
	Real   float64
}

const defaultHistoryCap = 50

// Store holds the per-user trading state.
type Store struct {
	mu       sync.RWMutex
	userID   string
	demo     float64
	real     float64
	selected option.AccountType
	active   map[string]option.Option
	history  []option.Result // most-recent-first, bounded
	capacity int
}

// NewStore creates a store with the demo account selected.
func NewStore(historyCap int) *Store {
	if historyCap <= 0 {
		historyCap = defaultHistoryCap
	}
	return &Store{
		selected: option.AccountDemo,
		active:   make(map[string]option.Option),
		capacity: historyCap,
	}
}

// Select switches the active trading account.
func (s *Store) Select(acct option.AccountType) error {
	if acct != option.AccountDemo && acct != option.AccountReal {
		return fmt.Errorf("unknown account type %q", acct)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = acct
	return nil
}

// Selected returns the active trading account.
func (s *Store) Selected() option.AccountType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// UserID returns the id from the last applied snapshot.
func (s *Store) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// Balance returns the cached balance of acct.
func (s *Store) Balance(acct option.AccountType) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balanceLocked(acct)
}

// SelectedBalance returns the active account and its cached balance.
func (s *Store) SelectedBalance() (option.AccountType, float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected, s.balanceLocked(s.selected)
}

func (s *Store) balanceLocked(acct option.AccountType) float64 {
	if acct == option.AccountReal {
		return s.real
	}
	return s.demo
}

func (s *Store) addLocked(acct option.AccountType, delta float64) {
	if acct == option.AccountReal {
		s.real += delta
		return
	}
	s.demo += delta
}

// Reserve debits the stake from acct at placement time. The check and the
// debit happen under one lock so two placements cannot jointly overdraw.
func (s *Store) Reserve(acct option.AccountType, amount float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bal := s.balanceLocked(acct)
	if amount > bal {
		return fmt.Errorf("%w: stake %.2f exceeds %s balance %.2f", ErrInsufficientFunds, amount, acct, bal)
	}
	s.addLocked(acct, -amount)
	return nil
}

// Refund returns a reserved stake after a failed submission.
func (s *Store) Refund(acct option.AccountType, amount float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLocked(acct, amount)
}

// Credit adds stake+profit to acct at settlement of a winning option.
func (s *Store) Credit(acct option.AccountType, amount float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLocked(acct, amount)
}

// ApplySnapshot overwrites the cached balances with authoritative values.
func (s *Store) ApplySnapshot(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = snap.UserID
	s.demo = snap.Demo
	s.real = snap.Real
}

// AddActive registers a freshly placed option.
func (s *Store) AddActive(o option.Option) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[o.ID] = o
}

// SetRemoteID records the authoritative order id on an active option.
func (s *Store) SetRemoteID(id, remoteID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.active[id]; ok {
		o.RemoteID = remoteID
		s.active[id] = o
	}
}

// RemoveActive deletes an option from the active set, returning it.
func (s *Store) RemoveActive(id string) (option.Option, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.active[id]
	if ok {
		delete(s.active, id)
	}
	return o, ok
}

// Active returns a snapshot of the active options.
func (s *Store) Active() []option.Option {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]option.Option, 0, len(s.active))
	for _, o := range s.active {
		out = append(out, o)
	}
	return out
}

// ActiveCount reports how many options are currently open.
func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.active)
}

// Finalize removes the settled option from the active set and prepends its
// result to the bounded history list.
func (s *Store) Finalize(res option.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, res.ID)
	s.history = append([]option.Result{res}, s.history...)
	if len(s.history) > s.capacity {
		s.history = s.history[:s.capacity]
	}
}

// History returns a copy of the settled-option list, most recent first.
func (s *Store) History() []option.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]option.Result, len(s.history))
	copy(out, s.history)
	return out
}

// SeedHistory replaces the history list, e.g. from the local journal at
// startup. Results must already be most-recent-first.
func (s *Store) SeedHistory(results []option.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(results) > s.capacity {
		results = results[:s.capacity]
	}
	s.history = make([]option.Result, len(results))
	copy(s.history, results)
}

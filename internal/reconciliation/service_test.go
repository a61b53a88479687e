package reconciliation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"options-core/internal/account"
	"options-core/internal/option"
	"options-core/pkg/platform"
)

type fakeAccounts struct {
	mu    sync.Mutex
	snap  platform.AccountSnapshot
	err   error
	calls int
}

func (f *fakeAccounts) GetAccount(context.Context) (platform.AccountSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.snap, f.err
}

func (f *fakeAccounts) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestSyncAppliesSnapshot(t *testing.T) {
	api := &fakeAccounts{snap: platform.AccountSnapshot{UserID: "u1", DemoBalance: 500, RealBalance: 75}}
	store := account.NewStore(10)
	s := NewService(api, store, nil, time.Minute)

	if err := s.Sync(context.Background()); err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if got := store.Balance(option.AccountDemo); got != 500 {
		t.Fatalf("demo balance=%v, expected 500", got)
	}
	if got := store.Balance(option.AccountReal); got != 75 {
		t.Fatalf("real balance=%v, expected 75", got)
	}
	if store.UserID() != "u1" {
		t.Fatalf("userID=%q, expected u1", store.UserID())
	}
}

func TestSyncErrorLeavesStoreUntouched(t *testing.T) {
	api := &fakeAccounts{err: errors.New("account service down")}
	store := account.NewStore(10)
	store.ApplySnapshot(account.Snapshot{Demo: 123})
	s := NewService(api, store, nil, time.Minute)

	if err := s.Sync(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if got := store.Balance(option.AccountDemo); got != 123 {
		t.Fatalf("demo balance=%v after failed sync, expected 123", got)
	}
}

func TestTriggerCausesResync(t *testing.T) {
	api := &fakeAccounts{snap: platform.AccountSnapshot{DemoBalance: 1}}
	store := account.NewStore(10)
	s := NewService(api, store, nil, time.Hour) // ticker too slow to matter

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx) // performs the initial sync

	base := api.callCount()
	s.Trigger()

	deadline := time.Now().Add(time.Second)
	for api.callCount() <= base && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if api.callCount() <= base {
		t.Fatal("Trigger did not cause a resync")
	}
}

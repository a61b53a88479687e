package option

import (
	"testing"
	"time"
)

func TestNewComputesExpiryOnce(t *testing.T) {
	opened := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	o := New(AccountDemo, "XRPUSDT", DirectionBuy, 10, 2.1, time.Minute, opened)

	if o.ID == "" {
		t.Fatal("expected generated id")
	}
	if !o.ExpiresAt.Equal(opened.Add(time.Minute)) {
		t.Fatalf("ExpiresAt=%v, expected %v", o.ExpiresAt, opened.Add(time.Minute))
	}
	if o.ExpiresAt.Before(o.OpenedAt) || o.ExpiresAt.Equal(o.OpenedAt) {
		t.Fatal("expiry must be after entry")
	}
}

func TestRemainingClampsAtZero(t *testing.T) {
	opened := time.Now().Add(-2 * time.Minute)
	o := New(AccountDemo, "BTCUSDT", DirectionSell, 5, 50000, time.Minute, opened)

	if r := o.Remaining(time.Now()); r != 0 {
		t.Fatalf("Remaining=%v after expiry, expected 0", r)
	}
}

func TestProgress(t *testing.T) {
	opened := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	o := New(AccountDemo, "BTCUSDT", DirectionBuy, 5, 50000, time.Minute, opened)

	tests := []struct {
		name string
		at   time.Time
		want float64
	}{
		{"at open", opened, 1},
		{"halfway", opened.Add(30 * time.Second), 0.5},
		{"at expiry", opened.Add(time.Minute), 0},
		{"past expiry", opened.Add(5 * time.Minute), 0},
		{"before open", opened.Add(-time.Second), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := o.Progress(tt.at); got != tt.want {
				t.Fatalf("Progress=%v, expected %v", got, tt.want)
			}
		})
	}
}

func TestValidTimeframe(t *testing.T) {
	for _, tf := range Timeframes {
		if !ValidTimeframe(tf) {
			t.Fatalf("timeframe %v should be valid", tf)
		}
	}
	for _, tf := range []time.Duration{0, time.Second, 2 * time.Minute, -time.Minute} {
		if ValidTimeframe(tf) {
			t.Fatalf("timeframe %v should be invalid", tf)
		}
	}
}

package db

import (
	"context"
	"fmt"
	"time"

	"options-core/internal/option"
)

// SaveOption records a freshly placed option.
func (d *Database) SaveOption(ctx context.Context, o option.Option) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO options
			(id, remote_id, account, symbol, direction, stake, open_price, timeframe_sec, opened_at, expires_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'active')
		ON CONFLICT(id) DO UPDATE SET remote_id = excluded.remote_id`,
		o.ID, o.RemoteID, string(o.Account), o.Symbol, string(o.Direction),
		o.Stake, o.OpenPrice, int64(o.Timeframe/time.Second), o.OpenedAt.UTC(), o.ExpiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save option: %w", err)
	}
	return nil
}

// SaveResult records a settlement outcome and marks the option settled.
func (d *Database) SaveResult(ctx context.Context, r option.Result) error {
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save result: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO results
			(id, account, symbol, direction, stake, timeframe_sec, opened_at, expires_at,
			 open_price, close_price, outcome, profit, settled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		r.ID, string(r.Account), r.Symbol, string(r.Direction), r.Stake,
		int64(r.Timeframe/time.Second), r.OpenedAt.UTC(), r.ExpiresAt.UTC(),
		r.OpenPrice, r.ClosePrice, string(r.Outcome), r.Profit, r.SettledAt.UTC(),
	); err != nil {
		return fmt.Errorf("save result: insert: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE options SET status = 'settled' WHERE id = ?`, r.ID); err != nil {
		return fmt.Errorf("save result: mark settled: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save result: commit: %w", err)
	}
	return nil
}

// RecentResults returns up to limit settled results, most recent first.
// Used to seed the in-memory history on startup.
func (d *Database) RecentResults(ctx context.Context, limit int) ([]option.Result, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, account, symbol, direction, stake, timeframe_sec, opened_at, expires_at,
		       open_price, close_price, outcome, profit, settled_at
		FROM results
		ORDER BY settled_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent results: %w", err)
	}
	defer rows.Close()

	var out []option.Result
	for rows.Next() {
		var (
			r               option.Result
			acct, dir, outc string
			tfSec           int64
		)
		if err := rows.Scan(&r.ID, &acct, &r.Symbol, &dir, &r.Stake, &tfSec,
			&r.OpenedAt, &r.ExpiresAt, &r.OpenPrice, &r.ClosePrice, &outc,
			&r.Profit, &r.SettledAt); err != nil {
			return nil, fmt.Errorf("recent results: scan: %w", err)
		}
		r.Account = option.AccountType(acct)
		r.Direction = option.Direction(dir)
		r.Outcome = option.Outcome(outc)
		r.Timeframe = time.Duration(tfSec) * time.Second
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent results: %w", err)
	}
	return out, nil
}

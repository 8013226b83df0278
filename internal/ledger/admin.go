package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Owner-gated administrative operations. Authorization is the caller
// string matching the configured owner; anything deeper (signatures)
// belongs to the surrounding transaction layer.

// SetFee updates the start fee.
func (l *Ledger) SetFee(ctx context.Context, caller string, fee decimal.Decimal) error {
	if caller != l.owner {
		return ErrUnauthorized
	}
	if fee.IsNegative() {
		return errors.New("fee must not be negative")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.db.ExecContext(ctx,
		`UPDATE ledger_config SET value=? WHERE key='fee'`, fee.String()); err != nil {
		return err
	}
	l.publish([]Event{{Type: EventFeeSet, Attributes: map[string]string{
		"fee": fee.String(),
	}}})
	return nil
}

// Balance returns the accumulated, not-yet-withdrawn fee balance.
func (l *Ledger) Balance(ctx context.Context) (decimal.Decimal, error) {
	return l.configDecimal(ctx, l.db, "balance")
}

// Withdraw moves the whole accumulated fee balance to the owner.
func (l *Ledger) Withdraw(ctx context.Context, caller string) (decimal.Decimal, error) {
	if caller != l.owner {
		return decimal.Zero, ErrUnauthorized
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return decimal.Zero, err
	}
	defer tx.Rollback()

	balance, err := l.configDecimal(ctx, tx, "balance")
	if err != nil {
		return decimal.Zero, err
	}
	if balance.IsZero() {
		return decimal.Zero, ErrNothingToWithdraw
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE ledger_config SET value='0' WHERE key='balance'`); err != nil {
		return decimal.Zero, err
	}
	if err := tx.Commit(); err != nil {
		return decimal.Zero, err
	}

	l.publish([]Event{{Type: EventWithdrawn, Attributes: map[string]string{
		"amount": balance.String(),
	}}})
	return balance, nil
}

// CreditToken records accidentally received foreign tokens so the owner
// can sweep them later.
func (l *Ledger) CreditToken(ctx context.Context, token string, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	current, err := l.tokenBalance(ctx, tx, token)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO token_balances(token, amount) VALUES(?, ?)
		 ON CONFLICT(token) DO UPDATE SET amount=excluded.amount`,
		token, current.Add(amount).String()); err != nil {
		return err
	}
	return tx.Commit()
}

// Sweep transfers the full balance of a foreign token to the owner.
func (l *Ledger) Sweep(ctx context.Context, caller, token string) (decimal.Decimal, error) {
	if caller != l.owner {
		return decimal.Zero, ErrUnauthorized
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return decimal.Zero, err
	}
	defer tx.Rollback()

	balance, err := l.tokenBalance(ctx, tx, token)
	if err != nil {
		return decimal.Zero, err
	}
	if balance.IsZero() {
		return decimal.Zero, ErrNothingToWithdraw
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE token_balances SET amount='0' WHERE token=?`, token); err != nil {
		return decimal.Zero, err
	}
	if err := tx.Commit(); err != nil {
		return decimal.Zero, err
	}

	l.publish([]Event{{Type: EventSwept, Attributes: map[string]string{
		"token":  token,
		"amount": balance.String(),
	}}})
	return balance, nil
}

func (l *Ledger) tokenBalance(ctx context.Context, tx *sql.Tx, token string) (decimal.Decimal, error) {
	var raw string
	err := tx.QueryRowContext(ctx,
		`SELECT amount FROM token_balances WHERE token=?`, token).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

// Events returns the recorded event log for one session, oldest first.
func (l *Ledger) Events(ctx context.Context, sessionID int64) ([]Event, []time.Time, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT type, attributes, created_at FROM ledger_events WHERE session_id=? ORDER BY id`,
		sessionID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var events []Event
	var stamps []time.Time
	for rows.Next() {
		var e Event
		var attrs string
		var ts time.Time
		if err := rows.Scan(&e.Type, &attrs, &ts); err != nil {
			return nil, nil, err
		}
		e.Attributes = parseAttrs(attrs)
		events = append(events, e)
		stamps = append(stamps, ts)
	}
	return events, stamps, rows.Err()
}

// Package ledger implements the session ledger: one play-through record
// per session, at most one Active session per player, strictly
// increasing game ids, fee collection with automatic excess refund, and
// paginated per-player history. Calls are serialized through a single
// write transaction, mirroring a chain's natural execution order.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// Status is the lifecycle stage of a session.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

// Session is one play-through record.
type Session struct {
	ID         int64           `json:"id"`
	Player     string          `json:"player"`
	Game       string          `json:"game"`
	Seed       uint32          `json:"seed"`
	Payload    []byte          `json:"payload,omitempty"`
	FeePaid    decimal.Decimal `json:"fee_paid"`
	Refund     decimal.Decimal `json:"refund"`
	StartedAt  time.Time       `json:"started_at"`
	EndedAt    *time.Time      `json:"ended_at,omitempty"`
	FinalScore *int64          `json:"final_score,omitempty"`
	Moves      []byte          `json:"moves,omitempty"`
	Status     Status          `json:"status"`
}

// Page is one slice of a player's history, most recent first.
type Page struct {
	Sessions []Session `json:"sessions"`
	Total    int       `json:"total"`
	Limit    int       `json:"limit"`
	Offset   int       `json:"offset"`
}

// Config carries the ledger's construction parameters.
type Config struct {
	Owner    string          // account allowed to run admin operations
	StartFee decimal.Decimal // fee required by Start
}

// Ledger is the sqlite-backed session store.
type Ledger struct {
	db      *sql.DB
	owner   string
	emitter Emitter

	// One writer at a time: the abandon-then-create sequence inside
	// Start must never interleave with another call for the same player.
	mu sync.Mutex
}

// Open opens or creates the ledger database at path and runs
// migrations. The configured start fee is only written on first open;
// later fee changes go through SetFee.
func Open(path string, cfg Config, emitter Emitter) (*Ledger, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite is not concurrent for writes

	l := &Ledger{db: db, owner: cfg.Owner, emitter: emitter}
	if err := l.migrate(context.Background(), cfg.StartFee); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

func (l *Ledger) Close() error { return l.db.Close() }

func (l *Ledger) migrate(ctx context.Context, startFee decimal.Decimal) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			player TEXT NOT NULL,
			game TEXT NOT NULL,
			seed INTEGER NOT NULL,
			payload BLOB NOT NULL,
			fee_paid TEXT NOT NULL,
			refund TEXT NOT NULL DEFAULT '0',
			started_at TIMESTAMP NOT NULL,
			ended_at TIMESTAMP,
			final_score INTEGER,
			moves BLOB,
			status TEXT NOT NULL CHECK(status IN ('active','completed','abandoned'))
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_player ON sessions(player, id DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_player_status ON sessions(player, status);`,

		`CREATE TABLE IF NOT EXISTS ledger_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id INTEGER,
			type TEXT NOT NULL,
			attributes TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS ledger_config (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,

		// Accidentally received foreign tokens, sweepable by the owner.
		`CREATE TABLE IF NOT EXISTS token_balances (
			token TEXT PRIMARY KEY,
			amount TEXT NOT NULL
		);`,
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			tx.Rollback()
			return err
		}
	}
	seedCfg := []struct{ key, value string }{
		{"fee", startFee.String()},
		{"balance", "0"},
	}
	for _, kv := range seedCfg {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ledger_config(key, value) VALUES(?, ?) ON CONFLICT(key) DO NOTHING`,
			kv.key, kv.value); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Fee returns the currently configured start fee.
func (l *Ledger) Fee(ctx context.Context) (decimal.Decimal, error) {
	return l.configDecimal(ctx, l.db, "fee")
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (l *Ledger) configDecimal(ctx context.Context, q queryer, key string) (decimal.Decimal, error) {
	var raw string
	if err := q.QueryRowContext(ctx,
		`SELECT value FROM ledger_config WHERE key=?`, key).Scan(&raw); err != nil {
		return decimal.Zero, fmt.Errorf("read config %q: %w", key, err)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse config %q: %w", key, err)
	}
	return d, nil
}

// Start opens a session for player, abandoning any prior Active session
// in the same call. The paid amount must cover the configured fee; any
// excess is refunded and reported back. Returns the new game id and the
// refund.
func (l *Ledger) Start(ctx context.Context, player, game string, seed uint32, payload []byte, paid decimal.Decimal) (int64, decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, decimal.Zero, err
	}
	defer tx.Rollback()

	fee, err := l.configDecimal(ctx, tx, "fee")
	if err != nil {
		return 0, decimal.Zero, err
	}
	if paid.LessThan(fee) {
		return 0, decimal.Zero, ErrInsufficientFee
	}
	refund := paid.Sub(fee)

	now := time.Now().UTC()
	var events []Event

	// Implicit abandonment: a still-active predecessor ends here.
	var prevID int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM sessions WHERE player=? AND status=?`,
		player, StatusActive).Scan(&prevID)
	switch {
	case err == nil:
		if _, err := tx.ExecContext(ctx,
			`UPDATE sessions SET status=?, ended_at=? WHERE id=?`,
			StatusAbandoned, now, prevID); err != nil {
			return 0, decimal.Zero, err
		}
		abandoned := abandonedEvent(prevID, player)
		// This row belongs to the predecessor's event log, not the
		// session created below.
		if err := l.recordEvents(ctx, tx, prevID, now, []Event{abandoned}); err != nil {
			return 0, decimal.Zero, err
		}
		events = append(events, abandoned)
	case errors.Is(err, sql.ErrNoRows):
		// No active predecessor.
	default:
		return 0, decimal.Zero, err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO sessions(player, game, seed, payload, fee_paid, refund, started_at, status)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		player, game, seed, payload, fee.String(), refund.String(), now, StatusActive)
	if err != nil {
		return 0, decimal.Zero, err
	}
	gameID, err := res.LastInsertId()
	if err != nil {
		return 0, decimal.Zero, err
	}
	started := startedEvent(gameID, player, refund)
	events = append(events, started)

	if err := l.creditBalance(ctx, tx, fee); err != nil {
		return 0, decimal.Zero, err
	}
	if err := l.recordEvents(ctx, tx, gameID, now, []Event{started}); err != nil {
		return 0, decimal.Zero, err
	}
	if err := tx.Commit(); err != nil {
		return 0, decimal.Zero, err
	}

	l.publish(events)
	return gameID, refund, nil
}

// Complete finalizes an Active session with its score and encoded move
// log. Only the session owner may complete it, and only once.
func (l *Ledger) Complete(ctx context.Context, caller string, gameID int64, score int64, moves []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var player string
	var status Status
	err = tx.QueryRowContext(ctx,
		`SELECT player, status FROM sessions WHERE id=?`, gameID).Scan(&player, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrSessionNotFound
	}
	if err != nil {
		return err
	}
	if player != caller {
		return ErrUnauthorized
	}
	if status != StatusActive {
		return ErrNotActive
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET status=?, ended_at=?, final_score=?, moves=? WHERE id=?`,
		StatusCompleted, now, score, moves, gameID); err != nil {
		return err
	}

	events := []Event{completedEvent(gameID, player, score)}
	if err := l.recordEvents(ctx, tx, gameID, now, events); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	l.publish(events)
	return nil
}

// ActiveSession returns the player's current Active session with its
// payload, or nil when the player's latest session has already ended.
func (l *Ledger) ActiveSession(ctx context.Context, player string) (*Session, error) {
	row := l.db.QueryRowContext(ctx,
		sessionColumns+` FROM sessions WHERE player=? AND status=? ORDER BY id DESC LIMIT 1`,
		player, StatusActive)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSession returns session metadata without the payload or move log.
func (l *Ledger) GetSession(ctx context.Context, gameID int64) (Session, error) {
	s, err := l.GetSessionWithPayload(ctx, gameID)
	if err != nil {
		return Session{}, err
	}
	s.Payload = nil
	s.Moves = nil
	return s, nil
}

// GetSessionWithPayload returns the full session record including the
// genesis payload and the stored move bytes.
func (l *Ledger) GetSessionWithPayload(ctx context.Context, gameID int64) (Session, error) {
	row := l.db.QueryRowContext(ctx, sessionColumns+` FROM sessions WHERE id=?`, gameID)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	return s, err
}

// PlayerGames returns every game id the player has started, most recent
// first.
func (l *Ledger) PlayerGames(ctx context.Context, player string) ([]int64, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id FROM sessions WHERE player=? ORDER BY id DESC`, player)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// History returns one page of the player's sessions, most recent first
// by global insertion order. An offset beyond the player's session
// count yields an empty page, never an error.
func (l *Ledger) History(ctx context.Context, player string, limit, offset int) (Page, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE player=?`, player).Scan(&total); err != nil {
		return Page{}, err
	}

	rows, err := l.db.QueryContext(ctx,
		sessionColumns+` FROM sessions WHERE player=? ORDER BY id DESC LIMIT ? OFFSET ?`,
		player, limit, offset)
	if err != nil {
		return Page{}, err
	}
	defer rows.Close()

	page := Page{Sessions: []Session{}, Total: total, Limit: limit, Offset: offset}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return Page{}, err
		}
		s.Payload = nil
		s.Moves = nil
		page.Sessions = append(page.Sessions, s)
	}
	return page, rows.Err()
}

const sessionColumns = `SELECT id, player, game, seed, payload, fee_paid, refund,
	started_at, ended_at, final_score, moves, status`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(r rowScanner) (Session, error) {
	var s Session
	var feeRaw, refundRaw string
	var endedAt sql.NullTime
	var finalScore sql.NullInt64

	err := r.Scan(&s.ID, &s.Player, &s.Game, &s.Seed, &s.Payload, &feeRaw, &refundRaw,
		&s.StartedAt, &endedAt, &finalScore, &s.Moves, &s.Status)
	if err != nil {
		return Session{}, err
	}

	if s.FeePaid, err = decimal.NewFromString(feeRaw); err != nil {
		return Session{}, fmt.Errorf("parse fee: %w", err)
	}
	if s.Refund, err = decimal.NewFromString(refundRaw); err != nil {
		return Session{}, fmt.Errorf("parse refund: %w", err)
	}
	if endedAt.Valid {
		t := endedAt.Time
		s.EndedAt = &t
	}
	if finalScore.Valid {
		v := finalScore.Int64
		s.FinalScore = &v
	}
	return s, nil
}

func (l *Ledger) creditBalance(ctx context.Context, tx *sql.Tx, amount decimal.Decimal) error {
	balance, err := l.configDecimal(ctx, tx, "balance")
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE ledger_config SET value=? WHERE key='balance'`,
		balance.Add(amount).String())
	return err
}

func (l *Ledger) recordEvents(ctx context.Context, tx *sql.Tx, sessionID int64, now time.Time, events []Event) error {
	for _, e := range events {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ledger_events(session_id, type, attributes, created_at) VALUES(?, ?, ?, ?)`,
			sessionID, e.Type, e.attrJSON(), now); err != nil {
			return err
		}
	}
	return nil
}

func (l *Ledger) publish(events []Event) {
	if l.emitter == nil {
		return
	}
	for _, e := range events {
		l.emitter(e)
	}
}

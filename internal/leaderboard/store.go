// Package leaderboard is the side-database score sink. Writes are
// idempotent: retrying a save with the same transaction hash, or the
// same (player, game, game id) triple, reports a duplicate instead of
// erroring, so callers can retry blindly after network failures.
package leaderboard

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// Entry is one persisted score.
type Entry struct {
	ID      uuid.UUID `json:"id"`
	Player  string    `json:"player"`
	Game    string    `json:"game"`
	GameID  int64     `json:"game_id"`
	Score   int64     `json:"score"`
	TxHash  string    `json:"tx_hash"`
	SavedAt time.Time `json:"saved_at"`
}

// SaveResult indicates whether an entry was stored or ignored as a
// duplicate retry.
type SaveResult struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

// Saver is the interface the API layer consumes; the simulation and
// ledger layers never see it.
type Saver interface {
	Save(ctx context.Context, e Entry) (SaveResult, error)
	Top(ctx context.Context, game string, limit int) ([]Entry, error)
}

// Store implements Saver over SQLite.
type Store struct {
	db *sql.DB
}

// New opens/creates the leaderboard database at path and migrates it.
func New(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open leaderboard db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scores (
			id TEXT PRIMARY KEY,
			player TEXT NOT NULL,
			game TEXT NOT NULL,
			game_id INTEGER NOT NULL,
			score INTEGER NOT NULL,
			tx_hash TEXT NOT NULL,
			saved_at TIMESTAMP NOT NULL,
			UNIQUE(tx_hash),
			UNIQUE(player, game, game_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_scores_game_score ON scores(game, score DESC);`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// Save stores a score. Duplicate retries come back accepted=false with
// a reason rather than an error.
func (s *Store) Save(ctx context.Context, e Entry) (SaveResult, error) {
	if e.Player == "" {
		return SaveResult{Reason: "missing player"}, fmt.Errorf("missing player")
	}
	if e.TxHash == "" {
		return SaveResult{Reason: "missing tx hash"}, fmt.Errorf("missing tx_hash")
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scores(id, player, game, game_id, score, tx_hash, saved_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(), e.Player, e.Game, e.GameID, e.Score, e.TxHash, time.Now().UTC())
	if err != nil {
		if isConstraintErr(err) {
			return SaveResult{Accepted: false, Reason: "duplicate"}, nil
		}
		return SaveResult{Reason: "db_error"}, err
	}
	return SaveResult{Accepted: true}, nil
}

// Top returns the best scores for a game, highest first.
func (s *Store) Top(ctx context.Context, game string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 25
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, player, game, game_id, score, tx_hash, saved_at
		 FROM scores WHERE game=? ORDER BY score DESC, saved_at ASC LIMIT ?`,
		game, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var id string
		if err := rows.Scan(&id, &e.Player, &e.Game, &e.GameID, &e.Score, &e.TxHash, &e.SavedAt); err != nil {
			return nil, err
		}
		e.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parse entry id: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func isConstraintErr(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "constraint")
}

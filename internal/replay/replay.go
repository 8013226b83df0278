// Package replay reconstructs full game trajectories from a stored
// session: the seed rebuilds genesis, the decoded move log re-runs the
// rule engine, and every intermediate state falls out identically to
// the original play-through. Seeking never rewinds a generator; any
// backward motion restarts from genesis and replays forward.
package replay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chainarcade/replay-go/internal/codec"
	"github.com/chainarcade/replay-go/internal/games"
	"github.com/chainarcade/replay-go/internal/ledger"
)

// Status is the playback stage.
type Status string

const (
	StatusLoaded   Status = "loaded"
	StatusPlaying  Status = "playing"
	StatusPaused   Status = "paused"
	StatusFinished Status = "finished"
)

var (
	ErrUnknownGame  = errors.New("unknown game id")
	ErrNotCompleted = errors.New("session has no recorded result")
)

// Replayer replays one session. Safe for use from the Play goroutine
// plus one controller goroutine.
type Replayer struct {
	game  games.Game
	seed  uint32
	moves []games.Move

	mu     sync.Mutex
	idx    int
	state  games.State
	status Status
}

// New builds a replayer from raw parts.
func New(game games.Game, seed uint32, moves []games.Move) *Replayer {
	return &Replayer{
		game:   game,
		seed:   seed,
		moves:  moves,
		state:  game.Genesis(seed),
		status: StatusLoaded,
	}
}

// Load builds a replayer for a stored session, decoding its move bytes
// with the game's codec.
func Load(s ledger.Session) (*Replayer, error) {
	game, ok := games.Get(s.Game)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGame, s.Game)
	}
	c, ok := codec.For(s.Game)
	if !ok {
		return nil, fmt.Errorf("%w: no codec for %q", ErrUnknownGame, s.Game)
	}
	return New(game, s.Seed, c.Decode(s.Moves)), nil
}

// State returns the current state.
func (r *Replayer) State() games.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Index returns how many moves have been applied.
func (r *Replayer) Index() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.idx
}

// Status returns the playback stage.
func (r *Replayer) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Len returns the total number of buffered moves.
func (r *Replayer) Len() int { return len(r.moves) }

// Step applies exactly one buffered move. It reports false once the
// buffer is exhausted or the state went terminal, after which the
// replayer is Finished.
func (r *Replayer) Step() (games.State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stepLocked()
}

func (r *Replayer) stepLocked() (games.State, bool) {
	if r.idx >= len(r.moves) || r.game.Terminal(r.state) {
		r.status = StatusFinished
		return r.state, false
	}
	r.state = r.game.Apply(r.state, r.moves[r.idx])
	r.idx++
	if r.idx == len(r.moves) || r.game.Terminal(r.state) {
		r.status = StatusFinished
	}
	return r.state, true
}

// Back moves one step backward by restarting from genesis.
func (r *Replayer) Back() games.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seekLocked(r.idx - 1)
}

// Seek jumps to the state after the first n moves. Out-of-range values
// clamp to [0, len(moves)].
func (r *Replayer) Seek(n int) games.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seekLocked(n)
}

// seekLocked always replays forward from genesis: the generator inside
// the state is forward-only, so there is no cheaper correct path.
func (r *Replayer) seekLocked(n int) games.State {
	if n < 0 {
		n = 0
	}
	if n > len(r.moves) {
		n = len(r.moves)
	}

	state := r.game.Genesis(r.seed)
	for i := 0; i < n; i++ {
		state = r.game.Apply(state, r.moves[i])
	}
	r.state = state
	r.idx = n
	if n == len(r.moves) || r.game.Terminal(state) {
		r.status = StatusFinished
	} else if r.status == StatusFinished {
		r.status = StatusPaused
	}
	return state
}

// Pause suspends an in-flight Play loop.
func (r *Replayer) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == StatusPlaying {
		r.status = StatusPaused
	}
}

// Play auto-steps on a timer, invoking fn after every applied move,
// until the buffer is exhausted, the state goes terminal, Pause is
// called, or ctx is cancelled. fn may be nil.
func (r *Replayer) Play(ctx context.Context, interval time.Duration, fn func(index int, s games.State)) error {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	r.mu.Lock()
	if r.status == StatusFinished {
		r.mu.Unlock()
		return nil
	}
	r.status = StatusPlaying
	r.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Pause()
			return ctx.Err()
		case <-ticker.C:
			r.mu.Lock()
			if r.status != StatusPlaying {
				r.mu.Unlock()
				return nil
			}
			state, ok := r.stepLocked()
			idx := r.idx
			done := r.status == StatusFinished
			r.mu.Unlock()

			if ok && fn != nil {
				fn(idx, state)
			}
			if done {
				return nil
			}
		}
	}
}

// Result is the outcome of verifying one stored session.
type Result struct {
	GameID     int64 `json:"game_id"`
	Stored     int64 `json:"stored_score"`
	Recomputed int64 `json:"recomputed_score"`
	Match      bool  `json:"match"`
	Moves      int   `json:"moves"`
}

// Verify replays a completed session end to end and compares the
// recomputed score against the stored one.
func Verify(s ledger.Session) (Result, error) {
	if s.FinalScore == nil {
		return Result{}, ErrNotCompleted
	}
	r, err := Load(s)
	if err != nil {
		return Result{}, err
	}

	final := r.Seek(r.Len())
	score := r.game.Score(final)
	return Result{
		GameID:     s.ID,
		Stored:     *s.FinalScore,
		Recomputed: score,
		Match:      score == *s.FinalScore,
		Moves:      r.Len(),
	}, nil
}

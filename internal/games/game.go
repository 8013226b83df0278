// Package games contains the five deterministic rule engines. Every
// engine is a pure function family over immutable state values: Genesis
// builds the starting state from a seed, Apply produces a new state from
// (state, move), and illegal moves return the input state untouched
// without consuming generator output or growing the move history.
package games

// Move is a player action understood by exactly one rule engine.
type Move interface {
	move()
}

// Direction is the shared four-way move used by merge2048 and snake.
type Direction uint8

const (
	Up Direction = iota
	Down
	Left
	Right
)

func (Direction) move() {}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return "unknown"
}

// TetrisAction is one tetris input.
type TetrisAction uint8

const (
	TetrisLeft TetrisAction = iota
	TetrisRight
	TetrisRotateCW
	TetrisRotateCCW
	TetrisSoftDrop
	TetrisHardDrop
)

func (TetrisAction) move() {}

// MemoryMove flips one card face up, or (Unflip) turns a failed pair
// back over. Unflip is part of the move log so replays reproduce the
// exact flip sequence.
type MemoryMove struct {
	Card   int
	Unflip bool
}

func (MemoryMove) move() {}

// PuzzleMove relocates one piece by id. From coordinates are carried so
// stale moves recorded against an older layout are rejected.
type PuzzleMove struct {
	Piece   int
	FromRow int
	FromCol int
	ToRow   int
	ToCol   int
}

func (PuzzleMove) move() {}

// State is one immutable point in a game trajectory.
type State interface {
	// Moves returns the full applied-move history, oldest first.
	Moves() []Move
	// RNGState is the generator scalar as of this state. Restoring a
	// generator from it continues the exact stream.
	RNGState() uint32
}

// Spec describes a registered game.
type Spec struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Game is the contract shared by all five rule engines.
type Game interface {
	Spec() Spec

	// Genesis builds the initial state. The number of generator draws it
	// performs is fixed per game.
	Genesis(seed uint32) State

	// Apply returns the successor state, or s unchanged when the move is
	// illegal for this state.
	Apply(s State, m Move) State

	// Terminal reports whether no further move can change s.
	Terminal(s State) bool

	// Score is the current score of s.
	Score(s State) int64

	// GenesisPayload is the opaque session payload stored by the ledger
	// at start time, interpreted only by this game.
	GenesisPayload(seed uint32) []byte
}

var registry = make(map[string]Game)

// Register adds a game to the registry.
func Register(g Game) {
	registry[g.Spec().ID] = g
}

// Get retrieves a game by id.
func Get(id string) (Game, bool) {
	g, ok := registry[id]
	return g, ok
}

// List returns the specs of all registered games.
func List() []Spec {
	specs := make([]Spec, 0, len(registry))
	for _, g := range registry {
		specs = append(specs, g.Spec())
	}
	return specs
}

func init() {
	Register(&Merge2048{})
	Register(&SnakeGame{})
	Register(&TetrisGame{})
	Register(&MemoryGame{})
	Register(&PuzzleGame{})
}

// appendMove extends a history without aliasing the parent state's
// backing array.
func appendMove(history []Move, m Move) []Move {
	next := make([]Move, len(history), len(history)+1)
	copy(next, history)
	return append(next, m)
}

// copyMoves returns a defensive copy for State.Moves implementations.
func copyMoves(history []Move) []Move {
	out := make([]Move, len(history))
	copy(out, history)
	return out
}

// seedPayload is the 4-byte big-endian seed encoding used by games whose
// genesis payload is just the seed itself.
func seedPayload(seed uint32) []byte {
	return []byte{byte(seed >> 24), byte(seed >> 16), byte(seed >> 8), byte(seed)}
}

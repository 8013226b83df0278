package games

import (
	"github.com/chainarcade/replay-go/internal/rng"
)

const (
	puzzleRows   = 3
	puzzleCols   = 3
	puzzlePieces = puzzleRows * puzzleCols
	puzzleLevel  = 1

	puzzleBasePerLevel  = 500
	puzzleTimeAllowance = 180
	puzzleTickBonus     = 5
	puzzleMoveBonus     = 10
)

// PuzzleGame implements the sliding-free placement puzzle: pieces start
// scrambled in a tray below the grid and are moved by id to arbitrary
// cells. The score is computed once, when the last piece lands.
type PuzzleGame struct{}

// PuzzlePiece is one piece with its live and target positions.
type PuzzlePiece struct {
	ID        int  `json:"id"`
	Row       int  `json:"row"`
	Col       int  `json:"col"`
	TargetRow int  `json:"targetRow"`
	TargetCol int  `json:"targetCol"`
	Placed    bool `json:"placed"`
}

// PuzzleState is one puzzle position.
type PuzzleState struct {
	Pieces  []PuzzlePiece `json:"pieces"`
	Level   int           `json:"level"`
	Ticks   int           `json:"ticks"`
	Points  int64         `json:"points"`
	Done    bool          `json:"done"`
	Rng     uint32        `json:"rng"`
	history []Move
}

func (s PuzzleState) Moves() []Move    { return copyMoves(s.history) }
func (s PuzzleState) RNGState() uint32 { return s.Rng }

func (g *PuzzleGame) Spec() Spec {
	return Spec{ID: "puzzle", Name: "Puzzle"}
}

// Genesis scrambles piece order with exactly puzzlePieces-1 draws and
// parks the pieces in the tray rows below the grid.
func (g *PuzzleGame) Genesis(seed uint32) State {
	gen := rng.New(seed)
	order := make([]int, puzzlePieces)
	for i := range order {
		order[i] = i
	}
	gen.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	pieces := make([]PuzzlePiece, puzzlePieces)
	for slot, id := range order {
		pieces[id] = PuzzlePiece{
			ID:        id,
			Row:       puzzleRows + slot/puzzleCols, // tray region
			Col:       slot % puzzleCols,
			TargetRow: id / puzzleCols,
			TargetCol: id % puzzleCols,
		}
	}
	return PuzzleState{Pieces: pieces, Level: puzzleLevel, Rng: gen.State()}
}

// GenesisPayload encodes each piece's scrambled position as a
// (row, col) byte pair in id order.
func (g *PuzzleGame) GenesisPayload(seed uint32) []byte {
	st := g.Genesis(seed).(PuzzleState)
	out := make([]byte, 0, len(st.Pieces)*2)
	for _, p := range st.Pieces {
		out = append(out, byte(p.Row), byte(p.Col))
	}
	return out
}

func (g *PuzzleGame) Apply(s State, m Move) State {
	st, ok := s.(PuzzleState)
	if !ok {
		return s
	}
	mv, ok := m.(PuzzleMove)
	if !ok || st.Done {
		return st
	}
	if mv.Piece < 0 || mv.Piece >= len(st.Pieces) {
		return st
	}

	piece := st.Pieces[mv.Piece]
	// Stale moves recorded against an older layout are rejected.
	if piece.Row != mv.FromRow || piece.Col != mv.FromCol {
		return st
	}
	if mv.ToRow == mv.FromRow && mv.ToCol == mv.FromCol {
		return st
	}
	if mv.ToRow < 0 || mv.ToCol < 0 {
		return st
	}
	for _, other := range st.Pieces {
		if other.ID != piece.ID && other.Row == mv.ToRow && other.Col == mv.ToCol {
			return st
		}
	}

	out := clonePuzzle(st)
	p := &out.Pieces[mv.Piece]
	p.Row, p.Col = mv.ToRow, mv.ToCol
	p.Placed = p.Row == p.TargetRow && p.Col == p.TargetCol
	out.Ticks++
	out.history = appendMove(st.history, m)

	if allPlaced(out.Pieces) {
		out.Done = true
		out.Points = puzzlePoints(out.Level, out.Ticks, len(out.history))
	}
	return out
}

// puzzlePoints is base(level) + time bonus + move-efficiency bonus,
// each component floored at zero.
func puzzlePoints(level, ticks, moves int) int64 {
	base := int64(level) * puzzleBasePerLevel

	timeBonus := int64(puzzleTimeAllowance-ticks) * puzzleTickBonus
	if timeBonus < 0 {
		timeBonus = 0
	}

	moveBonus := int64(puzzlePieces*2-moves) * puzzleMoveBonus
	if moveBonus < 0 {
		moveBonus = 0
	}
	return base + timeBonus + moveBonus
}

func (g *PuzzleGame) Terminal(s State) bool {
	st, ok := s.(PuzzleState)
	if !ok {
		return true
	}
	return st.Done
}

func (g *PuzzleGame) Score(s State) int64 {
	st, ok := s.(PuzzleState)
	if !ok {
		return 0
	}
	return st.Points
}

func allPlaced(pieces []PuzzlePiece) bool {
	for _, p := range pieces {
		if !p.Placed {
			return false
		}
	}
	return true
}

func clonePuzzle(st PuzzleState) PuzzleState {
	pieces := make([]PuzzlePiece, len(st.Pieces))
	copy(pieces, st.Pieces)
	out := st
	out.Pieces = pieces
	return out
}

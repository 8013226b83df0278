package games

import (
	"github.com/chainarcade/replay-go/internal/rng"
)

const (
	tetrisRows = 20
	tetrisCols = 10

	pieceO = 1 // the O piece never rotates
)

// lineScores is indexed by lines cleared in one lock and multiplied by
// the level reached after the clear.
var lineScores = [5]int64{0, 100, 300, 500, 800}

// tetrominoes are the seven base shapes in spawn orientation. Cell
// values are the piece id + 1 so the board remembers which piece filled
// a cell.
var tetrominoes = [7][][]uint8{
	{ // I
		{0, 0, 0, 0},
		{1, 1, 1, 1},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
	},
	{ // O
		{2, 2},
		{2, 2},
	},
	{ // T
		{0, 3, 0},
		{3, 3, 3},
		{0, 0, 0},
	},
	{ // S
		{0, 4, 4},
		{4, 4, 0},
		{0, 0, 0},
	},
	{ // Z
		{5, 5, 0},
		{0, 5, 5},
		{0, 0, 0},
	},
	{ // J
		{6, 0, 0},
		{6, 6, 6},
		{0, 0, 0},
	},
	{ // L
		{0, 0, 7},
		{7, 7, 7},
		{0, 0, 0},
	},
}

// TetrisGame implements a 20x10 tetris with the classic line-clear
// scoring table.
type TetrisGame struct{}

// Piece is the falling tetromino: base shape id, quarter-turn count,
// and the board position of the shape matrix origin.
type Piece struct {
	ID  int `json:"id"`
	Rot int `json:"rot"`
	Row int `json:"row"`
	Col int `json:"col"`
}

// TetrisState is one tetris position. Board cells hold piece id + 1,
// zero for empty.
type TetrisState struct {
	Board   [tetrisRows][tetrisCols]uint8 `json:"board"`
	Active  Piece                         `json:"active"`
	NextID  int                           `json:"nextId"`
	Lines   int                           `json:"lines"`
	Level   int                           `json:"level"`
	Points  int64                         `json:"points"`
	Over    bool                          `json:"over"`
	Rng     uint32                        `json:"rng"`
	history []Move
}

func (s TetrisState) Moves() []Move    { return copyMoves(s.history) }
func (s TetrisState) RNGState() uint32 { return s.Rng }

func (g *TetrisGame) Spec() Spec {
	return Spec{ID: "tetris", Name: "Tetris"}
}

// Genesis draws the first two pieces, consuming exactly two generator
// draws.
func (g *TetrisGame) Genesis(seed uint32) State {
	gen := rng.New(seed)
	first := gen.Intn(7)
	next := gen.Intn(7)
	return TetrisState{
		Active: spawnPiece(first),
		NextID: next,
		Level:  1,
		Rng:    gen.State(),
	}
}

// GenesisPayload is the seed re-encoded; the board is fully derived.
func (g *TetrisGame) GenesisPayload(seed uint32) []byte {
	return seedPayload(seed)
}

func (g *TetrisGame) Apply(s State, m Move) State {
	st, ok := s.(TetrisState)
	if !ok {
		return s
	}
	act, ok := m.(TetrisAction)
	if !ok || st.Over {
		return st
	}

	switch act {
	case TetrisLeft, TetrisRight:
		delta := -1
		if act == TetrisRight {
			delta = 1
		}
		moved := st.Active
		moved.Col += delta
		if !fits(st.Board, moved) {
			return st
		}
		out := st
		out.Active = moved
		out.history = appendMove(st.history, m)
		return out

	case TetrisRotateCW, TetrisRotateCCW:
		if st.Active.ID == pieceO {
			return st
		}
		rotated := st.Active
		if act == TetrisRotateCW {
			rotated.Rot = (rotated.Rot + 1) % 4
		} else {
			rotated.Rot = (rotated.Rot + 3) % 4
		}
		if !fits(st.Board, rotated) {
			return st
		}
		out := st
		out.Active = rotated
		out.history = appendMove(st.history, m)
		return out

	case TetrisSoftDrop:
		down := st.Active
		down.Row++
		if fits(st.Board, down) {
			out := st
			out.Active = down
			out.history = appendMove(st.history, m)
			return out
		}
		return lockPiece(st, m)

	case TetrisHardDrop:
		dropped := st.Active
		for {
			next := dropped
			next.Row++
			if !fits(st.Board, next) {
				break
			}
			dropped = next
		}
		st.Active = dropped
		return lockPiece(st, m)
	}
	return st
}

func (g *TetrisGame) Terminal(s State) bool {
	st, ok := s.(TetrisState)
	if !ok {
		return true
	}
	return st.Over
}

func (g *TetrisGame) Score(s State) int64 {
	st, ok := s.(TetrisState)
	if !ok {
		return 0
	}
	return st.Points
}

func spawnPiece(id int) Piece {
	shape := tetrominoes[id]
	return Piece{ID: id, Col: (tetrisCols - len(shape[0])) / 2}
}

// shapeOf applies Rot quarter turns to the base shape. O is excluded
// from rotation at move time, so Rot is always 0 for it.
func shapeOf(p Piece) [][]uint8 {
	shape := tetrominoes[p.ID]
	for r := 0; r < p.Rot; r++ {
		shape = rotateCW(shape)
	}
	return shape
}

// rotateCW is transpose followed by row reversal.
func rotateCW(shape [][]uint8) [][]uint8 {
	n := len(shape)
	out := make([][]uint8, n)
	for r := range out {
		out[r] = make([]uint8, n)
		for c := 0; c < n; c++ {
			out[r][c] = shape[n-1-c][r]
		}
	}
	return out
}

func fits(board [tetrisRows][tetrisCols]uint8, p Piece) bool {
	shape := shapeOf(p)
	for r, row := range shape {
		for c, v := range row {
			if v == 0 {
				continue
			}
			br, bc := p.Row+r, p.Col+c
			if br < 0 || br >= tetrisRows || bc < 0 || bc >= tetrisCols {
				return false
			}
			if board[br][bc] != 0 {
				return false
			}
		}
	}
	return true
}

// lockPiece merges the active piece into the board, clears lines,
// scores against the post-clear level, and spawns the next piece from
// the threaded generator. Spawn collision ends the game.
func lockPiece(st TetrisState, m Move) TetrisState {
	board := st.Board
	shape := shapeOf(st.Active)
	for r, row := range shape {
		for c, v := range row {
			if v != 0 {
				board[st.Active.Row+r][st.Active.Col+c] = v
			}
		}
	}

	cleared := 0
	for r := tetrisRows - 1; r >= 0; r-- {
		full := true
		for c := 0; c < tetrisCols; c++ {
			if board[r][c] == 0 {
				full = false
				break
			}
		}
		if full {
			cleared++
			for rr := r; rr > 0; rr-- {
				board[rr] = board[rr-1]
			}
			board[0] = [tetrisCols]uint8{}
			r++ // re-check the row that slid down
		}
	}

	lines := st.Lines + cleared
	level := lines/10 + 1

	gen := rng.Restore(st.Rng)
	active := spawnPiece(st.NextID)
	next := gen.Intn(7)

	out := TetrisState{
		Board:   board,
		Active:  active,
		NextID:  next,
		Lines:   lines,
		Level:   level,
		Points:  st.Points + lineScores[cleared]*int64(level),
		Rng:     gen.State(),
		history: appendMove(st.history, m),
	}
	if !fits(board, active) {
		out.Over = true
	}
	return out
}

package games

import (
	"github.com/chainarcade/replay-go/internal/rng"
)

const gridSize = 4

// Merge2048 implements the sliding tile merge game on a 4x4 grid.
type Merge2048 struct{}

// Merge2048State is one board position. Tile values are the literal
// numbers (2, 4, 8, ...), zero for empty.
type Merge2048State struct {
	Grid    [gridSize][gridSize]int `json:"grid"`
	Points  int64                   `json:"points"`
	Rng     uint32                  `json:"rng"`
	history []Move
}

func (s Merge2048State) Moves() []Move    { return copyMoves(s.history) }
func (s Merge2048State) RNGState() uint32 { return s.Rng }

func (g *Merge2048) Spec() Spec {
	return Spec{ID: "merge2048", Name: "2048"}
}

// Genesis spawns exactly two tiles, consuming a fixed four generator
// draws (position then value per tile).
func (g *Merge2048) Genesis(seed uint32) State {
	gen := rng.New(seed)
	var grid [gridSize][gridSize]int
	grid = spawnTile(grid, gen)
	grid = spawnTile(grid, gen)
	return Merge2048State{Grid: grid, Rng: gen.State()}
}

// GenesisPayload encodes the initial grid as 16 tile exponents
// (0 = empty, 1 = 2, 2 = 4, ...).
func (g *Merge2048) GenesisPayload(seed uint32) []byte {
	st := g.Genesis(seed).(Merge2048State)
	out := make([]byte, gridSize*gridSize)
	for r := 0; r < gridSize; r++ {
		for c := 0; c < gridSize; c++ {
			out[r*gridSize+c] = tileExponent(st.Grid[r][c])
		}
	}
	return out
}

func tileExponent(v int) byte {
	var e byte
	for v > 1 {
		v >>= 1
		e++
	}
	return e
}

// Apply slides the grid in the given direction. A move that shifts no
// tile is illegal: the state comes back unchanged with no generator
// draw and no history entry.
func (g *Merge2048) Apply(s State, m Move) State {
	st, ok := s.(Merge2048State)
	if !ok {
		return s
	}
	dir, ok := m.(Direction)
	if !ok {
		return st
	}

	oriented := orientLeft(st.Grid, dir)
	slid, gained, changed := slideRowsLeft(oriented)
	if !changed {
		return st
	}

	gen := rng.Restore(st.Rng)
	grid := spawnTile(restoreOrientation(slid, dir), gen)

	return Merge2048State{
		Grid:    grid,
		Points:  st.Points + gained,
		Rng:     gen.State(),
		history: appendMove(st.history, m),
	}
}

func (g *Merge2048) Terminal(s State) bool {
	st, ok := s.(Merge2048State)
	if !ok {
		return true
	}
	for r := 0; r < gridSize; r++ {
		for c := 0; c < gridSize; c++ {
			if st.Grid[r][c] == 0 {
				return false
			}
			if c+1 < gridSize && st.Grid[r][c] == st.Grid[r][c+1] {
				return false
			}
			if r+1 < gridSize && st.Grid[r][c] == st.Grid[r+1][c] {
				return false
			}
		}
	}
	return true
}

func (g *Merge2048) Score(s State) int64 {
	st, ok := s.(Merge2048State)
	if !ok {
		return 0
	}
	return st.Points
}

// orientLeft rewrites the grid so the requested direction becomes a
// leftward slide.
func orientLeft(grid [gridSize][gridSize]int, dir Direction) [gridSize][gridSize]int {
	switch dir {
	case Left:
		return grid
	case Right:
		return reverseRows(grid)
	case Up:
		return transpose(grid)
	default: // Down
		return reverseRows(transpose(grid))
	}
}

func restoreOrientation(grid [gridSize][gridSize]int, dir Direction) [gridSize][gridSize]int {
	switch dir {
	case Left:
		return grid
	case Right:
		return reverseRows(grid)
	case Up:
		return transpose(grid)
	default: // Down
		return transpose(reverseRows(grid))
	}
}

func transpose(grid [gridSize][gridSize]int) [gridSize][gridSize]int {
	var out [gridSize][gridSize]int
	for r := 0; r < gridSize; r++ {
		for c := 0; c < gridSize; c++ {
			out[c][r] = grid[r][c]
		}
	}
	return out
}

func reverseRows(grid [gridSize][gridSize]int) [gridSize][gridSize]int {
	var out [gridSize][gridSize]int
	for r := 0; r < gridSize; r++ {
		for c := 0; c < gridSize; c++ {
			out[r][gridSize-1-c] = grid[r][c]
		}
	}
	return out
}

// slideRowsLeft compacts and merges every row leftward. Each cell merges
// at most once per move; no chain merges.
func slideRowsLeft(grid [gridSize][gridSize]int) (out [gridSize][gridSize]int, gained int64, changed bool) {
	for r := 0; r < gridSize; r++ {
		row := make([]int, 0, gridSize)
		for c := 0; c < gridSize; c++ {
			if grid[r][c] != 0 {
				row = append(row, grid[r][c])
			}
		}

		merged := make([]int, 0, gridSize)
		for i := 0; i < len(row); i++ {
			if i+1 < len(row) && row[i] == row[i+1] {
				merged = append(merged, row[i]*2)
				gained += int64(row[i] * 2)
				i++
			} else {
				merged = append(merged, row[i])
			}
		}

		for c := 0; c < gridSize; c++ {
			if c < len(merged) {
				out[r][c] = merged[c]
			}
			if out[r][c] != grid[r][c] {
				changed = true
			}
		}
	}
	return out, gained, changed
}

// spawnTile places one new tile (2 with probability 0.9, else 4) at a
// uniformly chosen empty cell, consuming exactly two draws.
func spawnTile(grid [gridSize][gridSize]int, gen *rng.Gen) [gridSize][gridSize]int {
	type cell struct{ r, c int }
	empty := make([]cell, 0, gridSize*gridSize)
	for r := 0; r < gridSize; r++ {
		for c := 0; c < gridSize; c++ {
			if grid[r][c] == 0 {
				empty = append(empty, cell{r, c})
			}
		}
	}
	if len(empty) == 0 {
		return grid
	}

	pos := empty[gen.Intn(len(empty))]
	val := 4
	if gen.Chance(9, 10) {
		val = 2
	}
	grid[pos.r][pos.c] = val
	return grid
}

package games

import (
	"github.com/chainarcade/replay-go/internal/rng"
)

const (
	snakeWidth  = 20
	snakeHeight = 20

	snakeFoodPoints = 10
	snakeLevelStep  = 50
)

// SnakeGame implements snake on a 20x20 board. Every move is one step
// in the requested direction; reversal requests are illegal no-ops.
type SnakeGame struct{}

// Cell is one board coordinate.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// SnakeState is one snake position. Body is head-first.
type SnakeState struct {
	Body    []Cell    `json:"body"`
	Food    Cell      `json:"food"`
	Heading Direction `json:"heading"`
	Points  int64     `json:"points"`
	Level   int       `json:"level"`
	Dead    bool      `json:"dead"`
	Rng     uint32    `json:"rng"`
	history []Move
}

func (s SnakeState) Moves() []Move    { return copyMoves(s.history) }
func (s SnakeState) RNGState() uint32 { return s.Rng }

func (g *SnakeGame) Spec() Spec {
	return Spec{ID: "snake", Name: "Snake"}
}

// Genesis starts a length-3 snake at board center heading right, then
// spawns the first food from the generator.
func (g *SnakeGame) Genesis(seed uint32) State {
	gen := rng.New(seed)
	body := []Cell{{X: 10, Y: 10}, {X: 9, Y: 10}, {X: 8, Y: 10}}
	food := spawnFood(body, gen)
	return SnakeState{
		Body:    body,
		Food:    food,
		Heading: Right,
		Level:   1,
		Rng:     gen.State(),
	}
}

// GenesisPayload is the seed re-encoded; the board is fully derived.
func (g *SnakeGame) GenesisPayload(seed uint32) []byte {
	return seedPayload(seed)
}

func (g *SnakeGame) Apply(s State, m Move) State {
	st, ok := s.(SnakeState)
	if !ok {
		return s
	}
	dir, ok := m.(Direction)
	if !ok || st.Dead {
		return st
	}
	if dir == opposite(st.Heading) {
		// Reversal does not count as a move.
		return st
	}

	head := st.Body[0]
	next := step(head, dir)
	eating := next == st.Food

	if hitsWall(next) || hitsBody(next, st.Body, eating) {
		out := cloneSnake(st)
		out.Heading = dir
		out.Dead = true
		out.history = appendMove(st.history, m)
		return out
	}

	body := make([]Cell, 0, len(st.Body)+1)
	body = append(body, next)
	if eating {
		body = append(body, st.Body...)
	} else {
		body = append(body, st.Body[:len(st.Body)-1]...)
	}

	out := SnakeState{
		Body:    body,
		Food:    st.Food,
		Heading: dir,
		Points:  st.Points,
		Level:   st.Level,
		Rng:     st.Rng,
		history: appendMove(st.history, m),
	}
	if eating {
		gen := rng.Restore(st.Rng)
		out.Food = spawnFood(body, gen)
		out.Rng = gen.State()
		out.Points += snakeFoodPoints
		out.Level = int(out.Points/snakeLevelStep) + 1
	}
	return out
}

func (g *SnakeGame) Terminal(s State) bool {
	st, ok := s.(SnakeState)
	if !ok {
		return true
	}
	return st.Dead
}

func (g *SnakeGame) Score(s State) int64 {
	st, ok := s.(SnakeState)
	if !ok {
		return 0
	}
	return st.Points
}

func cloneSnake(st SnakeState) SnakeState {
	body := make([]Cell, len(st.Body))
	copy(body, st.Body)
	out := st
	out.Body = body
	return out
}

func opposite(d Direction) Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	default:
		return Left
	}
}

func step(c Cell, d Direction) Cell {
	switch d {
	case Up:
		return Cell{X: c.X, Y: c.Y - 1}
	case Down:
		return Cell{X: c.X, Y: c.Y + 1}
	case Left:
		return Cell{X: c.X - 1, Y: c.Y}
	default:
		return Cell{X: c.X + 1, Y: c.Y}
	}
}

func hitsWall(c Cell) bool {
	return c.X < 0 || c.X >= snakeWidth || c.Y < 0 || c.Y >= snakeHeight
}

// hitsBody checks collision against the body as it will exist after the
// move: the tail cell vacates unless the snake is growing.
func hitsBody(next Cell, body []Cell, eating bool) bool {
	occupied := body
	if !eating {
		occupied = body[:len(body)-1]
	}
	for _, c := range occupied {
		if c == next {
			return true
		}
	}
	return false
}

// spawnFood draws cells until one misses the body. The loop length is
// itself a deterministic function of the generator state. When the
// body covers the whole board there is nowhere left to place food, so
// the last head cell is returned without consuming a draw.
func spawnFood(body []Cell, gen *rng.Gen) Cell {
	if len(body) >= snakeWidth*snakeHeight {
		return body[0]
	}
	for {
		c := Cell{X: gen.Intn(snakeWidth), Y: gen.Intn(snakeHeight)}
		onBody := false
		for _, b := range body {
			if b == c {
				onBody = true
				break
			}
		}
		if !onBody {
			return c
		}
	}
}

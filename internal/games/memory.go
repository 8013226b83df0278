package games

import (
	"github.com/chainarcade/replay-go/internal/rng"
)

const (
	memoryPairs    = 8
	memoryCards    = memoryPairs * 2
	memoryAttempts = 20

	memoryMatchBase     = 100
	memoryTimeAllowance = 120
	memoryAttemptBonus  = 10
)

// MemoryGame implements pair matching over 16 face-down cards. Scoring
// uses a logical clock (one tick per applied move) so replayed scores
// are bit-identical.
type MemoryGame struct{}

// MemoryCard is one card slot.
type MemoryCard struct {
	Value   int  `json:"value"`
	Flipped bool `json:"flipped"`
	Matched bool `json:"matched"`
}

// MemoryState is one memory-match position. Pending holds the indexes
// of the currently face-up unmatched cards (at most two).
type MemoryState struct {
	Cards    []MemoryCard `json:"cards"`
	Pending  []int        `json:"pending"`
	Attempts int          `json:"attempts"`
	Points   int64        `json:"points"`
	Ticks    int          `json:"ticks"`
	Rng      uint32       `json:"rng"`
	history  []Move
}

func (s MemoryState) Moves() []Move    { return copyMoves(s.history) }
func (s MemoryState) RNGState() uint32 { return s.Rng }

func (g *MemoryGame) Spec() Spec {
	return Spec{ID: "memory", Name: "Memory Match"}
}

// Genesis lays out the pairs and shuffles them with exactly
// memoryCards-1 generator draws.
func (g *MemoryGame) Genesis(seed uint32) State {
	gen := rng.New(seed)
	cards := make([]MemoryCard, memoryCards)
	for i := range cards {
		cards[i].Value = i / 2
	}
	gen.Shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })
	return MemoryState{Cards: cards, Rng: gen.State()}
}

// GenesisPayload encodes the shuffled card values, one byte per card.
func (g *MemoryGame) GenesisPayload(seed uint32) []byte {
	st := g.Genesis(seed).(MemoryState)
	out := make([]byte, len(st.Cards))
	for i, c := range st.Cards {
		out[i] = byte(c.Value)
	}
	return out
}

func (g *MemoryGame) Apply(s State, m Move) State {
	st, ok := s.(MemoryState)
	if !ok {
		return s
	}
	mv, ok := m.(MemoryMove)
	if !ok || g.Terminal(st) {
		return st
	}

	if mv.Unflip {
		// Only valid while a failed pair is face up.
		if len(st.Pending) != 2 {
			return st
		}
		out := cloneMemory(st)
		for _, idx := range out.Pending {
			out.Cards[idx].Flipped = false
		}
		out.Pending = nil
		out.Ticks++
		out.history = appendMove(st.history, m)
		return out
	}

	if mv.Card < 0 || mv.Card >= len(st.Cards) {
		return st
	}
	card := st.Cards[mv.Card]
	if card.Matched || card.Flipped || len(st.Pending) >= 2 {
		return st
	}

	out := cloneMemory(st)
	out.Cards[mv.Card].Flipped = true
	out.Pending = append(out.Pending, mv.Card)
	out.Ticks++
	out.history = appendMove(st.history, m)

	if len(out.Pending) == 2 {
		// Second flip always consumes an attempt, match or not.
		out.Attempts++
		a, b := out.Pending[0], out.Pending[1]
		if out.Cards[a].Value == out.Cards[b].Value {
			out.Cards[a].Matched = true
			out.Cards[b].Matched = true
			out.Pending = nil
			out.Points += matchPoints(out.Ticks, out.Attempts)
		}
	}
	return out
}

// matchPoints is base + time bonus + remaining-attempt bonus, with the
// time bonus floored at zero.
func matchPoints(ticks, attempts int) int64 {
	timeBonus := int64(memoryTimeAllowance - ticks)
	if timeBonus < 0 {
		timeBonus = 0
	}
	remaining := int64(memoryAttempts-attempts) * memoryAttemptBonus
	if remaining < 0 {
		remaining = 0
	}
	return memoryMatchBase + timeBonus + remaining
}

func (g *MemoryGame) Terminal(s State) bool {
	st, ok := s.(MemoryState)
	if !ok {
		return true
	}
	if st.Attempts >= memoryAttempts {
		return true
	}
	for _, c := range st.Cards {
		if !c.Matched {
			return false
		}
	}
	return true
}

func (g *MemoryGame) Score(s State) int64 {
	st, ok := s.(MemoryState)
	if !ok {
		return 0
	}
	return st.Points
}

func cloneMemory(st MemoryState) MemoryState {
	cards := make([]MemoryCard, len(st.Cards))
	copy(cards, st.Cards)
	pending := make([]int, len(st.Pending))
	copy(pending, st.Pending)
	out := st
	out.Cards = cards
	out.Pending = pending
	return out
}

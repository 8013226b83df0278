package games

import (
	"reflect"
	"testing"
)

func TestRegistry(t *testing.T) {
	expected := []string{"merge2048", "snake", "tetris", "memory", "puzzle"}

	for _, id := range expected {
		g, ok := Get(id)
		if !ok {
			t.Errorf("game %q not found in registry", id)
			continue
		}
		if g.Spec().ID != id {
			t.Errorf("game id mismatch: expected %q, got %q", id, g.Spec().ID)
		}
	}

	if specs := List(); len(specs) != len(expected) {
		t.Errorf("expected %d games, got %d", len(expected), len(specs))
	}
}

// scripts drive each game far enough to exercise generator consumption.
func replayScripts() map[string][]Move {
	return map[string][]Move{
		"merge2048": {Left, Up, Right, Down, Left, Up, Right, Down},
		"snake":     {Right, Right, Down, Down, Left, Down, Left, Up},
		"tetris": {
			TetrisLeft, TetrisRotateCW, TetrisRight, TetrisSoftDrop,
			TetrisHardDrop, TetrisLeft, TetrisHardDrop,
		},
		"memory": {
			MemoryMove{Card: 0}, MemoryMove{Card: 1}, MemoryMove{Unflip: true},
			MemoryMove{Card: 2}, MemoryMove{Card: 3}, MemoryMove{Unflip: true},
		},
	}
}

func TestReplayDeterminism(t *testing.T) {
	for id, script := range replayScripts() {
		t.Run(id, func(t *testing.T) {
			game, ok := Get(id)
			if !ok {
				t.Fatalf("game %q not registered", id)
			}

			run := func() (State, int64) {
				s := game.Genesis(424242)
				for _, m := range script {
					s = game.Apply(s, m)
				}
				return s, game.Score(s)
			}

			s1, score1 := run()
			s2, score2 := run()

			if score1 != score2 {
				t.Fatalf("scores diverged: %d != %d", score1, score2)
			}
			if !reflect.DeepEqual(s1, s2) {
				t.Fatalf("final states diverged:\n%+v\n%+v", s1, s2)
			}
			if s1.RNGState() != s2.RNGState() {
				t.Fatalf("generator states diverged: %d != %d", s1.RNGState(), s2.RNGState())
			}
		})
	}
}

func TestGenesisDeterminism(t *testing.T) {
	for _, spec := range List() {
		t.Run(spec.ID, func(t *testing.T) {
			game, _ := Get(spec.ID)
			a := game.Genesis(777)
			b := game.Genesis(777)
			if !reflect.DeepEqual(a, b) {
				t.Fatalf("genesis not deterministic for %s", spec.ID)
			}
			pa := game.GenesisPayload(777)
			pb := game.GenesisPayload(777)
			if !reflect.DeepEqual(pa, pb) {
				t.Fatalf("genesis payload not deterministic for %s", spec.ID)
			}
		})
	}
}

package rng

import (
	"testing"
)

func TestNextRange(t *testing.T) {
	tests := []struct {
		name  string
		seed  uint32
		count int
	}{
		{name: "zero seed", seed: 0, count: 100},
		{name: "small seed", seed: 42, count: 100},
		{name: "seed above period", seed: 999999, count: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(tt.seed)
			for i := 0; i < tt.count; i++ {
				f := g.Next()
				if f < 0 || f >= 1 {
					t.Errorf("draw %d out of range [0, 1): %f", i, f)
				}
			}
		})
	}
}

func TestDeterministicStream(t *testing.T) {
	a := New(12345)
	b := New(12345)

	for i := 0; i < 1000; i++ {
		va, vb := a.Intn(100), b.Intn(100)
		if va != vb {
			t.Fatalf("streams diverged at draw %d: %d != %d", i, va, vb)
		}
	}
}

func TestKnownSequence(t *testing.T) {
	// Locked as a regression anchor so the stream can never silently change.
	g := New(1)
	want := []uint32{(1*9301 + 49297) % 233280}
	want = append(want, (want[0]*9301+49297)%233280)
	want = append(want, (want[1]*9301+49297)%233280)

	for i, w := range want {
		if got := g.step(); got != w {
			t.Fatalf("draw %d: got %d, want %d", i, got, w)
		}
	}
}

func TestRestoreResumesStream(t *testing.T) {
	g := New(777)
	for i := 0; i < 10; i++ {
		g.Intn(50)
	}

	resumed := Restore(g.State())
	for i := 0; i < 50; i++ {
		a, b := g.Intn(100), resumed.Intn(100)
		if a != b {
			t.Fatalf("restored stream diverged at draw %d: %d != %d", i, a, b)
		}
	}
}

func TestIntnBounds(t *testing.T) {
	g := New(2024)

	if got := g.Intn(0); got != 0 {
		t.Errorf("Intn(0) = %d, want 0", got)
	}
	if got := g.Intn(-5); got != 0 {
		t.Errorf("Intn(-5) = %d, want 0", got)
	}
	for i := 0; i < 500; i++ {
		v := g.Intn(7)
		if v < 0 || v >= 7 {
			t.Fatalf("Intn(7) out of range: %d", v)
		}
	}
}

func TestChanceFrequency(t *testing.T) {
	g := New(5)
	hits := 0
	const trials = 10000
	for i := 0; i < trials; i++ {
		if g.Chance(9, 10) {
			hits++
		}
	}
	// 90% nominal; the LCG is coarse but should land well inside 85-95%.
	if hits < trials*85/100 || hits > trials*95/100 {
		t.Errorf("Chance(9,10) hit %d/%d, outside expected band", hits, trials)
	}
}

func TestShuffleIsPermutation(t *testing.T) {
	g := New(31337)
	vals := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	g.Shuffle(len(vals), func(i, j int) { vals[i], vals[j] = vals[j], vals[i] })

	seen := make(map[int]bool)
	for _, v := range vals {
		if seen[v] {
			t.Fatalf("duplicate value %d after shuffle", v)
		}
		seen[v] = true
	}
	if len(seen) != 10 {
		t.Fatalf("shuffle lost elements: %v", vals)
	}
}

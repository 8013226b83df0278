// Package rng implements the deterministic generator every rule engine
// draws from. It is a plain linear congruential generator whose entire
// state is one uint32, so game states can carry it by value and replays
// can resume it from a stored scalar.
package rng

const (
	multiplier = 9301
	increment  = 49297
	modulus    = 233280
)

// Gen is a forward-only generator. The zero value is usable but callers
// should construct one with New or Restore so the origin of the state is
// explicit.
type Gen struct {
	state uint32
}

// New seeds a generator. Seeds are reduced modulo the generator period so
// any integer is a valid seed.
func New(seed uint32) *Gen {
	return &Gen{state: seed % modulus}
}

// Restore resumes a generator from a previously captured State value.
func Restore(state uint32) *Gen {
	return &Gen{state: state % modulus}
}

// State exposes the scalar needed to reconstruct this generator later.
func (g *Gen) State() uint32 {
	return g.state
}

func (g *Gen) step() uint32 {
	// state < modulus, so state*multiplier+increment fits in 32 bits.
	g.state = (g.state*multiplier + increment) % modulus
	return g.state
}

// Next returns the next value in [0, 1). The division is exact to within
// one float64 ulp for every representable state, but replay-critical code
// must use Intn or Chance instead so no float rounding is involved.
func (g *Gen) Next() float64 {
	return float64(g.step()) / float64(modulus)
}

// Intn returns a uniformly distributed integer in [0, bound) using
// integer arithmetic only. A bound of zero or less returns 0.
func (g *Gen) Intn(bound int) int {
	if bound <= 0 {
		return 0
	}
	return int(uint64(g.step()) * uint64(bound) / modulus)
}

// Chance consumes one draw and reports true with probability num/den.
// Integer-only, so the outcome is identical on every platform.
func (g *Gen) Chance(num, den int) bool {
	if den <= 0 {
		return false
	}
	return uint64(g.step())*uint64(den) < uint64(num)*modulus
}

// Shuffle performs a Fisher-Yates shuffle over n elements, consuming
// exactly n-1 draws.
func (g *Gen) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := g.Intn(i + 1)
		swap(i, j)
	}
}

package effects

import "math/rand/v2"

// newRand builds the RNG behind the stochastic stages. A zero seed
// draws from the global source; anything else yields a deterministic
// stream, which the tests rely on.
func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	s := uint64(seed)
	return rand.New(rand.NewPCG(s, s))
}

package replay

import "math/rand/v2"

// seedFrom derives a deterministic *rand.Rand from a single 64-bit input,
// using the same documented function on every run so replay stays
// reproducible. rand.NewPCG wants two 64-bit seed words, so splitmix64
// expands the single input into two well-mixed words; splitmix64 is the
// standard generator-seeding mixer and is itself fully deterministic, so
// the composition stays reproducible across runs and platforms.
func seedFrom(x uint64) *rand.Rand {
	hi := splitmix64(&x)
	lo := splitmix64(&x)
	return rand.New(rand.NewPCG(hi, lo))
}

// splitmix64 advances state in place and returns the next mixed output.
func splitmix64(state *uint64) uint64 {
	*state += 0x9E3779B97F4A7C15
	z := *state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// dataSeedFor and extraSeedFor derive a worker's data and non-data RNGs
// from its replay timestamp XORed with the configured data/extra seeds.
func dataSeedFor(replayTS, dataSeed uint64) *rand.Rand {
	return seedFrom(replayTS ^ dataSeed)
}

func extraSeedFor(replayTS, extraSeed uint64) *rand.Rand {
	return seedFrom(replayTS ^ extraSeed)
}

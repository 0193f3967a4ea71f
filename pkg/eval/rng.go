package eval

import (
	"hash/fnv"
	"math/rand/v2"
)

// NewStream derives a deterministic PRNG keyed by the active seed and a
// stable per-call path identifier (template path, index, field name,
// concatenated by the caller). Re-expanding the same tree with the same
// seed must draw byte-identical samples, so the stream is a pure function
// of (seed, path) — never of call order or wall-clock time.
func NewStream(seed uint64, path string) *rand.Rand {
	h1 := fnv.New64a()
	_, _ = h1.Write(uint64Bytes(seed))
	_, _ = h1.Write([]byte(path))

	h2 := fnv.New64a()
	_, _ = h2.Write(uint64Bytes(seed ^ 0x9E3779B97F4A7C15))
	_, _ = h2.Write([]byte(path))
	_, _ = h2.Write([]byte{0})

	return rand.New(rand.NewPCG(h1.Sum64(), h2.Sum64()))
}

func uint64Bytes(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}

package dataset

import (
	"hash/fnv"
	"math/rand"
)

// Named RNG streams used by Synthesize.
const (
	StreamLoadings = "loadings"
	StreamNoise    = "noise"
	StreamMissing  = "missing"
)

// PartitionedRNG provides deterministic, isolated RNG streams derived from a
// single seed: seed XOR fnv1a64(streamName). Adding draws to one stream never
// shifts another.
//
// Thread-safety: NOT thread-safe. Must be called from single goroutine.
type PartitionedRNG struct {
	seed    int64
	streams map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a master seed.
func NewPartitionedRNG(seed int64) *PartitionedRNG {
	return &PartitionedRNG{seed: seed, streams: make(map[string]*rand.Rand)}
}

// ForStream returns the cached RNG for the named stream. Never returns nil.
func (p *PartitionedRNG) ForStream(name string) *rand.Rand {
	if rng, ok := p.streams[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(p.seed ^ fnv1a64(name)))
	p.streams[name] = rng
	return rng
}

// Seed returns the master seed.
func (p *PartitionedRNG) Seed() int64 {
	return p.seed
}

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}

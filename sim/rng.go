package sim

import (
	"hash/fnv"
	"math/rand"
)

// === Subsystem Constants ===

const (
	// SubsystemJobs is the RNG subsystem for job colors.
	SubsystemJobs = "jobs"

	// SubsystemWorkcenters is the RNG subsystem for workcenter colors.
	SubsystemWorkcenters = "workcenters"
)

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
// Derived seed: masterSeed XOR fnv1a64(subsystemName).
//
// Thread-safety: NOT thread-safe. Must be called from single goroutine.
type PartitionedRNG struct {
	seed       int64
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a master seed.
func NewPartitionedRNG(seed int64) *PartitionedRNG {
	return &PartitionedRNG{
		seed:       seed,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(p.seed ^ fnv1a64(name)))
	p.subsystems[name] = rng
	return rng
}

// Seed returns the master seed.
func (p *PartitionedRNG) Seed() int64 {
	return p.seed
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}

// === Palette ===

// Palette deals display colors from the 4×4×4 grid of channel values
// {0, 64, 128, 192}, shuffled once by its RNG. It wraps around after 64 colors.
type Palette struct {
	colors []RGB
	next   int
}

// NewPalette shuffles the color grid with rng.
func NewPalette(rng *rand.Rand) *Palette {
	colors := make([]RGB, 0, 64)
	for r := 0; r < 256; r += 64 {
		for g := 0; g < 256; g += 64 {
			for b := 0; b < 256; b += 64 {
				colors = append(colors, RGB{r, g, b})
			}
		}
	}
	rng.Shuffle(len(colors), func(i, j int) { colors[i], colors[j] = colors[j], colors[i] })
	return &Palette{colors: colors}
}

// Next returns the next color.
func (p *Palette) Next() RGB {
	c := p.colors[p.next%len(p.colors)]
	p.next++
	return c
}

// AssignColors gives every job and workcenter without a color one from a
// palette seeded by seed. Existing colors are kept. Same seed, same colors.
func (s *System) AssignColors(seed int64) {
	rng := NewPartitionedRNG(seed)
	jobColors := NewPalette(rng.ForSubsystem(SubsystemJobs))
	for _, j := range s.Jobs {
		if j.RGB == nil {
			c := jobColors.Next()
			j.RGB = &c
		}
	}
	wcColors := NewPalette(rng.ForSubsystem(SubsystemWorkcenters))
	for _, wc := range s.Workcenters {
		if wc.RGB == nil {
			c := wcColors.Next()
			wc.RGB = &c
		}
	}
}

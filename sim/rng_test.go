package sim

import (
	"testing"
)

// === PartitionedRNG Tests ===

func TestPartitionedRNG_DeterministicDerivation(t *testing.T) {
	// BDD: Same seed+name produces same sequence
	rng1 := NewPartitionedRNG(42)
	rng2 := NewPartitionedRNG(42)

	for i := 0; i < 3; i++ {
		v1 := rng1.ForSubsystem(SubsystemJobs).Float64()
		v2 := rng2.ForSubsystem(SubsystemJobs).Float64()
		if v1 != v2 {
			t.Errorf("Value %d: got %v and %v, want identical", i, v1, v2)
		}
	}
}

func TestPartitionedRNG_SubsystemIsolation(t *testing.T) {
	// BDD: Drawing from subsystem A doesn't affect subsystem B
	rngA := NewPartitionedRNG(42)
	for i := 0; i < 10; i++ {
		rngA.ForSubsystem(SubsystemJobs).Float64()
	}
	aFirst := rngA.ForSubsystem(SubsystemWorkcenters).Float64()

	fresh := NewPartitionedRNG(42)
	expectedFirst := fresh.ForSubsystem(SubsystemWorkcenters).Float64()

	if aFirst != expectedFirst {
		t.Errorf("workcenter first value = %v, want %v (isolation broken)", aFirst, expectedFirst)
	}
}

func TestPartitionedRNG_CachesInstance(t *testing.T) {
	// BDD: Same name returns same *rand.Rand instance
	rng := NewPartitionedRNG(42)
	if rng.ForSubsystem(SubsystemJobs) != rng.ForSubsystem(SubsystemJobs) {
		t.Error("ForSubsystem returned different instances for same name")
	}
	if rng.Seed() != 42 {
		t.Errorf("Seed() = %d, want 42", rng.Seed())
	}
}

// === Palette Tests ===

func TestPalette_SixtyFourDistinctGridColors(t *testing.T) {
	p := NewPalette(NewPartitionedRNG(1).ForSubsystem(SubsystemJobs))
	seen := make(map[RGB]bool)
	for i := 0; i < 64; i++ {
		c := p.Next()
		for _, ch := range c {
			if ch%64 != 0 || ch > 192 {
				t.Fatalf("color %v is off the grid", c)
			}
		}
		seen[c] = true
	}
	if len(seen) != 64 {
		t.Errorf("expected 64 distinct colors, got %d", len(seen))
	}
}

func TestPalette_WrapsAround(t *testing.T) {
	p := NewPalette(NewPartitionedRNG(1).ForSubsystem(SubsystemJobs))
	first := p.Next()
	for i := 0; i < 63; i++ {
		p.Next()
	}
	if got := p.Next(); got != first {
		t.Errorf("65th color = %v, want first color %v", got, first)
	}
}

func TestSystem_AssignColors_SameSeedSameColors(t *testing.T) {
	a := twoJobSystem(t)
	b := twoJobSystem(t)
	a.AssignColors(99)
	b.AssignColors(99)

	for i := range a.Jobs {
		if *a.Jobs[i].RGB != *b.Jobs[i].RGB {
			t.Errorf("job %s: colors differ across identical seeds", a.Jobs[i].ID)
		}
	}
	if *a.Workcenters[0].RGB != *b.Workcenters[0].RGB {
		t.Error("workcenter colors differ across identical seeds")
	}
}

func TestSystem_AssignColors_KeepsExisting(t *testing.T) {
	sys := twoJobSystem(t)
	fixed := RGB{1, 2, 3}
	sys.Jobs[0].RGB = &fixed
	sys.AssignColors(5)

	if *sys.Jobs[0].RGB != fixed {
		t.Errorf("existing color overwritten: %v", *sys.Jobs[0].RGB)
	}
	if sys.Jobs[1].RGB == nil {
		t.Error("missing color not assigned")
	}
}

// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package schedule implements power schedules: policies that assign energy
// to corpus seeds and pick the next seed to mutate.
package schedule

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/klnyzzz33/api-fuzzing-test/pkg/corpus"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/hash"
)

type Schedule interface {
	// Reset clears the path frequency table at session start.
	Reset()
	// Observe records one execution that exercised the path.
	Observe(fp hash.Sig)
	Frequency() *Frequency
	AssignEnergy(seeds []*corpus.Seed)
	// Choose returns one of the seeds, which must be non-empty.
	Choose(r *rand.Rand, seeds []*corpus.Seed) *corpus.Seed
}

const (
	NameUniform = "uniform"
	NameRarity  = "rarity"
)

// New creates a schedule by its configuration name.
func New(name string, exponent float64) (Schedule, error) {
	switch name {
	case NameUniform:
		return &Uniform{}, nil
	case NameRarity, "":
		if exponent < 0 || math.IsNaN(exponent) || math.IsInf(exponent, 0) {
			return nil, fmt.Errorf("bad schedule exponent %v, want a finite value >= 0", exponent)
		}
		return &PathRarity{Exponent: exponent}, nil
	default:
		return nil, fmt.Errorf("unknown schedule %q", name)
	}
}

type base struct {
	freq Frequency
}

func (b *base) Reset() {
	b.freq.Reset()
}

func (b *base) Observe(fp hash.Sig) {
	b.freq.Inc(fp)
}

func (b *base) Frequency() *Frequency {
	return &b.freq
}

// Uniform gives every seed the same energy.
type Uniform struct {
	base
}

func (s *Uniform) AssignEnergy(seeds []*corpus.Seed) {
	for _, seed := range seeds {
		seed.Energy = 1
	}
}

func (s *Uniform) Choose(r *rand.Rand, seeds []*corpus.Seed) *corpus.Seed {
	mustNotBeEmpty(seeds)
	s.AssignEnergy(seeds)
	return seeds[r.Intn(len(seeds))]
}

// PathRarity favors seeds whose path has been exercised rarely:
// energy = 1 / frequency^Exponent. Larger exponents bias harder.
type PathRarity struct {
	base
	Exponent float64
}

func (s *PathRarity) AssignEnergy(seeds []*corpus.Seed) {
	for _, seed := range seeds {
		// Paths are observed before admission, so the count is at least 1
		// for corpus seeds. Guard anyway to keep the energy finite.
		freq := max(s.freq.Count(seed.Fingerprint), 1)
		seed.Energy = 1 / math.Pow(float64(freq), s.Exponent)
	}
}

func (s *PathRarity) Choose(r *rand.Rand, seeds []*corpus.Seed) *corpus.Seed {
	mustNotBeEmpty(seeds)
	s.AssignEnergy(seeds)
	return chooseWeighted(r, seeds)
}

// chooseWeighted samples a seed proportionally to its energy using
// accumulated prefix sums and a binary search.
func chooseWeighted(r *rand.Rand, seeds []*corpus.Seed) *corpus.Seed {
	acc := make([]float64, len(seeds))
	sum := 0.0
	for i, seed := range seeds {
		if seed.Energy > 0 {
			sum += seed.Energy
		}
		acc[i] = sum
	}
	if sum <= 0 || math.IsInf(sum, 0) || math.IsNaN(sum) {
		return seeds[r.Intn(len(seeds))]
	}
	val := r.Float64() * sum
	idx := sort.Search(len(acc), func(i int) bool {
		return acc[i] > val
	})
	if idx == len(acc) {
		idx = len(acc) - 1
	}
	return seeds[idx]
}

func mustNotBeEmpty(seeds []*corpus.Seed) {
	if len(seeds) == 0 {
		panic("schedule: choosing from an empty population")
	}
}

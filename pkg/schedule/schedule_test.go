// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package schedule

import (
	"math/rand"
	"testing"

	"github.com/klnyzzz33/api-fuzzing-test/pkg/corpus"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/hash"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pathA = hash.Hash([]byte("a"))
	pathB = hash.Hash([]byte("b"))
)

func TestNew(t *testing.T) {
	s, err := New(NameUniform, 0)
	require.NoError(t, err)
	assert.IsType(t, &Uniform{}, s)
	s, err = New("", 5)
	require.NoError(t, err)
	assert.Equal(t, 5.0, s.(*PathRarity).Exponent)
	_, err = New(NameRarity, -1)
	assert.Error(t, err)
	_, err = New("afl", 1)
	assert.ErrorContains(t, err, "unknown schedule")
}

func TestFrequencyMonotonic(t *testing.T) {
	r := rand.New(testutil.RandSource(t))
	var freq Frequency
	prev := map[hash.Sig]int{}
	paths := []hash.Sig{pathA, pathB, hash.Hash([]byte("c"))}
	for i := 0; i < testutil.IterCount(); i++ {
		fp := paths[r.Intn(len(paths))]
		freq.Inc(fp)
		cur := freq.Snapshot()
		for p, n := range prev {
			assert.GreaterOrEqual(t, cur[p], n)
		}
		prev = cur
	}
	assert.Equal(t, testutil.IterCount(), freq.Total())
	freq.Reset()
	assert.Equal(t, 0, freq.Len())
	assert.Equal(t, 0, freq.Count(pathA))
	assert.Empty(t, freq.Snapshot())
}

func TestPathRarityEnergy(t *testing.T) {
	s := &PathRarity{Exponent: 2}
	for i := 0; i < 3; i++ {
		s.Observe(pathA)
	}
	s.Observe(pathB)
	seeds := []*corpus.Seed{
		{Data: "common", Fingerprint: pathA},
		{Data: "rare", Fingerprint: pathB},
		{Data: "unseen", Fingerprint: hash.Hash([]byte("z"))},
	}
	s.AssignEnergy(seeds)
	assert.InDelta(t, 1.0/9, seeds[0].Energy, 1e-12)
	assert.InDelta(t, 1.0, seeds[1].Energy, 1e-12)
	assert.InDelta(t, 1.0, seeds[2].Energy, 1e-12)

	s.Reset()
	assert.Equal(t, 0, s.Frequency().Len())
	s.AssignEnergy(seeds)
	assert.InDelta(t, 1.0, seeds[0].Energy, 1e-12)
}

func TestPathRarityBias(t *testing.T) {
	r := rand.New(testutil.RandSource(t))
	s := &PathRarity{Exponent: 1}
	for i := 0; i < 9; i++ {
		s.Observe(pathA)
	}
	s.Observe(pathB)
	seeds := []*corpus.Seed{
		{Data: "common", Fingerprint: pathA},
		{Data: "rare", Fingerprint: pathB},
	}
	counts := map[string]int{}
	const iters = 10000
	for i := 0; i < iters; i++ {
		counts[s.Choose(r, seeds).Data]++
	}
	// Expected ratio is 1:10.
	t.Logf("counts: %v", counts)
	assert.Greater(t, counts["rare"], iters*8/11)
	assert.Greater(t, counts["common"], 0)
}

func TestZeroExponentIsUniform(t *testing.T) {
	r := rand.New(testutil.RandSource(t))
	s := &PathRarity{Exponent: 0}
	for i := 0; i < 100; i++ {
		s.Observe(pathA)
	}
	seeds := []*corpus.Seed{{Data: "a", Fingerprint: pathA}, {Data: "b", Fingerprint: pathB}}
	counts := map[string]int{}
	for i := 0; i < 4000; i++ {
		counts[s.Choose(r, seeds).Data]++
	}
	assert.InDelta(t, 2000, counts["a"], 300)
}

func TestUniform(t *testing.T) {
	r := rand.New(testutil.RandSource(t))
	s := &Uniform{}
	s.Observe(pathA)
	assert.Equal(t, 1, s.Frequency().Count(pathA))
	seeds := []*corpus.Seed{{Data: "a"}, {Data: "b"}, {Data: "c"}}
	counts := map[string]int{}
	for i := 0; i < 3000; i++ {
		counts[s.Choose(r, seeds).Data]++
	}
	assert.Len(t, counts, 3)
	for _, seed := range seeds {
		assert.Equal(t, 1.0, seed.Energy)
	}
	assert.Panics(t, func() { s.Choose(r, nil) })
}

func TestChooseWeightedDegenerate(t *testing.T) {
	r := rand.New(testutil.RandSource(t))
	seeds := []*corpus.Seed{{Data: "a", Energy: 0}, {Data: "b", Energy: 0}}
	for i := 0; i < 100; i++ {
		assert.Contains(t, []string{"a", "b"}, chooseWeighted(r, seeds).Data)
	}
	seeds[1].Energy = 1
	for i := 0; i < 100; i++ {
		assert.Equal(t, "b", chooseWeighted(r, seeds).Data)
	}
}

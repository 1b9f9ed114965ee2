// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package corpus

import (
	"context"
	"fmt"
	"sync"

	"github.com/klnyzzz33/api-fuzzing-test/pkg/hash"
)

// Corpus is the bounded population of inputs retained by the fuzzer.
// Seeds are kept in admission order, no two seeds share the same data,
// and the population never exceeds MaxPopulation.
type Corpus struct {
	ctx     context.Context
	mu      sync.RWMutex
	max     int
	seeds   []*Seed
	index   map[string]int
	updates chan<- NewItemEvent
}

// Seed is an input retained in the corpus. Seeds are identified by Data:
// two seeds with the same text are the same seed regardless of coverage.
type Seed struct {
	Data        string
	Fingerprint hash.Sig
	// Energy is the selection weight last assigned by the power schedule.
	Energy float64
	// Output is the system's output observed when the seed was admitted.
	Output string
}

func (seed *Seed) String() string {
	return seed.Data
}

type NewItemEvent struct {
	Data        string
	Fingerprint hash.Sig
	// Evicted is set if the admission displaced another seed.
	Evicted string
}

func NewCorpus(ctx context.Context, maxPopulation int) *Corpus {
	return NewMonitoredCorpus(ctx, maxPopulation, nil)
}

func NewMonitoredCorpus(ctx context.Context, maxPopulation int, updates chan<- NewItemEvent) *Corpus {
	if maxPopulation < 1 {
		panic(fmt.Sprintf("bad corpus max population %v", maxPopulation))
	}
	return &Corpus{
		ctx:     ctx,
		max:     maxPopulation,
		index:   make(map[string]int),
		updates: updates,
	}
}

func (corpus *Corpus) MaxPopulation() int {
	return corpus.max
}

func (corpus *Corpus) Len() int {
	corpus.mu.RLock()
	defer corpus.mu.RUnlock()
	return len(corpus.seeds)
}

func (corpus *Corpus) Has(data string) bool {
	corpus.mu.RLock()
	defer corpus.mu.RUnlock()
	_, ok := corpus.index[data]
	return ok
}

func (corpus *Corpus) Seed(data string) *Seed {
	corpus.mu.RLock()
	defer corpus.mu.RUnlock()
	if idx, ok := corpus.index[data]; ok {
		return corpus.seeds[idx]
	}
	return nil
}

// Seeds returns the seeds in admission order.
// The slice is a copy, the seeds themselves are shared: Energy may only be
// read by the goroutine that calls Update, others should use Copies.
func (corpus *Corpus) Seeds() []*Seed {
	corpus.mu.RLock()
	defer corpus.mu.RUnlock()
	return append([]*Seed(nil), corpus.seeds...)
}

// Copies returns value copies of the seeds in admission order.
func (corpus *Corpus) Copies() []Seed {
	corpus.mu.RLock()
	defer corpus.mu.RUnlock()
	res := make([]Seed, len(corpus.seeds))
	for i, seed := range corpus.seeds {
		res[i] = *seed
	}
	return res
}

// Update runs fn over the seeds (followed by extra) with the corpus locked.
// Seed energies must only be changed inside fn.
func (corpus *Corpus) Update(fn func(seeds []*Seed), extra ...*Seed) {
	corpus.mu.Lock()
	defer corpus.mu.Unlock()
	seeds := make([]*Seed, 0, len(corpus.seeds)+len(extra))
	seeds = append(seeds, corpus.seeds...)
	fn(append(seeds, extra...))
}

// Admit inserts the seed. If the corpus is full, the seed with the minimum
// energy is evicted first (the earliest admitted one on ties) and returned.
// Energies must have been assigned by the caller beforehand.
// Admitting a seed whose data is already present is a programming error.
func (corpus *Corpus) Admit(seed *Seed) (evicted *Seed) {
	corpus.mu.Lock()
	if _, ok := corpus.index[seed.Data]; ok {
		corpus.mu.Unlock()
		panic(fmt.Sprintf("corpus: duplicate seed %q", seed.Data))
	}
	if len(corpus.seeds) >= corpus.max {
		evicted = corpus.removeLocked(corpus.minEnergyLocked())
	}
	corpus.index[seed.Data] = len(corpus.seeds)
	corpus.seeds = append(corpus.seeds, seed)
	corpus.checkLocked()
	corpus.mu.Unlock()

	if corpus.updates != nil {
		ev := NewItemEvent{Data: seed.Data, Fingerprint: seed.Fingerprint}
		if evicted != nil {
			ev.Evicted = evicted.Data
		}
		select {
		case <-corpus.ctx.Done():
		case corpus.updates <- ev:
		}
	}
	return evicted
}

func (corpus *Corpus) minEnergyLocked() int {
	best := 0
	for i, seed := range corpus.seeds {
		if seed.Energy < corpus.seeds[best].Energy {
			best = i
		}
	}
	return best
}

func (corpus *Corpus) removeLocked(idx int) *Seed {
	seed := corpus.seeds[idx]
	corpus.seeds = append(corpus.seeds[:idx], corpus.seeds[idx+1:]...)
	delete(corpus.index, seed.Data)
	for i := idx; i < len(corpus.seeds); i++ {
		corpus.index[corpus.seeds[i].Data] = i
	}
	return seed
}

func (corpus *Corpus) checkLocked() {
	if len(corpus.seeds) > corpus.max {
		panic(fmt.Sprintf("corpus: population %v exceeds max %v", len(corpus.seeds), corpus.max))
	}
	if len(corpus.seeds) != len(corpus.index) {
		panic(fmt.Sprintf("corpus: index size %v != population %v", len(corpus.index), len(corpus.seeds)))
	}
}

// Stats is a snapshot of the relevant current state figures.
type Stats struct {
	Seeds int
	Paths int
}

func (corpus *Corpus) Stats() Stats {
	corpus.mu.RLock()
	defer corpus.mu.RUnlock()
	paths := make(map[hash.Sig]bool)
	for _, seed := range corpus.seeds {
		paths[seed.Fingerprint] = true
	}
	return Stats{
		Seeds: len(corpus.seeds),
		Paths: len(paths),
	}
}

// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package schedule

import (
	"sync"

	"github.com/klnyzzz33/api-fuzzing-test/pkg/hash"
)

// Frequency counts how many executions exercised each coverage path.
// Counts only grow within a session; Reset starts a new session.
type Frequency struct {
	mu     sync.RWMutex
	counts map[hash.Sig]int
	total  int
}

func (f *Frequency) Inc(fp hash.Sig) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts == nil {
		f.counts = make(map[hash.Sig]int)
	}
	f.counts[fp]++
	f.total++
	return f.counts[fp]
}

func (f *Frequency) Count(fp hash.Sig) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.counts[fp]
}

// Len returns the number of distinct paths observed.
func (f *Frequency) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.counts)
}

// Total returns the number of observations.
func (f *Frequency) Total() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.total
}

func (f *Frequency) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts = nil
	f.total = 0
}

func (f *Frequency) Snapshot() map[hash.Sig]int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	res := make(map[hash.Sig]int, len(f.counts))
	for fp, n := range f.counts {
		res[fp] = n
	}
	return res
}

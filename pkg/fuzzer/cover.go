// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzer

import (
	"sync"

	"github.com/klnyzzz33/api-fuzzing-test/pkg/cover"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/hash"
)

// Cover keeps track of the execution paths known to the fuzzer.
type Cover struct {
	mu       sync.RWMutex
	paths    map[hash.Sig]bool
	maxCover cover.Set // union of all locations ever observed
	newCover cover.Set // locations observed since the last GrabNewCover
}

func newCover() *Cover {
	return &Cover{
		paths:    make(map[hash.Sig]bool),
		maxCover: make(cover.Set),
		newCover: make(cover.Set),
	}
}

// Add records the path of one execution and reports whether it was not seen before.
func (c *Cover) Add(fp hash.Sig, locs cover.Set) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for loc := range locs {
		if !c.maxCover.Has(loc) {
			c.maxCover.Add(loc)
			c.newCover.Add(loc)
		}
	}
	if c.paths[fp] {
		return false
	}
	c.paths[fp] = true
	return true
}

func (c *Cover) Seen(fp hash.Sig) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.paths[fp]
}

// GrabNewCover returns the locations first observed since the previous call.
func (c *Cover) GrabNewCover() cover.Set {
	c.mu.Lock()
	defer c.mu.Unlock()
	res := c.newCover
	c.newCover = make(cover.Set)
	return res
}

func (c *Cover) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths = make(map[hash.Sig]bool)
	c.maxCover = make(cover.Set)
	c.newCover = make(cover.Set)
}

type CoverStats struct {
	Paths     int
	Locations int
}

func (c *Cover) Stats() CoverStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CoverStats{
		Paths:     len(c.paths),
		Locations: len(c.maxCover),
	}
}

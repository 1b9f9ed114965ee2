// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package cover provides types for working with the coverage observed
// during a single execution of the system under test.
package cover

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/klnyzzz33/api-fuzzing-test/pkg/hash"
)

// Location identifies an executed source location.
type Location struct {
	Func string
	Line int
}

func (loc Location) String() string {
	return fmt.Sprintf("%v:%v", loc.Func, loc.Line)
}

// ParseLocation parses the func:line form produced by Location.String.
func ParseLocation(s string) (Location, error) {
	pos := strings.LastIndexByte(s, ':')
	if pos <= 0 {
		return Location{}, fmt.Errorf("bad coverage location %q", s)
	}
	line, err := strconv.Atoi(s[pos+1:])
	if err != nil {
		return Location{}, fmt.Errorf("bad coverage location %q: %w", s, err)
	}
	return Location{Func: s[:pos], Line: line}, nil
}

// Set is the set of locations executed by one run.
// Two runs are equivalent iff their sets are equal.
type Set map[Location]struct{}

func FromSlice(locs []Location) Set {
	s := make(Set, len(locs))
	for _, loc := range locs {
		s[loc] = struct{}{}
	}
	return s
}

func (s Set) Add(loc Location) {
	s[loc] = struct{}{}
}

func (s Set) Has(loc Location) bool {
	_, ok := s[loc]
	return ok
}

func (s Set) Len() int {
	return len(s)
}

func (s Set) Copy() Set {
	c := make(Set, len(s))
	for loc := range s {
		c[loc] = struct{}{}
	}
	return c
}

func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for loc := range s {
		if !other.Has(loc) {
			return false
		}
	}
	return true
}

// Sorted returns the locations ordered by function name, then line.
func (s Set) Sorted() []Location {
	res := make([]Location, 0, len(s))
	for loc := range s {
		res = append(res, loc)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Func != res[j].Func {
			return res[i].Func < res[j].Func
		}
		return res[i].Line < res[j].Line
	})
	return res
}

// Fingerprint is a stable hash over the sorted set.
// Equal sets always produce equal fingerprints regardless of insertion order.
func (s Set) Fingerprint() hash.Sig {
	var buf []byte
	for _, loc := range s.Sorted() {
		buf = append(buf, loc.Func...)
		buf = append(buf, ':')
		buf = strconv.AppendInt(buf, int64(loc.Line), 10)
		buf = append(buf, '\n')
	}
	return hash.Hash(buf)
}

// Tracer records locations hit by an instrumented function.
// It may be written from a goroutine that outlives the run (e.g. after a timeout),
// so all accesses are synchronized.
type Tracer struct {
	mu  sync.Mutex
	set Set
}

func NewTracer() *Tracer {
	return &Tracer{set: make(Set)}
}

func (tr *Tracer) Hit(fn string, line int) {
	if tr == nil {
		return
	}
	tr.mu.Lock()
	tr.set[Location{Func: fn, Line: line}] = struct{}{}
	tr.mu.Unlock()
}

// Snapshot returns a copy of the coverage observed so far.
func (tr *Tracer) Snapshot() Set {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.set.Copy()
}

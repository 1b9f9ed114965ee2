// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package stat

import (
	"sync"
)

// Mean is a running mean. Samples are folded in on arrival and not kept.
type Mean[T ~int64 | ~float64] struct {
	mu   sync.Mutex
	n    int64
	mean T
}

func (m *Mean[T]) Add(v T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	m.mean += (v - m.mean) / T(m.n)
}

// Get returns the mean and the number of samples it covers.
func (m *Mean[T]) Get() (T, int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mean, m.n
}

func (m *Mean[T]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n, m.mean = 0, 0
}

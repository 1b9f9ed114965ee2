// Copyright 2022 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package testutil

import (
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// IterCount returns the number of iterations randomized tests should run.
func IterCount() int {
	iters := 1000
	if testing.Short() {
		iters /= 10
	}
	if RaceEnabled {
		iters /= 10
	}
	return iters
}

// RandSource returns a logged random source. GEC_SEED pins the seed,
// CI runs always use seed 0.
func RandSource(t testing.TB) rand.Source {
	seed := time.Now().UnixNano()
	if fixed := os.Getenv("GEC_SEED"); fixed != "" {
		seed, _ = strconv.ParseInt(fixed, 0, 64)
	}
	if os.Getenv("CI") != "" {
		seed = 0
	}
	t.Logf("seed=%v", seed)
	return rand.NewSource(seed)
}

// Logf adapts t.Logf to library logging callbacks, dropping messages above maxLevel.
func Logf(t testing.TB, maxLevel int) func(level int, msg string, args ...interface{}) {
	return func(level int, msg string, args ...interface{}) {
		if level > maxLevel {
			return
		}
		t.Logf(msg, args...)
	}
}

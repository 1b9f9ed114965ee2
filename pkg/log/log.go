// Copyright 2016 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package log provides functionality similar to standard log package with some extensions:
//   - verbosity levels shared by all packages of a binary
//   - ability to cache recent output in memory (shown on the manager status page)
//   - a Func adapter for libraries that take a logging callback
package log

import (
	"flag"
	"fmt"
	golog "log"
	"strings"
	"sync"
	"time"
)

var (
	flagV       = flag.Int("vv", 0, "verbosity")
	mu          sync.Mutex
	cache       *ringCache
	prependTime = true // for testing
)

// Func is the signature of logging callbacks accepted by library packages.
type Func func(level int, msg string, args ...interface{})

type ringCache struct {
	entries []string
	pos     int
	mem     int
	maxMem  int
}

// EnableLogCaching enables in memory caching of log output.
// Caches up to maxLines, but no more than maxMem bytes.
// Cached output can later be queried with CachedLogOutput.
func EnableLogCaching(maxLines, maxMem int) {
	mu.Lock()
	defer mu.Unlock()
	if cache != nil {
		Fatalf("log caching is already enabled")
	}
	if maxLines < 1 || maxMem < 1 {
		panic("invalid maxLines/maxMem")
	}
	cache = &ringCache{
		entries: make([]string, maxLines),
		maxMem:  maxMem,
	}
}

// CachedLogOutput returns the cached log output, oldest line first.
func CachedLogOutput() string {
	mu.Lock()
	defer mu.Unlock()
	if cache == nil {
		return ""
	}
	buf := new(strings.Builder)
	for i := range cache.entries {
		entry := cache.entries[(cache.pos+i)%len(cache.entries)]
		if entry == "" {
			continue
		}
		buf.WriteString(entry)
		buf.WriteByte('\n')
	}
	return buf.String()
}

func (c *ringCache) add(entry string) {
	c.mem -= len(c.entries[c.pos])
	c.entries[c.pos] = entry
	c.mem += len(entry)
	c.pos = (c.pos + 1) % len(c.entries)
	// Drop the oldest entries until we fit into the memory limit,
	// but always keep the most recent one.
	for i := 0; i < len(c.entries)-1 && c.mem > c.maxMem; i++ {
		pos := (c.pos + i) % len(c.entries)
		c.mem -= len(c.entries[pos])
		c.entries[pos] = ""
	}
	if c.mem < 0 {
		panic("log cache size underflow")
	}
}

// V reports whether messages of the given level are printed.
func V(level int) bool {
	return level <= *flagV
}

func Logf(v int, msg string, args ...interface{}) {
	mu.Lock()
	if cache != nil && v <= 1 {
		timeStr := ""
		if prependTime {
			timeStr = time.Now().Format("2006/01/02 15:04:05 ")
		}
		cache.add(timeStr + fmt.Sprintf(msg, args...))
	}
	mu.Unlock()

	if V(v) {
		golog.Printf(msg, args...)
	}
}

// Prefixed returns a Func that tags every message with the given name.
func Prefixed(name string) Func {
	return func(level int, msg string, args ...interface{}) {
		Logf(level, "%v: %v", name, fmt.Sprintf(msg, args...))
	}
}

func Fatal(err error) {
	golog.Fatal(err)
}

func Fatalf(msg string, args ...interface{}) {
	golog.Fatalf(msg, args...)
}

type VerboseWriter int

func (w VerboseWriter) Write(data []byte) (int, error) {
	Logf(int(w), "%s", data)
	return len(data), nil
}

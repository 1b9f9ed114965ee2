// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package tool

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
)

type profiler struct {
	cpu *os.File
	mem string
}

// startProfiling starts the CPU profile right away. The heap profile is
// written by stop, after a GC, so it shows what the tool retained at exit.
func startProfiling(cpuFile, memFile string) (*profiler, error) {
	p := &profiler{mem: memFile}
	if cpuFile == "" {
		return p, nil
	}
	f, err := os.Create(cpuFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create cpu profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to start cpu profile: %w", err)
	}
	p.cpu = f
	return p, nil
}

func (p *profiler) stop() error {
	if p.cpu != nil {
		pprof.StopCPUProfile()
		if err := p.cpu.Close(); err != nil {
			return err
		}
	}
	if p.mem == "" {
		return nil
	}
	f, err := os.Create(p.mem)
	if err != nil {
		return fmt.Errorf("failed to create memory profile: %w", err)
	}
	defer f.Close()
	runtime.GC()
	return pprof.WriteHeapProfile(f)
}

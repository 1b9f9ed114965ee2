// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package runner

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/klnyzzz33/api-fuzzing-test/pkg/cover"
)

// SUTFunc is an in-process system under test. It reports the locations
// it executes to the tracer.
type SUTFunc func(tr *cover.Tracer, input string) (string, error)

// FuncRunner runs an in-process function.
type FuncRunner struct {
	Fn      SUTFunc
	Timeout time.Duration
}

type funcDone struct {
	output string
	err    error
}

func (fr *FuncRunner) Execute(ctx context.Context, input string) *Result {
	start := time.Now()
	tr := cover.NewTracer()
	done := make(chan funcDone, 1)
	go func() {
		var res funcDone
		defer func() {
			if e := recover(); e != nil {
				res = funcDone{err: fmt.Errorf("panic: %v\n%s", e, debug.Stack())}
			}
			done <- res
		}()
		res.output, res.err = fr.Fn(tr, input)
	}()
	var timeout <-chan time.Time
	if fr.Timeout > 0 {
		timer := time.NewTimer(fr.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}
	// Go can't stop the goroutine on timeout. It keeps running detached
	// and writes into its own tracer, which is no longer observed.
	select {
	case res := <-done:
		ret := &Result{
			Cover:   tr.Snapshot(),
			Elapsed: time.Since(start),
		}
		if res.err != nil {
			ret.Status = Incompetent
			ret.Output = res.err.Error()
			ret.Err = res.err
		} else {
			ret.Status = Survived
			ret.Output = ReturnMarker + res.output
		}
		return ret
	case <-timeout:
		return &Result{
			Status:  Killed,
			Output:  TimeoutOutput,
			Cover:   tr.Snapshot(),
			Elapsed: time.Since(start),
		}
	case <-ctx.Done():
		return &Result{
			Status:  Incompetent,
			Cover:   tr.Snapshot(),
			Elapsed: time.Since(start),
			Err:     ctx.Err(),
		}
	}
}

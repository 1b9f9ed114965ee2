// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/klnyzzz33/api-fuzzing-test/pkg/cover"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/log"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/mutation"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/runner"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/stat"
)

// Escalation decides about inputs that brought no new coverage.
type Escalation interface {
	// Reset is called at the start of every session.
	Reset(ctx context.Context, original string) error
	Consider(ctx context.Context, cand *Candidate) *Verdict
}

// Candidate is a mutated input that was executed but not admitted for coverage.
type Candidate struct {
	Original string
	Input    string
	Output   string
	Cover    cover.Set
}

type Verdict struct {
	Admit bool
	// Kills are the session-wide kill figures after the batch.
	Kills    mutation.KillStats
	Skipped  int
	Executed int
	Err      error
}

// MutationFeedback admits inputs that let the test harness kill more mutants
// than any input before them in the session.
type MutationFeedback struct {
	Oracle    mutation.Oracle
	Bridge    mutation.Bridge
	Locations *cover.LocationTable
	Logf      log.Func

	mu        sync.Mutex
	best      int
	kills     mutation.KillStats
	batchTime stat.Mean[time.Duration]
}

func (mf *MutationFeedback) logf(level int, msg string, args ...interface{}) {
	if mf.Logf != nil {
		mf.Logf(level, msg, args...)
	}
}

// Reset drops all outcomes of the previous session and restores the system under test.
func (mf *MutationFeedback) Reset(ctx context.Context, original string) error {
	if err := mf.Bridge.Clear(); err != nil {
		return fmt.Errorf("failed to clear the bridge: %w", err)
	}
	n, err := mf.Oracle.Clear(ctx, mutation.All)
	if err != nil {
		return fmt.Errorf("failed to clear outcomes: %w", err)
	}
	if err := mf.Oracle.Restore(ctx); err != nil {
		return fmt.Errorf("failed to restore the system: %w", err)
	}
	mf.mu.Lock()
	mf.best = 0
	mf.kills = mutation.KillStats{}
	mf.mu.Unlock()
	mf.batchTime.Reset()
	mf.logf(1, "mutation feedback reset for %q, dropped %v outcomes", original, n)
	return nil
}

// Best returns the highest kill count reached in the session.
func (mf *MutationFeedback) Best() int {
	mf.mu.Lock()
	defer mf.mu.Unlock()
	return mf.best
}

func (mf *MutationFeedback) Kills() mutation.KillStats {
	mf.mu.Lock()
	defer mf.mu.Unlock()
	return mf.kills
}

// BatchTime is the mean duration of the oracle batches run in the session.
func (mf *MutationFeedback) BatchTime() time.Duration {
	mean, _ := mf.batchTime.Get()
	return mean
}

func (mf *MutationFeedback) Consider(ctx context.Context, cand *Candidate) *Verdict {
	v := &Verdict{}
	killedBefore := make(map[string]bool)
	defer func() {
		// Restore must happen even if ctx is already cancelled.
		mf.cleanup(context.WithoutCancel(ctx), v, killedBefore)
	}()
	msg := &mutation.BridgeMessage{
		OriginalInput:  cand.Original,
		MutatedInput:   cand.Input,
		ExpectedOutput: strings.TrimPrefix(cand.Output, runner.ReturnMarker),
	}
	if err := mf.Bridge.Publish(msg); err != nil {
		v.Err = fmt.Errorf("failed to publish the bridge message: %w", err)
		return v
	}
	mutants, err := mf.Oracle.Mutants(ctx)
	if err != nil {
		v.Err = err
		return v
	}
	recs, err := mf.Oracle.Outcomes(ctx)
	if err != nil {
		v.Err = err
		return v
	}
	for _, rec := range recs {
		if rec.Outcome == mutation.Killed {
			killedBefore[rec.JobID] = true
		}
	}
	reachable := mf.Locations.Positions(cand.Cover)
	var skip []string
	for _, m := range mutants {
		if killedBefore[m.JobID] {
			continue
		}
		if reachable[cover.ModuleLine{Module: m.Module, Line: m.Line}] {
			v.Executed++
		} else {
			skip = append(skip, m.JobID)
		}
	}
	if err := mf.Oracle.MarkSkipped(ctx, skip); err != nil {
		v.Err = err
		return v
	}
	v.Skipped = len(skip)
	if v.Executed != 0 {
		start := time.Now()
		if err := mf.Oracle.ExecuteBatch(ctx); err != nil {
			v.Err = err
			return v
		}
		mf.batchTime.Add(time.Since(start))
	}
	recs, err = mf.Oracle.Outcomes(ctx)
	if err != nil {
		v.Err = err
		return v
	}
	ks := mutation.Tally(recs)
	mf.mu.Lock()
	defer mf.mu.Unlock()
	v.Kills = ks
	mf.kills = ks
	if ks.Killed > mf.best {
		mf.logf(1, "input %q raised kills %v -> %v", cand.Input, mf.best, ks.Killed)
		mf.best = ks.Killed
		v.Admit = true
	}
	return v
}

// cleanup clears the outcomes that must be retested for the next candidate.
// After a failed batch nothing it produced is kept.
func (mf *MutationFeedback) cleanup(ctx context.Context, v *Verdict, killedBefore map[string]bool) {
	failed := v.Err != nil
	pred := func(rec *mutation.Record) bool {
		if rec.Outcome != mutation.Killed {
			return true
		}
		return failed && !killedBefore[rec.JobID]
	}
	if _, err := mf.Oracle.Clear(ctx, pred); err != nil {
		v.Err = errors.Join(v.Err, fmt.Errorf("failed to clear outcomes: %w", err))
	}
	if err := mf.Oracle.Restore(ctx); err != nil {
		v.Err = errors.Join(v.Err, fmt.Errorf("failed to restore the system: %w", err))
	}
	if failed {
		v.Admit = false
		mf.mu.Lock()
		v.Kills = mf.kills
		mf.mu.Unlock()
	}
}

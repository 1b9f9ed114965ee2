// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzer

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/corpus"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/cover"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/hash"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/log"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/mutation"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/mutator"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/runner"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/schedule"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/stat"
)

// Fuzzer runs the greybox fuzzing loop. Step and Loop must not be called concurrently,
// the rest of the methods are safe to call from other goroutines.
type Fuzzer struct {
	Stats
	Config *Config
	Cover  *Cover

	ctx     context.Context
	mu      sync.Mutex
	rnd     *rand.Rand
	session *Session
	seedIdx int
	iters   atomic.Int64
}

type Config struct {
	Debug bool
	// Seeds are executed in order before any mutation.
	// The first one is the original input the session is about.
	Seeds         []string
	MaxPopulation int
	// MaxTrials bounds the number of stacked mutations per input.
	MaxTrials int
	Mutator   *mutator.Mutator
	Schedule  schedule.Schedule
	Runner    runner.Runner
	// Escalation, if set, judges the inputs that brought no new coverage.
	Escalation Escalation
	// AdmitAll turns off coverage guidance: every new distinct input is admitted.
	AdmitAll bool
	// Stats receives the fuzzer metrics. If nil, a private set is used.
	Stats   *stat.Set
	Updates chan<- corpus.NewItemEvent
	Logf    log.Func
}

func (cfg *Config) Validate() error {
	switch {
	case len(cfg.Seeds) == 0:
		return errors.New("no seeds")
	case cfg.MaxPopulation < 1:
		return fmt.Errorf("bad max population %v", cfg.MaxPopulation)
	case cfg.MaxTrials < 1:
		return fmt.Errorf("bad max trials %v", cfg.MaxTrials)
	case cfg.Mutator == nil:
		return errors.New("no mutator")
	case cfg.Schedule == nil:
		return errors.New("no schedule")
	case cfg.Runner == nil:
		return errors.New("no runner")
	}
	return nil
}

// Session is the state of fuzzing one original input.
type Session struct {
	ID       uuid.UUID
	Original string
	Started  time.Time
	Corpus   *corpus.Corpus
}

// Iteration describes what happened to one executed input.
type Iteration struct {
	Input string
	// Parent is the seed the input was mutated from, nil for initial seeds.
	Parent      *corpus.Seed
	Result      *runner.Result
	Fingerprint hash.Sig
	NewPath     bool
	// NewLocations are the source locations first reached by this input.
	NewLocations cover.Set
	Admitted     bool
	Evicted      *corpus.Seed
	// Verdict is set if the input was passed to the escalation.
	Verdict *Verdict
	// Cancelled is set if the context was cancelled during execution,
	// the result is not accounted for then.
	Cancelled bool
}

func NewFuzzer(ctx context.Context, cfg *Config, rnd *rand.Rand) (*Fuzzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("bad fuzzer config: %w", err)
	}
	f := &Fuzzer{
		Config: cfg,
		Cover:  newCover(),
		ctx:    ctx,
		rnd:    rnd,
	}
	set := cfg.Stats
	if set == nil {
		set = stat.NewSet(nil)
	}
	if err := f.Reset(ctx); err != nil {
		return nil, err
	}
	f.Stats = newStats(set, f)
	f.statSessions.Add(1)
	if cfg.Debug {
		go f.logCurrentStats()
	}
	return f, nil
}

// Reset starts a new session: the corpus, the seen paths, the path frequencies
// and the escalation state are all dropped and the seeds are queued again.
func (fuzzer *Fuzzer) Reset(ctx context.Context) error {
	cfg := fuzzer.Config
	session := &Session{
		ID:       uuid.New(),
		Original: cfg.Seeds[0],
		Started:  time.Now(),
		Corpus:   corpus.NewMonitoredCorpus(ctx, cfg.MaxPopulation, cfg.Updates),
	}
	fuzzer.mu.Lock()
	defer fuzzer.mu.Unlock()
	fuzzer.Cover.reset()
	cfg.Schedule.Reset()
	if cfg.Escalation != nil {
		if err := cfg.Escalation.Reset(ctx, session.Original); err != nil {
			return fmt.Errorf("failed to reset escalation: %w", err)
		}
	}
	if fuzzer.session != nil {
		fuzzer.statSessions.Add(1)
	}
	fuzzer.session = session
	fuzzer.seedIdx = 0
	fuzzer.iters.Store(0)
	fuzzer.Logf(0, "session %v started for %q", session.ID, session.Original)
	return nil
}

func (fuzzer *Fuzzer) Session() *Session {
	fuzzer.mu.Lock()
	defer fuzzer.mu.Unlock()
	return fuzzer.session
}

// Iterations returns the number of iterations done in the current session.
func (fuzzer *Fuzzer) Iterations() int {
	return int(fuzzer.iters.Load())
}

// Loop runs up to iters iterations and stops early once ctx is done.
func (fuzzer *Fuzzer) Loop(ctx context.Context, iters int) error {
	if iters < 1 {
		return fmt.Errorf("bad iteration count %v", iters)
	}
	for i := 0; i < iters && ctx.Err() == nil; i++ {
		fuzzer.Step(ctx)
	}
	fuzzer.Logf(0, "session %v: %v iterations, %v seeds, %v paths",
		fuzzer.Session().ID, fuzzer.Iterations(), fuzzer.statCorpus.Val(), fuzzer.statPaths.Val())
	return nil
}

// Step runs one iteration: select, mutate, execute, classify, then admit or escalate.
func (fuzzer *Fuzzer) Step(ctx context.Context) *Iteration {
	session, it := fuzzer.next()
	res := fuzzer.Config.Runner.Execute(ctx, it.Input)
	it.Result = res
	if ctx.Err() != nil {
		it.Cancelled = true
		return it
	}
	fuzzer.accountExec(it)
	it.Fingerprint = res.Cover.Fingerprint()
	fuzzer.Config.Schedule.Observe(it.Fingerprint)
	it.NewPath = fuzzer.Cover.Add(it.Fingerprint, res.Cover)
	it.NewLocations = fuzzer.Cover.GrabNewCover()
	if n := it.NewLocations.Len(); n != 0 {
		fuzzer.statNewLocations.Add(n)
		fuzzer.Logf(1, "%q reached %v new locations", it.Input, n)
	}
	switch {
	case session.Corpus.Has(it.Input):
	case it.NewPath || fuzzer.Config.AdmitAll:
		fuzzer.admit(session, it)
		fuzzer.statNewInputs.Add(1)
	case fuzzer.Config.Escalation != nil:
		it.Verdict = fuzzer.escalate(ctx, session, it)
		if it.Verdict.Admit {
			fuzzer.admit(session, it)
			fuzzer.statFeedbackInputs.Add(1)
		}
	}
	fuzzer.iters.Add(1)
	if fuzzer.Config.Debug {
		fuzzer.checkSession(session)
	}
	fuzzer.Logf(2, "%q: %v, path %v, new %v, admitted %v",
		it.Input, res.Status, it.Fingerprint.Short(), it.NewPath, it.Admitted)
	return it
}

func (fuzzer *Fuzzer) next() (*Session, *Iteration) {
	fuzzer.mu.Lock()
	defer fuzzer.mu.Unlock()
	session := fuzzer.session
	if fuzzer.seedIdx < len(fuzzer.Config.Seeds) {
		input := fuzzer.Config.Seeds[fuzzer.seedIdx]
		fuzzer.seedIdx++
		return session, &Iteration{Input: input}
	}
	var parent *corpus.Seed
	session.Corpus.Update(func(seeds []*corpus.Seed) {
		if len(seeds) != 0 {
			parent = fuzzer.Config.Schedule.Choose(fuzzer.rnd, seeds)
		}
	})
	if parent == nil {
		// Seeding was interrupted before anything got admitted.
		return session, &Iteration{Input: session.Original}
	}
	input := fuzzer.Config.Mutator.MutateN(fuzzer.rnd, parent.Data, fuzzer.Config.MaxTrials)
	return session, &Iteration{Input: input, Parent: parent}
}

func (fuzzer *Fuzzer) accountExec(it *Iteration) {
	fuzzer.statExecTotal.Add(1)
	if it.Parent == nil {
		fuzzer.statExecSeed.Add(1)
	} else {
		fuzzer.statExecFuzz.Add(1)
	}
	switch it.Result.Status {
	case runner.Incompetent:
		fuzzer.statExecIncompetent.Add(1)
		fuzzer.Logf(1, "%q: incompetent run: %v", it.Input, it.Result.Err)
	case runner.Killed:
		fuzzer.statExecKilled.Add(1)
	}
	fuzzer.statExecTime.Add(int(it.Result.Elapsed / time.Microsecond))
}

func (fuzzer *Fuzzer) admit(session *Session, it *Iteration) {
	seed := &corpus.Seed{
		Data:        it.Input,
		Fingerprint: it.Fingerprint,
		Output:      it.Result.Output,
	}
	// Eviction compares the energies, so they must be current.
	session.Corpus.Update(fuzzer.Config.Schedule.AssignEnergy, seed)
	it.Evicted = session.Corpus.Admit(seed)
	it.Admitted = true
	if it.Evicted != nil {
		fuzzer.statEvictions.Add(1)
		fuzzer.Logf(1, "evicted %q (energy %.4g)", it.Evicted.Data, it.Evicted.Energy)
	}
	fuzzer.Logf(1, "admitted %q: path %v", it.Input, it.Fingerprint.Short())
}

func (fuzzer *Fuzzer) escalate(ctx context.Context, session *Session, it *Iteration) *Verdict {
	v := fuzzer.Config.Escalation.Consider(ctx, &Candidate{
		Original: session.Original,
		Input:    it.Input,
		Output:   it.Result.Output,
		Cover:    it.Result.Cover,
	})
	if v.Executed != 0 {
		fuzzer.statOracleBatches.Add(1)
	}
	fuzzer.statMutantsSkipped.Add(v.Skipped)
	if v.Err != nil {
		fuzzer.statOracleErrors.Add(1)
		fuzzer.Logf(0, "mutation testing of %q failed: %v", it.Input, v.Err)
	}
	return v
}

// checkSession verifies the corpus against the path bookkeeping.
func (fuzzer *Fuzzer) checkSession(session *Session) {
	freq := fuzzer.Config.Schedule.Frequency()
	for _, seed := range session.Corpus.Seeds() {
		if freq.Count(seed.Fingerprint) < 1 {
			panic(fmt.Sprintf("seed %q has path %v that was never observed",
				seed.Data, seed.Fingerprint.Short()))
		}
		if !fuzzer.Cover.Seen(seed.Fingerprint) {
			panic(fmt.Sprintf("seed %q has unknown path %v", seed.Data, seed.Fingerprint.Short()))
		}
	}
}

func (fuzzer *Fuzzer) kills() mutation.KillStats {
	if k, ok := fuzzer.Config.Escalation.(interface{ Kills() mutation.KillStats }); ok {
		return k.Kills()
	}
	return mutation.KillStats{}
}

func (fuzzer *Fuzzer) batchTime() time.Duration {
	if b, ok := fuzzer.Config.Escalation.(interface{ BatchTime() time.Duration }); ok {
		return b.BatchTime()
	}
	return 0
}

func (fuzzer *Fuzzer) Logf(level int, msg string, args ...interface{}) {
	if fuzzer.Config.Logf == nil {
		return
	}
	fuzzer.Config.Logf(level, msg, args...)
}

func (fuzzer *Fuzzer) logCurrentStats() {
	for {
		select {
		case <-time.After(time.Minute):
		case <-fuzzer.ctx.Done():
			return
		}

		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		fuzzer.Logf(0, "iterations: %d, seeds: %d, paths: %d, heap (MB): %d",
			fuzzer.Iterations(), fuzzer.statCorpus.Val(), fuzzer.statPaths.Val(), m.Alloc/1000/1000)
	}
}

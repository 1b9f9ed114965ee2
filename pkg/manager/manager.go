// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package manager assembles a fuzzing session from a configuration and serves its status.
package manager

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/klnyzzz33/api-fuzzing-test/pkg/corpus"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/cover"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/fuzzer"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/gectag"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/log"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/mgrconfig"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/mutation"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/mutator"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/osutil"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/runner"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/schedule"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/stat"
)

// Manager owns everything one fuzzing session needs.
type Manager struct {
	Cfg    *mgrconfig.Config
	Stats  *stat.Set
	Fuzzer *fuzzer.Fuzzer
	Oracle *mutation.DBOracle
	db     *mutation.WorkDB

	eventsMu sync.Mutex
	events   []corpus.NewItemEvent
}

// maxEvents bounds the corpus changes kept for the status page.
const maxEvents = 20

// New builds the session described by cfg. Without sut_command the built-in
// tagger is fuzzed, without mutation.test_command its mutants are tested in-process.
func New(ctx context.Context, cfg *mgrconfig.Config, set *stat.Set, logf log.Func) (*Manager, error) {
	if err := osutil.MkdirAll(cfg.Workdir); err != nil {
		return nil, err
	}
	mgr := &Manager{Cfg: cfg, Stats: set}
	dict := mutator.DefaultDictionary()
	if cfg.Dictionary != "" {
		var err error
		if dict, err = mutator.LoadDictionary(cfg.Dictionary); err != nil {
			return nil, err
		}
	}
	sched, err := schedule.New(cfg.Schedule, cfg.Exponent)
	if err != nil {
		return nil, err
	}
	locations := gectag.Locations()
	if cfg.Locations != "" {
		if locations, err = cover.LoadLocationTable(cfg.Locations); err != nil {
			return nil, err
		}
	}
	updates := make(chan corpus.NewItemEvent, 16)
	fcfg := &fuzzer.Config{
		Seeds:         cfg.Seeds,
		MaxPopulation: cfg.MaxPopulation,
		MaxTrials:     cfg.MaxTrials,
		Mutator:       mutator.New(mutator.DefaultOpts, dict),
		Schedule:      sched,
		Runner:        makeRunner(cfg),
		AdmitAll:      cfg.Admission == mgrconfig.AdmitAll,
		Stats:         set,
		Updates:       updates,
		Logf:          logf,
	}
	if cfg.Mutation != nil {
		if fcfg.AdmitAll {
			logf(0, "admission %q: mutation feedback is not used", cfg.Admission)
		} else {
			esc, err := mgr.initMutation(ctx, locations, logf)
			if err != nil {
				mgr.Close()
				return nil, err
			}
			fcfg.Escalation = esc
		}
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	logf(0, "%v: random seed %v", cfg.Name, seed)
	mgr.Fuzzer, err = fuzzer.NewFuzzer(ctx, fcfg, rand.New(rand.NewSource(seed)))
	if err != nil {
		mgr.Close()
		return nil, err
	}
	go mgr.watchCorpus(ctx, updates, logf)
	return mgr, nil
}

func (mgr *Manager) watchCorpus(ctx context.Context, updates <-chan corpus.NewItemEvent, logf log.Func) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-updates:
			if ev.Evicted != "" {
				logf(1, "corpus: admitted %q, evicted %q", ev.Data, ev.Evicted)
			} else {
				logf(1, "corpus: admitted %q", ev.Data)
			}
			mgr.eventsMu.Lock()
			mgr.events = append(mgr.events, ev)
			if len(mgr.events) > maxEvents {
				mgr.events = mgr.events[len(mgr.events)-maxEvents:]
			}
			mgr.eventsMu.Unlock()
		}
	}
}

// Events returns the most recent corpus admissions, oldest first.
func (mgr *Manager) Events() []corpus.NewItemEvent {
	mgr.eventsMu.Lock()
	defer mgr.eventsMu.Unlock()
	return append([]corpus.NewItemEvent(nil), mgr.events...)
}

func makeRunner(cfg *mgrconfig.Config) runner.Runner {
	if len(cfg.SUTCommand) == 0 {
		return &runner.FuncRunner{
			Fn:      gectag.SUT(cfg.Seeds[0]),
			Timeout: cfg.ExecTimeoutValue,
		}
	}
	return &runner.CmdRunner{
		Bin:     cfg.SUTCommand[0],
		Args:    cfg.SUTCommand[1:],
		Dir:     cfg.Workdir,
		Timeout: cfg.ExecTimeoutValue,
	}
}

func (mgr *Manager) initMutation(ctx context.Context, locations *cover.LocationTable,
	logf log.Func) (*fuzzer.MutationFeedback, error) {
	mut, err := OpenMutation(ctx, mgr.Cfg, logf)
	if err != nil {
		return nil, err
	}
	mgr.db = mut.DB
	mgr.Oracle = mut.Oracle
	return &fuzzer.MutationFeedback{
		Oracle:    mut.Oracle,
		Bridge:    mut.Bridge,
		Locations: locations,
		Logf:      logf,
	}, nil
}

// Mutation is the mutation testing backend of a configuration.
type Mutation struct {
	DB     *mutation.WorkDB
	Oracle *mutation.DBOracle
	Bridge mutation.Bridge
}

// OpenMutation opens the work db of cfg and loads a fresh set of mutants into it.
func OpenMutation(ctx context.Context, cfg *mgrconfig.Config, logf log.Func) (*Mutation, error) {
	mcfg := cfg.Mutation
	if mcfg == nil {
		return nil, fmt.Errorf("%v: mutation testing is not configured", cfg.Name)
	}
	db, err := mutation.OpenWorkDB(mcfg.Session)
	if err != nil {
		return nil, err
	}
	mut := &Mutation{DB: db}
	var (
		tester  mutation.Tester
		mutants []*mutation.Mutant
	)
	if mcfg.InProcess() {
		mem := new(mutation.MemBridge)
		mut.Bridge, tester, mutants = mem, gectag.Tester(mem), gectag.Mutants()
	} else {
		if mutants, err = mutation.LoadMutants(mcfg.Mutants); err != nil {
			db.Close()
			return nil, err
		}
		mut.Bridge = &mutation.FileBridge{Path: mcfg.Bridge}
		tester = &mutation.CmdTester{
			TestCommand:    mcfg.TestCommand,
			RestoreCommand: mcfg.RestoreCommand,
			Timeout:        mcfg.TimeoutValue,
			Dir:            cfg.Workdir,
		}
	}
	mut.Oracle = mutation.NewDBOracle(db, tester, logf)
	if err := mut.Oracle.Init(ctx, mutants, true); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init mutation session: %w", err)
	}
	logf(0, "%v: %v mutants in %v", cfg.Name, len(mutants), mcfg.Session)
	return mut, nil
}

// Run fuzzes until the iteration or time budget is exhausted or ctx is cancelled,
// then saves the corpus snapshot into the workdir and returns its path.
func (mgr *Manager) Run(ctx context.Context) (string, error) {
	loopCtx := ctx
	if mgr.Cfg.DurationValue != 0 {
		var cancel context.CancelFunc
		loopCtx, cancel = context.WithTimeout(ctx, mgr.Cfg.DurationValue)
		defer cancel()
	}
	if err := mgr.Fuzzer.Loop(loopCtx, mgr.Cfg.Iterations); err != nil {
		return "", err
	}
	return mgr.Fuzzer.Save(mgr.Cfg.Workdir, mgr.Cfg.Name)
}

func (mgr *Manager) Close() error {
	if mgr.db == nil {
		return nil
	}
	return mgr.db.Close()
}

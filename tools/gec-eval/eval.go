// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"path/filepath"

	"github.com/klnyzzz33/api-fuzzing-test/pkg/log"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/manager"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/mutation"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/osutil"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/snapshot"
)

type Result struct {
	File         string                `json:"file"`
	Original     string                `json:"original_sentence"`
	CorpusSize   int                   `json:"corpus_size"`
	CoverageSize int                   `json:"coverage_size"`
	Killed       map[string]InputKills `json:"mutants_killed"`
	Mutants      int                   `json:"mutant_count"`
}

type InputKills struct {
	Killed    int `json:"kill_count"`
	SUTErrors int `json:"sut_error_kill_count"`
}

func (res *Result) String() string {
	return fmt.Sprintf("%v: original %q, corpus %v, coverage %v, %v mutants, kills %v",
		res.File, res.Original, res.CorpusSize, res.CoverageSize, res.Mutants, res.Killed)
}

func (res *Result) save(dir string) (string, error) {
	data, err := json.MarshalIndent(res, "", "\t")
	if err != nil {
		return "", err
	}
	if err := osutil.MkdirAll(dir); err != nil {
		return "", err
	}
	file := filepath.Join(dir, "eval-"+filepath.Base(res.File))
	return file, osutil.WriteFile(file, append(data, '\n'))
}

type evaluator struct {
	mut     *manager.Mutation
	samples int
	rnd     *rand.Rand
	logf    log.Func
}

func (ev *evaluator) evaluate(ctx context.Context, file string) (*Result, error) {
	snap, err := snapshot.Load(file)
	if err != nil {
		return nil, err
	}
	mutants, err := ev.mut.Oracle.Mutants(ctx)
	if err != nil {
		return nil, err
	}
	res := &Result{
		File:         file,
		Original:     snap.Context,
		CorpusSize:   len(snap.Entries),
		CoverageSize: snap.CoverageSize,
		Killed:       make(map[string]InputKills),
		Mutants:      len(mutants),
	}
	inputs := sample(snap.Entries, ev.samples, ev.rnd)
	for i, e := range inputs {
		ks, err := ev.run(ctx, snap.Context, e)
		if err != nil {
			return nil, fmt.Errorf("%v: input %q: %w", file, e.Input, err)
		}
		res.Killed[e.Input] = InputKills{Killed: ks.Killed, SUTErrors: ks.SUTErrors}
		ev.logf(0, "input %v/%v: killed %v mutants", i+1, len(inputs), ks.Killed)
	}
	return res, nil
}

// run tests all mutants against one entry. The outcomes are dropped and the
// sources are restored afterwards, so every entry is measured on its own.
func (ev *evaluator) run(ctx context.Context, original string, e *snapshot.Entry) (ks mutation.KillStats, err error) {
	msg := &mutation.BridgeMessage{
		OriginalInput:  original,
		MutatedInput:   e.Input,
		ExpectedOutput: e.Output,
	}
	if err := ev.mut.Bridge.Publish(msg); err != nil {
		return ks, err
	}
	defer func() {
		cleanCtx := context.WithoutCancel(ctx)
		if _, cerr := ev.mut.Oracle.Clear(cleanCtx, mutation.All); cerr != nil && err == nil {
			err = cerr
		}
		if rerr := ev.mut.Oracle.Restore(cleanCtx); rerr != nil && err == nil {
			err = rerr
		}
	}()
	if err := ev.mut.Oracle.ExecuteBatch(ctx); err != nil {
		return ks, err
	}
	recs, err := ev.mut.Oracle.Outcomes(ctx)
	if err != nil {
		return ks, err
	}
	return mutation.Tally(recs), nil
}

// sample picks up to n entries with distinct inputs.
func sample(entries []*snapshot.Entry, n int, rnd *rand.Rand) []*snapshot.Entry {
	seen := make(map[string]bool)
	var distinct []*snapshot.Entry
	for _, e := range entries {
		if !seen[e.Input] {
			seen[e.Input] = true
			distinct = append(distinct, e)
		}
	}
	rnd.Shuffle(len(distinct), func(i, j int) {
		distinct[i], distinct[j] = distinct[j], distinct[i]
	})
	if len(distinct) > n {
		distinct = distinct[:n]
	}
	return distinct
}

// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// gec-eval measures how many mutants the corpora saved by gec-manager kill.
// For every snapshot it samples distinct entries, runs all mutants against each
// of them separately and writes the per-input kill counts into eval-<snapshot>.json.
//
// Usage:
//
//	gec-eval -config session.cfg [corpus-*.json...]
//
// Without arguments all snapshots in the config workdir are evaluated.
package main

import (
	"context"
	"flag"
	"math/rand"
	"time"

	"github.com/klnyzzz33/api-fuzzing-test/pkg/log"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/manager"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/mgrconfig"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/osutil"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/snapshot"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/tool"
)

var (
	flagConfig  = flag.String("config", "", "manager configuration with a mutation section")
	flagSamples = flag.Int("samples", 10, "number of distinct corpus entries to evaluate per snapshot")
	flagSeed    = flag.Int64("seed", 0, "random seed for sampling (time-based if 0)")
	flagOut     = flag.String("out", "", "output directory (config workdir if empty)")
)

func main() {
	defer tool.Init()()
	if *flagConfig == "" {
		tool.Failf("specify -config")
	}
	cfg, err := mgrconfig.LoadFile(*flagConfig)
	if err != nil {
		tool.Fail(err)
	}
	files := flag.Args()
	if len(files) == 0 {
		if files, err = snapshot.Glob(cfg.Workdir); err != nil {
			tool.Fail(err)
		}
		if len(files) == 0 {
			tool.Failf("no snapshots in %v", cfg.Workdir)
		}
	}
	outDir := *flagOut
	if outDir == "" {
		outDir = cfg.Workdir
	}
	seed := *flagSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	ctx, stop := osutil.HandleInterrupts(context.Background())
	defer stop()
	mut, err := manager.OpenMutation(ctx, cfg, log.Logf)
	if err != nil {
		tool.Fail(err)
	}
	defer mut.DB.Close()
	ev := &evaluator{
		mut:     mut,
		samples: *flagSamples,
		rnd:     rand.New(rand.NewSource(seed)),
		logf:    log.Logf,
	}
	for _, file := range files {
		res, err := ev.evaluate(ctx, file)
		if err != nil {
			tool.Fail(err)
		}
		out, err := res.save(outDir)
		if err != nil {
			tool.Fail(err)
		}
		log.Logf(0, "%v", res)
		log.Logf(0, "saved %v", out)
	}
}

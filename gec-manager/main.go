// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// gec-manager fuzzes a grammatical error tagger with coverage and mutation testing feedback.
// Every config given to -config is one session, sessions run one after another.
// The final corpus of every session is saved into its workdir for gec-eval.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/klnyzzz33/api-fuzzing-test/pkg/log"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/manager"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/mgrconfig"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/osutil"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/stat"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/tool"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

var (
	flagPatch = flag.String("patch", "", "JSON object merged into every config, e.g. '{\"iterations\": 10}'")
	flagHTTP  = flag.String("http", "", "address to serve status on (overrides the config)")

	statSessions = stat.New("sessions done", "Fuzzing sessions that saved a snapshot",
		stat.Console, stat.Prometheus("gec_sessions_done"))
)

func main() {
	var cfgFiles tool.CfgsFlag
	flag.Var(&cfgFiles, "config", "comma-separated list of configuration files")
	defer tool.Init()()
	if len(cfgFiles) == 0 {
		fmt.Fprintf(os.Stderr, "usage: gec-manager -config=session.cfg[,session2.cfg...]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	var cfgs []*mgrconfig.Config
	for _, file := range cfgFiles {
		cfg, err := mgrconfig.LoadFileWithPatch(file, []byte(*flagPatch))
		if err != nil {
			tool.Fail(err)
		}
		if cfg.Name == "" {
			cfg.Name = fmt.Sprintf("session%v", len(cfgs))
		}
		cfgs = append(cfgs, cfg)
	}
	log.EnableLogCaching(1000, 1<<20)
	ctx, stop := osutil.HandleInterrupts(context.Background())
	defer stop()
	if err := run(ctx, cfgs); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfgs []*mgrconfig.Config) error {
	serv := &manager.HTTPServer{
		Addr:      cfgs[0].HTTP,
		StartTime: time.Now(),
		Gatherer:  prometheus.DefaultGatherer,
	}
	if *flagHTTP != "" {
		serv.Addr = *flagHTTP
	}
	eg, ctx := errgroup.WithContext(ctx)
	httpCtx, httpCancel := context.WithCancel(ctx)
	if serv.Addr != "" {
		eg.Go(func() error {
			return serv.Serve(httpCtx)
		})
	}
	eg.Go(func() error {
		defer httpCancel()
		for i, cfg := range cfgs {
			if ctx.Err() != nil {
				log.Logf(0, "interrupted, skipping %v sessions", len(cfgs)-i)
				break
			}
			if err := runSession(ctx, serv, i, cfg); err != nil {
				return fmt.Errorf("session %v: %w", cfg.Name, err)
			}
		}
		return nil
	})
	return eg.Wait()
}

func runSession(ctx context.Context, serv *manager.HTTPServer, idx int, cfg *mgrconfig.Config) error {
	// Sessions export the same metrics, the label keeps them apart.
	reg := prometheus.WrapRegistererWith(prometheus.Labels{
		"session": fmt.Sprintf("%v-%v", idx, cfg.Name),
	}, prometheus.DefaultRegisterer)
	mgr, err := manager.New(ctx, cfg, stat.NewSet(reg), log.Prefixed(cfg.Name))
	if err != nil {
		return err
	}
	defer mgr.Close()
	serv.Manager.Store(mgr)
	file, err := mgr.Run(ctx)
	if err != nil {
		return err
	}
	statSessions.Add(1)
	log.Logf(0, "%v: done, corpus snapshot %v", cfg.Name, file)
	return nil
}

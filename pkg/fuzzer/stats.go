// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzer

import (
	"github.com/klnyzzz33/api-fuzzing-test/pkg/stat"
)

type Stats struct {
	statExecTotal       *stat.Val
	statExecSeed        *stat.Val
	statExecFuzz        *stat.Val
	statExecIncompetent *stat.Val
	statExecKilled      *stat.Val
	statExecTime        *stat.Val
	statCorpus          *stat.Val
	statPaths           *stat.Val
	statLocations       *stat.Val
	statNewInputs       *stat.Val
	statNewLocations    *stat.Val
	statFeedbackInputs  *stat.Val
	statEvictions       *stat.Val
	statSessions        *stat.Val
	statOracleBatches   *stat.Val
	statOracleErrors    *stat.Val
	statMutantsSkipped  *stat.Val
	statBatchTime       *stat.Val
	statMutantsKilled   *stat.Val
	statTrueKills       *stat.Val
	statKillTimeouts    *stat.Val
	statKillSUTErrors   *stat.Val
}

func newStats(set *stat.Set, fuzzer *Fuzzer) Stats {
	return Stats{
		statExecTotal: set.New("exec total", "Total test program executions",
			stat.Console, stat.Rate{}, stat.Prometheus("gec_exec_total")),
		statExecSeed: set.New("exec seeds", "Executions of the initial seeds",
			stat.Prometheus("gec_exec_seeds")),
		statExecFuzz: set.New("exec fuzz", "Executions of mutated inputs",
			stat.Prometheus("gec_exec_fuzz")),
		statExecIncompetent: set.New("exec incompetent", "Executions where the system failed or panicked",
			stat.Prometheus("gec_exec_incompetent")),
		statExecKilled: set.New("exec killed", "Executions that hit the time limit",
			stat.Prometheus("gec_exec_killed")),
		statExecTime: set.New("exec time", "Time of one execution in microseconds",
			stat.Distribution{}),
		statCorpus: set.New("corpus", "Number of seeds in the population",
			stat.Console, stat.Prometheus("gec_corpus"), func() int {
				return fuzzer.Session().Corpus.Len()
			}),
		statPaths: set.New("unique paths", "Distinct execution paths seen in the session",
			stat.Console, stat.Prometheus("gec_unique_paths"), func() int {
				return fuzzer.Cover.Stats().Paths
			}),
		statLocations: set.New("coverage", "Distinct source locations seen in the session",
			stat.Prometheus("gec_coverage"), func() int {
				return fuzzer.Cover.Stats().Locations
			}),
		statNewInputs: set.New("new inputs", "Inputs admitted for new coverage",
			stat.Rate{}, stat.Prometheus("gec_new_inputs")),
		statNewLocations: set.New("new locations", "Source locations first reached during the session",
			stat.Rate{}, stat.Prometheus("gec_new_locations")),
		statFeedbackInputs: set.New("feedback inputs", "Inputs admitted for killing more mutants",
			stat.Prometheus("gec_feedback_inputs")),
		statEvictions: set.New("evictions", "Seeds evicted from a full population",
			stat.Prometheus("gec_evictions")),
		statSessions: set.New("sessions", "Fuzzing sessions started", stat.Simple),
		statOracleBatches: set.New("oracle batches", "Mutation testing batches run",
			stat.Prometheus("gec_oracle_batches")),
		statOracleErrors: set.New("oracle errors", "Mutation testing batches that failed",
			stat.Prometheus("gec_oracle_errors")),
		statMutantsSkipped: set.New("mutants skipped", "Mutants skipped as unreachable by the candidate",
			stat.Prometheus("gec_mutants_skipped")),
		statBatchTime: set.New("oracle batch time", "Mean duration of a mutation testing batch in milliseconds",
			stat.Prometheus("gec_oracle_batch_ms"), func() int {
				return int(fuzzer.batchTime().Milliseconds())
			}),
		statMutantsKilled: set.New("mutants killed", "Mutants killed in the session",
			stat.Console, stat.Prometheus("gec_mutants_killed"), func() int {
				return fuzzer.kills().Killed
			}),
		statTrueKills: set.New("true kills", "Killed mutants excluding false positives",
			stat.Prometheus("gec_true_kills"), func() int {
				return fuzzer.kills().True()
			}),
		statKillTimeouts: set.New("kill timeouts", "Mutants killed by a timeout",
			stat.Simple, func() int {
				return fuzzer.kills().Timeouts
			}),
		statKillSUTErrors: set.New("kill sut errors", "Mutants killed by an error of the system",
			stat.Simple, func() int {
				return fuzzer.kills().SUTErrors
			}),
	}
}

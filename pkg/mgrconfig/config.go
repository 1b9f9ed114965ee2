// Copyright 2015 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mgrconfig

import "time"

type Config struct {
	// Session name, saved along with corpus snapshots.
	Name string `json:"name"`
	// Location of a working directory for the gec-manager process. Outputs here include:
	// - <workdir>/corpus-<time>-<tag>.json: corpus snapshots
	// - <workdir>/mutation.sqlite: mutation session store (unless mutation.session is set)
	// - <workdir>/mutation_bridge.json: bridge message (unless mutation.bridge is set)
	Workdir string `json:"workdir"`
	// Address to serve /metrics and /stats on (e.g. "localhost:56741", optional).
	HTTP string `json:"http,omitempty"`

	// Initial seeds, used verbatim before any mutation happens.
	// The first one is the original input the system under test compares against.
	Seeds []string `json:"seeds"`
	// YAML file with "words" and "replacements" (optional, the built-in
	// English dictionary is used otherwise).
	Dictionary string `json:"dictionary,omitempty"`

	// Maximum number of seeds retained in the corpus (100 by default).
	MaxPopulation int `json:"max_population"`
	// Upper bound on the number of stacked mutations per candidate (1 by default).
	MaxTrials int `json:"max_trials"`
	// Power schedule: "rarity" (default) or "uniform".
	Schedule string `json:"schedule"`
	// Path rarity exponent, higher values favor rare paths harder (5 by default).
	Exponent float64 `json:"exponent"`
	// Admission policy: "coverage" (default) admits on novel coverage and
	// escalates the rest to mutation feedback, "all" admits every new input.
	Admission string `json:"admission,omitempty"`

	// Number of fuzzing iterations (500 by default).
	Iterations int `json:"iterations"`
	// Wall-clock limit for the session, e.g. "30m" (optional).
	Duration string `json:"duration,omitempty"`
	// Timeout for one execution of the system under test (10s by default).
	ExecTimeout string `json:"exec_timeout"`
	// Random seed, 0 means time-based.
	Seed int64 `json:"seed,omitempty"`

	// External system under test. It reads the input from stdin and reports
	// coverage as "cover: func:line" lines on stdout (optional, the built-in
	// tagger is used otherwise).
	SUTCommand []string `json:"sut_command,omitempty"`
	// YAML mapping of function name to source module, used to map coverage
	// to mutant locations (optional, the built-in tagger table by default).
	Locations string `json:"locations,omitempty"`

	// Mutation testing feedback (optional).
	Mutation *Mutation `json:"mutation,omitempty"`

	// Implementation details beyond this point.
	DurationValue    time.Duration `json:"-"`
	ExecTimeoutValue time.Duration `json:"-"`
}

type Mutation struct {
	// sqlite file that keeps mutants and their outcomes.
	Session string `json:"session"`
	// YAML list of mutants. Without it (and without test_command) the
	// mutants of the built-in tagger are tested in-process.
	Mutants string `json:"mutants,omitempty"`
	// Shell command that tests one mutant given in GEC_MUTANT_* variables.
	// Exit status 0 means the mutant survived.
	TestCommand string `json:"test_command,omitempty"`
	// Shell command that restores the sources after a batch (e.g. "git restore src/").
	RestoreCommand string `json:"restore_command,omitempty"`
	// Timeout for one test command run (10s by default).
	Timeout string `json:"timeout"`
	// Bridge file the test harness reads the input from.
	Bridge string `json:"bridge"`

	TimeoutValue time.Duration `json:"-"`
}

// InProcess says that the built-in tagger mutants are tested without
// spawning external commands.
func (m *Mutation) InProcess() bool {
	return m.TestCommand == ""
}

// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package mutation talks to the mutation testing backend: the persisted
// store of mutants and their outcomes, the test execution and the bridge
// message that tells the test harness which input to check.
package mutation

import (
	"fmt"
	"strings"

	"github.com/klnyzzz33/api-fuzzing-test/pkg/runner"
)

type Outcome string

const (
	Killed      Outcome = "KILLED"
	Survived    Outcome = "SURVIVED"
	Incompetent Outcome = "INCOMPETENT"
	Skipped     Outcome = "SKIPPED"
)

func ParseOutcome(s string) (Outcome, error) {
	switch o := Outcome(s); o {
	case Killed, Survived, Incompetent, Skipped:
		return o, nil
	}
	return "", fmt.Errorf("unknown mutant outcome %q", s)
}

// Mutant is a single syntactic alteration of the system under test.
type Mutant struct {
	JobID      string `yaml:"job_id" json:"job_id"`
	Module     string `yaml:"module" json:"module"`
	Line       int    `yaml:"line" json:"line"`
	Operator   string `yaml:"operator" json:"operator"`
	Occurrence int    `yaml:"occurrence" json:"occurrence"`
}

func (m *Mutant) String() string {
	return fmt.Sprintf("%v %v:%v %v#%v", m.JobID, m.Module, m.Line, m.Operator, m.Occurrence)
}

// Record is the persisted result of testing one mutant.
type Record struct {
	JobID   string
	Outcome Outcome
	Output  string
}

// IsTimeout reports a kill caused by the test exceeding its time limit.
func IsTimeout(rec *Record) bool {
	return rec.Outcome == Killed && rec.Output == runner.TimeoutOutput
}

// IsSUTError reports a kill where the system under test never produced
// a return value, i.e. the harness failed rather than the behavior changed.
func IsSUTError(rec *Record) bool {
	return rec.Outcome == Killed && !IsTimeout(rec) &&
		!strings.Contains(rec.Output, strings.TrimSpace(runner.ReturnMarker))
}

// KillStats separates raw kills from the false positives among them.
type KillStats struct {
	Killed    int `json:"killed"`
	Timeouts  int `json:"timeouts"`
	SUTErrors int `json:"sut_errors"`
}

// True returns the number of kills that reflect a real behavioral difference.
func (ks KillStats) True() int {
	return ks.Killed - ks.Timeouts - ks.SUTErrors
}

func (ks KillStats) String() string {
	return fmt.Sprintf("killed %v (true %v, timeouts %v, sut errors %v)",
		ks.Killed, ks.True(), ks.Timeouts, ks.SUTErrors)
}

func Tally(recs []*Record) KillStats {
	var ks KillStats
	for _, rec := range recs {
		if rec.Outcome != Killed {
			continue
		}
		ks.Killed++
		switch {
		case IsTimeout(rec):
			ks.Timeouts++
		case IsSUTError(rec):
			ks.SUTErrors++
		}
	}
	return ks
}

// NotKilled matches every record except confirmed kills.
func NotKilled(rec *Record) bool {
	return rec.Outcome != Killed
}

// All matches every record.
func All(rec *Record) bool {
	return true
}

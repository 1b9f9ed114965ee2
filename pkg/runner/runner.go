// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package runner executes the system under test on one input and reports
// the outcome together with the set of covered locations.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/klnyzzz33/api-fuzzing-test/pkg/cover"
)

// ReturnMarker prefixes the output of every run where the system under test
// produced a return value. Its absence in a failing run points at a harness
// problem rather than a behavioral difference.
const ReturnMarker = "SUT return value: "

// TimeoutOutput is the output recorded for runs that exceeded the timeout.
const TimeoutOutput = "timeout"

type Status int

const (
	Survived    Status = iota
	Killed             // The run did not finish in time.
	Incompetent        // The system under test failed or panicked.
)

func (s Status) String() string {
	switch s {
	case Survived:
		return "SURVIVED"
	case Killed:
		return "KILLED"
	case Incompetent:
		return "INCOMPETENT"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

type Result struct {
	Status  Status
	Output  string
	Cover   cover.Set
	Elapsed time.Duration
	Err     error // More details for Incompetent.
}

// Runner is implemented by every way of running the system under test.
// Execute never fails: all problems are reflected in Result.Status.
type Runner interface {
	Execute(ctx context.Context, input string) *Result
}

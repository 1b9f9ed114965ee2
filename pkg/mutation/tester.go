// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutation

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/klnyzzz33/api-fuzzing-test/pkg/osutil"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/runner"
)

// CmdTester runs an external test command once per mutant.
// The mutant is passed in GEC_MUTANT_* environment variables;
// the command is expected to apply it before testing.
type CmdTester struct {
	TestCommand    string
	RestoreCommand string
	Timeout        time.Duration
	Dir            string
}

// Test maps the command result to an outcome: exit status 0 means the
// mutant survived, any failure kills it, a timeout kills it with output
// "timeout" and a failure to launch makes it incompetent.
func (ct *CmdTester) Test(ctx context.Context, m *Mutant) (Outcome, string) {
	cmd := osutil.ShellCommand(ct.TestCommand)
	cmd.Dir = ct.Dir
	cmd.Env = append(os.Environ(), MutantEnv(m)...)
	out, err := osutil.RunContext(ctx, ct.timeout(), cmd)
	if err == nil {
		return Survived, string(out)
	}
	if osutil.IsTimeout(err) {
		return Killed, runner.TimeoutOutput
	}
	if _, ok := err.(*osutil.VerboseError); ok {
		return Killed, string(out)
	}
	return Incompetent, err.Error()
}

func (ct *CmdTester) Restore(ctx context.Context) error {
	if ct.RestoreCommand == "" {
		return nil
	}
	cmd := osutil.ShellCommand(ct.RestoreCommand)
	cmd.Dir = ct.Dir
	if _, err := osutil.RunContext(ctx, ct.timeout(), cmd); err != nil {
		return osutil.PrependContext("failed to restore the system under test", err)
	}
	return nil
}

func (ct *CmdTester) timeout() time.Duration {
	if ct.Timeout <= 0 {
		return DefaultTimeout
	}
	return ct.Timeout
}

const DefaultTimeout = 10 * time.Second

// MutantEnv describes the mutant to the test command.
func MutantEnv(m *Mutant) []string {
	return []string{
		"GEC_MUTANT_JOB=" + m.JobID,
		"GEC_MUTANT_MODULE=" + m.Module,
		"GEC_MUTANT_LINE=" + strconv.Itoa(m.Line),
		"GEC_MUTANT_OPERATOR=" + m.Operator,
		"GEC_MUTANT_OCCURRENCE=" + strconv.Itoa(m.Occurrence),
	}
}

// FuncTester tests in-process. Fn returns nil error when the mutant
// produced the expected output, a non-nil error (typically carrying the
// differing output) kills it. A panic kills it as well.
type FuncTester struct {
	Fn func(ctx context.Context, m *Mutant) error
}

func (ft *FuncTester) Test(ctx context.Context, m *Mutant) (outcome Outcome, output string) {
	defer func() {
		if e := recover(); e != nil {
			outcome, output = Killed, fmt.Sprintf("panic: %v\n%s", e, debug.Stack())
		}
	}()
	if err := ft.Fn(ctx, m); err != nil {
		if ctx.Err() != nil {
			return Incompetent, err.Error()
		}
		return Killed, err.Error()
	}
	return Survived, ""
}

func (ft *FuncTester) Restore(ctx context.Context) error {
	return nil
}

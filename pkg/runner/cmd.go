// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package runner

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/klnyzzz33/api-fuzzing-test/pkg/cover"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/osutil"
)

// CoverPrefix marks stdout lines of an external system under test that
// report a covered location, e.g. "cover: annotate:42".
const CoverPrefix = "cover: "

// CmdRunner runs an external binary, feeding the input on stdin.
type CmdRunner struct {
	Bin     string
	Args    []string
	Dir     string
	Timeout time.Duration
}

func (cr *CmdRunner) Execute(ctx context.Context, input string) *Result {
	start := time.Now()
	cmd := osutil.Command(cr.Bin, cr.Args...)
	cmd.Dir = cr.Dir
	cmd.Stdin = strings.NewReader(input)
	out, err := osutil.RunContext(ctx, cr.timeout(), cmd)
	output, cov, parseErr := parseOutput(out)
	res := &Result{
		Cover:   cov,
		Elapsed: time.Since(start),
	}
	switch {
	case err == nil && parseErr != nil:
		res.Status = Incompetent
		res.Output = output
		res.Err = parseErr
	case err == nil:
		res.Status = Survived
		res.Output = ReturnMarker + output
	case osutil.IsTimeout(err):
		res.Status = Killed
		res.Output = TimeoutOutput
	default:
		res.Status = Incompetent
		res.Output = output
		res.Err = err
	}
	return res
}

func (cr *CmdRunner) timeout() time.Duration {
	if cr.Timeout <= 0 {
		return time.Hour
	}
	return cr.Timeout
}

// maxLine bounds one line of the system's output.
const maxLine = 1 << 20

// parseOutput splits coverage report lines from the rest of the output.
// Output past an unreadable line is lost, so the coverage is incomplete then.
func parseOutput(out []byte) (string, cover.Set, error) {
	cov := make(cover.Set)
	var rest []string
	s := bufio.NewScanner(strings.NewReader(string(out)))
	s.Buffer(nil, maxLine)
	for s.Scan() {
		line := s.Text()
		if strings.HasPrefix(line, CoverPrefix) {
			if loc, err := cover.ParseLocation(strings.TrimPrefix(line, CoverPrefix)); err == nil {
				cov.Add(loc)
				continue
			}
		}
		rest = append(rest, line)
	}
	if err := s.Err(); err != nil {
		return strings.Join(rest, "\n"), cov, fmt.Errorf("failed to parse output after %v lines: %w",
			len(rest)+cov.Len(), err)
	}
	return strings.Join(rest, "\n"), cov, nil
}

// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package gectag

import (
	"context"
	"fmt"

	"github.com/klnyzzz33/api-fuzzing-test/pkg/cover"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/mutation"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/runner"
)

// SUT returns the tagger bound to the original sentence, ready for a FuncRunner.
func SUT(original string) runner.SUTFunc {
	return func(tr *cover.Tracer, input string) (string, error) {
		return Annotate(tr, original, input)
	}
}

// Tester checks every mutant against the input published on the bridge.
// A mutant is killed when its output differs from the expected one.
func Tester(bridge mutation.Bridge) *mutation.FuncTester {
	return &mutation.FuncTester{Fn: func(ctx context.Context, m *mutation.Mutant) error {
		msg, err := bridge.Load()
		if err != nil {
			return err
		}
		out, err := AnnotateMutant(m, msg.OriginalInput, msg.MutatedInput)
		if err != nil {
			if err.Error() == msg.ExpectedOutput {
				return nil
			}
			return fmt.Errorf("tagger failed: %w", err)
		}
		if out != msg.ExpectedOutput {
			return fmt.Errorf("%v%v\nexpected: %v", runner.ReturnMarker, out, msg.ExpectedOutput)
		}
		return nil
	}}
}

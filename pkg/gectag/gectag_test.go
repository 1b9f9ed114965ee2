// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package gectag

import (
	"context"
	"testing"

	"github.com/klnyzzz33/api-fuzzing-test/pkg/cover"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/mutation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnnotate(t *testing.T) {
	tests := []struct {
		original string
		input    string
		output   string
	}{
		{"cat sit .", "cat sit .", "perfect"},
		{"cat sit .", "big cat sit .", "big/extra cat/wrong_order sit/wrong_order ./punct"},
		{"cat sit .", "sit cat .", "sit/wrong_order cat/wrong_order ./correct"},
		{"cats eat .", "cat eat .", "cat/wrong_form eat/correct ./correct"},
		{"cats eat .", "Cats eat", "Cats/case eat/correct | missing: ."},
		{"they run quickly", "they runn quickly", "they/correct runn/typo quickly/correct"},
		{"he goes home", "he", "he/correct | missing: goes home"},
	}
	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			out, err := Annotate(nil, test.original, test.input)
			require.NoError(t, err)
			assert.Equal(t, test.output, out)
		})
	}
}

func TestAnnotateErrors(t *testing.T) {
	_, err := Annotate(nil, "cat", "   ")
	assert.ErrorIs(t, err, ErrEmptyInput)
	long := ""
	for i := 0; i <= maxWords; i++ {
		long += "cat "
	}
	_, err = Annotate(nil, "cat", long)
	assert.ErrorContains(t, err, "at most")
}

func TestCoverageDiffers(t *testing.T) {
	trace := func(input string) cover.Set {
		tr := cover.NewTracer()
		_, err := Annotate(tr, "cat sit .", input)
		require.NoError(t, err)
		return tr.Snapshot()
	}
	same := trace("cat sit .")
	assert.True(t, same.Equal(trace("cat sit .")))
	inserted := trace("big cat sit .")
	assert.False(t, same.Equal(inserted))
	assert.True(t, inserted.Has(cover.Location{Func: "distance", Line: ptDistTooFar}))
}

func TestLocations(t *testing.T) {
	tab := Locations()
	assert.Equal(t, 3, tab.Len())
	tr := cover.NewTracer()
	_, err := Annotate(tr, "cat sit .", "cat sat .")
	require.NoError(t, err)
	pos := tab.Positions(tr.Snapshot())
	assert.True(t, pos[cover.ModuleLine{Module: Module, Line: ptTypo}])
	assert.False(t, pos[cover.ModuleLine{Module: Module, Line: ptMissing + 100}])
}

func TestMutants(t *testing.T) {
	mutants := Mutants()
	assert.Len(t, mutants, len(conditions)+len(labelPoints))
	ids := make(map[string]bool)
	for _, m := range mutants {
		assert.False(t, ids[m.JobID], "duplicate %v", m.JobID)
		ids[m.JobID] = true
		assert.Contains(t, funcs, m.Line)
	}
}

func TestTester(t *testing.T) {
	ctx := context.Background()
	bridge := new(mutation.MemBridge)
	tester := Tester(bridge)

	// Nothing published yet: the harness fails.
	outcome, _ := tester.Test(ctx, newMutant(ptEmpty, OpNegateCondition))
	assert.Equal(t, mutation.Killed, outcome)

	original, input := "cat sit .", "big cat sit ."
	expected, err := Annotate(nil, original, input)
	require.NoError(t, err)
	require.NoError(t, bridge.Publish(&mutation.BridgeMessage{
		OriginalInput:  original,
		MutatedInput:   input,
		ExpectedOutput: expected,
	}))
	var killed, survived int
	for _, m := range Mutants() {
		outcome, output := tester.Test(ctx, m)
		switch outcome {
		case mutation.Killed:
			killed++
			t.Logf("%v: %v", m, output)
		case mutation.Survived:
			survived++
		default:
			t.Fatalf("unexpected outcome %v for %v", outcome, m)
		}
	}
	assert.NotZero(t, killed)
	assert.NotZero(t, survived)

	// Mutating a label point the input never reaches has no effect.
	outcome, _ = tester.Test(ctx, newMutant(ptCaseOnly, OpSwapLabel))
	assert.Equal(t, mutation.Survived, outcome)
	// Negating the empty check rejects every input.
	outcome, output := tester.Test(ctx, newMutant(ptEmpty, OpNegateCondition))
	assert.Equal(t, mutation.Killed, outcome)
	assert.True(t, mutation.IsSUTError(&mutation.Record{Outcome: outcome, Output: output}))
}

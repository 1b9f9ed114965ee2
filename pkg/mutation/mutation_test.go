// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/klnyzzz33/api-fuzzing-test/pkg/runner"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *WorkDB {
	db, err := OpenWorkDB(filepath.Join(t.TempDir(), "session.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testMutants(n int) []*Mutant {
	var res []*Mutant
	for i := 0; i < n; i++ {
		res = append(res, &Mutant{
			JobID:    string(rune('a' + i)),
			Module:   "gectag",
			Line:     10 + i,
			Operator: "NegateCondition",
		})
	}
	return res
}

func TestWorkDB(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, db.AddMutants(ctx, testMutants(3)))
	// Re-adding known job ids is a no-op.
	require.NoError(t, db.AddMutants(ctx, testMutants(3)))
	mutants, results, err := db.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, mutants)
	assert.Equal(t, 0, results)

	require.NoError(t, db.SetResult(ctx, &Record{JobID: "b", Outcome: Killed, Output: "diff"}))
	pending, err := db.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "a", pending[0].JobID)
	assert.Equal(t, "c", pending[1].JobID)
	assert.Equal(t, 12, pending[1].Line)

	require.NoError(t, db.SetResult(ctx, &Record{JobID: "a", Outcome: Skipped}))
	recs, err := db.Results(ctx)
	require.NoError(t, err)
	assert.Equal(t, []*Record{
		{JobID: "a", Outcome: Skipped},
		{JobID: "b", Outcome: Killed, Output: "diff"},
	}, recs)

	n, err := db.Delete(ctx, NotKilled)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	pending, err = db.Pending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	require.NoError(t, db.Reset(ctx))
	all, err := db.Mutants(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestWorkDBPersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.sqlite")
	db, err := OpenWorkDB(path)
	require.NoError(t, err)
	require.NoError(t, db.AddMutants(ctx, testMutants(2)))
	require.NoError(t, db.SetResult(ctx, &Record{JobID: "a", Outcome: Survived, Output: "ok"}))
	require.NoError(t, db.Close())

	db, err = OpenWorkDB(path)
	require.NoError(t, err)
	defer db.Close()
	recs, err := db.Results(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, Survived, recs[0].Outcome)
}

func TestWorkDBRejectsMissingJobID(t *testing.T) {
	db := openTestDB(t)
	err := db.AddMutants(context.Background(), []*Mutant{{Module: "m", Line: 1, Operator: "op"}})
	assert.ErrorContains(t, err, "no job id")
}

func TestTallyFalsePositives(t *testing.T) {
	recs := []*Record{
		{JobID: "1", Outcome: Killed, Output: runner.TimeoutOutput},
		{JobID: "2", Outcome: Killed, Output: "expected X\n" + runner.ReturnMarker + "Y"},
		{JobID: "3", Outcome: Killed, Output: "Traceback: harness crashed"},
		{JobID: "4", Outcome: Survived, Output: runner.ReturnMarker + "X"},
		{JobID: "5", Outcome: Skipped},
	}
	ks := Tally(recs)
	assert.Equal(t, KillStats{Killed: 3, Timeouts: 1, SUTErrors: 1}, ks)
	assert.Equal(t, 1, ks.True())
	assert.True(t, IsTimeout(recs[0]))
	assert.False(t, IsSUTError(recs[0]))
	assert.False(t, IsSUTError(recs[1]))
	assert.True(t, IsSUTError(recs[2]))
	assert.False(t, IsSUTError(recs[3]))
	assert.Equal(t, "killed 3 (true 1, timeouts 1, sut errors 1)", ks.String())
}

func TestDBOracleFuncTester(t *testing.T) {
	ctx := context.Background()
	tester := &FuncTester{Fn: func(ctx context.Context, m *Mutant) error {
		switch m.Line % 3 {
		case 0:
			return errors.New(runner.ReturnMarker + "different")
		case 1:
			panic("mutant broke the harness")
		}
		return nil
	}}
	oracle := NewDBOracle(openTestDB(t), tester, testutil.Logf(t, 3))
	require.NoError(t, oracle.Init(ctx, testMutants(5), true))
	require.NoError(t, oracle.MarkSkipped(ctx, []string{"e"}))
	require.NoError(t, oracle.ExecuteBatch(ctx))
	recs, err := oracle.Outcomes(ctx)
	require.NoError(t, err)
	got := make(map[string]Outcome)
	for _, rec := range recs {
		got[rec.JobID] = rec.Outcome
	}
	// Lines are 10..14.
	assert.Equal(t, map[string]Outcome{
		"a": Killed, // 10: panic
		"b": Survived,
		"c": Killed,
		"d": Killed,
		"e": Skipped,
	}, got)
	ks := Tally(recs)
	assert.Equal(t, 3, ks.Killed)
	assert.Equal(t, 2, ks.SUTErrors)

	n, err := oracle.Clear(ctx, NotKilled)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, oracle.Restore(ctx))

	// Force re-init drops all results.
	require.NoError(t, oracle.Init(ctx, testMutants(2), true))
	recs, err = oracle.Outcomes(ctx)
	require.NoError(t, err)
	assert.Empty(t, recs)
	mutants, err := oracle.Mutants(ctx)
	require.NoError(t, err)
	assert.Len(t, mutants, 2)
}

func TestDBOracleCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	tester := &FuncTester{Fn: func(ctx context.Context, m *Mutant) error {
		calls++
		cancel()
		return nil
	}}
	oracle := NewDBOracle(openTestDB(t), tester, nil)
	require.NoError(t, oracle.Init(context.Background(), testMutants(3), false))
	err := oracle.ExecuteBatch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestCmdTester(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("needs sh")
	}
	ctx := context.Background()
	dir := t.TempDir()
	script := `case "$GEC_MUTANT_LINE" in
		10) exit 0;;
		11) echo "SUT return value: X"; exit 1;;
		12) sleep 30;;
		*) echo "line $GEC_MUTANT_LINE $GEC_MUTANT_OPERATOR"; exit 2;;
	esac`
	ct := &CmdTester{
		TestCommand:    script,
		RestoreCommand: "touch restored",
		Timeout:        500 * time.Millisecond,
		Dir:            dir,
	}
	mutants := testMutants(4)
	outcome, _ := ct.Test(ctx, mutants[0])
	assert.Equal(t, Survived, outcome)
	outcome, out := ct.Test(ctx, mutants[1])
	assert.Equal(t, Killed, outcome)
	assert.Contains(t, out, runner.ReturnMarker)
	outcome, out = ct.Test(ctx, mutants[2])
	assert.Equal(t, Killed, outcome)
	assert.Equal(t, runner.TimeoutOutput, out)
	outcome, out = ct.Test(ctx, mutants[3])
	assert.Equal(t, Killed, outcome)
	assert.Equal(t, "line 13 NegateCondition\n", out)

	require.NoError(t, ct.Restore(ctx))
	_, err := os.Stat(filepath.Join(dir, "restored"))
	assert.NoError(t, err)

	ct.Dir = filepath.Join(dir, "missing")
	outcome, _ = ct.Test(ctx, mutants[0])
	assert.Equal(t, Incompetent, outcome)
}

func TestFileBridge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mutation_bridge.json")
	b := &FileBridge{Path: path}
	require.NoError(t, b.Clear())
	_, err := b.Load()
	assert.ErrorIs(t, err, ErrEmptyBridge)

	msg := &BridgeMessage{OriginalInput: "cat sit .", MutatedInput: "big cat sit .", ExpectedOutput: "[]"}
	require.NoError(t, b.Publish(msg))
	require.NoError(t, b.Publish(&BridgeMessage{OriginalInput: "cat sit .", MutatedInput: "cats sit ."}))
	got, err := ReadBridge(path)
	require.NoError(t, err)
	assert.Equal(t, "cats sit .", got.MutatedInput)
	assert.Empty(t, got.ExpectedOutput)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"MUTATED_SENTENCE": "cats sit ."`)
}

func TestMemBridge(t *testing.T) {
	var b MemBridge
	_, err := b.Load()
	assert.ErrorIs(t, err, ErrEmptyBridge)
	msg := &BridgeMessage{MutatedInput: "a"}
	require.NoError(t, b.Publish(msg))
	msg.MutatedInput = "changed"
	got, err := b.Load()
	require.NoError(t, err)
	assert.Equal(t, "a", got.MutatedInput)
	require.NoError(t, b.Clear())
	_, err = b.Load()
	assert.ErrorIs(t, err, ErrEmptyBridge)
}

func TestLoadMutants(t *testing.T) {
	mutants, err := LoadMutants(filepath.Join("testdata", "mutants.yaml"))
	require.NoError(t, err)
	require.Len(t, mutants, 3)
	assert.Equal(t, &Mutant{JobID: "a02", Module: "gectag", Line: 20, Operator: "SwapLabel", Occurrence: 1}, mutants[1])
	assert.Len(t, mutants[2].JobID, 32)

	_, err = LoadMutants(filepath.Join("testdata", "bad_mutants.yaml"))
	assert.ErrorContains(t, err, "required")
}

func TestParseOutcome(t *testing.T) {
	for _, o := range []Outcome{Killed, Survived, Incompetent, Skipped} {
		got, err := ParseOutcome(string(o))
		require.NoError(t, err)
		assert.Equal(t, o, got)
	}
	_, err := ParseOutcome("ZOMBIE")
	assert.Error(t, err)
}

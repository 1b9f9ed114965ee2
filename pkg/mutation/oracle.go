// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutation

import (
	"context"
	"fmt"

	"github.com/klnyzzz33/api-fuzzing-test/pkg/log"
)

// Oracle is the mutation testing backend as seen by the fuzzer.
type Oracle interface {
	// Init loads the mutants. With force all previous state is dropped first.
	Init(ctx context.Context, mutants []*Mutant, force bool) error
	Mutants(ctx context.Context) ([]*Mutant, error)
	Outcomes(ctx context.Context) ([]*Record, error)
	// MarkSkipped records the mutants as skipped without executing them.
	MarkSkipped(ctx context.Context, jobIDs []string) error
	// ExecuteBatch tests every pending mutant and persists the outcomes.
	ExecuteBatch(ctx context.Context) error
	Clear(ctx context.Context, pred func(*Record) bool) (int, error)
	// Restore undoes source modifications made while testing mutants.
	Restore(ctx context.Context) error
}

// Tester tests the system under test with one mutant applied.
type Tester interface {
	Test(ctx context.Context, m *Mutant) (Outcome, string)
	Restore(ctx context.Context) error
}

// DBOracle keeps the state in a WorkDB and delegates the tests to a Tester.
type DBOracle struct {
	DB     *WorkDB
	Tester Tester
	Logf   log.Func
}

func NewDBOracle(db *WorkDB, tester Tester, logf log.Func) *DBOracle {
	if logf == nil {
		logf = func(int, string, ...interface{}) {}
	}
	return &DBOracle{DB: db, Tester: tester, Logf: logf}
}

func (o *DBOracle) Init(ctx context.Context, mutants []*Mutant, force bool) error {
	if force {
		if err := o.DB.Reset(ctx); err != nil {
			return fmt.Errorf("failed to reset work db: %w", err)
		}
	}
	return o.DB.AddMutants(ctx, mutants)
}

func (o *DBOracle) Mutants(ctx context.Context) ([]*Mutant, error) {
	return o.DB.Mutants(ctx)
}

func (o *DBOracle) Outcomes(ctx context.Context) ([]*Record, error) {
	return o.DB.Results(ctx)
}

func (o *DBOracle) MarkSkipped(ctx context.Context, jobIDs []string) error {
	for _, id := range jobIDs {
		if err := o.DB.SetResult(ctx, &Record{JobID: id, Outcome: Skipped}); err != nil {
			return err
		}
	}
	return nil
}

func (o *DBOracle) ExecuteBatch(ctx context.Context) error {
	pending, err := o.DB.Pending(ctx)
	if err != nil {
		return err
	}
	total, _, err := o.DB.Count(ctx)
	if err != nil {
		return err
	}
	o.Logf(2, "executing %v pending mutants out of %v", len(pending), total)
	for i, m := range pending {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("batch interrupted after %v/%v mutants: %w", i, len(pending), err)
		}
		outcome, output := o.Tester.Test(ctx, m)
		if err := o.DB.SetResult(ctx, &Record{JobID: m.JobID, Outcome: outcome, Output: output}); err != nil {
			return err
		}
		o.Logf(3, "job %v complete: %v", m.JobID, outcome)
	}
	return nil
}

func (o *DBOracle) Clear(ctx context.Context, pred func(*Record) bool) (int, error) {
	return o.DB.Delete(ctx, pred)
}

func (o *DBOracle) Restore(ctx context.Context) error {
	return o.Tester.Restore(ctx)
}

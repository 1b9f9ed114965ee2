// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutation

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// WorkDB is the persisted mutant-outcome store. A mutant without
// a row in work_results is pending.
type WorkDB struct {
	db   *sql.DB
	path string
}

// OpenWorkDB creates or opens the sqlite session file at path.
// Use ":memory:" for a throwaway store.
func OpenWorkDB(path string) (*WorkDB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open work db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to work db: %w", err)
	}
	// SQLite supports one writer, and an in-memory database exists per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply work db schema: %w", err)
	}
	return &WorkDB{db: db, path: path}, nil
}

func (w *WorkDB) Close() error {
	return w.db.Close()
}

func (w *WorkDB) Path() string {
	return w.path
}

// Reset drops all mutants and results.
func (w *WorkDB) Reset(ctx context.Context) error {
	return w.tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM work_results"); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM mutation_specs")
		return err
	})
}

// AddMutants inserts mutants, ignoring the ones whose job id is already known.
func (w *WorkDB) AddMutants(ctx context.Context, mutants []*Mutant) error {
	return w.tx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO mutation_specs
			(job_id, module_path, line, operator_name, occurrence) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, m := range mutants {
			if m.JobID == "" {
				return fmt.Errorf("mutant %v:%v %v has no job id", m.Module, m.Line, m.Operator)
			}
			if _, err := stmt.ExecContext(ctx, m.JobID, m.Module, m.Line, m.Operator, m.Occurrence); err != nil {
				return fmt.Errorf("failed to add mutant %v: %w", m.JobID, err)
			}
		}
		return nil
	})
}

// Mutants returns all mutants ordered by job id.
func (w *WorkDB) Mutants(ctx context.Context) ([]*Mutant, error) {
	return w.queryMutants(ctx, `SELECT job_id, module_path, line, operator_name, occurrence
		FROM mutation_specs ORDER BY job_id`)
}

// Pending returns mutants that have no result yet, ordered by job id.
func (w *WorkDB) Pending(ctx context.Context) ([]*Mutant, error) {
	return w.queryMutants(ctx, `SELECT s.job_id, s.module_path, s.line, s.operator_name, s.occurrence
		FROM mutation_specs s LEFT JOIN work_results r ON s.job_id = r.job_id
		WHERE r.job_id IS NULL ORDER BY s.job_id`)
}

func (w *WorkDB) queryMutants(ctx context.Context, query string) ([]*Mutant, error) {
	rows, err := w.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query mutants: %w", err)
	}
	defer rows.Close()
	var res []*Mutant
	for rows.Next() {
		m := new(Mutant)
		if err := rows.Scan(&m.JobID, &m.Module, &m.Line, &m.Operator, &m.Occurrence); err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

// SetResult stores the outcome of a mutant, replacing any previous one.
func (w *WorkDB) SetResult(ctx context.Context, rec *Record) error {
	_, err := w.db.ExecContext(ctx, `INSERT OR REPLACE INTO work_results
		(job_id, test_outcome, output) VALUES (?, ?, ?)`, rec.JobID, string(rec.Outcome), rec.Output)
	if err != nil {
		return fmt.Errorf("failed to store result for %v: %w", rec.JobID, err)
	}
	return nil
}

// Results returns all stored results ordered by job id.
func (w *WorkDB) Results(ctx context.Context) ([]*Record, error) {
	rows, err := w.db.QueryContext(ctx, `SELECT job_id, test_outcome, output
		FROM work_results ORDER BY job_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()
	var res []*Record
	for rows.Next() {
		rec := new(Record)
		var outcome string
		if err := rows.Scan(&rec.JobID, &outcome, &rec.Output); err != nil {
			return nil, err
		}
		if rec.Outcome, err = ParseOutcome(outcome); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// Delete removes the results matching pred and returns how many were removed.
func (w *WorkDB) Delete(ctx context.Context, pred func(*Record) bool) (int, error) {
	recs, err := w.Results(ctx)
	if err != nil {
		return 0, err
	}
	deleted := 0
	err = w.tx(ctx, func(tx *sql.Tx) error {
		for _, rec := range recs {
			if !pred(rec) {
				continue
			}
			if _, err := tx.ExecContext(ctx, "DELETE FROM work_results WHERE job_id = ?", rec.JobID); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete results: %w", err)
	}
	return deleted, nil
}

// Count returns the number of mutants and the number of stored results.
func (w *WorkDB) Count(ctx context.Context) (mutants, results int, err error) {
	if err = w.db.QueryRowContext(ctx, "SELECT count(*) FROM mutation_specs").Scan(&mutants); err != nil {
		return
	}
	err = w.db.QueryRowContext(ctx, "SELECT count(*) FROM work_results").Scan(&results)
	return
}

func (w *WorkDB) tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

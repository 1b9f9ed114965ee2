// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package manager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klnyzzz33/api-fuzzing-test/pkg/mgrconfig"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/mutation"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/snapshot"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/stat"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/testutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadConfig(t *testing.T, data string) *mgrconfig.Config {
	cfg, err := mgrconfig.LoadData([]byte(data))
	require.NoError(t, err)
	return cfg
}

func newTestManager(t *testing.T, cfg *mgrconfig.Config, reg prometheus.Registerer) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	mgr, err := New(ctx, cfg, stat.NewSet(reg), testutil.Logf(t, 0))
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })
	return mgr
}

func TestInProcessSession(t *testing.T) {
	workdir := t.TempDir()
	cfg := loadConfig(t, fmt.Sprintf(`{
		"name": "demo",
		"workdir": %q,
		"seeds": ["the cat sat on the mat ."],
		"iterations": 60,
		"seed": 1,
		"mutation": {}
	}`, workdir))
	mgr := newTestManager(t, cfg, nil)
	require.NotNil(t, mgr.Oracle)
	require.NotNil(t, mgr.Fuzzer.Config.Escalation)

	file, err := mgr.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, workdir, filepath.Dir(file))
	snap, err := snapshot.Load(file)
	require.NoError(t, err)
	assert.Equal(t, "the cat sat on the mat .", snap.Context)
	assert.Equal(t, 60, snap.Iterations)
	require.NotNil(t, snap.Kills)
	assert.FileExists(t, filepath.Join(workdir, "mutation.sqlite"))

	recs, err := mgr.Oracle.Outcomes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, *snap.Kills, mutation.Tally(recs))
}

func TestAdmitAllSkipsMutation(t *testing.T) {
	cfg := loadConfig(t, fmt.Sprintf(`{
		"workdir": %q,
		"seeds": ["cat sit ."],
		"admission": "all",
		"iterations": 10,
		"mutation": {}
	}`, t.TempDir()))
	mgr := newTestManager(t, cfg, nil)
	assert.Nil(t, mgr.Oracle)
	assert.Nil(t, mgr.Fuzzer.Config.Escalation)
	assert.True(t, mgr.Fuzzer.Config.AdmitAll)
}

func TestCorpusEvents(t *testing.T) {
	cfg := loadConfig(t, fmt.Sprintf(`{
		"workdir": %q,
		"seeds": ["the cat sat on the mat ."],
		"admission": "all",
		"max_population": 2,
		"iterations": 50,
		"seed": 5
	}`, t.TempDir()))
	mgr := newTestManager(t, cfg, nil)
	require.NoError(t, mgr.Fuzzer.Loop(context.Background(), cfg.Iterations))
	assert.Eventually(t, func() bool {
		events := mgr.Events()
		return len(events) != 0 && events[len(events)-1].Evicted != ""
	}, 10*time.Second, 10*time.Millisecond)
	events := mgr.Events()
	assert.LessOrEqual(t, len(events), maxEvents)
	for _, ev := range events {
		assert.NotEmpty(t, ev.Data)
		assert.NotEqual(t, ev.Data, ev.Evicted)
	}
}

func TestExternalSession(t *testing.T) {
	workdir := t.TempDir()
	sut := filepath.Join(workdir, "sut.sh")
	require.NoError(t, os.WriteFile(sut, []byte(`#!/bin/sh
read line
echo "cover: tag:1"
case "$line" in
*big*) echo "cover: tag:2"; echo "BIG";;
*) echo "small";;
esac
`), 0755))
	mutants := filepath.Join(workdir, "mutants.yaml")
	require.NoError(t, os.WriteFile(mutants, []byte(`
mutants:
  - module: tagger.py
    line: 1
    operator: NegateCondition
  - module: tagger.py
    line: 2
    operator: NegateCondition
`), 0644))
	locations := filepath.Join(workdir, "locations.yaml")
	require.NoError(t, os.WriteFile(locations, []byte("tag: tagger.py\n"), 0644))
	// Kills the mutant at line 2 once the bridge carries an input with "big".
	test := `if grep -q big "$BRIDGE" && [ "$GEC_MUTANT_LINE" = 2 ]; then echo "SUT return value: x"; exit 1; fi`
	cfg := loadConfig(t, fmt.Sprintf(`{
		"name": "external",
		"workdir": %q,
		"seeds": ["cat sit .", "big cat sit ."],
		"sut_command": [%q],
		"locations": %q,
		"iterations": 20,
		"seed": 2,
		"mutation": {
			"mutants": %q,
			"test_command": %q
		}
	}`, workdir, sut, locations, mutants, "BRIDGE="+filepath.Join(workdir, "mutation_bridge.json")+"; "+test))
	mgr := newTestManager(t, cfg, nil)
	file, err := mgr.Run(context.Background())
	require.NoError(t, err)
	snap, err := snapshot.Load(file)
	require.NoError(t, err)
	inputs := make(map[string]string)
	for _, e := range snap.Entries {
		inputs[e.Input] = e.Output
	}
	assert.Equal(t, "small", inputs["cat sit ."])
	assert.Equal(t, "BIG", inputs["big cat sit ."])
	assert.Equal(t, 2, snap.CoverageSize)
	require.NotNil(t, snap.Kills)
	assert.Equal(t, mutation.KillStats{Killed: 1}, *snap.Kills)
}

func TestBadConfig(t *testing.T) {
	cfg := loadConfig(t, fmt.Sprintf(`{"workdir": %q, "seeds": ["a"], "dictionary": "missing.yaml"}`, t.TempDir()))
	_, err := New(context.Background(), cfg, stat.NewSet(nil), testutil.Logf(t, 0))
	assert.ErrorContains(t, err, "failed to read dictionary")
}

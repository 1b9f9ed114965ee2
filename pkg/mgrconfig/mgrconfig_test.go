// Copyright 2017 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mgrconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanned(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "*.cfg"))
	if err != nil || len(files) == 0 {
		t.Fatalf("failed to read input files: %v", err)
	}
	for _, file := range files {
		t.Run(file, func(t *testing.T) {
			cfg, err := LoadFile(file)
			require.NoError(t, err)
			assert.NotEmpty(t, cfg.Seeds)
			assert.True(t, filepath.IsAbs(cfg.Workdir))
			require.NotNil(t, cfg.Mutation)
			assert.True(t, filepath.IsAbs(cfg.Mutation.Session))
		})
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := LoadData([]byte(`{"workdir": "w", "seeds": ["cat sit ."]}`))
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.MaxPopulation)
	assert.Equal(t, 1, cfg.MaxTrials)
	assert.Equal(t, "rarity", cfg.Schedule)
	assert.Equal(t, 5.0, cfg.Exponent)
	assert.Equal(t, AdmitCoverage, cfg.Admission)
	assert.Equal(t, 500, cfg.Iterations)
	assert.Equal(t, 10*time.Second, cfg.ExecTimeoutValue)
	assert.Zero(t, cfg.DurationValue)
	assert.Nil(t, cfg.Mutation)
	assert.Empty(t, cfg.Dictionary)
}

func TestMutationDefaults(t *testing.T) {
	cfg, err := LoadData([]byte(`{"workdir": "/w", "seeds": ["a"], "mutation": {}}`))
	require.NoError(t, err)
	m := cfg.Mutation
	assert.Equal(t, "/w/mutation.sqlite", m.Session)
	assert.Equal(t, "/w/mutation_bridge.json", m.Bridge)
	assert.Equal(t, 10*time.Second, m.TimeoutValue)
	assert.True(t, m.InProcess())
}

func TestErrors(t *testing.T) {
	tests := []struct {
		input string
		err   string
	}{
		{`{"seeds": ["a"]}`, "config param workdir is empty"},
		{`{"workdir": "w"}`, "config param seeds is empty"},
		{`{"workdir": "w", "seeds": ["a", ""]}`, "config param seeds[1] is empty"},
		{`{"workdir": "w", "seeds": ["a"], "max_population": 0}`, "bad config param max_population: 0, want >= 1"},
		{`{"workdir": "w", "seeds": ["a"], "max_trials": -1}`, "bad config param max_trials: -1, want >= 1"},
		{`{"workdir": "w", "seeds": ["a"], "schedule": "afl"}`, "config param schedule must contain one of rarity/uniform"},
		{`{"workdir": "w", "seeds": ["a"], "exponent": -2}`, "bad config param exponent: -2, want a finite value >= 0"},
		{`{"workdir": "w", "seeds": ["a"], "admission": "some"}`, "config param admission must contain one of coverage/all"},
		{`{"workdir": "w", "seeds": ["a"], "iterations": 0}`, "bad config param iterations: 0, want >= 1"},
		{`{"workdir": "w", "seeds": ["a"], "exec_timeout": "soon"}`, `bad config param exec_timeout: time: invalid duration "soon"`},
		{`{"workdir": "w", "seeds": ["a"], "duration": "-1m"}`, "bad config param duration: -1m0s, want > 0"},
		{`{"workdir": "w", "seeds": ["a"], "mutation": {"test_command": "t"}}`,
			"config param mutation.test_command needs mutation.mutants"},
		{`{"workdir": "w", "seeds": ["a"], "mutation": {"mutants": "m.yaml"}}`,
			"config param mutation.mutants needs mutation.test_command"},
		{`{"workdir": "w", "seeds": ["a"], "mutation": {"restore_command": "git restore ."}}`,
			"config param mutation.restore_command needs mutation.test_command"},
		{`{"workdir": "w", "seeds": ["a"], "target": "linux/amd64"}`, "unknown field 'target' in config"},
	}
	for _, test := range tests {
		t.Run(test.err, func(t *testing.T) {
			_, err := LoadData([]byte(test.input))
			assert.EqualError(t, err, test.err)
		})
	}
}

func TestLoadFileWithPatch(t *testing.T) {
	file := filepath.Join(t.TempDir(), "gec.cfg")
	require.NoError(t, os.WriteFile(file, []byte("# base\n{\"workdir\": \"w\", \"seeds\": [\"a\"], \"iterations\": 7}"), 0644))
	cfg, err := LoadFileWithPatch(file, nil)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Iterations)
	cfg, err = LoadFileWithPatch(file, []byte(`{"iterations": 3, "schedule": "uniform"}`))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Iterations)
	assert.Equal(t, "uniform", cfg.Schedule)
	_, err = LoadFileWithPatch(file, []byte(`{"iterations": "many"}`))
	assert.Error(t, err)
}

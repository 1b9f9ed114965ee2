// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klnyzzz33/api-fuzzing-test/pkg/gectag"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/manager"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/mgrconfig"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/snapshot"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSample(t *testing.T) {
	rnd := rand.New(testutil.RandSource(t))
	var entries []*snapshot.Entry
	for i := 0; i < 20; i++ {
		entries = append(entries, &snapshot.Entry{Input: fmt.Sprint(i % 7)})
	}
	got := sample(entries, 5, rnd)
	assert.Len(t, got, 5)
	seen := make(map[string]bool)
	for _, e := range got {
		assert.False(t, seen[e.Input], e.Input)
		seen[e.Input] = true
	}
	assert.Len(t, sample(entries, 100, rnd), 7)
	assert.Empty(t, sample(nil, 3, rnd))
}

func TestEvaluate(t *testing.T) {
	workdir := t.TempDir()
	cfg, err := mgrconfig.LoadData([]byte(fmt.Sprintf(`{
		"name": "eval",
		"workdir": %q,
		"seeds": ["the cat sat ."],
		"mutation": {}
	}`, workdir)))
	require.NoError(t, err)
	mut, err := manager.OpenMutation(context.Background(), cfg, testutil.Logf(t, 0))
	require.NoError(t, err)
	defer mut.DB.Close()

	const original = "the cat sat ."
	correct, err := gectag.Annotate(nil, original, "the dog sat .")
	require.NoError(t, err)
	file, err := snapshot.Save(workdir, "eval", &snapshot.Snapshot{
		Session:      "s",
		Context:      original,
		Time:         time.Now(),
		CorpusSize:   3,
		CoverageSize: 4,
		Entries: []*snapshot.Entry{
			{Input: "the dog sat .", Output: correct},
			{Input: "a cat sits", Output: "not what the tagger says"},
			{Input: "a cat sits", Output: "not what the tagger says"},
		},
	})
	require.NoError(t, err)

	ev := &evaluator{
		mut:     mut,
		samples: 10,
		rnd:     rand.New(testutil.RandSource(t)),
		logf:    testutil.Logf(t, 0),
	}
	res, err := ev.evaluate(context.Background(), file)
	require.NoError(t, err)
	mutants := len(gectag.Mutants())
	assert.Equal(t, original, res.Original)
	assert.Equal(t, 3, res.CorpusSize)
	assert.Equal(t, 4, res.CoverageSize)
	assert.Equal(t, mutants, res.Mutants)
	require.Len(t, res.Killed, 2)
	// Nothing matches a bogus expected output, so every mutant is killed.
	assert.Equal(t, mutants, res.Killed["a cat sits"].Killed)
	assert.Less(t, res.Killed["the dog sat ."].Killed, mutants)

	recs, err := mut.Oracle.Outcomes(context.Background())
	require.NoError(t, err)
	assert.Empty(t, recs)

	out, err := res.save(filepath.Join(workdir, "eval"))
	require.NoError(t, err)
	assert.Equal(t, "eval-"+filepath.Base(file), filepath.Base(out))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var saved map[string]any
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Contains(t, saved, "mutants_killed")
	assert.Contains(t, saved, "mutant_count")
}

// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klnyzzz33/api-fuzzing-test/pkg/mutation"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func demoSnapshot() *Snapshot {
	const context = "the cat sat ."
	return &Snapshot{
		Session:      "4b1d5d0c1f2e4d3a9c8b7a6f5e4d3c2b",
		Context:      context,
		Time:         time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		CorpusSize:   2,
		CoverageSize: 5,
		Iterations:   40,
		Kills:        &mutation.KillStats{Killed: 3, Timeouts: 1},
		Entries: []*Entry{
			{Input: context, Output: "perfect", Diff: Diff(context, context), Energy: 1},
			{Input: "the dog sat .", Output: "dog/wrong_form", Diff: Diff(context, "the dog sat ."), Energy: 0.25},
		},
	}
}

func TestSaveGolden(t *testing.T) {
	dir := t.TempDir()
	file, err := Save(dir, "demo", demoSnapshot())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "corpus-20260102_030405-demo.json"), file)
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "demo", data)
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	snap := demoSnapshot()
	file, err := Save(dir, "", snap)
	require.NoError(t, err)
	assert.Equal(t, "corpus-20260102_030405.json", filepath.Base(file))
	loaded, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, snap, loaded)

	files, err := Glob(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{file}, files)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0644))
	_, err = Load(bad)
	assert.ErrorContains(t, err, "failed to parse snapshot")
}

func TestFileName(t *testing.T) {
	ts := time.Date(2026, 10, 17, 23, 59, 1, 0, time.UTC)
	assert.Equal(t, "corpus-20261017_235901.json", FileName(ts, ""))
	assert.Equal(t, "corpus-20261017_235901-run_1.json", FileName(ts, "run 1"))
	assert.Equal(t, "corpus-20261017_235901-a_b.json", FileName(ts, "/a/b/"))
}

func TestDiff(t *testing.T) {
	tests := []struct {
		a, b string
		diff string
	}{
		{"the cat sat .", "the cat sat .", "the cat sat ."},
		{"the cat sat .", "the dog sat .", "the [-cat-] {+dog+} sat ."},
		{"the cat sat .", "the cat sat", "the cat sat [-.-]"},
		{"cat sat .", "the cat sat .", "{+the+} cat sat ."},
		{"", "", ""},
		{"", "hello", "{+hello+}"},
		{"a  b", "a b", "a b"},
	}
	for _, test := range tests {
		assert.Equal(t, test.diff, Diff(test.a, test.b), "%q -> %q", test.a, test.b)
	}
}

// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzer

import (
	"strings"
	"time"

	"github.com/klnyzzz33/api-fuzzing-test/pkg/runner"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/snapshot"
)

// Snapshot captures the current population of the session.
func (fuzzer *Fuzzer) Snapshot() *snapshot.Snapshot {
	session := fuzzer.Session()
	seeds := session.Corpus.Copies()
	snap := &snapshot.Snapshot{
		Session:      strings.ReplaceAll(session.ID.String(), "-", ""),
		Context:      session.Original,
		Time:         time.Now(),
		CorpusSize:   len(seeds),
		CoverageSize: fuzzer.Cover.Stats().Paths,
		Iterations:   fuzzer.Iterations(),
	}
	if fuzzer.Config.Escalation != nil {
		kills := fuzzer.kills()
		snap.Kills = &kills
	}
	for _, seed := range seeds {
		snap.Entries = append(snap.Entries, &snapshot.Entry{
			Input:  seed.Data,
			Output: strings.TrimPrefix(seed.Output, runner.ReturnMarker),
			Diff:   snapshot.Diff(session.Original, seed.Data),
			Energy: seed.Energy,
		})
	}
	return snap
}

// Save writes the snapshot of the session into dir.
func (fuzzer *Fuzzer) Save(dir, tag string) (string, error) {
	file, err := snapshot.Save(dir, tag, fuzzer.Snapshot())
	if err != nil {
		return "", err
	}
	fuzzer.Logf(0, "saved corpus snapshot to %v", file)
	return file, nil
}

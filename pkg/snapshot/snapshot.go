// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package snapshot persists the final population of a fuzzing session
// for offline evaluation.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/klnyzzz33/api-fuzzing-test/pkg/mutation"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/osutil"
	dmp "github.com/sergi/go-diff/diffmatchpatch"
)

type Snapshot struct {
	Session string `json:"session"`
	// Context is the original input the session started from.
	Context      string              `json:"context"`
	Time         time.Time           `json:"time"`
	CorpusSize   int                 `json:"corpus_size"`
	CoverageSize int                 `json:"coverage_size"`
	Iterations   int                 `json:"iterations"`
	Kills        *mutation.KillStats `json:"kills,omitempty"`
	Entries      []*Entry            `json:"entries"`
}

type Entry struct {
	Input  string `json:"input"`
	Output string `json:"output"`
	// Diff shows the input against the context, see Diff.
	Diff   string  `json:"diff"`
	Energy float64 `json:"energy"`
}

const timeLayout = "20060102_150405"

var tagRe = regexp.MustCompile(`[^a-zA-Z0-9_.-]+`)

// FileName returns the name under which a snapshot taken at t is saved.
func FileName(t time.Time, tag string) string {
	name := "corpus-" + t.UTC().Format(timeLayout)
	if tag = strings.Trim(tagRe.ReplaceAllString(tag, "_"), "_"); tag != "" {
		name += "-" + tag
	}
	return name + ".json"
}

// Save writes the snapshot into dir and returns the file path.
func Save(dir, tag string, snap *Snapshot) (string, error) {
	if err := osutil.MkdirAll(dir); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(snap, "", "\t")
	if err != nil {
		return "", err
	}
	file := filepath.Join(dir, FileName(snap.Time, tag))
	if err := osutil.WriteFile(file, append(data, '\n')); err != nil {
		return "", err
	}
	return file, nil
}

func Load(file string) (*Snapshot, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	snap := new(Snapshot)
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %v: %w", file, err)
	}
	return snap, nil
}

// Glob returns the snapshot files in dir, oldest first.
func Glob(dir string) ([]string, error) {
	return filepath.Glob(filepath.Join(dir, "corpus-*.json"))
}

// Diff renders the word level changes from a to b: insertions as {+text+}
// and deletions as [-text-].
func Diff(a, b string) string {
	matcher := dmp.New()
	wa, wb, words := matcher.DiffLinesToRunes(splitWords(a), splitWords(b))
	diffs := matcher.DiffMainRunes(wa, wb, false)
	diffs = matcher.DiffCharsToLines(diffs, words)
	var buf strings.Builder
	for _, d := range diffs {
		text := strings.TrimSpace(strings.ReplaceAll(d.Text, "\n", " "))
		if text == "" {
			continue
		}
		if buf.Len() != 0 {
			buf.WriteByte(' ')
		}
		switch d.Type {
		case dmp.DiffInsert:
			fmt.Fprintf(&buf, "{+%v+}", text)
		case dmp.DiffDelete:
			fmt.Fprintf(&buf, "[-%v-]", text)
		default:
			buf.WriteString(text)
		}
	}
	return buf.String()
}

func splitWords(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.Join(fields, "\n") + "\n"
}

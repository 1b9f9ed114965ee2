// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutation

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

type mutantList struct {
	Mutants []*Mutant `yaml:"mutants"`
}

// LoadMutants reads a YAML list of mutants.
// Mutants without a job id get a fresh random one.
func LoadMutants(filename string) ([]*Mutant, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read mutant list: %w", err)
	}
	var list mutantList
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&list); err != nil {
		return nil, fmt.Errorf("failed to parse mutant list %v: %w", filename, err)
	}
	seen := make(map[string]bool)
	for i, m := range list.Mutants {
		if m.Module == "" || m.Line <= 0 || m.Operator == "" {
			return nil, fmt.Errorf("mutant #%v: module, line and operator are required", i)
		}
		if m.JobID == "" {
			m.JobID = NewJobID()
		}
		if seen[m.JobID] {
			return nil, fmt.Errorf("mutant #%v: duplicate job id %v", i, m.JobID)
		}
		seen[m.JobID] = true
	}
	return list.Mutants, nil
}

// NewJobID returns a random job id in the hex form of a UUID.
func NewJobID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Copyright 2015 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mgrconfig

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/klnyzzz33/api-fuzzing-test/pkg/config"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/osutil"
)

const (
	AdmitCoverage = "coverage"
	AdmitAll      = "all"
)

func LoadData(data []byte) (*Config, error) {
	cfg, err := LoadPartialData(data)
	if err != nil {
		return nil, err
	}
	if err := Complete(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadFile(filename string) (*Config, error) {
	cfg, err := LoadPartialFile(filename)
	if err != nil {
		return nil, err
	}
	if err := Complete(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFileWithPatch loads the file and overlays the JSON patch on top of it.
func LoadFileWithPatch(filename string, patch []byte) (*Config, error) {
	if len(patch) == 0 {
		return LoadFile(filename)
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	merged, err := config.MergeJSONData(data, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to apply config patch: %w", err)
	}
	return LoadData(merged)
}

func LoadPartialData(data []byte) (*Config, error) {
	cfg := defaultValues()
	if err := config.LoadData(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadPartialFile(filename string) (*Config, error) {
	cfg := defaultValues()
	if err := config.LoadFile(filename, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultValues() *Config {
	return &Config{
		MaxPopulation: 100,
		MaxTrials:     1,
		Schedule:      "rarity",
		Exponent:      5,
		Admission:     AdmitCoverage,
		Iterations:    500,
		ExecTimeout:   "10s",
	}
}

func Complete(cfg *Config) error {
	if cfg.Workdir == "" {
		return fmt.Errorf("config param workdir is empty")
	}
	cfg.Workdir = osutil.Abs(cfg.Workdir)
	if len(cfg.Seeds) == 0 {
		return fmt.Errorf("config param seeds is empty")
	}
	for i, seed := range cfg.Seeds {
		if seed == "" {
			return fmt.Errorf("config param seeds[%v] is empty", i)
		}
	}
	if cfg.MaxPopulation < 1 {
		return fmt.Errorf("bad config param max_population: %v, want >= 1", cfg.MaxPopulation)
	}
	if cfg.MaxTrials < 1 {
		return fmt.Errorf("bad config param max_trials: %v, want >= 1", cfg.MaxTrials)
	}
	switch cfg.Schedule {
	case "rarity", "uniform":
	default:
		return fmt.Errorf("config param schedule must contain one of rarity/uniform")
	}
	if cfg.Exponent < 0 || math.IsNaN(cfg.Exponent) || math.IsInf(cfg.Exponent, 0) {
		return fmt.Errorf("bad config param exponent: %v, want a finite value >= 0", cfg.Exponent)
	}
	switch cfg.Admission {
	case AdmitCoverage, AdmitAll:
	default:
		return fmt.Errorf("config param admission must contain one of coverage/all")
	}
	if cfg.Iterations < 1 {
		return fmt.Errorf("bad config param iterations: %v, want >= 1", cfg.Iterations)
	}
	var err error
	if cfg.ExecTimeoutValue, err = parseDuration("exec_timeout", cfg.ExecTimeout); err != nil {
		return err
	}
	if cfg.Duration != "" {
		if cfg.DurationValue, err = parseDuration("duration", cfg.Duration); err != nil {
			return err
		}
	}
	cfg.Dictionary = osutil.Abs(cfg.Dictionary)
	cfg.Locations = osutil.Abs(cfg.Locations)
	if cfg.Mutation != nil {
		if err := completeMutation(cfg, cfg.Mutation); err != nil {
			return err
		}
	}
	return nil
}

func completeMutation(cfg *Config, m *Mutation) error {
	if m.Timeout == "" {
		m.Timeout = "10s"
	}
	var err error
	if m.TimeoutValue, err = parseDuration("mutation.timeout", m.Timeout); err != nil {
		return err
	}
	if m.Session == "" {
		m.Session = filepath.Join(cfg.Workdir, "mutation.sqlite")
	}
	if m.Bridge == "" {
		m.Bridge = filepath.Join(cfg.Workdir, "mutation_bridge.json")
	}
	m.Session = osutil.Abs(m.Session)
	m.Bridge = osutil.Abs(m.Bridge)
	m.Mutants = osutil.Abs(m.Mutants)
	if m.TestCommand != "" && m.Mutants == "" {
		return fmt.Errorf("config param mutation.test_command needs mutation.mutants")
	}
	if m.TestCommand == "" && m.RestoreCommand != "" {
		return fmt.Errorf("config param mutation.restore_command needs mutation.test_command")
	}
	if m.Mutants != "" && m.TestCommand == "" {
		return fmt.Errorf("config param mutation.mutants needs mutation.test_command")
	}
	return nil
}

func parseDuration(name, val string) (time.Duration, error) {
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("bad config param %v: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("bad config param %v: %v, want > 0", name, d)
	}
	return d, nil
}

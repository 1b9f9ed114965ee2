// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutator

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Dictionary holds the vocabulary used by word-level strategies.
type Dictionary struct {
	// Words are inserted at random word boundaries.
	Words []string `yaml:"words"`
	// Replacements maps a word to its known inflections/synonyms.
	Replacements map[string][]string `yaml:"replacements"`
}

func LoadDictionary(filename string) (*Dictionary, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read dictionary: %w", err)
	}
	dict := new(Dictionary)
	if err := yaml.Unmarshal(data, dict); err != nil {
		return nil, fmt.Errorf("failed to parse dictionary %v: %w", filename, err)
	}
	for word, repl := range dict.Replacements {
		if len(repl) == 0 {
			return nil, fmt.Errorf("dictionary %v: word %q has no replacements", filename, word)
		}
	}
	return dict, nil
}

// DefaultDictionary returns the English vocabulary and inflection table
// the tagger inputs are built from.
func DefaultDictionary() *Dictionary {
	groups := [][]string{
		{"cat", "cats", "book", "books", "airplane", "plane"},
		{"am", "are", "is", "was", "were", "go", "goes", "went", "run", "runs", "running", "eat", "eats", "eating"},
		{"in", "on", "at", "with", "without", "before", "after"},
		{"big", "small", "tiny", "large", "larger"},
		{"quickly", "slowly", "silently"},
		{"he", "she", "they", "them", "me", "I", "who", "whom"},
		{".", ",", ";", ":", "!"},
	}
	var words []string
	for _, group := range groups {
		words = append(words, group...)
	}
	sort.Strings(words)
	return &Dictionary{
		Words: words,
		Replacements: map[string][]string{
			"cat":      {"cats"},
			"cats":     {"cat"},
			"book":     {"books"},
			"books":    {"book"},
			"am":       {"are", "is"},
			"are":      {"am", "is"},
			"is":       {"am", "are"},
			"go":       {"goes", "went", "going"},
			"goes":     {"go", "went", "going"},
			"went":     {"go", "goes", "going"},
			"eat":      {"eats", "ate", "eating"},
			"eats":     {"eat", "ate", "eating"},
			"ate":      {"eat", "eats", "eating"},
			"eating":   {"eat", "eats", "ate"},
			"run":      {"runs", "ran", "running"},
			"runs":     {"run", "ran", "running"},
			"ran":      {"run", "runs", "running"},
			"running":  {"run", "runs", "ran"},
			"I":        {"me"},
			"me":       {"I"},
			"he":       {"she", "it"},
			"she":      {"he", "it"},
			"it":       {"he", "she"},
			"they":     {"them"},
			"them":     {"they"},
			"who":      {"whom"},
			"whom":     {"who"},
			"in":       {"on", "at"},
			"on":       {"in", "at"},
			"at":       {"in", "on"},
			"big":      {"bigger", "biggest"},
			"bigger":   {"big", "biggest"},
			"biggest":  {"bigger", "big"},
			"large":    {"larger", "largest"},
			"larger":   {"large", "largest"},
			"largest":  {"large", "larger"},
			"small":    {"smaller", "smallest"},
			"smaller":  {"small", "smallest"},
			"smallest": {"smaller", "small"},
		},
	}
}

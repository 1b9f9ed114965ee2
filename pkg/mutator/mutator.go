// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package mutator implements single-step textual mutations of fuzzer inputs.
package mutator

import (
	"math/rand"
	"strings"
	"unicode/utf8"
)

type Strategy int

const (
	DeleteChar Strategy = iota
	InsertChar
	InsertWord
	SwitchWords
	ReplaceWord
	RemoveWord
	strategyCount
)

var strategyNames = [strategyCount]string{
	DeleteChar:  "delete-char",
	InsertChar:  "insert-char",
	InsertWord:  "insert-word",
	SwitchWords: "switch-words",
	ReplaceWord: "replace-word",
	RemoveWord:  "remove-word",
}

func (s Strategy) String() string {
	if s < 0 || s >= strategyCount {
		return "unknown"
	}
	return strategyNames[s]
}

// Opts holds relative selection weights of the mutation strategies.
type Opts struct {
	DeleteCharWeight  int
	InsertCharWeight  int
	InsertWordWeight  int
	SwitchWordsWeight int
	ReplaceWordWeight int
	RemoveWordWeight  int
}

var DefaultOpts = Opts{
	DeleteCharWeight:  10,
	InsertCharWeight:  10,
	InsertWordWeight:  20,
	SwitchWordsWeight: 20,
	ReplaceWordWeight: 30,
	RemoveWordWeight:  10,
}

// Inputs with at most this many words are never shortened by word removal.
const minWordsForRemoval = 3

// Upper bound on the random component of the multi-step mutation count.
const maxStackingPower = 5

type Mutator struct {
	opts Opts
	dict *Dictionary
}

func New(opts Opts, dict *Dictionary) *Mutator {
	if dict == nil {
		dict = &Dictionary{}
	}
	return &Mutator{opts: opts, dict: dict}
}

func (m *Mutator) Opts() Opts {
	return m.opts
}

// weights returns a per-call copy of the weight table adjusted to the input.
func (m *Mutator) weights(words int) [strategyCount]int {
	w := [strategyCount]int{
		DeleteChar:  m.opts.DeleteCharWeight,
		InsertChar:  m.opts.InsertCharWeight,
		InsertWord:  m.opts.InsertWordWeight,
		SwitchWords: m.opts.SwitchWordsWeight,
		ReplaceWord: m.opts.ReplaceWordWeight,
		RemoveWord:  m.opts.RemoveWordWeight,
	}
	if words < minWordsForRemoval {
		w[RemoveWord] = 0
	}
	for i := range w {
		w[i] = max(w[i], 0)
	}
	return w
}

// Mutate applies one randomly chosen strategy to s.
// It never fails: strategies that do not apply return s unchanged.
func (m *Mutator) Mutate(r *rand.Rand, s string) string {
	res, _ := m.MutateStrategy(r, s)
	return res
}

// MutateStrategy is like Mutate, but also reports the strategy that was chosen.
// The strategy is -1 if all weights are zero for this input.
func (m *Mutator) MutateStrategy(r *rand.Rand, s string) (string, Strategy) {
	w := m.weights(len(strings.Fields(s)))
	total := 0
	for _, v := range w {
		total += v
	}
	if total == 0 {
		return s, -1
	}
	val := r.Intn(total)
	for strategy, weight := range w {
		val -= weight
		if val < 0 {
			return strategies[strategy](m, r, s), Strategy(strategy)
		}
	}
	panic("unreachable")
}

// MutateN applies a stack of k mutations, where
// k = min(len(s), 2^U[1,5], maxTrials).
func (m *Mutator) MutateN(r *rand.Rand, s string, maxTrials int) string {
	trials := min(utf8.RuneCountInString(s), 1<<(1+r.Intn(maxStackingPower)), maxTrials)
	for i := 0; i < trials; i++ {
		s = m.Mutate(r, s)
	}
	return s
}

var strategies = [strategyCount]func(m *Mutator, r *rand.Rand, s string) string{
	DeleteChar: func(m *Mutator, r *rand.Rand, s string) string {
		runes := []rune(s)
		if len(runes) == 0 {
			return s
		}
		pos := r.Intn(len(runes))
		return string(runes[:pos]) + string(runes[pos+1:])
	},
	InsertChar: func(m *Mutator, r *rand.Rand, s string) string {
		runes := []rune(s)
		pos := r.Intn(len(runes) + 1)
		// Printable ASCII only.
		c := rune(' ' + r.Intn('\x7f'-' '))
		return string(runes[:pos]) + string(c) + string(runes[pos:])
	},
	InsertWord: func(m *Mutator, r *rand.Rand, s string) string {
		if len(m.dict.Words) == 0 {
			return s
		}
		tokens := strings.Fields(s)
		pos := r.Intn(len(tokens) + 1)
		word := m.dict.Words[r.Intn(len(m.dict.Words))]
		tokens = append(tokens[:pos], append([]string{word}, tokens[pos:]...)...)
		return strings.Join(tokens, " ")
	},
	SwitchWords: func(m *Mutator, r *rand.Rand, s string) string {
		tokens := strings.Fields(s)
		if len(tokens) < 2 {
			return s
		}
		pos1 := r.Intn(len(tokens))
		pos2 := r.Intn(len(tokens) - 1)
		if pos2 >= pos1 {
			pos2++
		}
		tokens[pos1], tokens[pos2] = tokens[pos2], tokens[pos1]
		return strings.Join(tokens, " ")
	},
	ReplaceWord: func(m *Mutator, r *rand.Rand, s string) string {
		tokens := strings.Fields(s)
		// Candidates are collected in token order to keep the choice reproducible.
		var candidates []int
		seen := make(map[string]bool)
		for i, tok := range tokens {
			if seen[tok] || len(m.dict.Replacements[tok]) == 0 {
				continue
			}
			seen[tok] = true
			candidates = append(candidates, i)
		}
		if len(candidates) == 0 {
			return s
		}
		idx := candidates[r.Intn(len(candidates))]
		options := m.dict.Replacements[tokens[idx]]
		tokens[idx] = options[r.Intn(len(options))]
		return strings.Join(tokens, " ")
	},
	RemoveWord: func(m *Mutator, r *rand.Rand, s string) string {
		tokens := strings.Fields(s)
		if len(tokens) < minWordsForRemoval {
			return s
		}
		pos := r.Intn(len(tokens))
		tokens = append(tokens[:pos], tokens[pos+1:]...)
		return strings.Join(tokens, " ")
	},
}

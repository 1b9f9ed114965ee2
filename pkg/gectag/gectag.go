// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package gectag is a small grammatical error tagger used as the demo
// system under test. It compares a learner's sentence against the original
// one and labels every word. The code is instrumented: every decision point
// reports a location to the tracer and can be altered by a mutant, which
// makes the package usable both for coverage-guided fuzzing and for
// in-process mutation testing.
package gectag

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/klnyzzz33/api-fuzzing-test/pkg/cover"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/mutation"
	"github.com/klnyzzz33/api-fuzzing-test/pkg/mutator"
)

const (
	LabelCorrect    = "correct"
	LabelPunct      = "punct"
	LabelCase       = "case"
	LabelWrongOrder = "wrong_order"
	LabelWrongForm  = "wrong_form"
	LabelTypo       = "typo"
	LabelExtra      = "extra"
)

// Module is the source module name the location table maps to.
const Module = "gectag"

const (
	OpNegateCondition = "NegateCondition"
	OpSwapLabel       = "SwapLabel"
)

// Decision points. Values double as location line numbers.
const (
	ptEmpty       = 1
	ptTooLong     = 2
	ptPunct       = 10
	ptPunctSame   = 11
	ptSamePos     = 12
	ptCaseOnly    = 13
	ptElsewhere   = 14
	ptWrongForm   = 15
	ptTypo        = 16
	ptMissing     = 30
	ptAllCorrect  = 31
	ptDistShort   = 40
	ptDistSubst   = 41
	ptDistTooFar  = 42
	ptUsedAlready = 50
)

var conditions = []int{
	ptEmpty, ptTooLong, ptPunct, ptPunctSame, ptSamePos, ptCaseOnly, ptElsewhere,
	ptWrongForm, ptTypo, ptMissing, ptAllCorrect, ptDistShort, ptDistSubst, ptDistTooFar,
	ptUsedAlready,
}

var labelPoints = []int{ptPunctSame, ptSamePos, ptCaseOnly, ptElsewhere, ptWrongForm, ptTypo}

var funcs = map[int]string{
	ptEmpty:       "annotate",
	ptTooLong:     "annotate",
	ptMissing:     "annotate",
	ptAllCorrect:  "annotate",
	ptPunct:       "classify",
	ptPunctSame:   "classify",
	ptSamePos:     "classify",
	ptCaseOnly:    "classify",
	ptElsewhere:   "classify",
	ptWrongForm:   "classify",
	ptTypo:        "classify",
	ptUsedAlready: "classify",
	ptDistShort:   "distance",
	ptDistSubst:   "distance",
	ptDistTooFar:  "distance",
}

const maxWords = 64

var ErrEmptyInput = errors.New("empty input")

// Annotate labels the words of input against original.
func Annotate(tr *cover.Tracer, original, input string) (string, error) {
	return (&tagger{tr: tr}).annotate(original, input)
}

// AnnotateMutant is Annotate with the mutant applied.
func AnnotateMutant(m *mutation.Mutant, original, input string) (string, error) {
	return (&tagger{mutant: m}).annotate(original, input)
}

// Locations returns the function to module table for the instrumented code.
func Locations() *cover.LocationTable {
	table := make(map[string]string)
	for _, fn := range funcs {
		table[fn] = Module
	}
	return cover.NewLocationTable(table)
}

// Mutants lists all mutants of the tagger in a stable order.
func Mutants() []*mutation.Mutant {
	var res []*mutation.Mutant
	for _, pt := range conditions {
		res = append(res, newMutant(pt, OpNegateCondition))
	}
	for _, pt := range labelPoints {
		res = append(res, newMutant(pt, OpSwapLabel))
	}
	return res
}

func newMutant(pt int, op string) *mutation.Mutant {
	return &mutation.Mutant{
		JobID:    fmt.Sprintf("%v-%02d-%v", Module, pt, op),
		Module:   Module,
		Line:     pt,
		Operator: op,
	}
}

type tagger struct {
	tr     *cover.Tracer
	mutant *mutation.Mutant
}

func (t *tagger) cond(pt int, v bool) bool {
	t.tr.Hit(funcs[pt], pt)
	if t.mutant != nil && t.mutant.Line == pt && t.mutant.Operator == OpNegateCondition {
		return !v
	}
	return v
}

func (t *tagger) label(pt int, l string) string {
	if t.mutant != nil && t.mutant.Line == pt && t.mutant.Operator == OpSwapLabel {
		if l == LabelCorrect {
			return LabelExtra
		}
		return LabelCorrect
	}
	return l
}

func (t *tagger) annotate(original, input string) (string, error) {
	words := strings.Fields(input)
	if t.cond(ptEmpty, len(words) == 0) {
		return "", ErrEmptyInput
	}
	if t.cond(ptTooLong, len(words) > maxWords) {
		return "", fmt.Errorf("input has %v words, at most %v are supported", len(words), maxWords)
	}
	orig := strings.Fields(original)
	used := make([]bool, len(orig))
	labels := make([]string, len(words))
	for i, w := range words {
		labels[i] = t.classify(w, i, orig, used)
	}
	var missing []string
	for i, w := range orig {
		if t.cond(ptMissing, !used[i]) {
			missing = append(missing, w)
		}
	}
	allCorrect := len(missing) == 0
	for _, l := range labels {
		allCorrect = allCorrect && (l == LabelCorrect || l == LabelPunct)
	}
	if t.cond(ptAllCorrect, allCorrect) {
		return "perfect", nil
	}
	var b strings.Builder
	for i, w := range words {
		if i != 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%v/%v", w, labels[i])
	}
	if len(missing) != 0 {
		fmt.Fprintf(&b, " | missing: %v", strings.Join(missing, " "))
	}
	return b.String(), nil
}

func (t *tagger) classify(w string, pos int, orig []string, used []bool) string {
	if t.cond(ptPunct, isPunct(w)) {
		if t.cond(ptPunctSame, pos < len(orig) && orig[pos] == w) {
			used[pos] = true
			return t.label(ptPunctSame, LabelCorrect)
		}
		for i, o := range orig {
			if !used[i] && o == w {
				used[i] = true
				break
			}
		}
		return LabelPunct
	}
	if t.cond(ptSamePos, pos < len(orig) && !used[pos] && orig[pos] == w) {
		used[pos] = true
		return t.label(ptSamePos, LabelCorrect)
	}
	if t.cond(ptCaseOnly, pos < len(orig) && !used[pos] && strings.EqualFold(orig[pos], w)) {
		used[pos] = true
		return t.label(ptCaseOnly, LabelCase)
	}
	for i, o := range orig {
		if t.cond(ptUsedAlready, used[i]) {
			continue
		}
		if t.cond(ptElsewhere, o == w) {
			used[i] = true
			return t.label(ptElsewhere, LabelWrongOrder)
		}
	}
	for i, o := range orig {
		if used[i] {
			continue
		}
		if t.cond(ptWrongForm, isForm(o, w)) {
			used[i] = true
			return t.label(ptWrongForm, LabelWrongForm)
		}
	}
	for i, o := range orig {
		if used[i] {
			continue
		}
		if t.cond(ptTypo, t.distance(o, w) == 1) {
			used[i] = true
			return t.label(ptTypo, LabelTypo)
		}
	}
	return LabelExtra
}

// distance is the Levenshtein distance capped at 2.
func (t *tagger) distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if t.cond(ptDistTooFar, abs(len(ra)-len(rb)) > 1) {
		return 2
	}
	if t.cond(ptDistShort, len(ra) == 0 || len(rb) == 0) {
		return max(len(ra), len(rb))
	}
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if t.cond(ptDistSubst, ra[i-1] == rb[j-1]) {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return min(prev[len(rb)], 2)
}

var forms = mutator.DefaultDictionary().Replacements

func isForm(orig, w string) bool {
	for _, f := range forms[orig] {
		if f == w {
			return true
		}
	}
	return false
}

func isPunct(w string) bool {
	for _, r := range w {
		if !unicode.IsPunct(r) {
			return false
		}
	}
	return w != ""
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

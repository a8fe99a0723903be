// Package fillgap implements the word-bank widget behind fill-in-the-blank
// exercises: a shuffled pool of options, a set of blanks, and the rule that
// each bank entry sits in at most one blank at a time.
package fillgap

import (
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/p-n-ai/pai-exam/internal/exam"
)

// CheckResult reports the state of the blanks when checked.
type CheckResult struct {
	Filled     bool         `json:"filled"`
	AllCorrect exam.Verdict `json:"all_correct"`
}

// Matcher tracks which option sits in which blank of one exercise. Blanks
// hold pool slots, so a word that appears twice in the bank can fill two
// blanks. It is not safe for concurrent use.
type Matcher struct {
	exercise exam.FillIn
	segments []string
	pool     []string
	blanks   []int
	checked  bool
}

const empty = -1

// New creates a matcher for ex. The option pool is shuffled once with rng
// and keeps that order for the life of the matcher. A nil rng uses the
// global source.
func New(ex exam.FillIn, rng *rand.Rand) *Matcher {
	segments := exam.SplitTemplate(ex.Content)
	blanks := make([]int, len(segments)-1)
	for i := range blanks {
		blanks[i] = empty
	}
	return &Matcher{
		exercise: ex,
		segments: segments,
		pool:     Shuffle(ex.Bank, rng),
		blanks:   blanks,
	}
}

// Shuffle returns a Fisher–Yates permutation of options. The input is not
// modified.
func Shuffle(options []string, rng *rand.Rand) []string {
	out := slices.Clone(options)
	intN := rand.IntN
	if rng != nil {
		intN = rng.IntN
	}
	for i := len(out) - 1; i > 0; i-- {
		j := intN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Pool returns the shuffled options.
func (m *Matcher) Pool() []string {
	return slices.Clone(m.pool)
}

// Segments returns the template text around the blanks.
func (m *Matcher) Segments() []string {
	return slices.Clone(m.segments)
}

// Blanks returns the current value of every blank; empty means unfilled.
func (m *Matcher) Blanks() []string {
	out := make([]string, len(m.blanks))
	for i, slot := range m.blanks {
		if slot != empty {
			out[i] = m.pool[slot]
		}
	}
	return out
}

// Available returns the pool options not currently placed in a blank.
func (m *Matcher) Available() []string {
	out := make([]string, 0, len(m.pool))
	for slot, opt := range m.pool {
		if m.holder(slot) < 0 {
			out = append(out, opt)
		}
	}
	return out
}

// Assign places option into blank, taking the first free pool slot with
// that text. It does nothing and returns false when the blank does not
// exist, the option is empty or contains the blank separator, or every
// copy of the option already sits in a different blank. A value
// previously in the blank is returned to the pool.
func (m *Matcher) Assign(blank int, option string) bool {
	if blank < 0 || blank >= len(m.blanks) {
		return false
	}
	if option == "" || strings.Contains(option, exam.BlankSeparator) {
		return false
	}
	if cur := m.blanks[blank]; cur != empty && m.pool[cur] == option {
		return true
	}
	for slot, opt := range m.pool {
		if opt == option && m.holder(slot) < 0 {
			m.blanks[blank] = slot
			m.checked = false
			return true
		}
	}
	return false
}

// Clear empties blank, freeing its option.
func (m *Matcher) Clear(blank int) {
	if blank < 0 || blank >= len(m.blanks) {
		return
	}
	m.blanks[blank] = empty
	m.checked = false
}

// Check evaluates the blanks and marks the matcher as checked.
func (m *Matcher) Check() CheckResult {
	m.checked = true
	res := CheckResult{Filled: !slices.Contains(m.blanks, empty)}
	if len(m.exercise.ExpectedBlanks()) == len(m.blanks) {
		res.AllCorrect = exam.JudgeBlanks(m.exercise, m.Blanks())
	}
	return res
}

// Checked reports whether Check has run since the last change.
func (m *Matcher) Checked() bool {
	return m.checked
}

// Reset empties every blank and clears the checked flag.
func (m *Matcher) Reset() {
	for i := range m.blanks {
		m.blanks[i] = empty
	}
	m.checked = false
}

// Answer returns the blanks encoded as a single submission value.
func (m *Matcher) Answer() string {
	return exam.JoinBlanks(m.Blanks())
}

func (m *Matcher) holder(slot int) int {
	return slices.Index(m.blanks, slot)
}

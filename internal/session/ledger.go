package session

import (
	"errors"
	"fmt"
	"maps"

	"github.com/p-n-ai/pai-exam/internal/exam"
)

// ErrInvalidLedger is returned when a stored ledger does not fit its exam.
var ErrInvalidLedger = errors.New("invalid ledger")

// Ledger is the mutable record of one session: where the learner is, what
// they answered, and how each answer was judged.
//
// Index is the only cursor. Flashcard and exercise traversal both move it;
// what a mode switch in the middle of a session should do to the cursor is
// undecided, so a Session never changes mode.
type Ledger struct {
	Index       int            `json:"index"`
	Answers     map[int]string `json:"answers"`
	Correctness map[int]bool   `json:"correctness"`
	Complete    bool           `json:"complete"`
}

// NewLedger returns an empty ledger positioned at the first exercise.
func NewLedger() Ledger {
	return Ledger{
		Answers:     map[int]string{},
		Correctness: map[int]bool{},
	}
}

// Clone returns a deep copy of the ledger.
func (l Ledger) Clone() Ledger {
	out := l
	out.Answers = maps.Clone(l.Answers)
	out.Correctness = maps.Clone(l.Correctness)
	if out.Answers == nil {
		out.Answers = map[int]string{}
	}
	if out.Correctness == nil {
		out.Correctness = map[int]bool{}
	}
	return out
}

// Answered reports whether exercise i has a submitted answer.
func (l Ledger) Answered(i int) bool {
	_, ok := l.Answers[i]
	return ok
}

// Verdict returns the judged outcome of exercise i, or VerdictUndefined
// when it has not been judged.
func (l Ledger) Verdict(i int) exam.Verdict {
	correct, ok := l.Correctness[i]
	if !ok {
		return exam.VerdictUndefined
	}
	return exam.VerdictOf(correct)
}

// Check verifies the ledger fits an exam of n exercises.
func (l Ledger) Check(n int) error {
	if n == 0 {
		if !l.Complete || l.Index != 0 || len(l.Answers) > 0 {
			return fmt.Errorf("%w: empty exam must have a complete, empty ledger", ErrInvalidLedger)
		}
		return nil
	}
	if l.Index < 0 || l.Index >= n {
		return fmt.Errorf("%w: index %d out of range [0,%d)", ErrInvalidLedger, l.Index, n)
	}
	for i := range l.Answers {
		if i < 0 || i >= n {
			return fmt.Errorf("%w: answer for exercise %d out of range", ErrInvalidLedger, i)
		}
	}
	for i := range l.Correctness {
		if _, ok := l.Answers[i]; !ok {
			return fmt.Errorf("%w: exercise %d judged without an answer", ErrInvalidLedger, i)
		}
	}
	return nil
}

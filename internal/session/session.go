// Package session drives a learner through an exam: it owns the cursor,
// the answer and correctness ledger, and the completion flag.
package session

import (
	"errors"
	"fmt"

	"github.com/p-n-ai/pai-exam/internal/exam"
)

var (
	// ErrSessionComplete is returned when answering after the session ended.
	ErrSessionComplete = errors.New("session is complete")
	// ErrIndexOutOfRange is returned by JumpTo for a missing exercise.
	ErrIndexOutOfRange = errors.New("exercise index out of range")
)

// State is the coarse state of a session.
type State int

const (
	StateInProgress State = iota
	StateComplete
)

func (s State) String() string {
	if s == StateComplete {
		return "complete"
	}
	return "in_progress"
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name written by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "in_progress":
		*s = StateInProgress
	case "complete":
		*s = StateComplete
	default:
		return fmt.Errorf("unknown session state %q", text)
	}
	return nil
}

// Option configures a Session.
type Option func(*Session)

// WithViewSource sets the hook run by ViewSource. The session does not
// interpret the signal.
func WithViewSource(fn func(examID string, index int)) Option {
	return func(s *Session) { s.viewSource = fn }
}

// Session is the state machine for one learner working through one exam.
// It is owned by a single caller and is not safe for concurrent use.
type Session struct {
	exam       exam.Exam
	ledger     Ledger
	viewSource func(examID string, index int)
}

// New starts a session at the first exercise. An exam without exercises
// is complete immediately.
func New(e exam.Exam, opts ...Option) *Session {
	s := &Session{exam: e}
	for _, o := range opts {
		o(s)
	}
	s.ledger = s.initialLedger()
	return s
}

// Restore rebuilds a session from a previously saved ledger.
func Restore(e exam.Exam, l Ledger, opts ...Option) (*Session, error) {
	l = l.Clone()
	if err := l.Check(e.Len()); err != nil {
		return nil, err
	}
	s := &Session{exam: e, ledger: l}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func (s *Session) initialLedger() Ledger {
	l := NewLedger()
	l.Complete = s.exam.Len() == 0
	return l
}

// Exam returns the exam being played.
func (s *Session) Exam() exam.Exam { return s.exam }

// Mode returns the traversal mode.
func (s *Session) Mode() exam.Mode { return s.exam.Mode }

// Index returns the cursor position.
func (s *Session) Index() int { return s.ledger.Index }

// State returns InProgress or Complete.
func (s *Session) State() State {
	if s.ledger.Complete {
		return StateComplete
	}
	return StateInProgress
}

// Current returns the exercise under the cursor.
func (s *Session) Current() (exam.Exercise, bool) {
	return s.exam.Exercise(s.ledger.Index)
}

// Ledger returns a copy of the session ledger.
func (s *Session) Ledger() Ledger {
	return s.ledger.Clone()
}

// SubmitAnswer records value for the current exercise and judges it. In
// flashcard mode every exercise is self-assessed. A defined verdict is
// stored; an undefined one removes any earlier verdict for the exercise.
func (s *Session) SubmitAnswer(value string) (exam.Verdict, error) {
	ex, err := s.answerable()
	if err != nil {
		return exam.VerdictUndefined, err
	}

	var v exam.Verdict
	switch _, unknown := ex.(exam.Unknown); {
	case unknown:
		v = exam.VerdictUndefined
	case s.exam.Mode == exam.ModeFlashcard:
		v = exam.JudgeSelfAssessment(value)
	default:
		v = exam.Judge(ex, value)
	}

	i := s.ledger.Index
	s.ledger.Answers[i] = value
	if correct, ok := v.Bool(); ok {
		s.ledger.Correctness[i] = correct
	} else {
		delete(s.ledger.Correctness, i)
	}
	return v, nil
}

// SubmitGraded records value with a correctness supplied by the caller,
// as flashcard self-grading does. No judge runs.
func (s *Session) SubmitGraded(value string, correct bool) error {
	if _, err := s.answerable(); err != nil {
		return err
	}
	i := s.ledger.Index
	s.ledger.Answers[i] = value
	s.ledger.Correctness[i] = correct
	return nil
}

func (s *Session) answerable() (exam.Exercise, error) {
	if s.ledger.Complete {
		return nil, ErrSessionComplete
	}
	ex, ok := s.Current()
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, s.ledger.Index)
	}
	return ex, nil
}

// Next advances the cursor. From the last exercise it completes the
// session instead.
func (s *Session) Next() {
	if s.ledger.Complete {
		return
	}
	if s.ledger.Index >= s.exam.Len()-1 {
		s.ledger.Complete = true
		return
	}
	s.ledger.Index++
}

// Previous moves the cursor back one exercise. It does nothing at the first
// exercise or once the session is complete.
func (s *Session) Previous() {
	if s.ledger.Complete || s.ledger.Index == 0 {
		return
	}
	s.ledger.Index--
}

// Skip moves on without requiring an answer; it behaves exactly like Next.
func (s *Session) Skip() {
	s.Next()
}

// JumpTo moves the cursor to index and reopens a completed session.
// Answers already recorded are kept.
func (s *Session) JumpTo(index int) error {
	if index < 0 || index >= s.exam.Len() {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	s.ledger.Index = index
	s.ledger.Complete = false
	return nil
}

// Retry discards every answer and returns to the first exercise.
func (s *Session) Retry() {
	s.ledger = s.initialLedger()
}

// CanAdvance reports whether the current exercise has an answer. It backs
// the "Next" button; Skip ignores it.
func (s *Session) CanAdvance() bool {
	return !s.ledger.Complete && s.ledger.Answered(s.ledger.Index)
}

// ViewSource forwards the "view source lesson" signal to the configured
// hook, if any.
func (s *Session) ViewSource() {
	if s.viewSource != nil {
		s.viewSource(s.exam.ID, s.ledger.Index)
	}
}

package exam

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrUnknownKind is reported for exercises whose type is not recognised.
	ErrUnknownKind = errors.New("unknown exercise type")
	// ErrAnswerNotInOptions is reported when an answer is not one of the options.
	ErrAnswerNotInOptions = errors.New("answer is not one of the options")
	// ErrBlankMismatch is reported when a fill-in answer list has the wrong length.
	ErrBlankMismatch = errors.New("answer count does not match blank count")
	// ErrSeparatorInOption is reported when a fill-in option or answer
	// contains BlankSeparator and so cannot be encoded as a submission.
	ErrSeparatorInOption = errors.New("fill-in value contains the blank separator")
)

// ValidateExercise checks the shape invariants of a single exercise.
func ValidateExercise(ex Exercise) error {
	switch e := ex.(type) {
	case MultipleChoice:
		if len(e.Choices) == 0 {
			return errors.New("mcq exercise has no options")
		}
		if !slices.Contains(e.Choices, e.Answer) {
			return fmt.Errorf("%w: %q", ErrAnswerNotInOptions, e.Answer)
		}
	case YesNo:
		if e.Answer != Yes && e.Answer != No {
			return fmt.Errorf("%w: %q", ErrAnswerNotInOptions, e.Answer)
		}
	case Flashcard:
		if e.Content == "" {
			return errors.New("flashcard has no front")
		}
	case FillIn:
		expected := e.ExpectedBlanks()
		if blanks := CountBlanks(e.Content); len(expected) != blanks {
			return fmt.Errorf("%w: %d answers for %d blanks", ErrBlankMismatch, len(expected), blanks)
		}
		var errs []error
		for _, opt := range e.Bank {
			if strings.Contains(opt, BlankSeparator) {
				errs = append(errs, fmt.Errorf("%w: option %q", ErrSeparatorInOption, opt))
			}
		}
		for i, want := range expected {
			if strings.Contains(want, BlankSeparator) {
				errs = append(errs, fmt.Errorf("blank %d: %w: %q", i, ErrSeparatorInOption, want))
				continue
			}
			if !slices.Contains(e.Bank, want) {
				errs = append(errs, fmt.Errorf("blank %d: %w: %q", i, ErrAnswerNotInOptions, want))
			}
		}
		return errors.Join(errs...)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, ex.Kind())
	}
	return nil
}

// Validate checks an exam and each of its exercises. All problems are
// reported together.
func (e Exam) Validate() error {
	var errs []error
	if e.ID == "" {
		errs = append(errs, errors.New("exam id is required"))
	}
	if !e.Mode.Valid() {
		errs = append(errs, fmt.Errorf("invalid mode %q", e.Mode))
	}
	for i, ex := range e.Exercises {
		if err := ValidateExercise(ex); err != nil {
			errs = append(errs, fmt.Errorf("exercise %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

package exam

import (
	"fmt"
	"regexp"
	"strings"
)

// BlankSeparator joins per-blank values of a fill-in answer into one string.
const BlankSeparator = "|"

// SelfAssessedRight is the flashcard self-assessment value meaning
// "I knew it".
const SelfAssessedRight = "right"

// blankMarker matches one blank in a fill-in template.
var blankMarker = regexp.MustCompile(`_{3,}`)

// Verdict is the outcome of judging a submission. The zero value is
// VerdictUndefined: the exercise could not be judged.
type Verdict int8

const (
	VerdictUndefined Verdict = iota
	VerdictCorrect
	VerdictIncorrect
)

func (v Verdict) String() string {
	switch v {
	case VerdictCorrect:
		return "correct"
	case VerdictIncorrect:
		return "incorrect"
	default:
		return "undefined"
	}
}

// Known reports whether the verdict is correct or incorrect.
func (v Verdict) Known() bool {
	return v == VerdictCorrect || v == VerdictIncorrect
}

// Bool returns the verdict as a boolean and whether it is known.
func (v Verdict) Bool() (correct bool, ok bool) {
	return v == VerdictCorrect, v.Known()
}

// VerdictOf converts a boolean to a known verdict.
func VerdictOf(correct bool) Verdict {
	if correct {
		return VerdictCorrect
	}
	return VerdictIncorrect
}

// MarshalText encodes the verdict by name.
func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText decodes a verdict name written by MarshalText.
func (v *Verdict) UnmarshalText(text []byte) error {
	switch string(text) {
	case "correct":
		*v = VerdictCorrect
	case "incorrect":
		*v = VerdictIncorrect
	case "undefined", "":
		*v = VerdictUndefined
	default:
		return fmt.Errorf("unknown verdict %q", text)
	}
	return nil
}

// Judge decides whether submitted is a correct answer to ex. Unknown and
// malformed fill-in exercises yield VerdictUndefined.
func Judge(ex Exercise, submitted string) Verdict {
	switch e := ex.(type) {
	case MultipleChoice:
		return VerdictOf(submitted == e.Answer)
	case YesNo:
		return VerdictOf(submitted == e.Answer)
	case Flashcard:
		return JudgeSelfAssessment(submitted)
	case FillIn:
		return JudgeBlanks(e, submissionBlanks(e.Content, submitted))
	default:
		return VerdictUndefined
	}
}

// JudgeSelfAssessment maps a flashcard self-grade to a verdict.
func JudgeSelfAssessment(value string) Verdict {
	return VerdictOf(value == SelfAssessedRight)
}

// JudgeBlanks compares ordered per-blank values against the exercise's
// expected list. The verdict is undefined when the expected list does not
// have one entry per blank.
func JudgeBlanks(f FillIn, values []string) Verdict {
	blanks := CountBlanks(f.Content)
	expected := f.ExpectedBlanks()
	if len(expected) != blanks {
		return VerdictUndefined
	}
	if len(values) != blanks {
		return VerdictIncorrect
	}
	for i := range expected {
		if values[i] != expected[i] {
			return VerdictIncorrect
		}
	}
	return VerdictCorrect
}

func submissionBlanks(content, submitted string) []string {
	if CountBlanks(content) == 0 && submitted == "" {
		return nil
	}
	return SplitBlanks(submitted)
}

// CountBlanks returns the number of blank markers in a template.
func CountBlanks(content string) int {
	return len(blankMarker.FindAllStringIndex(content, -1))
}

// SplitTemplate returns the text segments around each blank. A template
// with n blanks yields n+1 segments.
func SplitTemplate(content string) []string {
	return blankMarker.Split(content, -1)
}

// JoinBlanks encodes per-blank values as a single fill-in answer.
func JoinBlanks(values []string) string {
	return strings.Join(values, BlankSeparator)
}

// SplitBlanks decodes a fill-in answer into per-blank values.
func SplitBlanks(answer string) []string {
	return strings.Split(answer, BlankSeparator)
}

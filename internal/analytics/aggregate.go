// Package analytics reduces a session ledger into the summary shown when an
// exam ends.
package analytics

import (
	"maps"
	"math"

	"github.com/p-n-ai/pai-exam/internal/exam"
	"github.com/p-n-ai/pai-exam/internal/session"
)

// Snapshot is a read-only summary of a session's answers.
type Snapshot struct {
	Accuracy       int              `json:"accuracy"`
	CorrectCount   int              `json:"correct_count"`
	IncorrectCount int              `json:"incorrect_count"`
	Total          int              `json:"total"`
	AnsweredCount  int              `json:"answered_count"`
	Answers        map[int]string   `json:"answers"`
	Correctness    map[int]bool     `json:"correctness"`
	Questions      []QuestionDetail `json:"questions"`
}

// QuestionDetail is the per-question review row.
type QuestionDetail struct {
	Index     int          `json:"index"`
	Kind      exam.Kind    `json:"kind"`
	Content   string       `json:"content"`
	Expected  string       `json:"expected"`
	Submitted string       `json:"submitted,omitempty"`
	Answered  bool         `json:"answered"`
	Verdict   exam.Verdict `json:"verdict"`
}

// Aggregate summarizes l against e. Counts come only from judged
// exercises. Accuracy is measured against every exercise in the exam, so
// unanswered questions keep it below 100.
func Aggregate(e exam.Exam, l session.Ledger) Snapshot {
	s := Snapshot{
		Total:         e.Len(),
		AnsweredCount: len(l.Answers),
		Answers:       maps.Clone(l.Answers),
		Correctness:   maps.Clone(l.Correctness),
		Questions:     make([]QuestionDetail, 0, e.Len()),
	}
	if s.Answers == nil {
		s.Answers = map[int]string{}
	}
	if s.Correctness == nil {
		s.Correctness = map[int]bool{}
	}

	for _, correct := range l.Correctness {
		if correct {
			s.CorrectCount++
		} else {
			s.IncorrectCount++
		}
	}
	s.Accuracy = Accuracy(s.CorrectCount, s.Total)

	for i, ex := range e.Exercises {
		submitted, answered := l.Answers[i]
		s.Questions = append(s.Questions, QuestionDetail{
			Index:     i,
			Kind:      ex.Kind(),
			Content:   ex.Prompt(),
			Expected:  ex.Expected(),
			Submitted: submitted,
			Answered:  answered,
			Verdict:   l.Verdict(i),
		})
	}
	return s
}

// Accuracy returns correct as a rounded percentage of total, or 0 when
// total is 0.
func Accuracy(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}

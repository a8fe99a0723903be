package analytics_test

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-exam/internal/analytics"
	"github.com/p-n-ai/pai-exam/internal/exam"
	"github.com/p-n-ai/pai-exam/internal/session"
)

func mcqExam(n int) exam.Exam {
	e := exam.Exam{ID: "mcq", Name: "MCQ", Mode: exam.ModeExercise}
	for range n {
		e.Exercises = append(e.Exercises, exam.MultipleChoice{
			Content: "Pick b",
			Choices: []string{"a", "b"},
			Answer:  "b",
		})
	}
	return e
}

// play answers each exercise in order; an empty value skips it.
func play(e exam.Exam, values ...string) session.Ledger {
	s := session.New(e)
	for _, v := range values {
		if v != "" {
			s.SubmitAnswer(v)
		}
		s.Next()
	}
	return s.Ledger()
}

func TestAggregate_ThreeOfFour(t *testing.T) {
	e := mcqExam(4)
	got := analytics.Aggregate(e, play(e, "b", "b", "a", "b"))

	if got.Accuracy != 75 {
		t.Errorf("Accuracy = %d, want 75", got.Accuracy)
	}
	if got.CorrectCount != 3 || got.IncorrectCount != 1 {
		t.Errorf("counts = (%d, %d), want (3, 1)", got.CorrectCount, got.IncorrectCount)
	}
}

func TestAggregate_SkippedQuestionCountsAgainstAccuracy(t *testing.T) {
	e := mcqExam(2)
	got := analytics.Aggregate(e, play(e, "b", ""))

	if got.CorrectCount != 1 || got.IncorrectCount != 0 {
		t.Errorf("counts = (%d, %d), want (1, 0)", got.CorrectCount, got.IncorrectCount)
	}
	if got.Accuracy != 50 {
		t.Errorf("Accuracy = %d, want 50", got.Accuracy)
	}
	if got.Questions[1].Answered {
		t.Error("skipped question should not be marked answered")
	}
	if got.Questions[1].Verdict != exam.VerdictUndefined {
		t.Errorf("skipped question verdict = %v, want undefined", got.Questions[1].Verdict)
	}
}

func TestAggregate_EmptyExam(t *testing.T) {
	e := exam.Exam{ID: "empty", Mode: exam.ModeExercise}
	s := session.New(e)
	if s.State() != session.StateComplete {
		t.Fatal("empty exam should be complete immediately")
	}

	got := analytics.Aggregate(e, s.Ledger())
	if got.Accuracy != 0 || got.Total != 0 || len(got.Questions) != 0 {
		t.Errorf("Aggregate() = %+v, want zero summary", got)
	}
}

func TestAggregate_CountsMatchCorrectness(t *testing.T) {
	e := exam.Exam{
		ID:   "mixed",
		Mode: exam.ModeExercise,
		Exercises: []exam.Exercise{
			exam.MultipleChoice{Content: "?", Choices: []string{"a", "b"}, Answer: "a"},
			exam.FillIn{Content: "___ ___", Bank: []string{"x"}, Answers: []string{"x"}},
			exam.YesNo{Content: "?", Answer: exam.No},
			exam.Unknown{Type: "essay"},
		},
	}
	l := play(e, "a", "x|x", "yes", "words")
	got := analytics.Aggregate(e, l)

	if got.CorrectCount+got.IncorrectCount != len(l.Correctness) {
		t.Errorf("correct+incorrect = %d, want |correctness| = %d", got.CorrectCount+got.IncorrectCount, len(l.Correctness))
	}
	if got.AnsweredCount != 4 {
		t.Errorf("AnsweredCount = %d, want 4", got.AnsweredCount)
	}
	if got.Accuracy != 25 {
		t.Errorf("Accuracy = %d, want 25", got.Accuracy)
	}
}

func TestAggregate_AccuracyProperty(t *testing.T) {
	for n := 1; n <= 7; n++ {
		for correct := 0; correct <= n; correct++ {
			e := mcqExam(n)
			values := make([]string, n)
			for i := range values {
				values[i] = "a"
				if i < correct {
					values[i] = "b"
				}
			}
			got := analytics.Aggregate(e, play(e, values...))
			if want := analytics.Accuracy(correct, n); got.Accuracy != want {
				t.Errorf("n=%d correct=%d: Accuracy = %d, want %d", n, correct, got.Accuracy, want)
			}
		}
	}
}

func TestAccuracy(t *testing.T) {
	tests := []struct {
		correct, total, want int
	}{
		{0, 0, 0},
		{1, 2, 50},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13},
		{3, 3, 100},
	}

	for _, tt := range tests {
		if got := analytics.Accuracy(tt.correct, tt.total); got != tt.want {
			t.Errorf("Accuracy(%d, %d) = %d, want %d", tt.correct, tt.total, got, tt.want)
		}
	}
}

func TestAggregate_DoesNotAliasLedger(t *testing.T) {
	e := mcqExam(1)
	l := play(e, "b")
	got := analytics.Aggregate(e, l)

	got.Answers[0] = "changed"
	if l.Answers[0] != "b" {
		t.Error("snapshot answers should be a copy of the ledger")
	}
}

func TestWriteXLSX(t *testing.T) {
	e := mcqExam(2)
	snap := analytics.Aggregate(e, play(e, "b", ""))

	var buf bytes.Buffer
	if err := analytics.WriteXLSX(&buf, e, snap); err != nil {
		t.Fatalf("WriteXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	acc, err := f.GetCellValue("Summary", "B8")
	if err != nil {
		t.Fatalf("GetCellValue() error = %v", err)
	}
	if acc != "50" {
		t.Errorf("accuracy cell = %q, want 50", acc)
	}

	rows, err := f.GetRows("Questions")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want header + 2", len(rows))
	}
	if rows[1][5] != "correct" || rows[2][5] != "skipped" {
		t.Errorf("results = [%q %q], want [correct skipped]", rows[1][5], rows[2][5])
	}
}

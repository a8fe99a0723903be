package analytics

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-exam/internal/exam"
)

const (
	summarySheet   = "Summary"
	questionsSheet = "Questions"
)

var questionHeader = []any{"#", "Type", "Question", "Expected", "Submitted", "Result"}

// WriteXLSX writes s as a two-sheet workbook: a summary and one row per
// question.
func WriteXLSX(w io.Writer, e exam.Exam, s Snapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	summary := [][]any{
		{"Exam", e.Name},
		{"Exam ID", e.ID},
		{"Mode", string(e.Mode)},
		{"Questions", s.Total},
		{"Answered", s.AnsweredCount},
		{"Correct", s.CorrectCount},
		{"Incorrect", s.IncorrectCount},
		{"Accuracy (%)", s.Accuracy},
	}
	if err := writeRows(f, summarySheet, summary); err != nil {
		return err
	}

	if _, err := f.NewSheet(questionsSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	rows := make([][]any, 0, len(s.Questions)+1)
	rows = append(rows, questionHeader)
	for _, q := range s.Questions {
		rows = append(rows, []any{q.Index + 1, string(q.Kind), q.Content, q.Expected, q.Submitted, resultLabel(q)})
	}
	if err := writeRows(f, questionsSheet, rows); err != nil {
		return err
	}
	if err := f.SetColWidth(questionsSheet, "C", "C", 48); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func resultLabel(q QuestionDetail) string {
	if !q.Answered {
		return "skipped"
	}
	return q.Verdict.String()
}

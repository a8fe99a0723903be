package exam

import (
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// Document is the wire shape of an exam in JSON and YAML files.
type Document struct {
	ID        string             `json:"id" yaml:"id"`
	Name      string             `json:"name" yaml:"name"`
	Mode      Mode               `json:"mode" yaml:"mode"`
	Exercises []ExerciseDocument `json:"exercises" yaml:"exercises"`
}

// ExerciseDocument is the wire shape of one exercise, discriminated by Type.
type ExerciseDocument struct {
	Type    string   `json:"type" yaml:"type"`
	Content string   `json:"content" yaml:"content"`
	Options []string `json:"options,omitempty" yaml:"options,omitempty"`
	Answer  string   `json:"answer,omitempty" yaml:"answer,omitempty"`
	Answers []string `json:"answers,omitempty" yaml:"answers,omitempty"`
}

// Exam converts the document into an Exam. Text fields are normalized to
// NFC so options and answers written by different editors compare equal.
func (d Document) Exam() Exam {
	ex := Exam{
		ID:        d.ID,
		Name:      nfc(d.Name),
		Mode:      d.Mode,
		Exercises: make([]Exercise, 0, len(d.Exercises)),
	}
	if ex.Mode == "" {
		ex.Mode = ModeExercise
	}
	for _, doc := range d.Exercises {
		ex.Exercises = append(ex.Exercises, doc.Exercise())
	}
	return ex
}

// Exercise converts the document into its variant.
func (d ExerciseDocument) Exercise() Exercise {
	content := nfc(d.Content)
	answer := nfc(d.Answer)
	switch Kind(d.Type) {
	case KindFillIn:
		return FillIn{Content: content, Bank: nfcAll(d.Options), Answer: answer, Answers: nfcAll(d.Answers)}
	case KindYesNo:
		return YesNo{Content: content, Answer: answer}
	case KindMCQ:
		return MultipleChoice{Content: content, Choices: nfcAll(d.Options), Answer: answer}
	case KindFlashcard:
		return Flashcard{Content: content, Answer: answer}
	default:
		return Unknown{Type: d.Type, Content: content}
	}
}

// DocumentOf converts an Exam back to its wire shape.
func DocumentOf(ex Exam) Document {
	d := Document{
		ID:        ex.ID,
		Name:      ex.Name,
		Mode:      ex.Mode,
		Exercises: make([]ExerciseDocument, 0, len(ex.Exercises)),
	}
	for _, e := range ex.Exercises {
		doc := ExerciseDocument{
			Type:    string(e.Kind()),
			Content: e.Prompt(),
			Options: e.Options(),
			Answer:  e.Expected(),
		}
		if f, ok := e.(FillIn); ok {
			doc.Answer = f.Answer
			doc.Answers = f.Answers
		}
		d.Exercises = append(d.Exercises, doc)
	}
	return d
}

// MarshalJSON encodes the exam in its document form.
func (e Exam) MarshalJSON() ([]byte, error) {
	return json.Marshal(DocumentOf(e))
}

// UnmarshalJSON decodes an exam from its document form.
func (e *Exam) UnmarshalJSON(data []byte) error {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return fmt.Errorf("decode exam: %w", err)
	}
	*e = d.Exam()
	return nil
}

func nfc(s string) string {
	return norm.NFC.String(s)
}

func nfcAll(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = nfc(s)
	}
	return out
}

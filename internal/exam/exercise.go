// Package exam defines exams, the exercise variants they contain, and the
// judges that decide whether a submitted answer is correct.
package exam

// Kind is the wire discriminator of an exercise variant.
type Kind string

const (
	KindFillIn    Kind = "fill-in"
	KindYesNo     Kind = "yes/no"
	KindMCQ       Kind = "mcq"
	KindFlashcard Kind = "flashcard"
)

// Mode is the traversal style of an exam session.
type Mode string

const (
	ModeExercise  Mode = "exercise"
	ModeFlashcard Mode = "flashcard"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeExercise || m == ModeFlashcard
}

// Yes and No are the only answers a yes/no exercise accepts.
const (
	Yes = "yes"
	No  = "no"
)

// Exercise is one gradable question. The set of implementations is closed:
// FillIn, YesNo, MultipleChoice, Flashcard, and Unknown for upstream data
// carrying a type this package does not know.
type Exercise interface {
	Kind() Kind
	Prompt() string
	Options() []string
	Expected() string
	exercise()
}

// FillIn is a templated sentence whose blanks are filled from a word bank.
type FillIn struct {
	Content string
	Bank    []string
	Answer  string
	// Answers is the ordered per-blank ground truth. When empty it is
	// derived from Answer with SplitBlanks.
	Answers []string
}

func (f FillIn) Kind() Kind { return KindFillIn }
func (f FillIn) Prompt() string { return f.Content }
func (f FillIn) Options() []string { return append([]string(nil), f.Bank...) }
func (FillIn) exercise() {}

// Expected returns the per-blank answers joined with BlankSeparator.
func (f FillIn) Expected() string {
	if f.Answer != "" {
		return f.Answer
	}
	return JoinBlanks(f.Answers)
}

// ExpectedBlanks returns the ordered per-blank answers.
func (f FillIn) ExpectedBlanks() []string {
	if len(f.Answers) > 0 {
		return append([]string(nil), f.Answers...)
	}
	if f.Answer == "" {
		return nil
	}
	return SplitBlanks(f.Answer)
}

// YesNo is a binary question. Its options are always ["yes", "no"].
type YesNo struct {
	Content string
	Answer  string
}

func (y YesNo) Kind() Kind { return KindYesNo }
func (y YesNo) Prompt() string { return y.Content }
func (y YesNo) Options() []string { return []string{Yes, No} }
func (y YesNo) Expected() string { return y.Answer }
func (YesNo) exercise() {}

// MultipleChoice has one correct option, matched by value.
type MultipleChoice struct {
	Content string
	Choices []string
	Answer  string
}

func (m MultipleChoice) Kind() Kind { return KindMCQ }
func (m MultipleChoice) Prompt() string { return m.Content }
func (m MultipleChoice) Options() []string { return append([]string(nil), m.Choices...) }
func (m MultipleChoice) Expected() string { return m.Answer }
func (MultipleChoice) exercise() {}

// Flashcard shows Content on the front and Answer on the back; the learner
// grades themselves.
type Flashcard struct {
	Content string
	Answer  string
}

func (c Flashcard) Kind() Kind { return KindFlashcard }
func (c Flashcard) Prompt() string { return c.Content }
func (c Flashcard) Options() []string { return nil }
func (c Flashcard) Expected() string { return c.Answer }
func (Flashcard) exercise() {}

// Unknown holds an exercise whose type tag was not recognised. It is never
// judgeable.
type Unknown struct {
	Type    string
	Content string
}

func (u Unknown) Kind() Kind { return Kind(u.Type) }
func (u Unknown) Prompt() string { return u.Content }
func (u Unknown) Options() []string { return nil }
func (u Unknown) Expected() string { return "" }
func (Unknown) exercise() {}

// Exam is an identified, ordered collection of exercises.
type Exam struct {
	ID        string
	Name      string
	Mode      Mode
	Exercises []Exercise
}

// Len returns the number of exercises.
func (e Exam) Len() int {
	return len(e.Exercises)
}

// Exercise returns the exercise at i.
func (e Exam) Exercise(i int) (Exercise, bool) {
	if i < 0 || i >= len(e.Exercises) {
		return nil, false
	}
	return e.Exercises[i], true
}

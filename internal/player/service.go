// Package player runs exam sessions on behalf of a transport: it loads the
// exam, restores the session, applies one learner action, persists the
// result and records an event.
package player

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-exam/internal/analytics"
	"github.com/p-n-ai/pai-exam/internal/exam"
	"github.com/p-n-ai/pai-exam/internal/fillgap"
	"github.com/p-n-ai/pai-exam/internal/session"
)

var (
	// ErrNotFillIn is returned when blanks are checked on another kind of exercise.
	ErrNotFillIn = errors.New("current exercise is not a fill-in")
	// ErrInvalidPlacement is returned when a value cannot go into its blank.
	ErrInvalidPlacement = errors.New("value cannot be placed in blank")
)

// ExamSource hands over fully formed exams.
type ExamSource interface {
	GetExam(id string) (exam.Exam, bool)
}

// ViewSourceFunc receives the "view source lesson" signal.
type ViewSourceFunc func(ctx context.Context, sessionID, examID string, index int)

// Config holds dependencies for the player service.
type Config struct {
	Exams      ExamSource
	Store      session.Store
	Events     session.EventLogger
	ViewSource ViewSourceFunc
	Now        func() time.Time
}

// Service is the entry point for transports driving exam sessions.
type Service struct {
	exams      ExamSource
	store      session.Store
	events     session.EventLogger
	viewSource ViewSourceFunc
	now        func() time.Time
	locks      keyedMutex
}

// View is what a transport shows for a session after each action.
type View struct {
	SessionID  string              `json:"session_id"`
	ExamID     string              `json:"exam_id"`
	ExamName   string              `json:"exam_name"`
	Mode       exam.Mode           `json:"mode"`
	State      session.State       `json:"state"`
	Index      int                 `json:"index"`
	Total      int                 `json:"total"`
	Exercise   *ExerciseView       `json:"exercise,omitempty"`
	CanAdvance bool                `json:"can_advance"`
	Submitted  string              `json:"submitted,omitempty"`
	Verdict    exam.Verdict        `json:"verdict"`
	Ledger     session.Ledger      `json:"ledger"`
	Results    *analytics.Snapshot `json:"results,omitempty"`
}

// ExerciseView is the exercise under the cursor. Back carries the expected
// answer only for cards the learner grades themselves.
type ExerciseView struct {
	Kind     exam.Kind `json:"kind"`
	Content  string    `json:"content"`
	Options  []string  `json:"options,omitempty"`
	Segments []string  `json:"segments,omitempty"`
	Back     string    `json:"back,omitempty"`
}

// NewService creates a player service. Exams and Store are required.
func NewService(cfg Config) (*Service, error) {
	if cfg.Exams == nil {
		return nil, errors.New("exam source is required")
	}
	store := cfg.Store
	if store == nil {
		store = session.NewMemoryStore()
	}
	events := cfg.Events
	if events == nil {
		events = session.NopEventLogger{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		exams:      cfg.Exams,
		store:      store,
		events:     events,
		viewSource: cfg.ViewSource,
		now:        now,
	}, nil
}

// Start opens a new session on examID.
func (s *Service) Start(ctx context.Context, examID string) (View, error) {
	e, ok := s.exams.GetExam(examID)
	if !ok {
		return View{}, fmt.Errorf("%w: %s", exam.ErrExamNotFound, examID)
	}

	id := uuid.NewString()
	sess := session.New(e)
	if err := s.save(ctx, id, sess); err != nil {
		return View{}, err
	}

	slog.Info("exam session started",
		"session_id", id,
		"exam_id", e.ID,
		"mode", e.Mode,
		"exercises", e.Len(),
	)
	s.logEvent(ctx, id, sess, session.EventSessionStarted, nil)
	if sess.State() == session.StateComplete {
		s.logEvent(ctx, id, sess, session.EventSessionCompleted, nil)
	}
	return s.view(id, sess), nil
}

// Get returns the current view of a session.
func (s *Service) Get(ctx context.Context, id string) (View, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return View{}, err
	}
	return s.view(id, sess), nil
}

// Submit records an answer for the current exercise. A non-nil correct
// stores the caller's grade instead of judging.
func (s *Service) Submit(ctx context.Context, id, value string, correct *bool) (View, error) {
	return s.apply(ctx, id, func(sess *session.Session) (string, map[string]any, error) {
		var v exam.Verdict
		if correct != nil {
			if err := sess.SubmitGraded(value, *correct); err != nil {
				return "", nil, err
			}
			v = exam.VerdictOf(*correct)
		} else {
			var err error
			if v, err = sess.SubmitAnswer(value); err != nil {
				return "", nil, err
			}
		}
		return session.EventAnswerSubmitted, map[string]any{
			"verdict":     v.String(),
			"self_graded": correct != nil,
		}, nil
	})
}

// Next advances, completing the session after the last exercise.
func (s *Service) Next(ctx context.Context, id string) (View, error) {
	return s.apply(ctx, id, func(sess *session.Session) (string, map[string]any, error) {
		sess.Next()
		return "", nil, nil
	})
}

// Previous moves back one exercise.
func (s *Service) Previous(ctx context.Context, id string) (View, error) {
	return s.apply(ctx, id, func(sess *session.Session) (string, map[string]any, error) {
		sess.Previous()
		return "", nil, nil
	})
}

// Skip moves on without answering.
func (s *Service) Skip(ctx context.Context, id string) (View, error) {
	return s.apply(ctx, id, func(sess *session.Session) (string, map[string]any, error) {
		from := sess.Index()
		sess.Skip()
		return session.EventQuestionSkipped, map[string]any{"from": from}, nil
	})
}

// JumpTo moves to index, reopening a completed session.
func (s *Service) JumpTo(ctx context.Context, id string, index int) (View, error) {
	return s.apply(ctx, id, func(sess *session.Session) (string, map[string]any, error) {
		if err := sess.JumpTo(index); err != nil {
			return "", nil, err
		}
		return session.EventQuestionJumped, nil, nil
	})
}

// Retry restarts the session from scratch.
func (s *Service) Retry(ctx context.Context, id string) (View, error) {
	return s.apply(ctx, id, func(sess *session.Session) (string, map[string]any, error) {
		sess.Retry()
		return session.EventSessionRetried, nil, nil
	})
}

// ViewSource forwards the "view source lesson" signal.
func (s *Service) ViewSource(ctx context.Context, id string) error {
	sess, err := s.load(ctx, id, session.WithViewSource(func(examID string, index int) {
		if s.viewSource != nil {
			s.viewSource(ctx, id, examID, index)
		}
	}))
	if err != nil {
		return err
	}
	sess.ViewSource()
	return nil
}

// CheckBlanks places values into the blanks of the current fill-in exercise,
// one per blank in order, and reports whether they are filled and correct.
// An empty value leaves its blank open. Nothing is recorded; the learner
// still submits the answer to commit it.
func (s *Service) CheckBlanks(ctx context.Context, id string, values []string) (fillgap.CheckResult, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return fillgap.CheckResult{}, err
	}
	if sess.State() == session.StateComplete {
		return fillgap.CheckResult{}, session.ErrSessionComplete
	}
	ex, _ := sess.Current()
	f, ok := ex.(exam.FillIn)
	if !ok {
		return fillgap.CheckResult{}, fmt.Errorf("%w: %s", ErrNotFillIn, ex.Kind())
	}

	m := fillgap.New(f, poolRand(id, sess.Index()))
	if n := len(m.Blanks()); len(values) > n {
		return fillgap.CheckResult{}, fmt.Errorf("%w: %d values for %d blanks", ErrInvalidPlacement, len(values), n)
	}
	for i, v := range values {
		if v == "" {
			continue
		}
		if !m.Assign(i, v) {
			return fillgap.CheckResult{}, fmt.Errorf("%w: %q into blank %d", ErrInvalidPlacement, v, i)
		}
	}
	res := m.Check()
	slog.Debug("fill-in blanks checked",
		"session_id", id,
		"index", sess.Index(),
		"filled", res.Filled,
		"verdict", res.AllCorrect,
	)
	return res, nil
}

// Analytics summarizes a session, finished or not.
func (s *Service) Analytics(ctx context.Context, id string) (exam.Exam, analytics.Snapshot, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return exam.Exam{}, analytics.Snapshot{}, err
	}
	return sess.Exam(), analytics.Aggregate(sess.Exam(), sess.Ledger()), nil
}

// End discards a session.
func (s *Service) End(ctx context.Context, id string) error {
	unlock := s.locks.lock(id)
	defer unlock()
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	slog.Info("exam session ended", "session_id", id)
	return nil
}

// apply runs op under the session's lock and persists the result. op
// returns the event to record, if any.
func (s *Service) apply(ctx context.Context, id string, op func(*session.Session) (string, map[string]any, error)) (View, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	sess, err := s.load(ctx, id)
	if err != nil {
		return View{}, err
	}
	wasComplete := sess.State() == session.StateComplete

	eventType, data, err := op(sess)
	if err != nil {
		return View{}, err
	}
	if err := s.save(ctx, id, sess); err != nil {
		return View{}, err
	}

	if eventType != "" {
		s.logEvent(ctx, id, sess, eventType, data)
	}
	if !wasComplete && sess.State() == session.StateComplete {
		snap := analytics.Aggregate(sess.Exam(), sess.Ledger())
		slog.Info("exam session completed",
			"session_id", id,
			"exam_id", sess.Exam().ID,
			"accuracy", snap.Accuracy,
			"correct", snap.CorrectCount,
			"incorrect", snap.IncorrectCount,
		)
		s.logEvent(ctx, id, sess, session.EventSessionCompleted, map[string]any{
			"accuracy":  snap.Accuracy,
			"correct":   snap.CorrectCount,
			"incorrect": snap.IncorrectCount,
		})
	}
	return s.view(id, sess), nil
}

func (s *Service) load(ctx context.Context, id string, opts ...session.Option) (*session.Session, error) {
	snap, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	e, ok := s.exams.GetExam(snap.ExamID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", exam.ErrExamNotFound, snap.ExamID)
	}
	sess, err := session.Restore(e, snap.Ledger, opts...)
	if err != nil {
		return nil, fmt.Errorf("restore session %s: %w", id, err)
	}
	return sess, nil
}

func (s *Service) save(ctx context.Context, id string, sess *session.Session) error {
	err := s.store.Save(ctx, session.Snapshot{
		ID:        id,
		ExamID:    sess.Exam().ID,
		Ledger:    sess.Ledger(),
		UpdatedAt: s.now(),
	})
	if err != nil {
		return fmt.Errorf("save session %s: %w", id, err)
	}
	return nil
}

// logEvent records an event; failures are logged and otherwise ignored so
// they never block the learner.
func (s *Service) logEvent(ctx context.Context, id string, sess *session.Session, eventType string, data map[string]any) {
	err := s.events.LogEvent(ctx, session.Event{
		SessionID: id,
		ExamID:    sess.Exam().ID,
		EventType: eventType,
		Index:     sess.Index(),
		Data:      data,
		CreatedAt: s.now(),
	})
	if err != nil {
		slog.Warn("failed to log event", "type", eventType, "session_id", id, "error", err)
	}
}

func (s *Service) view(id string, sess *session.Session) View {
	e := sess.Exam()
	l := sess.Ledger()
	v := View{
		SessionID:  id,
		ExamID:     e.ID,
		ExamName:   e.Name,
		Mode:       e.Mode,
		State:      sess.State(),
		Index:      sess.Index(),
		Total:      e.Len(),
		CanAdvance: sess.CanAdvance(),
		Submitted:  l.Answers[sess.Index()],
		Verdict:    l.Verdict(sess.Index()),
		Ledger:     l,
	}
	if sess.State() == session.StateComplete {
		snap := analytics.Aggregate(e, l)
		v.Results = &snap
		return v
	}
	if ex, ok := sess.Current(); ok {
		v.Exercise = exerciseView(ex, e.Mode, poolRand(id, sess.Index()))
	}
	return v
}

// poolRand seeds the word-bank shuffle so an exercise shows the same order
// every time a session views it.
func poolRand(sessionID string, index int) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(sessionID))
	return rand.New(rand.NewPCG(h.Sum64(), uint64(index)))
}

func exerciseView(ex exam.Exercise, mode exam.Mode, rng *rand.Rand) *ExerciseView {
	ev := &ExerciseView{
		Kind:    ex.Kind(),
		Content: ex.Prompt(),
		Options: ex.Options(),
	}
	switch e := ex.(type) {
	case exam.FillIn:
		m := fillgap.New(e, rng)
		ev.Options = m.Pool()
		ev.Segments = m.Segments()
	case exam.Flashcard:
		ev.Back = ex.Expected()
	}
	if mode == exam.ModeFlashcard {
		ev.Back = ex.Expected()
	}
	return ev
}

// keyedMutex serializes work per session ID.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

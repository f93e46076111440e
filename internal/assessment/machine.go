// Package assessment drives one attempt through Taking, Feedback and Results,
// accumulating responses and handing the final result to the mastery gate.
package assessment

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kokou-stm/kalanso/internal/answer"
	"github.com/kokou-stm/kalanso/internal/mastery"
	"github.com/kokou-stm/kalanso/internal/question"
	"github.com/kokou-stm/kalanso/internal/scoring"
	"github.com/kokou-stm/kalanso/internal/validation"
)

// Options configure a Machine. All fields are optional.
type Options struct {
	Gate *mastery.Gate

	// DefaultMasteryThreshold applies when the assessment sets none.
	DefaultMasteryThreshold float64

	// Sink receives the completion; nil discards it.
	Sink Sink

	// Observer is called after every transition.
	Observer func(Event)

	// Shuffle seeds ordering questions; nil keeps authoring order.
	Shuffle answer.Shuffler

	Logger *zap.Logger
}

// Machine is the state machine for a single learner attempt. It is not safe
// for concurrent use; the owner serializes actions and ticks.
type Machine struct {
	def  *question.Assessment
	opts Options
	log  *zap.Logger

	phase         Phase
	index         int
	current       answer.State
	responses     []scoring.Response
	elapsed       time.Duration
	startedAt     time.Time
	questionStart time.Time
	attempt       int

	result   *Result
	decision *mastery.Decision
}

// New returns a machine for def. Call Start to begin the first attempt.
func New(def *question.Assessment, opts Options) (*Machine, error) {
	if def == nil || len(def.Questions) == 0 {
		return nil, errors.New("assessment has no questions")
	}
	if opts.Gate == nil {
		opts.Gate = &mastery.Gate{}
	}
	if opts.DefaultMasteryThreshold <= 0 {
		opts.DefaultMasteryThreshold = mastery.DefaultMasteryThreshold
	}
	if opts.Shuffle == nil {
		opts.Shuffle = answer.NoShuffle
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Machine{
		def:  def,
		opts: opts,
		log:  log.With(zap.String("assessment", def.ID)),
	}, nil
}

// Start begins an attempt at question 0 with a fresh timer.
func (m *Machine) Start(now time.Time) error {
	if m.phase != PhaseNotStarted {
		return fmt.Errorf("start: %w (phase %s)", ErrWrongPhase, m.phase)
	}
	return m.begin(now)
}

func (m *Machine) begin(now time.Time) error {
	m.index = 0
	m.responses = make([]scoring.Response, 0, len(m.def.Questions))
	m.elapsed = 0
	m.startedAt = now
	m.result = nil
	m.decision = nil
	m.attempt++
	if err := m.enterQuestion(now); err != nil {
		return err
	}
	m.log.Debug("attempt started", zap.Int("attempt", m.attempt))
	m.emit(Event{Phase: m.phase, Index: m.index})
	return nil
}

func (m *Machine) enterQuestion(now time.Time) error {
	st, err := answer.Initial(m.def.Questions[m.index], m.opts.Shuffle)
	if err != nil {
		return fmt.Errorf("question %d: %w", m.index+1, err)
	}
	m.current = st
	m.questionStart = now
	m.phase = PhaseTaking
	return nil
}

// Assessment returns the definition being taken.
func (m *Machine) Assessment() *question.Assessment { return m.def }

// Phase returns the current phase.
func (m *Machine) Phase() Phase { return m.phase }

// Index returns the 0-based current question index.
func (m *Machine) Index() int { return m.index }

// Total returns the number of questions.
func (m *Machine) Total() int { return len(m.def.Questions) }

// Attempt returns the 1-based attempt number within this machine.
func (m *Machine) Attempt() int { return m.attempt }

// IsLast reports whether the current question is the final one.
func (m *Machine) IsLast() bool { return m.index == len(m.def.Questions)-1 }

// Question returns the current question.
func (m *Machine) Question() question.Question { return m.def.Questions[m.index] }

// Answer returns the in-progress answer. During Feedback it still holds what
// was submitted.
func (m *Machine) Answer() answer.State { return m.current }

// Elapsed returns the assessment timer.
func (m *Machine) Elapsed() time.Duration { return m.elapsed }

// QuestionStartTime returns when the current question was shown.
func (m *Machine) QuestionStartTime() time.Time { return m.questionStart }

// Responses returns the responses so far, in question order.
func (m *Machine) Responses() []scoring.Response {
	return append([]scoring.Response(nil), m.responses...)
}

// LastResponse returns the most recent response, or nil.
func (m *Machine) LastResponse() scoring.Response {
	if len(m.responses) == 0 {
		return nil
	}
	return m.responses[len(m.responses)-1]
}

// Result returns the aggregate once in Results, else nil.
func (m *Machine) Result() *Result { return m.result }

// Decision returns the gate decision once in Results, else nil.
func (m *Machine) Decision() *mastery.Decision { return m.decision }

// SetAnswer replaces the in-progress answer. It is only allowed while Taking.
func (m *Machine) SetAnswer(st answer.State) error {
	if m.phase != PhaseTaking {
		return fmt.Errorf("set answer: %w (phase %s)", ErrWrongPhase, m.phase)
	}
	if err := answer.Check(m.Question(), st); err != nil {
		return fmt.Errorf("set answer: %w: %v", scoring.ErrAnswerMismatch, err)
	}
	m.current = st
	return nil
}

// Reorder applies a drag event (movedItemID, newIndex) to an ordering question.
func (m *Machine) Reorder(itemID string, newIndex int) error {
	o, ok := m.current.(answer.Order)
	if !ok || m.phase != PhaseTaking {
		return fmt.Errorf("reorder: %w", ErrWrongPhase)
	}
	m.current = o.Move(itemID, newIndex)
	return nil
}

// AddUploads records images accepted by the upload collaborator along with
// the messages for any it rejected.
func (m *Machine) AddUploads(imgs []answer.Image, errs []string) error {
	u, ok := m.current.(answer.Uploads)
	if !ok || m.phase != PhaseTaking {
		return fmt.Errorf("add uploads: %w", ErrWrongPhase)
	}
	m.current = u.Add(imgs, errs)
	return nil
}

// CanSubmit reports whether Submit would accept the current answer.
func (m *Machine) CanSubmit() bool {
	return m.phase == PhaseTaking && len(m.responses) == m.index &&
		validation.CanSubmit(m.Question(), m.current)
}

// Submit scores the current answer, appends its response and enters Feedback.
// The answer state is kept for feedback rendering.
func (m *Machine) Submit(now time.Time) (scoring.Response, error) {
	if m.phase != PhaseTaking {
		return nil, fmt.Errorf("submit: %w (phase %s)", ErrWrongPhase, m.phase)
	}
	if len(m.responses) > m.index {
		return nil, ErrAlreadySubmitted
	}
	q := m.Question()
	if !validation.CanSubmit(q, m.current) {
		return nil, ErrNotSubmittable
	}

	spent := now.Sub(m.questionStart).Seconds()
	resp, err := scoring.Respond(q, m.current, spent)
	if err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	m.responses = append(m.responses, resp)
	m.phase = PhaseFeedback

	b := resp.Common()
	m.log.Debug("question submitted",
		zap.String("question", b.QuestionID),
		zap.Bool("correct", b.IsCorrect),
		zap.Float64("points", b.PointsEarned),
		zap.Float64("time_spent", b.TimeSpent),
	)
	m.emit(Event{Phase: m.phase, Index: m.index, Response: resp})
	return resp, nil
}

// Continue leaves Feedback: to the next question, or to Results after the last.
func (m *Machine) Continue(now time.Time) error {
	if m.phase != PhaseFeedback {
		return fmt.Errorf("continue: %w (phase %s)", ErrWrongPhase, m.phase)
	}
	if !m.IsLast() {
		m.index++
		if err := m.enterQuestion(now); err != nil {
			return err
		}
		m.emit(Event{Phase: m.phase, Index: m.index})
		return nil
	}
	m.finish(now)
	return nil
}

func (m *Machine) finish(now time.Time) {
	threshold := m.def.Threshold(m.opts.DefaultMasteryThreshold)
	result := BuildResult(m.def, m.responses, threshold, m.elapsed)
	result.StartedAt = m.startedAt
	result.CompletedAt = now

	decision := m.opts.Gate.Evaluate(result.Score, threshold, now)
	result.Passed = decision.Passed
	result.Mastered = decision.Mastered

	m.result = &result
	m.decision = &decision
	m.phase = PhaseResults

	m.log.Info("attempt completed",
		zap.Int("attempt", m.attempt),
		zap.Float64("score", result.Score),
		zap.Bool("passed", result.Passed),
		zap.Bool("mastered", result.Mastered),
	)

	if m.opts.Sink != nil {
		m.opts.Sink.Record(Completion{Assessment: m.def, Result: result, Decision: decision})
	}
	m.emit(Event{Phase: m.phase, Index: m.index, Result: m.result, Decision: m.decision})
}

// CanRetry reports whether Retake is allowed at now.
func (m *Machine) CanRetry(now time.Time) bool {
	return m.phase == PhaseResults && m.decision.CanRetry(now)
}

// RetryIn returns the time left before Retake is allowed.
func (m *Machine) RetryIn(now time.Time) time.Duration {
	if m.decision == nil {
		return 0
	}
	return m.decision.RetryIn(now)
}

// Retake discards the attempt and restarts at question 0. It is refused
// while the retry cooldown is active.
func (m *Machine) Retake(now time.Time) error {
	if m.phase != PhaseResults {
		return fmt.Errorf("retake: %w (phase %s)", ErrWrongPhase, m.phase)
	}
	if !m.decision.CanRetry(now) {
		return fmt.Errorf("%w: %s remaining", ErrRetryLocked, mastery.FormatCountdown(m.decision.RetryIn(now)))
	}
	return m.begin(now)
}

// Tick advances the assessment timer by one second. It is a no-op outside
// Taking and Feedback.
func (m *Machine) Tick() {
	if m.phase == PhaseTaking || m.phase == PhaseFeedback {
		m.elapsed += time.Second
	}
}

func (m *Machine) emit(e Event) {
	if m.opts.Observer != nil {
		m.opts.Observer(e)
	}
}

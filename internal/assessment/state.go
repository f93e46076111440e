package assessment

import (
	"errors"

	"github.com/kokou-stm/kalanso/internal/mastery"
	"github.com/kokou-stm/kalanso/internal/question"
	"github.com/kokou-stm/kalanso/internal/scoring"
)

var (
	// ErrWrongPhase is returned when an action is not valid in the current phase.
	ErrWrongPhase = errors.New("action not allowed in current phase")

	// ErrNotSubmittable is returned by Submit when the answer fails validation.
	ErrNotSubmittable = errors.New("answer is incomplete")

	// ErrAlreadySubmitted is returned when the current question already has a response.
	ErrAlreadySubmitted = errors.New("question already submitted")

	// ErrRetryLocked is returned by Retake while the retry cooldown is active.
	ErrRetryLocked = errors.New("retry not yet available")
)

// Phase is the current state of an assessment attempt.
type Phase int

const (
	PhaseNotStarted Phase = iota // Constructed, Start not yet called
	PhaseTaking                  // Answering the current question
	PhaseFeedback                // Showing feedback for the submitted question
	PhaseResults                 // Attempt complete
)

func (p Phase) String() string {
	switch p {
	case PhaseTaking:
		return "taking"
	case PhaseFeedback:
		return "feedback"
	case PhaseResults:
		return "results"
	default:
		return "not-started"
	}
}

// Event is emitted synchronously on every state transition.
type Event struct {
	Phase Phase
	Index int

	// Response is the just-created response on entering Feedback.
	Response scoring.Response

	// Result and Decision are set on entering Results.
	Result   *Result
	Decision *mastery.Decision
}

// Completion is handed to the Sink when an attempt reaches Results.
type Completion struct {
	Assessment *question.Assessment
	Result     Result
	Decision   mastery.Decision
}

// Sink receives completed attempts. Record must not block the caller;
// implementations queue the work and report failures by logging only.
type Sink interface {
	Record(c Completion)
}

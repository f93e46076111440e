package assessment

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kokou-stm/kalanso/internal/answer"
	"github.com/kokou-stm/kalanso/internal/question"
	"github.com/kokou-stm/kalanso/internal/scoring"
)

var t0 = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

type recordingSink struct {
	completions []Completion
}

func (s *recordingSink) Record(c Completion) { s.completions = append(s.completions, c) }

// mcqAndNumerical is a 10-point MCQ plus a 10-point percentage-tolerance numerical.
func mcqAndNumerical() *question.Assessment {
	return &question.Assessment{
		ID:   "mcq-numerical",
		Unit: question.Unit{ID: "u1", Sequence: 1},
		Questions: []question.Question{
			&question.MultipleChoice{
				Base:          question.Base{ID: "mcq", Points: 10},
				Options:       map[question.Key]string{"1": "a", "2": "b"},
				CorrectAnswer: "1",
			},
			&question.Numerical{
				Base:          question.Base{ID: "num", Points: 10},
				CorrectAnswer: 100,
				Tolerance:     ptr(5.0),
				ToleranceType: question.TolerancePercentage,
			},
		},
	}
}

func newStarted(t *testing.T, def *question.Assessment, opts Options) *Machine {
	t.Helper()
	m, err := New(def, opts)
	require.NoError(t, err)
	require.NoError(t, m.Start(t0))
	return m
}

func answerAndContinue(t *testing.T, m *Machine, st answer.State, at time.Time) scoring.Response {
	t.Helper()
	require.NoError(t, m.SetAnswer(st))
	resp, err := m.Submit(at)
	require.NoError(t, err)
	require.NoError(t, m.Continue(at))
	return resp
}

func TestMachine_HalfScoreStartsCooldown(t *testing.T) {
	sink := &recordingSink{}
	m := newStarted(t, mcqAndNumerical(), Options{Sink: sink, DefaultMasteryThreshold: 80})

	answerAndContinue(t, m, answer.Choice{}.Select("1"), t0.Add(5*time.Second))
	answerAndContinue(t, m, answer.Number{Raw: "120"}, t0.Add(20*time.Second))

	require.Equal(t, PhaseResults, m.Phase())
	r := m.Result()
	require.NotNil(t, r)
	assert.Equal(t, 50.0, r.Score)
	assert.Equal(t, 20.0, r.TotalPoints)
	assert.Equal(t, 10.0, r.EarnedPoints)
	assert.Equal(t, 2, r.TotalQuestions)
	assert.Equal(t, 1, r.CorrectAnswers)
	assert.False(t, r.Passed)
	assert.False(t, r.Mastered)
	assert.Equal(t, 80.0, r.MasteryThreshold)

	d := m.Decision()
	require.NotNil(t, d.RetryAvailableAt)
	assert.Equal(t, t0.Add(20*time.Second).Add(24*time.Hour), *d.RetryAvailableAt)

	require.Len(t, sink.completions, 1)
	assert.Equal(t, 50.0, sink.completions[0].Result.Score)
}

func TestMachine_ImageUploadAwaitsReview(t *testing.T) {
	def := &question.Assessment{
		ID:   "photo-joint",
		Unit: question.Unit{ID: "u1"},
		Questions: []question.Question{
			&question.TrueFalse{Base: question.Base{ID: "tf", Points: 10}, CorrectAnswer: true},
			&question.ImageUpload{
				Base: question.Base{ID: "img", Points: 10}, MinImages: 1, MaxImages: 3,
				AcceptedFormats: []string{"jpg"}, MaxFileSize: 5,
			},
		},
	}
	m := newStarted(t, def, Options{})

	answerAndContinue(t, m, answer.Boolean{}.Set(true), t0)

	require.False(t, m.CanSubmit(), "no images yet")
	require.NoError(t, m.AddUploads([]answer.Image{{Filename: "a.jpg"}, {Filename: "b.jpg"}}, nil))
	require.True(t, m.CanSubmit())
	resp := answerAndContinueSubmitted(t, m, t0.Add(time.Minute))

	img := resp.(*scoring.ImageUploadResponse)
	assert.Zero(t, img.PointsEarned)
	assert.Equal(t, scoring.StatusPendingReview, img.Status)

	r := m.Result()
	assert.Equal(t, PhaseResults, m.Phase())
	assert.Equal(t, 1, r.CorrectAnswers)
	assert.Equal(t, 1, r.PendingReview)
	assert.Equal(t, 50.0, r.Score)
}

func answerAndContinueSubmitted(t *testing.T, m *Machine, at time.Time) scoring.Response {
	t.Helper()
	resp, err := m.Submit(at)
	require.NoError(t, err)
	require.NoError(t, m.Continue(at))
	return resp
}

func TestMachine_SubmitGating(t *testing.T) {
	m := newStarted(t, mcqAndNumerical(), Options{})

	_, err := m.Submit(t0)
	assert.ErrorIs(t, err, ErrNotSubmittable)
	assert.Empty(t, m.Responses(), "failed validation must not create a response")
	assert.Equal(t, PhaseTaking, m.Phase())

	require.NoError(t, m.SetAnswer(answer.Choice{}.Select("2")))
	_, err = m.Submit(t0)
	require.NoError(t, err)

	_, err = m.Submit(t0)
	assert.ErrorIs(t, err, ErrWrongPhase, "second submit for the same question")
	assert.Len(t, m.Responses(), 1)

	err = m.SetAnswer(answer.Choice{}.Select("1"))
	assert.ErrorIs(t, err, ErrWrongPhase, "answer is frozen during feedback")
	assert.Equal(t, question.Key("2"), *m.Answer().(answer.Choice).Selected, "answer kept for feedback")
}

func TestMachine_SetAnswerWrongType(t *testing.T) {
	m := newStarted(t, mcqAndNumerical(), Options{})
	err := m.SetAnswer(answer.Text{Text: "b"})
	assert.True(t, errors.Is(err, scoring.ErrAnswerMismatch))
}

func TestMachine_ContinueClearsAnswer(t *testing.T) {
	m := newStarted(t, mcqAndNumerical(), Options{})
	answerAndContinue(t, m, answer.Choice{}.Select("1"), t0.Add(3*time.Second))

	assert.Equal(t, 1, m.Index())
	assert.Equal(t, PhaseTaking, m.Phase())
	assert.Equal(t, answer.Number{}, m.Answer())
	assert.Equal(t, t0.Add(3*time.Second), m.QuestionStartTime())
}

func TestMachine_TimeSpent(t *testing.T) {
	m := newStarted(t, mcqAndNumerical(), Options{})

	first := answerAndContinue(t, m, answer.Choice{}.Select("1"), t0.Add(7*time.Second))
	second := answerAndContinue(t, m, answer.Number{Raw: "100"}, t0.Add(19*time.Second))

	assert.Equal(t, 7.0, first.Common().TimeSpent)
	assert.Equal(t, 12.0, second.Common().TimeSpent)
}

func TestMachine_Tick(t *testing.T) {
	m := newStarted(t, mcqAndNumerical(), Options{})
	m.Tick()
	m.Tick()
	require.NoError(t, m.SetAnswer(answer.Choice{}.Select("1")))
	_, err := m.Submit(t0)
	require.NoError(t, err)
	m.Tick() // feedback still counts
	require.NoError(t, m.Continue(t0))
	answerAndContinue(t, m, answer.Number{Raw: "1"}, t0)

	m.Tick() // results: ignored
	assert.Equal(t, 3*time.Second, m.Elapsed())
	assert.Equal(t, 3, m.Result().TimeTaken)
}

func TestMachine_RetakeLocked(t *testing.T) {
	m := newStarted(t, mcqAndNumerical(), Options{})
	done := t0.Add(time.Minute)
	answerAndContinue(t, m, answer.Choice{}.Select("2"), done)
	answerAndContinue(t, m, answer.Number{Raw: "0"}, done)

	assert.False(t, m.CanRetry(done.Add(time.Hour)))
	err := m.Retake(done.Add(time.Hour))
	assert.ErrorIs(t, err, ErrRetryLocked)
	assert.Equal(t, PhaseResults, m.Phase())

	later := done.Add(24 * time.Hour)
	require.True(t, m.CanRetry(later))
	require.NoError(t, m.Retake(later))

	assert.Equal(t, PhaseTaking, m.Phase())
	assert.Equal(t, 0, m.Index())
	assert.Empty(t, m.Responses())
	assert.Zero(t, m.Elapsed())
	assert.Nil(t, m.Result())
	assert.Equal(t, 2, m.Attempt())
}

func TestMachine_RetakeAfterMastery(t *testing.T) {
	m := newStarted(t, mcqAndNumerical(), Options{})
	answerAndContinue(t, m, answer.Choice{}.Select("1"), t0)
	answerAndContinue(t, m, answer.Number{Raw: "96"}, t0)

	require.True(t, m.Result().Mastered)
	assert.Nil(t, m.Decision().RetryAvailableAt)
	assert.NoError(t, m.Retake(t0))
}

func TestMachine_WrongPhaseActions(t *testing.T) {
	m, err := New(mcqAndNumerical(), Options{})
	require.NoError(t, err)

	assert.ErrorIs(t, m.Continue(t0), ErrWrongPhase)
	assert.ErrorIs(t, m.Retake(t0), ErrWrongPhase)

	require.NoError(t, m.Start(t0))
	assert.ErrorIs(t, m.Start(t0), ErrWrongPhase)
	assert.ErrorIs(t, m.Continue(t0), ErrWrongPhase, "no backward or skipping edges")
	assert.ErrorIs(t, m.Reorder("x", 0), ErrWrongPhase, "not an ordering question")
}

func TestMachine_Reorder(t *testing.T) {
	def := &question.Assessment{
		ID: "ord",
		Questions: []question.Question{
			&question.Ordering{
				Base: question.Base{ID: "o", Points: 3},
				Items: []question.OrderItem{
					{ID: "a", CorrectPosition: 0}, {ID: "b", CorrectPosition: 1}, {ID: "c", CorrectPosition: 2},
				},
			},
		},
	}
	reverse := func(ids []string) {
		for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
			ids[i], ids[j] = ids[j], ids[i]
		}
	}
	m := newStarted(t, def, Options{Shuffle: reverse})
	assert.Equal(t, []string{"c", "b", "a"}, m.Answer().(answer.Order).IDs)
	require.True(t, m.CanSubmit(), "ordering is valid once seeded")

	require.NoError(t, m.Reorder("a", 0))
	require.NoError(t, m.Reorder("c", 2))
	resp, err := m.Submit(t0)
	require.NoError(t, err)
	assert.True(t, resp.Common().IsCorrect)
}

func TestMachine_ObserverEvents(t *testing.T) {
	var events []Event
	m := newStarted(t, mcqAndNumerical(), Options{Observer: func(e Event) { events = append(events, e) }})
	answerAndContinue(t, m, answer.Choice{}.Select("1"), t0)
	answerAndContinue(t, m, answer.Number{Raw: "1"}, t0)

	phases := make([]Phase, len(events))
	for i, e := range events {
		phases[i] = e.Phase
	}
	assert.Equal(t, []Phase{PhaseTaking, PhaseFeedback, PhaseTaking, PhaseFeedback, PhaseResults}, phases)
	assert.NotNil(t, events[1].Response)
	assert.NotNil(t, events[4].Result)
	assert.NotNil(t, events[4].Decision)
}

// Totals always match the per-question sums, whatever is answered.
func TestMachine_ResultTotals(t *testing.T) {
	def, err := question.Load("../question/testdata/all_types.json")
	require.NoError(t, err)

	states := []answer.State{
		answer.Choice{}.Select("2"),
		answer.Boolean{}.Set(false),
		answer.Text{Text: "clean the cut"},
		answer.Number{Raw: "104"},
		answer.Blanks{Values: map[string]string{"b1": "mortise", "b2": "tenon", "b3": "nails"}},
		answer.Order{IDs: []string{"measure", "cut", "mark"}},
		answer.Placement{Assigned: map[string]string{"oak": "hard", "pine": "soft"}},
		answer.Uploads{Images: []answer.Image{{Filename: "joint.jpg"}}},
	}
	m := newStarted(t, def, Options{})
	for i, st := range states {
		resp := answerAndContinue(t, m, st, t0.Add(time.Duration(i)*time.Second))
		assert.Equal(t, def.Questions[i].Common().ID, resp.Common().QuestionID, "responses follow question order")
	}

	r := m.Result()
	require.NotNil(t, r)
	require.Len(t, r.Responses, len(def.Questions))

	var earned float64
	for i, resp := range r.Responses {
		b := resp.Common()
		assert.GreaterOrEqual(t, b.PointsEarned, 0.0)
		assert.LessOrEqual(t, b.PointsEarned, def.Questions[i].Common().Points)
		earned += b.PointsEarned
	}
	assert.Equal(t, def.TotalPoints(), r.TotalPoints)
	assert.InDelta(t, earned, r.EarnedPoints, 1e-9)
	assert.InDelta(t, earned/r.TotalPoints*100, r.Score, 1e-9)
	assert.Equal(t, 2, r.PendingReview)
	if r.Mastered {
		assert.GreaterOrEqual(t, r.Score, r.MasteryThreshold)
	}
	if r.Passed {
		assert.GreaterOrEqual(t, r.Score, 70.0)
	}
}

func TestBuildResult_ZeroPoints(t *testing.T) {
	r := BuildResult(&question.Assessment{}, nil, 80, 0)
	assert.Zero(t, r.Score)
	assert.Zero(t, r.TotalPoints)
}

func TestNew_NoQuestions(t *testing.T) {
	_, err := New(&question.Assessment{ID: "empty"}, Options{})
	assert.Error(t, err)
}

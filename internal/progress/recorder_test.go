package progress

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kokou-stm/kalanso/internal/assessment"
	"github.com/kokou-stm/kalanso/internal/mastery"
	"github.com/kokou-stm/kalanso/internal/question"
	"github.com/kokou-stm/kalanso/internal/scoring"
	"github.com/kokou-stm/kalanso/internal/store"
)

var t0 = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := store.Open(store.DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func def(seq int) *question.Assessment {
	return &question.Assessment{
		ID:   fmt.Sprintf("a%d", seq),
		Unit: question.Unit{ID: fmt.Sprintf("u%d", seq), Title: fmt.Sprintf("Unit %d", seq), Sequence: seq},
	}
}

func completion(a *question.Assessment, score float64, at time.Time, responses ...scoring.Response) assessment.Completion {
	d := mastery.NewGate(0, 0).Evaluate(score, 80, at)
	return assessment.Completion{
		Assessment: a,
		Result: assessment.Result{
			AssessmentID:     a.ID,
			UnitID:           a.Unit.ID,
			Score:            score,
			TotalQuestions:   len(responses),
			MasteryThreshold: 80,
			Passed:           d.Passed,
			Mastered:         d.Mastered,
			StartedAt:        at.Add(-time.Minute),
			CompletedAt:      at,
			Responses:        responses,
		},
		Decision: d,
	}
}

func pendingImage(id string) scoring.Response {
	return &scoring.ImageUploadResponse{
		ResponseBase: scoring.ResponseBase{
			QuestionID:   id,
			QuestionType: question.TypeImageUpload,
			MaxPoints:    20,
			Status:       scoring.StatusPendingReview,
		},
		RequiresCoachReview: true,
	}
}

func TestSaveProgressLifecycle(t *testing.T) {
	s := openStore(t)
	r := NewRecorder(ReposFrom(s), Options{LearnerID: "ana"})
	defer r.Close()
	ctx := context.Background()
	a := def(1)

	// Failed first attempt: current, retry gated.
	saved, err := r.Save(ctx, completion(a, 50, t0))
	require.NoError(t, err)
	assert.Equal(t, "current", saved.Progress.Status)
	assert.Equal(t, 1, saved.Progress.Attempts)
	assert.Nil(t, saved.Progress.CompletedAt)
	require.NotNil(t, saved.Progress.RetryAvailableAt)
	assert.Equal(t, t0.Add(24*time.Hour), *saved.Progress.RetryAvailableAt)
	require.NotNil(t, saved.Transition)
	assert.Equal(t, "first-attempt", saved.Transition.Trigger)

	// Passed but not mastered: completed, completed_at set.
	t1 := t0.Add(25 * time.Hour)
	saved, err = r.Save(ctx, completion(a, 75, t1))
	require.NoError(t, err)
	assert.Equal(t, "completed", saved.Progress.Status)
	assert.Equal(t, 2, saved.Progress.Attempts)
	require.NotNil(t, saved.Progress.CompletedAt)
	assert.Equal(t, t1, *saved.Progress.CompletedAt)

	// Mastered: completed_at kept from the first completion.
	t2 := t1.Add(25 * time.Hour)
	saved, err = r.Save(ctx, completion(a, 90, t2))
	require.NoError(t, err)
	assert.Equal(t, "mastered", saved.Progress.Status)
	assert.Equal(t, 3, saved.Progress.Attempts)
	assert.Equal(t, t1, *saved.Progress.CompletedAt)
	assert.Nil(t, saved.Progress.RetryAvailableAt)
	assert.Equal(t, 90.0, saved.Progress.BestScore)
	require.NotNil(t, saved.Transition)
	assert.Equal(t, "mastered", saved.Transition.Trigger)

	// A later failing retake does not demote the unit.
	saved, err = r.Save(ctx, completion(a, 40, t2.Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, "mastered", saved.Progress.Status)
	assert.Equal(t, 40.0, saved.Progress.MasteryScore)
	assert.Equal(t, 90.0, saved.Progress.BestScore)
	assert.Nil(t, saved.Transition)

	stored, err := s.ProgressRepo().Get(ctx, "ana", "u1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 4, stored.Attempts)

	attempts, err := s.AttemptRepo().List(ctx, "ana", "u1", 0)
	require.NoError(t, err)
	require.Len(t, attempts, 4)
	assert.Equal(t, 4, attempts[0].AttemptNumber)
}

func TestSaveQueuesPendingReview(t *testing.T) {
	s := openStore(t)
	r := NewRecorder(ReposFrom(s), Options{LearnerID: "ana"})
	defer r.Close()

	mcq := &scoring.MultipleChoiceResponse{ResponseBase: scoring.ResponseBase{
		QuestionID: "q1", QuestionType: question.TypeMultipleChoice, IsCorrect: true, PointsEarned: 10, MaxPoints: 10,
	}}
	saved, err := r.Save(context.Background(), completion(def(1), 33, t0, mcq, pendingImage("q8")))
	require.NoError(t, err)
	require.Len(t, saved.ReviewItems, 1)
	assert.Equal(t, "q8", saved.ReviewItems[0].QuestionID)
	assert.Equal(t, saved.Attempt.ID, saved.ReviewItems[0].AttemptID)

	pending, err := s.ReviewRepo().Pending(context.Background(), "ana", 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Contains(t, string(pending[0].Payload), `"requiresCoachReview":true`)
}

func TestNextUnitLookup(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	require.NoError(t, s.UnitRepo().Upsert(ctx, store.Unit{ID: "u2", Title: "Unit 2", Sequence: 2}))

	got := make(chan *store.Unit, 1)
	r := NewRecorder(ReposFrom(s), Options{
		LearnerID:  "ana",
		OnNextUnit: func(u *store.Unit) { got <- u },
	})

	r.Record(completion(def(1), 50, t0)) // not mastered: no lookup
	r.Record(completion(def(1), 95, t0.Add(48*time.Hour)))
	r.Close()

	select {
	case u := <-got:
		require.NotNil(t, u)
		assert.Equal(t, "u2", u.ID)
	default:
		t.Fatal("next unit callback not called")
	}
	assert.Empty(t, got, "callback should fire only for the mastered attempt")
}

// rejectAttempts makes every attempt insert fail inside the database.
func rejectAttempts(t *testing.T, s *store.Store) {
	t.Helper()
	_, err := s.DB().Exec(`CREATE TRIGGER attempts_read_only BEFORE INSERT ON attempts
		BEGIN SELECT RAISE(ABORT, 'attempts are read-only'); END`)
	require.NoError(t, err)
}

func TestPersistenceFailureIsLogged(t *testing.T) {
	s := openStore(t)
	rejectAttempts(t, s)
	core, logs := observer.New(zapcore.WarnLevel)
	r := NewRecorder(ReposFrom(s), Options{Logger: zap.New(core)})

	r.Record(completion(def(1), 50, t0))
	r.Close()

	entries := logs.FilterMessage("persist completion").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap()["error"], "attempts are read-only")
}

func TestSaveRollsBackOnFailedAttempt(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	r := NewRecorder(ReposFrom(s), Options{LearnerID: "ana"})
	defer r.Close()

	_, err := r.Save(ctx, completion(def(1), 50, t0))
	require.NoError(t, err)

	rejectAttempts(t, s)
	_, err = r.Save(ctx, completion(def(1), 90, t0.Add(25*time.Hour)))
	require.Error(t, err)

	p, err := s.ProgressRepo().Get(ctx, "ana", "u1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 1, p.Attempts, "progress must match the stored attempts")
	assert.Equal(t, "current", p.Status)
	assert.Equal(t, 50.0, p.BestScore)

	attempts, err := s.AttemptRepo().List(ctx, "ana", "u1", 0)
	require.NoError(t, err)
	assert.Len(t, attempts, 1)
}

type countingProgress struct {
	store.ProgressRepo
	saves int
}

func (c *countingProgress) Save(ctx context.Context, p *store.Progress) error {
	c.saves++
	return c.ProgressRepo.Save(ctx, p)
}

func TestSaveWithoutTransaction(t *testing.T) {
	s := openStore(t)
	repos := ReposFrom(s)
	repos.InTx = nil
	progress := &countingProgress{ProgressRepo: repos.Progress}
	repos.Progress = progress
	r := NewRecorder(repos, Options{LearnerID: "ana"})
	defer r.Close()

	saved, err := r.Save(context.Background(), completion(def(1), 50, t0))
	require.NoError(t, err)
	assert.Equal(t, 1, progress.saves)
	assert.Equal(t, 1, saved.Attempt.AttemptNumber)
}

func TestRecordAfterCloseIsDropped(t *testing.T) {
	s := openStore(t)
	core, logs := observer.New(zapcore.WarnLevel)
	r := NewRecorder(ReposFrom(s), Options{Logger: zap.New(core)})
	r.Close()

	assert.NotPanics(t, func() { r.Record(completion(def(1), 50, t0)) })
	assert.Equal(t, 1, logs.FilterMessage("completion dropped: recorder closed").Len())
	r.Close()
}

func TestRetryLockedUntil(t *testing.T) {
	s := openStore(t)
	r := NewRecorder(ReposFrom(s), Options{LearnerID: "ana"})
	defer r.Close()
	ctx := context.Background()

	_, err := r.Save(ctx, completion(def(1), 50, t0))
	require.NoError(t, err)

	until, err := RetryLockedUntil(ctx, s.ProgressRepo(), "ana", "u1", t0.Add(time.Hour))
	require.NoError(t, err)
	require.NotNil(t, until)
	assert.Equal(t, t0.Add(24*time.Hour), *until)

	until, err = RetryLockedUntil(ctx, s.ProgressRepo(), "ana", "u1", t0.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Nil(t, until)

	until, err = RetryLockedUntil(ctx, s.ProgressRepo(), "ben", "u1", t0)
	require.NoError(t, err)
	assert.Nil(t, until)
}

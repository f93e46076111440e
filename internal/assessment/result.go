package assessment

import (
	"time"

	"github.com/kokou-stm/kalanso/internal/question"
	"github.com/kokou-stm/kalanso/internal/scoring"
)

// Result is the aggregate of a completed attempt. It is built once, when
// the last question is continued past.
type Result struct {
	AssessmentID string `json:"assessmentId"`
	UnitID       string `json:"unitId"`

	// Score is earnedPoints/totalPoints*100, or 0 when totalPoints is 0.
	Score          float64 `json:"score"`
	TotalQuestions int     `json:"totalQuestions"`
	// CorrectAnswers excludes image uploads.
	CorrectAnswers int     `json:"correctAnswers"`
	PendingReview  int     `json:"pendingReview"`
	TotalPoints    float64 `json:"totalPoints"`
	EarnedPoints   float64 `json:"earnedPoints"`

	MasteryThreshold float64 `json:"masteryThreshold"`
	Passed           bool    `json:"passed"`
	Mastered         bool    `json:"mastered"`

	// TimeTaken is the elapsed assessment time in whole seconds.
	TimeTaken   int       `json:"timeTaken"`
	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt"`

	Responses []scoring.Response `json:"responses"`
}

// BuildResult aggregates responses for def. Passed and Mastered are left
// for the gate to fill in.
func BuildResult(def *question.Assessment, responses []scoring.Response, threshold float64, elapsed time.Duration) Result {
	r := Result{
		AssessmentID:     def.ID,
		UnitID:           def.Unit.ID,
		TotalQuestions:   len(def.Questions),
		TotalPoints:      def.TotalPoints(),
		MasteryThreshold: threshold,
		TimeTaken:        int(elapsed / time.Second),
		Responses:        append([]scoring.Response(nil), responses...),
	}
	for _, resp := range responses {
		b := resp.Common()
		r.EarnedPoints += b.PointsEarned
		if b.IsCorrect && scoring.CountsTowardCorrect(resp) {
			r.CorrectAnswers++
		}
		if b.Pending() {
			r.PendingReview++
		}
	}
	r.Score = ScorePercent(r.EarnedPoints, r.TotalPoints)
	return r
}

// ScorePercent returns earned/total as a percentage, 0 when total is 0.
func ScorePercent(earned, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return earned / total * 100
}

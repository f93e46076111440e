// Package scoring computes correctness and points for submitted answers.
// Everything here is pure: no I/O, no clocks, and identical inputs always
// produce identical outcomes.
package scoring

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/kokou-stm/kalanso/internal/answer"
	"github.com/kokou-stm/kalanso/internal/question"
)

// ErrAnswerMismatch is returned when the answer state does not match the question type.
var ErrAnswerMismatch = errors.New("answer does not match question type")

// Outcome is the scoring result without feedback detail.
type Outcome struct {
	IsCorrect    bool
	PointsEarned float64
	// Pending is true for responses that are not auto-gradable.
	Pending bool
}

// Score grades st against q.
func Score(q question.Question, st answer.State) (Outcome, error) {
	r, err := Respond(q, st, 0)
	if err != nil {
		return Outcome{}, err
	}
	b := r.Common()
	return Outcome{IsCorrect: b.IsCorrect, PointsEarned: b.PointsEarned, Pending: b.Pending()}, nil
}

// Respond grades st against q and builds the immutable Response.
// pointsEarned is always clamped to [0, q.points].
func Respond(q question.Question, st answer.State, timeSpent float64) (Response, error) {
	if err := answer.Check(q, st); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnswerMismatch, err)
	}
	r, err := question.Visit[Response](q, scorer{st: st})
	if err != nil {
		return nil, err
	}
	b := r.Common()
	base := q.Common()
	b.QuestionID = base.ID
	b.QuestionType = q.Kind()
	b.MaxPoints = base.Points
	b.PointsEarned = clamp(b.PointsEarned, base.Points)
	b.TimeSpent = max(timeSpent, 0)
	return r, nil
}

func clamp(points, maxPoints float64) float64 {
	if math.IsNaN(points) || points < 0 {
		return 0
	}
	return min(points, max(maxPoints, 0))
}

// fraction awards points proportionally; zero parts award nothing.
func fraction(correct, total int, points float64) float64 {
	if total == 0 {
		return 0
	}
	return float64(correct) * points / float64(total)
}

func allOrNothing(correct bool, points float64) float64 {
	if correct {
		return points
	}
	return 0
}

type scorer struct {
	st answer.State
}

func (s scorer) MultipleChoice(q *question.MultipleChoice) (Response, error) {
	var selected question.Key
	if c := s.st.(answer.Choice); c.Selected != nil {
		selected = question.NormalizeKey(string(*c.Selected))
	}
	correct := selected != "" && selected.Equal(q.CorrectAnswer)
	return &MultipleChoiceResponse{
		ResponseBase:  ResponseBase{IsCorrect: correct, PointsEarned: allOrNothing(correct, q.Points)},
		Selected:      selected,
		CorrectAnswer: q.CorrectAnswer,
	}, nil
}

func (s scorer) TrueFalse(q *question.TrueFalse) (Response, error) {
	b := s.st.(answer.Boolean)
	correct := b.Value != nil && *b.Value == q.CorrectAnswer
	var selected bool
	if b.Value != nil {
		selected = *b.Value
	}
	return &TrueFalseResponse{
		ResponseBase:  ResponseBase{IsCorrect: correct, PointsEarned: allOrNothing(correct, q.Points)},
		Selected:      selected,
		CorrectAnswer: q.CorrectAnswer,
	}, nil
}

// ShortAnswer is never graded here, AutoGrade included.
func (s scorer) ShortAnswer(q *question.ShortAnswer) (Response, error) {
	text := s.st.(answer.Text)
	return &ShortAnswerResponse{
		ResponseBase: ResponseBase{Status: StatusPendingReview},
		Text:         text.Text,
		WordCount:    text.Words(),
		SampleAnswer: q.SampleAnswer,
	}, nil
}

func (s scorer) Numerical(q *question.Numerical) (Response, error) {
	value, ok := s.st.(answer.Number).Value()
	delta := AllowedDelta(q)
	correct := ok && math.Abs(value-q.CorrectAnswer) <= delta
	return &NumericalResponse{
		ResponseBase:  ResponseBase{IsCorrect: correct, PointsEarned: allOrNothing(correct, q.Points)},
		Value:         value,
		CorrectAnswer: q.CorrectAnswer,
		Delta:         delta,
		Unit:          q.Unit,
	}, nil
}

// AllowedDelta returns the tolerance band around q.CorrectAnswer. Percentage
// tolerance against a zero answer falls back to the literal tolerance.
// A tolerance without a type is absolute.
func AllowedDelta(q *question.Numerical) float64 {
	if q.Tolerance == nil {
		return 0
	}
	tol := *q.Tolerance
	if q.ToleranceType == question.TolerancePercentage && q.CorrectAnswer != 0 {
		return math.Abs(q.CorrectAnswer) * tol / 100
	}
	return tol
}

// FillBlank always grants partial credit.
func (s scorer) FillBlank(q *question.FillBlank) (Response, error) {
	values := s.st.(answer.Blanks).Values
	results := make(map[string]bool, len(q.Blanks))
	correctCount := 0
	for _, b := range q.Blanks {
		ok := BlankMatches(b, values[b.ID])
		results[b.ID] = ok
		if ok {
			correctCount++
		}
	}
	total := len(q.Blanks)
	return &FillBlankResponse{
		ResponseBase: ResponseBase{
			IsCorrect:    total > 0 && correctCount == total,
			PointsEarned: fraction(correctCount, total, q.Points),
		},
		Values:       maps.Clone(values),
		BlankCorrect: results,
		CorrectCount: correctCount,
		TotalBlanks:  total,
	}, nil
}

// BlankMatches compares trimmed text against each accepted answer.
func BlankMatches(b question.Blank, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	for _, accepted := range b.AcceptedAnswers {
		accepted = strings.TrimSpace(accepted)
		if b.CaseSensitive {
			if text == accepted {
				return true
			}
		} else if strings.EqualFold(text, accepted) {
			return true
		}
	}
	return false
}

func (s scorer) Ordering(q *question.Ordering) (Response, error) {
	order := s.st.(answer.Order).IDs
	correctPositions := 0
	for idx, id := range order {
		if it, ok := q.Item(id); ok && it.CorrectPosition == idx {
			correctPositions++
		}
	}
	total := len(q.Items)
	correct := total > 0 && correctPositions == total
	return &OrderingResponse{
		ResponseBase: ResponseBase{
			IsCorrect:    correct,
			PointsEarned: partial(q.AllowPartialCredit, correctPositions, total, q.Points),
		},
		Order:            slices.Clone(order),
		CorrectPositions: correctPositions,
		TotalItems:       total,
	}, nil
}

func (s scorer) Categorization(q *question.Categorization) (Response, error) {
	placed := s.st.(answer.Placement).Assigned
	correctPlacements := 0
	for _, it := range q.Items {
		if cat, ok := placed[it.ID]; ok && cat == it.CorrectCategory {
			correctPlacements++
		}
	}
	total := len(q.Items)
	correct := total > 0 && correctPlacements == total
	return &CategorizationResponse{
		ResponseBase: ResponseBase{
			IsCorrect:    correct,
			PointsEarned: partial(q.AllowPartialCredit, correctPlacements, total, q.Points),
		},
		Placements:        maps.Clone(placed),
		CorrectPlacements: correctPlacements,
		TotalItems:        total,
	}, nil
}

func partial(allow bool, correct, total int, points float64) float64 {
	if allow {
		return fraction(correct, total, points)
	}
	return allOrNothing(total > 0 && correct == total, points)
}

func (s scorer) ImageUpload(*question.ImageUpload) (Response, error) {
	return &ImageUploadResponse{
		ResponseBase:        ResponseBase{Status: StatusPendingReview},
		UploadedImages:      slices.Clone(s.st.(answer.Uploads).Images),
		RequiresCoachReview: true,
	}, nil
}

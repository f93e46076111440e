// Package validation decides whether an in-progress answer may be submitted.
// A false result disables submission; it is never an error.
package validation

import (
	"strings"

	"github.com/kokou-stm/kalanso/internal/answer"
	"github.com/kokou-stm/kalanso/internal/question"
)

// CanSubmit reports whether st is a complete, well-formed answer to q.
// A state of the wrong type is never submittable.
func CanSubmit(q question.Question, st answer.State) bool {
	if answer.Check(q, st) != nil {
		return false
	}
	ok, err := question.Visit[bool](q, submittable{st: st})
	return err == nil && ok
}

type submittable struct {
	st answer.State
}

func (v submittable) MultipleChoice(*question.MultipleChoice) (bool, error) {
	return v.st.(answer.Choice).Selected != nil, nil
}

func (v submittable) TrueFalse(*question.TrueFalse) (bool, error) {
	return v.st.(answer.Boolean).Value != nil, nil
}

func (v submittable) ShortAnswer(q *question.ShortAnswer) (bool, error) {
	text := v.st.(answer.Text)
	words := text.Words()
	if words == 0 {
		return false, nil
	}
	if q.MinWords != nil && words < *q.MinWords {
		return false, nil
	}
	if q.MaxWords != nil && words > *q.MaxWords {
		return false, nil
	}
	return true, nil
}

func (v submittable) Numerical(q *question.Numerical) (bool, error) {
	n, ok := v.st.(answer.Number).Value()
	if !ok {
		return false, nil
	}
	if q.MinValue != nil && n < *q.MinValue {
		return false, nil
	}
	if q.MaxValue != nil && n > *q.MaxValue {
		return false, nil
	}
	return true, nil
}

func (v submittable) FillBlank(q *question.FillBlank) (bool, error) {
	values := v.st.(answer.Blanks).Values
	for _, b := range q.Blanks {
		if strings.TrimSpace(values[b.ID]) == "" {
			return false, nil
		}
	}
	return true, nil
}

func (v submittable) Ordering(*question.Ordering) (bool, error) {
	return len(v.st.(answer.Order).IDs) > 0, nil
}

func (v submittable) Categorization(q *question.Categorization) (bool, error) {
	p := v.st.(answer.Placement)
	if len(p.Unplaced) > 0 {
		return false, nil
	}
	for _, it := range q.Items {
		if p.Assigned[it.ID] == "" {
			return false, nil
		}
	}
	return true, nil
}

func (v submittable) ImageUpload(q *question.ImageUpload) (bool, error) {
	return len(v.st.(answer.Uploads).Images) >= q.MinImages, nil
}

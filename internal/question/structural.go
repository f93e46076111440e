package question

import (
	"fmt"
	"strings"
)

// StructuralValidator checks ids, points and the per-type fields that the
// scorer relies on.
type StructuralValidator struct{}

func (v *StructuralValidator) Name() string { return "structural" }

func (v *StructuralValidator) Validate(a *Assessment) ValidationErrors {
	var errs ValidationErrors
	fail := func(qid, format string, args ...any) {
		errs = append(errs, &ValidationError{
			Validator:  v.Name(),
			QuestionID: qid,
			Message:    fmt.Sprintf(format, args...),
		})
	}

	if len(a.Questions) == 0 {
		fail("", "assessment has no questions")
	}
	if a.MasteryThreshold != nil && (*a.MasteryThreshold < 0 || *a.MasteryThreshold > 100) {
		fail("", "masteryThreshold %g is outside 0-100", *a.MasteryThreshold)
	}

	seen := make(map[string]bool, len(a.Questions))
	for i, q := range a.Questions {
		b := q.Common()
		id := b.ID
		if strings.TrimSpace(id) == "" {
			fail(fmt.Sprintf("#%d", i+1), "id is empty")
		} else if seen[id] {
			fail(id, "duplicate question id")
		}
		seen[id] = true
		if b.Points <= 0 {
			fail(id, "points must be positive, got %g", b.Points)
		}
		if _, err := Visit[struct{}](q, structuralCheck{fail: func(format string, args ...any) {
			fail(id, format, args...)
		}}); err != nil {
			fail(id, "%v", err)
		}
	}
	return errs
}

type structuralCheck struct {
	fail func(format string, args ...any)
}

func (c structuralCheck) MultipleChoice(q *MultipleChoice) (struct{}, error) {
	if len(q.Options) < 2 {
		c.fail("needs at least 2 options")
	}
	found := false
	for k := range q.Options {
		if k.Equal(q.CorrectAnswer) {
			found = true
			break
		}
	}
	if !found {
		c.fail("correctAnswer %q is not one of the options", q.CorrectAnswer)
	}
	return struct{}{}, nil
}

func (c structuralCheck) TrueFalse(*TrueFalse) (struct{}, error) { return struct{}{}, nil }

func (c structuralCheck) ShortAnswer(q *ShortAnswer) (struct{}, error) {
	if q.MinWords != nil && q.MaxWords != nil && *q.MinWords > *q.MaxWords {
		c.fail("minWords %d exceeds maxWords %d", *q.MinWords, *q.MaxWords)
	}
	return struct{}{}, nil
}

func (c structuralCheck) Numerical(q *Numerical) (struct{}, error) {
	if q.Tolerance != nil && *q.Tolerance < 0 {
		c.fail("tolerance must not be negative")
	}
	if q.Tolerance != nil {
		switch q.ToleranceType {
		case ToleranceAbsolute, TolerancePercentage, "":
		default:
			c.fail("toleranceType %q must be absolute or percentage", q.ToleranceType)
		}
	}
	if q.MinValue != nil && q.MaxValue != nil && *q.MinValue > *q.MaxValue {
		c.fail("minValue %g exceeds maxValue %g", *q.MinValue, *q.MaxValue)
	}
	return struct{}{}, nil
}

func (c structuralCheck) FillBlank(q *FillBlank) (struct{}, error) {
	if len(q.Blanks) == 0 {
		c.fail("fill_blank has no blanks")
	}
	ids := make(map[string]bool, len(q.Blanks))
	for _, b := range q.Blanks {
		if ids[b.ID] {
			c.fail("duplicate blank id %q", b.ID)
		}
		ids[b.ID] = true
		if len(b.AcceptedAnswers) == 0 {
			c.fail("blank %q has no accepted answers", b.ID)
		}
	}
	if n := q.placeholderCount(); n != len(q.Blanks) {
		c.fail("template has %d placeholders but %d blanks", n, len(q.Blanks))
	}
	return struct{}{}, nil
}

func (c structuralCheck) Ordering(q *Ordering) (struct{}, error) {
	if len(q.Items) == 0 {
		c.fail("ordering has no items")
	}
	used := make(map[int]bool, len(q.Items))
	ids := make(map[string]bool, len(q.Items))
	for _, it := range q.Items {
		if ids[it.ID] {
			c.fail("duplicate item id %q", it.ID)
		}
		ids[it.ID] = true
		if it.CorrectPosition < 0 || it.CorrectPosition >= len(q.Items) {
			c.fail("item %q correctPosition %d is out of range", it.ID, it.CorrectPosition)
			continue
		}
		if used[it.CorrectPosition] {
			c.fail("correctPosition %d is used twice", it.CorrectPosition)
		}
		used[it.CorrectPosition] = true
	}
	return struct{}{}, nil
}

func (c structuralCheck) Categorization(q *Categorization) (struct{}, error) {
	if len(q.Categories) == 0 {
		c.fail("categorization has no categories")
	}
	if len(q.Items) == 0 {
		c.fail("categorization has no items")
	}
	ids := make(map[string]bool, len(q.Items))
	for _, it := range q.Items {
		if ids[it.ID] {
			c.fail("duplicate item id %q", it.ID)
		}
		ids[it.ID] = true
		if !q.HasCategory(it.CorrectCategory) {
			c.fail("item %q has unknown category %q", it.ID, it.CorrectCategory)
		}
	}
	return struct{}{}, nil
}

func (c structuralCheck) ImageUpload(q *ImageUpload) (struct{}, error) {
	if q.MinImages < 1 || q.MinImages > q.MaxImages {
		c.fail("need 1 <= minImages (%d) <= maxImages (%d)", q.MinImages, q.MaxImages)
	}
	if q.MaxFileSize <= 0 {
		c.fail("maxFileSize must be positive")
	}
	if len(q.AcceptedFormats) == 0 {
		c.fail("acceptedFormats is empty")
	}
	return struct{}{}, nil
}

package take

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/kokou-stm/kalanso/internal/answer"
	"github.com/kokou-stm/kalanso/internal/assessment"
	"github.com/kokou-stm/kalanso/internal/question"
	"github.com/kokou-stm/kalanso/internal/scoring"
	"github.com/kokou-stm/kalanso/internal/ui/layout"
	"github.com/kokou-stm/kalanso/internal/ui/theme"
)

func (s *Screen) View(width, height int) string {
	if s.errMsg != "" {
		return theme.ErrorText.Render("\n  " + s.errMsg)
	}
	inner := max(width-4, 20)
	body := lipgloss.NewStyle().Width(inner).Padding(1, 2)

	var b strings.Builder
	b.WriteString(s.renderHeading(inner))
	b.WriteString("\n")
	b.WriteString(layout.Rule(inner))
	b.WriteString("\n\n")

	if s.m.Phase() == assessment.PhaseFeedback {
		b.WriteString(s.renderFeedback(inner))
	} else {
		b.WriteString(s.renderQuestion(inner))
	}
	return body.Render(b.String())
}

func (s *Screen) renderHeading(width int) string {
	q := s.m.Question()
	c := q.Common()
	left := theme.Title.Render(fmt.Sprintf("Question %d of %d", s.m.Index()+1, s.m.Total()))
	right := theme.Dim.Render(fmt.Sprintf("%s · %s pts", typeLabel(q.Kind()), formatNumber(c.Points)))
	gap := max(width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return left + strings.Repeat(" ", gap) + right
}

func (s *Screen) renderQuestion(width int) string {
	q := s.m.Question()
	var b strings.Builder

	if _, ok := q.(*question.FillBlank); !ok && q.Common().Prompt != "" {
		b.WriteString(theme.Prompt.Width(width).Render(q.Common().Prompt))
		b.WriteString("\n\n")
	}

	switch q := q.(type) {
	case *question.MultipleChoice, *question.TrueFalse:
		b.WriteString(s.choices.View())
	case *question.ShortAnswer:
		b.WriteString(s.input.View())
		b.WriteString("\n")
		words := len(strings.Fields(s.input.Value()))
		b.WriteString(theme.Dim.Render(fmt.Sprintf("%d words%s", words, wordLimits(q))))
	case *question.Numerical:
		b.WriteString(s.input.View())
		if q.Unit != "" {
			b.WriteString(" " + theme.Dim.Render(q.Unit))
		}
		if r := valueRange(q); r != "" {
			b.WriteString("\n" + theme.Dim.Render(r))
		}
	case *question.FillBlank:
		b.WriteString(s.renderTemplate(q, width))
	case *question.Ordering:
		b.WriteString(s.renderOrdering(q))
	case *question.Categorization:
		b.WriteString(s.renderCategorization(q))
	case *question.ImageUpload:
		b.WriteString(s.renderUploads(q))
	}

	if s.showHints {
		for _, h := range q.Common().Hints {
			b.WriteString("\n" + theme.Hint.Render("Hint: "+h))
		}
	} else if len(q.Common().Hints) > 0 {
		b.WriteString("\n\n" + theme.Hint.Render("F1 shows hints"))
	}
	if s.notice != "" {
		b.WriteString("\n\n" + theme.ErrorText.Render(s.notice))
	}
	return b.String()
}

func (s *Screen) renderTemplate(q *question.FillBlank, width int) string {
	pos := make(map[string]int, len(s.blankIDs))
	for i, id := range s.blankIDs {
		pos[id] = i
	}
	var line strings.Builder
	for _, seg := range q.Segments() {
		if seg.BlankID == "" {
			line.WriteString(seg.Text)
			continue
		}
		i := pos[seg.BlankID]
		label := fmt.Sprintf("[%d]", i+1)
		if i == s.focus {
			line.WriteString(theme.Selected.Render(label))
		} else {
			line.WriteString(theme.Dim.Render(label))
		}
	}

	var b strings.Builder
	b.WriteString(theme.Prompt.Width(width).Render(line.String()))
	b.WriteString("\n\n")
	for i, in := range s.blanks {
		fmt.Fprintf(&b, "%d. %s\n", i+1, in.View())
	}
	return b.String()
}

func (s *Screen) renderOrdering(q *question.Ordering) string {
	o, _ := s.m.Answer().(answer.Order)
	var b strings.Builder
	for i, id := range o.IDs {
		it, _ := q.Item(id)
		line := fmt.Sprintf("%d. %s", i+1, it.Text)
		if i == s.cursor {
			b.WriteString(theme.Selected.Render("▸ " + line))
		} else {
			b.WriteString(theme.Unselected.Render("  " + line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (s *Screen) renderCategorization(q *question.Categorization) string {
	p, _ := s.m.Answer().(answer.Placement)
	labels := make(map[string]string, len(q.Categories))
	var names []string
	for _, c := range q.Categories {
		labels[c.ID] = c.Label
		names = append(names, c.Label)
	}

	var b strings.Builder
	b.WriteString(theme.Dim.Render("Categories: "+strings.Join(names, " · ")) + "\n\n")
	for i, it := range q.Items {
		cat := theme.Dim.Render("(unplaced)")
		if id, ok := p.Assigned[it.ID]; ok {
			cat = theme.Body.Render("→ " + labels[id])
		}
		line := it.Text
		if i == s.cursor {
			line = theme.Selected.Render("▸ " + line)
		} else {
			line = theme.Unselected.Render("  " + line)
		}
		b.WriteString(line + "  " + cat + "\n")
	}
	return b.String()
}

func (s *Screen) renderUploads(q *question.ImageUpload) string {
	u, _ := s.m.Answer().(answer.Uploads)
	var b strings.Builder

	limits := fmt.Sprintf("%d-%d photos", q.MinImages, q.MaxImages)
	if len(q.AcceptedFormats) > 0 {
		limits += ", " + strings.Join(q.AcceptedFormats, "/")
	}
	if q.MaxFileSize > 0 {
		limits += fmt.Sprintf(", up to %s MB each", formatNumber(q.MaxFileSize))
	}
	b.WriteString(theme.Dim.Render(limits) + "\n")
	if len(q.RequiredAngles) > 0 {
		b.WriteString(theme.Dim.Render("Angles: "+strings.Join(q.RequiredAngles, ", ")) + "\n")
	}
	b.WriteString("\n")

	for i, img := range u.Images {
		line := fmt.Sprintf("%d. %s", i+1, img.Filename)
		if img.Angle != "" {
			line += theme.Dim.Render("  (" + img.Angle + ")")
		}
		b.WriteString(theme.Correct.Render("✓ ") + line + "\n")
	}
	for _, e := range u.Errors {
		b.WriteString(theme.ErrorText.Render("✗ "+e) + "\n")
	}
	if len(u.Images) < q.MaxImages || q.MaxImages == 0 {
		b.WriteString("\n" + s.input.View())
	}
	return b.String()
}

// lockChoices freezes the choice list with the chosen and correct options.
func (s *Screen) lockChoices(resp scoring.Response) {
	switch r := resp.(type) {
	case *scoring.MultipleChoiceResponse:
		chosen, correct := -1, -1
		for i, k := range s.keys {
			if k.Equal(r.Selected) {
				chosen = i
			}
			if k.Equal(r.CorrectAnswer) {
				correct = i
			}
		}
		s.choices.Lock(chosen, correct)
	case *scoring.TrueFalseResponse:
		s.choices.Lock(boolIndex(r.Selected), boolIndex(r.CorrectAnswer))
	}
}

func boolIndex(v bool) int {
	if v {
		return 0
	}
	return 1
}

func (s *Screen) renderFeedback(width int) string {
	resp := s.m.LastResponse()
	if resp == nil {
		return ""
	}
	rb := resp.Common()
	q := s.m.Question()

	var b strings.Builder
	switch {
	case rb.Pending():
		b.WriteString(theme.Review.Render("Submitted for coach review"))
		b.WriteString("\n" + theme.Dim.Render("A coach will grade this response; it scores 0 until then."))
	case rb.IsCorrect:
		b.WriteString(theme.Correct.Render("Correct"))
	case rb.PointsEarned > 0:
		b.WriteString(theme.Partial.Render("Partly correct"))
	default:
		b.WriteString(theme.Incorrect.Render("Not quite"))
	}
	b.WriteString("   " + theme.Dim.Render(fmt.Sprintf("%s / %s points", formatNumber(rb.PointsEarned), formatNumber(rb.MaxPoints))))
	b.WriteString("\n\n")

	switch r := resp.(type) {
	case *scoring.MultipleChoiceResponse, *scoring.TrueFalseResponse:
		b.WriteString(s.choices.View())
	case *scoring.ShortAnswerResponse:
		b.WriteString(theme.Dim.Render(fmt.Sprintf("Your answer (%d words):", r.WordCount)) + "\n")
		b.WriteString(theme.Body.Width(width).Render(r.Text) + "\n")
		if r.SampleAnswer != "" {
			b.WriteString("\n" + theme.Dim.Render("Sample answer:") + "\n")
			b.WriteString(theme.Body.Width(width).Render(r.SampleAnswer) + "\n")
		}
	case *scoring.NumericalResponse:
		unit := ""
		if r.Unit != "" {
			unit = " " + r.Unit
		}
		fmt.Fprintf(&b, "Your answer: %s%s\n", formatNumber(r.Value), unit)
		if !r.IsCorrect {
			fmt.Fprintf(&b, "Correct answer: %s%s\n", formatNumber(r.CorrectAnswer), unit)
		}
	case *scoring.FillBlankResponse:
		fb, _ := q.(*question.FillBlank)
		for i, id := range s.blankIDs {
			mark := theme.Incorrect.Render("✗")
			if r.BlankCorrect[id] {
				mark = theme.Correct.Render("✓")
			}
			line := fmt.Sprintf("%s %d. %s", mark, i+1, r.Values[id])
			if !r.BlankCorrect[id] && fb != nil && i < len(fb.Blanks) && len(fb.Blanks[i].AcceptedAnswers) > 0 {
				line += theme.Dim.Render("  (expected " + fb.Blanks[i].AcceptedAnswers[0] + ")")
			}
			b.WriteString(line + "\n")
		}
	case *scoring.OrderingResponse:
		fmt.Fprintf(&b, "%d of %d items in the correct position\n", r.CorrectPositions, r.TotalItems)
		if oq, ok := q.(*question.Ordering); ok && !r.IsCorrect {
			b.WriteString("\n" + theme.Dim.Render("Correct order:") + "\n")
			items := append([]question.OrderItem(nil), oq.Items...)
			sort.Slice(items, func(i, j int) bool { return items[i].CorrectPosition < items[j].CorrectPosition })
			for i, it := range items {
				fmt.Fprintf(&b, "%d. %s\n", i+1, it.Text)
			}
		}
	case *scoring.CategorizationResponse:
		fmt.Fprintf(&b, "%d of %d items placed correctly\n", r.CorrectPlacements, r.TotalItems)
	case *scoring.ImageUploadResponse:
		fmt.Fprintf(&b, "%d photo(s) uploaded\n", len(r.UploadedImages))
	}

	if exp := q.Common().Explanation; exp != "" {
		b.WriteString("\n" + theme.Dim.Render("Explanation:") + "\n")
		b.WriteString(theme.Body.Width(width).Render(exp) + "\n")
	}

	next := "next question"
	if s.m.IsLast() {
		next = "results"
	}
	b.WriteString("\n" + theme.Hint.Render("Press any key for the "+next))
	return b.String()
}

func typeLabel(t question.Type) string {
	switch t {
	case question.TypeMultipleChoice:
		return "multiple choice"
	case question.TypeTrueFalse:
		return "true / false"
	case question.TypeShortAnswer:
		return "short answer"
	case question.TypeNumerical:
		return "numerical"
	case question.TypeFillBlank:
		return "fill in the blanks"
	case question.TypeOrdering:
		return "ordering"
	case question.TypeCategorization:
		return "categorization"
	case question.TypeImageUpload:
		return "photo upload"
	}
	return string(t)
}

func wordLimits(q *question.ShortAnswer) string {
	switch {
	case q.MinWords != nil && q.MaxWords != nil:
		return fmt.Sprintf(" (%d-%d required)", *q.MinWords, *q.MaxWords)
	case q.MinWords != nil:
		return fmt.Sprintf(" (at least %d)", *q.MinWords)
	case q.MaxWords != nil:
		return fmt.Sprintf(" (at most %d)", *q.MaxWords)
	}
	return ""
}

func valueRange(q *question.Numerical) string {
	switch {
	case q.MinValue != nil && q.MaxValue != nil:
		return fmt.Sprintf("Between %s and %s", formatNumber(*q.MinValue), formatNumber(*q.MaxValue))
	case q.MinValue != nil:
		return "At least " + formatNumber(*q.MinValue)
	case q.MaxValue != nil:
		return "At most " + formatNumber(*q.MaxValue)
	}
	return ""
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

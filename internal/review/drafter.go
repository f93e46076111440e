// Package review drafts advisory notes for responses awaiting a human
// coach. Drafts are stored beside the review item; they never change a
// response or a result.
package review

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/kokou-stm/kalanso/internal/llm"
	"github.com/kokou-stm/kalanso/internal/question"
	"github.com/kokou-stm/kalanso/internal/store"
)

// DrafterConfig tunes draft requests.
type DrafterConfig struct {
	MaxTokens   int
	Temperature float64
}

func DefaultDrafterConfig() DrafterConfig {
	return DrafterConfig{MaxTokens: 512, Temperature: 0.2}
}

// Draft is a parsed coach note.
type Draft struct {
	Summary         string        `json:"summary"`
	SuggestedPoints float64       `json:"suggestedPoints"`
	Rubric          []RubricCheck `json:"rubric"`
}

type RubricCheck struct {
	Criterion string `json:"criterion"`
	Met       bool   `json:"met"`
	Note      string `json:"note"`
}

// Drafter asks the provider for one note per review item.
type Drafter struct {
	provider llm.Provider
	cfg      DrafterConfig
}

func NewDrafter(provider llm.Provider, cfg DrafterConfig) *Drafter {
	return &Drafter{provider: provider, cfg: cfg}
}

// Draft produces a note for item. q may be nil when the definition is not
// at hand; the prompt then carries only the stored response.
// SuggestedPoints is clamped to [0, item.MaxPoints].
func (d *Drafter) Draft(ctx context.Context, item store.ReviewItem, q question.Question) (*Draft, error) {
	msg, err := buildPrompt(item, q)
	if err != nil {
		return nil, fmt.Errorf("build review prompt: %w", err)
	}

	resp, err := d.provider.Generate(llm.WithPurpose(ctx, llm.PurposeReviewDraft), llm.Request{
		System:      systemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: msg}},
		Schema:      DraftSchema,
		MaxTokens:   d.cfg.MaxTokens,
		Temperature: d.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("draft review for %s: %w", item.QuestionID, err)
	}

	var out Draft
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return nil, fmt.Errorf("parse review draft: %w", err)
	}
	out.SuggestedPoints = clamp(out.SuggestedPoints, 0, item.MaxPoints)
	return &out, nil
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}

const systemPrompt = `You assist a vocational coach who grades practical assessments.
You receive one learner submission that could not be scored automatically.
Write a short, neutral note the coach can use as a starting point.

Rules:
- Judge only what the submission shows. If something cannot be verified from text (for example a photo you cannot see), mark the criterion as not met and say why in the note.
- suggestedPoints must be between 0 and the maximum points given.
- Use the rubric criteria when provided; otherwise derive two or three criteria from the prompt.
- The coach makes the final decision.`

type promptData struct {
	Item         store.ReviewItem
	Prompt       string
	Explanation  string
	SampleAnswer string
	WordBounds   string
	Angles       string
	Rubric       []question.RubricItem
	Submission   string
}

var userTemplate = template.Must(template.New("review").Parse(`Question {{.Item.QuestionID}} ({{.Item.QuestionType}}), maximum {{.Item.MaxPoints}} points.
{{if .Prompt}}Prompt: {{.Prompt}}
{{end}}{{if .Explanation}}Reference explanation: {{.Explanation}}
{{end}}{{if .SampleAnswer}}Sample answer: {{.SampleAnswer}}
{{end}}{{if .WordBounds}}Length requirement: {{.WordBounds}}
{{end}}{{if .Angles}}Required photo angles: {{.Angles}}
{{end}}{{if .Rubric}}Rubric:
{{range .Rubric}}- {{.Criterion}}{{if .Description}}: {{.Description}}{{end}}{{if .Points}} ({{.Points}} pts){{end}}
{{end}}{{end}}
Submission:
{{.Submission}}
`))

func buildPrompt(item store.ReviewItem, q question.Question) (string, error) {
	data := promptData{Item: item, Submission: describeSubmission(item.Payload)}
	if q != nil {
		b := q.Common()
		data.Prompt, data.Explanation = b.Prompt, b.Explanation
		switch q := q.(type) {
		case *question.ShortAnswer:
			data.SampleAnswer = q.SampleAnswer
			data.WordBounds = wordBounds(q.MinWords, q.MaxWords)
		case *question.ImageUpload:
			data.Rubric = q.Rubric
			data.Angles = strings.Join(q.RequiredAngles, ", ")
		}
	}
	var buf bytes.Buffer
	if err := userTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func wordBounds(minWords, maxWords *int) string {
	switch {
	case minWords != nil && maxWords != nil:
		return fmt.Sprintf("%d to %d words", *minWords, *maxWords)
	case minWords != nil:
		return fmt.Sprintf("at least %d words", *minWords)
	case maxWords != nil:
		return fmt.Sprintf("at most %d words", *maxWords)
	}
	return ""
}

// submission is the subset of a stored response the prompt needs.
type submission struct {
	Text           string `json:"text"`
	WordCount      int    `json:"wordCount"`
	UploadedImages []struct {
		Filename string `json:"filename"`
		Angle    string `json:"angle"`
	} `json:"uploadedImages"`
}

func describeSubmission(payload []byte) string {
	var s submission
	if err := json.Unmarshal(payload, &s); err != nil {
		return string(payload)
	}
	var b strings.Builder
	if s.Text != "" {
		fmt.Fprintf(&b, "Text (%d words):\n%s\n", s.WordCount, s.Text)
	}
	if len(s.UploadedImages) > 0 {
		fmt.Fprintf(&b, "%d photo(s), not visible to you:\n", len(s.UploadedImages))
		for _, img := range s.UploadedImages {
			if img.Angle != "" {
				fmt.Fprintf(&b, "- %s (angle: %s)\n", img.Filename, img.Angle)
			} else {
				fmt.Fprintf(&b, "- %s\n", img.Filename)
			}
		}
	}
	if b.Len() == 0 {
		return "(empty)"
	}
	return b.String()
}

package scoring

import (
	"github.com/kokou-stm/kalanso/internal/answer"
	"github.com/kokou-stm/kalanso/internal/question"
)

// ReviewStatus marks responses that have no automatic score.
type ReviewStatus string

// StatusPendingReview defers the final score to a human reviewer.
const StatusPendingReview ReviewStatus = "pending_review"

// Response is the immutable record of one submitted question. Variants
// mirror question.Question and carry the detail feedback needs.
type Response interface {
	Common() *ResponseBase
	Kind() question.Type
	isResponse()
}

// ResponseBase holds the fields shared by every response.
type ResponseBase struct {
	QuestionID   string        `json:"questionId"`
	QuestionType question.Type `json:"questionType"`
	IsCorrect    bool          `json:"isCorrect"`
	PointsEarned float64       `json:"pointsEarned"`
	MaxPoints    float64       `json:"maxPoints"`
	TimeSpent    float64       `json:"timeSpent"` // seconds

	// Status is set only when the response awaits human review.
	Status ReviewStatus `json:"status,omitempty"`
}

func (b *ResponseBase) Common() *ResponseBase { return b }
func (*ResponseBase) isResponse()             {}

// Pending reports whether the response awaits human review.
func (b *ResponseBase) Pending() bool { return b.Status == StatusPendingReview }

type MultipleChoiceResponse struct {
	ResponseBase
	Selected      question.Key `json:"selected"`
	CorrectAnswer question.Key `json:"correctAnswer"`
}

type TrueFalseResponse struct {
	ResponseBase
	Selected      bool `json:"selected"`
	CorrectAnswer bool `json:"correctAnswer"`
}

// ShortAnswerResponse is never auto-graded. SampleAnswer is surfaced for
// learner self-check.
type ShortAnswerResponse struct {
	ResponseBase
	Text         string `json:"text"`
	WordCount    int    `json:"wordCount"`
	SampleAnswer string `json:"sampleAnswer,omitempty"`
}

type NumericalResponse struct {
	ResponseBase
	Value         float64 `json:"value"`
	CorrectAnswer float64 `json:"correctAnswer"`
	// Delta is the allowed deviation; zero means exact match was required.
	Delta float64 `json:"delta"`
	Unit  string  `json:"unit,omitempty"`
}

type FillBlankResponse struct {
	ResponseBase
	Values       map[string]string `json:"values"`
	BlankCorrect map[string]bool   `json:"blankCorrect"`
	CorrectCount int               `json:"correctCount"`
	TotalBlanks  int               `json:"totalBlanks"`
}

type OrderingResponse struct {
	ResponseBase
	Order            []string `json:"order"`
	CorrectPositions int      `json:"correctPositions"`
	TotalItems       int      `json:"totalItems"`
}

type CategorizationResponse struct {
	ResponseBase
	Placements        map[string]string `json:"placements"`
	CorrectPlacements int               `json:"correctPlacements"`
	TotalItems        int               `json:"totalItems"`
}

// ImageUploadResponse is never auto-scored; a coach resolves it later.
type ImageUploadResponse struct {
	ResponseBase
	UploadedImages      []answer.Image `json:"uploadedImages"`
	RequiresCoachReview bool           `json:"requiresCoachReview"`
}

func (*MultipleChoiceResponse) Kind() question.Type { return question.TypeMultipleChoice }
func (*TrueFalseResponse) Kind() question.Type      { return question.TypeTrueFalse }
func (*ShortAnswerResponse) Kind() question.Type    { return question.TypeShortAnswer }
func (*NumericalResponse) Kind() question.Type      { return question.TypeNumerical }
func (*FillBlankResponse) Kind() question.Type      { return question.TypeFillBlank }
func (*OrderingResponse) Kind() question.Type       { return question.TypeOrdering }
func (*CategorizationResponse) Kind() question.Type { return question.TypeCategorization }
func (*ImageUploadResponse) Kind() question.Type    { return question.TypeImageUpload }

// CountsTowardCorrect reports whether r participates in correct-answer counts.
// Image uploads have no definitive correctness and never count.
func CountsTowardCorrect(r Response) bool {
	return r.Kind() != question.TypeImageUpload
}

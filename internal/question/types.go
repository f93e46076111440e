package question

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrUnknownType is returned when a question type is not one of the supported kinds.
var ErrUnknownType = errors.New("unknown question type")

// Type discriminates the question variants.
type Type string

const (
	TypeMultipleChoice Type = "multiple_choice_single"
	TypeTrueFalse      Type = "true_false"
	TypeShortAnswer    Type = "short_answer"
	TypeNumerical      Type = "numerical"
	TypeFillBlank      Type = "fill_blank"
	TypeOrdering       Type = "ordering"
	TypeCategorization Type = "categorization"
	TypeImageUpload    Type = "image_upload"
)

// AllTypes returns every supported question type in authoring order.
func AllTypes() []Type {
	return []Type{
		TypeMultipleChoice, TypeTrueFalse, TypeShortAnswer, TypeNumerical,
		TypeFillBlank, TypeOrdering, TypeCategorization, TypeImageUpload,
	}
}

// Difficulty is an optional authoring label. It does not affect scoring.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Question is the sealed sum type over all question variants.
type Question interface {
	// Common returns the fields shared by every variant.
	Common() *Base

	// Kind returns the variant discriminator.
	Kind() Type

	isQuestion()
}

// Base holds the fields every question carries.
type Base struct {
	ID          string     `json:"id"`
	Points      float64    `json:"points"`
	Prompt      string     `json:"prompt,omitempty"`
	Explanation string     `json:"explanation"`
	Hints       []string   `json:"hints,omitempty"`
	Difficulty  Difficulty `json:"difficulty,omitempty"`
}

func (b *Base) Common() *Base { return b }
func (*Base) isQuestion()     {}

// MultipleChoice has a single correct option key.
type MultipleChoice struct {
	Base
	Options       map[Key]string `json:"options"`
	CorrectAnswer Key            `json:"correctAnswer"`
}

// SortedKeys returns option keys in display order (numeric keys first, ascending).
func (q *MultipleChoice) SortedKeys() []Key {
	keys := make([]Key, 0, len(q.Options))
	for k := range q.Options {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys
}

// TrueFalse is a boolean question.
type TrueFalse struct {
	Base
	CorrectAnswer bool `json:"correctAnswer"`
}

// ShortAnswer is free text. It is never auto-graded.
type ShortAnswer struct {
	Base
	MinWords     *int   `json:"minWords,omitempty"`
	MaxWords     *int   `json:"maxWords,omitempty"`
	SampleAnswer string `json:"sampleAnswer,omitempty"`
	AutoGrade    bool   `json:"autoGrade"`
}

// ToleranceType selects how Numerical.Tolerance is interpreted.
type ToleranceType string

const (
	ToleranceAbsolute   ToleranceType = "absolute"
	TolerancePercentage ToleranceType = "percentage"
)

// Numerical expects a number, optionally within a tolerance band.
type Numerical struct {
	Base
	CorrectAnswer float64       `json:"correctAnswer"`
	Tolerance     *float64      `json:"tolerance,omitempty"`
	ToleranceType ToleranceType `json:"toleranceType,omitempty"`
	MinValue      *float64      `json:"minValue,omitempty"`
	MaxValue      *float64      `json:"maxValue,omitempty"`
	Unit          string        `json:"unit,omitempty"`
}

// Blank is one gap in a FillBlank template.
type Blank struct {
	ID              string   `json:"id"`
	AcceptedAnswers []string `json:"acceptedAnswers"`
	CaseSensitive   bool     `json:"caseSensitive"`
}

// FillBlank has a template with __N__ placeholders, N being the 1-based blank position.
type FillBlank struct {
	Base
	Template string  `json:"template"`
	Blanks   []Blank `json:"blanks"`
}

var placeholderPattern = regexp.MustCompile(`__(\d+)__`)

// Segment is a piece of a rendered FillBlank template: either literal text or a blank.
type Segment struct {
	Text    string
	BlankID string // empty for literal text
}

// Segments splits the template into literal text and blank references.
// Placeholders that do not resolve to a blank are kept as literal text.
func (q *FillBlank) Segments() []Segment {
	var out []Segment
	last := 0
	for _, loc := range placeholderPattern.FindAllStringSubmatchIndex(q.Template, -1) {
		n, err := strconv.Atoi(q.Template[loc[2]:loc[3]])
		if err != nil || n < 1 || n > len(q.Blanks) {
			continue
		}
		if loc[0] > last {
			out = append(out, Segment{Text: q.Template[last:loc[0]]})
		}
		out = append(out, Segment{BlankID: q.Blanks[n-1].ID})
		last = loc[1]
	}
	if last < len(q.Template) {
		out = append(out, Segment{Text: q.Template[last:]})
	}
	return out
}

// placeholderCount returns how many __N__ placeholders the template contains.
func (q *FillBlank) placeholderCount() int {
	return len(placeholderPattern.FindAllString(q.Template, -1))
}

// OrderItem is an item to be arranged. CorrectPosition is a 0-based index.
type OrderItem struct {
	ID              string `json:"id"`
	Text            string `json:"text"`
	CorrectPosition int    `json:"correctPosition"`
}

// Ordering asks the learner to arrange items.
type Ordering struct {
	Base
	Items              []OrderItem `json:"items"`
	AllowPartialCredit bool        `json:"allowPartialCredit"`
}

// Item returns the item with the given id.
func (q *Ordering) Item(id string) (OrderItem, bool) {
	for _, it := range q.Items {
		if it.ID == id {
			return it, true
		}
	}
	return OrderItem{}, false
}

// Category is a bucket items can be sorted into.
type Category struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// CategoryItem is an item with its expected category.
type CategoryItem struct {
	ID              string `json:"id"`
	Text            string `json:"text"`
	CorrectCategory string `json:"correctCategory"`
}

// Categorization asks the learner to place each item in a category.
type Categorization struct {
	Base
	Items              []CategoryItem `json:"items"`
	Categories         []Category     `json:"categories"`
	AllowPartialCredit bool           `json:"allowPartialCredit"`
}

// HasCategory reports whether id names one of the question's categories.
func (q *Categorization) HasCategory(id string) bool {
	for _, c := range q.Categories {
		if c.ID == id {
			return true
		}
	}
	return false
}

// RubricItem is one criterion a human reviewer grades an upload against.
type RubricItem struct {
	ID          string  `json:"id,omitempty"`
	Criterion   string  `json:"criterion"`
	Description string  `json:"description,omitempty"`
	Points      float64 `json:"points,omitempty"`
}

// ImageUpload collects photos for human review. It is never auto-scored.
type ImageUpload struct {
	Base
	MinImages       int          `json:"minImages"`
	MaxImages       int          `json:"maxImages"`
	AcceptedFormats []string     `json:"acceptedFormats"`
	MaxFileSize     float64      `json:"maxFileSize"` // megabytes
	RequiredAngles  []string     `json:"requiredAngles,omitempty"`
	Rubric          []RubricItem `json:"rubric"`
}

func (*MultipleChoice) Kind() Type { return TypeMultipleChoice }
func (*TrueFalse) Kind() Type      { return TypeTrueFalse }
func (*ShortAnswer) Kind() Type    { return TypeShortAnswer }
func (*Numerical) Kind() Type      { return TypeNumerical }
func (*FillBlank) Kind() Type      { return TypeFillBlank }
func (*Ordering) Kind() Type       { return TypeOrdering }
func (*Categorization) Kind() Type { return TypeCategorization }
func (*ImageUpload) Kind() Type    { return TypeImageUpload }

// Visitor dispatches over every question variant. Adding a variant adds a
// method here, which breaks every implementation until it handles the new type.
type Visitor[T any] interface {
	MultipleChoice(*MultipleChoice) (T, error)
	TrueFalse(*TrueFalse) (T, error)
	ShortAnswer(*ShortAnswer) (T, error)
	Numerical(*Numerical) (T, error)
	FillBlank(*FillBlank) (T, error)
	Ordering(*Ordering) (T, error)
	Categorization(*Categorization) (T, error)
	ImageUpload(*ImageUpload) (T, error)
}

// Visit calls the visitor method matching q's variant.
func Visit[T any](q Question, v Visitor[T]) (T, error) {
	switch q := q.(type) {
	case *MultipleChoice:
		return v.MultipleChoice(q)
	case *TrueFalse:
		return v.TrueFalse(q)
	case *ShortAnswer:
		return v.ShortAnswer(q)
	case *Numerical:
		return v.Numerical(q)
	case *FillBlank:
		return v.FillBlank(q)
	case *Ordering:
		return v.Ordering(q)
	case *Categorization:
		return v.Categorization(q)
	case *ImageUpload:
		return v.ImageUpload(q)
	}
	var zero T
	return zero, fmt.Errorf("%w: %T", ErrUnknownType, q)
}

// New returns an empty question of the given type.
func New(t Type) (Question, error) {
	switch t {
	case TypeMultipleChoice:
		return &MultipleChoice{}, nil
	case TypeTrueFalse:
		return &TrueFalse{}, nil
	case TypeShortAnswer:
		return &ShortAnswer{}, nil
	case TypeNumerical:
		return &Numerical{}, nil
	case TypeFillBlank:
		return &FillBlank{}, nil
	case TypeOrdering:
		return &Ordering{}, nil
	case TypeCategorization:
		return &Categorization{}, nil
	case TypeImageUpload:
		return &ImageUpload{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
}

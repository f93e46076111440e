package validation

import (
	"testing"

	"github.com/kokou-stm/kalanso/internal/answer"
	"github.com/kokou-stm/kalanso/internal/question"
)

func ptr[T any](v T) *T { return &v }

func TestCanSubmit(t *testing.T) {
	shortQ := &question.ShortAnswer{MinWords: ptr(2), MaxWords: ptr(4)}
	numQ := &question.Numerical{MinValue: ptr(0.0), MaxValue: ptr(10.0)}
	blankQ := &question.FillBlank{Blanks: []question.Blank{{ID: "b1"}, {ID: "b2"}}}
	catQ := &question.Categorization{Items: []question.CategoryItem{{ID: "x"}, {ID: "y"}}}
	imgQ := &question.ImageUpload{MinImages: 2}
	two := []answer.Image{{Filename: "a.jpg"}, {Filename: "b.jpg"}}

	tests := []struct {
		name string
		q    question.Question
		st   answer.State
		want bool
	}{
		{"mcq none", &question.MultipleChoice{}, answer.Choice{}, false},
		{"mcq selected", &question.MultipleChoice{}, answer.Choice{}.Select("1"), true},
		{"tf none", &question.TrueFalse{}, answer.Boolean{}, false},
		{"tf false is a selection", &question.TrueFalse{}, answer.Boolean{}.Set(false), true},

		{"short empty", shortQ, answer.Text{Text: "   "}, false},
		{"short too few words", shortQ, answer.Text{Text: "one"}, false},
		{"short lower bound", shortQ, answer.Text{Text: " one   two "}, true},
		{"short upper bound", shortQ, answer.Text{Text: "a b c d"}, true},
		{"short too many words", shortQ, answer.Text{Text: "a b c d e"}, false},
		{"short no bounds", &question.ShortAnswer{}, answer.Text{Text: "x"}, true},

		{"num empty", numQ, answer.Number{Raw: ""}, false},
		{"num garbage", numQ, answer.Number{Raw: "ten"}, false},
		{"num NaN", numQ, answer.Number{Raw: "NaN"}, false},
		{"num min inclusive", numQ, answer.Number{Raw: "0"}, true},
		{"num max inclusive", numQ, answer.Number{Raw: " 10 "}, true},
		{"num above max", numQ, answer.Number{Raw: "10.01"}, false},
		{"num below min", numQ, answer.Number{Raw: "-1"}, false},
		{"num unbounded", &question.Numerical{}, answer.Number{Raw: "-1e9"}, true},

		{"blank missing", blankQ, answer.Blanks{Values: map[string]string{"b1": "x"}}, false},
		{"blank whitespace", blankQ, answer.Blanks{Values: map[string]string{"b1": "x", "b2": "  "}}, false},
		{"blank all filled", blankQ, answer.Blanks{Values: map[string]string{"b1": "x", "b2": "y"}}, true},

		{"order empty", &question.Ordering{}, answer.Order{}, false},
		{"order seeded", &question.Ordering{}, answer.Order{IDs: []string{"a"}}, true},

		{"cat unplaced", catQ, answer.Placement{Assigned: map[string]string{"x": "c"}, Unplaced: []string{"y"}}, false},
		{"cat unassigned item", catQ, answer.Placement{Assigned: map[string]string{"x": "c"}}, false},
		{"cat complete", catQ, answer.Placement{Assigned: map[string]string{"x": "c", "y": "d"}}, true},

		{"img below min", imgQ, answer.Uploads{Images: two[:1]}, false},
		{"img at min", imgQ, answer.Uploads{Images: two}, true},

		{"wrong state type", &question.TrueFalse{}, answer.Text{Text: "true"}, false},
		{"nil state", &question.TrueFalse{}, nil, false},
	}

	for _, tc := range tests {
		if got := CanSubmit(tc.q, tc.st); got != tc.want {
			t.Errorf("%s: CanSubmit() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

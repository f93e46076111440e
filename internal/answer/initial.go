package answer

import (
	"fmt"
	"math/rand/v2"

	"github.com/kokou-stm/kalanso/internal/question"
)

// Shuffler reorders ids in place before an ordering question is shown.
type Shuffler func(ids []string)

// RandomShuffle is the default Shuffler.
func RandomShuffle(ids []string) {
	rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
}

// NoShuffle keeps authoring order.
func NoShuffle([]string) {}

// Initial returns the empty answer state for q. Ordering questions are
// pre-seeded with every item; categorization starts with every item unplaced.
func Initial(q question.Question, shuffle Shuffler) (State, error) {
	if shuffle == nil {
		shuffle = NoShuffle
	}
	return question.Visit[State](q, initialState{shuffle: shuffle})
}

type initialState struct {
	shuffle Shuffler
}

func (initialState) MultipleChoice(*question.MultipleChoice) (State, error) { return Choice{}, nil }
func (initialState) TrueFalse(*question.TrueFalse) (State, error)           { return Boolean{}, nil }
func (initialState) ShortAnswer(*question.ShortAnswer) (State, error)       { return Text{}, nil }
func (initialState) Numerical(*question.Numerical) (State, error)           { return Number{}, nil }

func (initialState) FillBlank(q *question.FillBlank) (State, error) {
	return Blanks{Values: make(map[string]string, len(q.Blanks))}, nil
}

func (s initialState) Ordering(q *question.Ordering) (State, error) {
	ids := make([]string, len(q.Items))
	for i, it := range q.Items {
		ids[i] = it.ID
	}
	s.shuffle(ids)
	return Order{IDs: ids}, nil
}

func (initialState) Categorization(q *question.Categorization) (State, error) {
	unplaced := make([]string, len(q.Items))
	for i, it := range q.Items {
		unplaced[i] = it.ID
	}
	return Placement{Assigned: map[string]string{}, Unplaced: unplaced}, nil
}

func (initialState) ImageUpload(*question.ImageUpload) (State, error) { return Uploads{}, nil }

// Check returns an error when s does not answer q's type.
func Check(q question.Question, s State) error {
	if s == nil {
		return fmt.Errorf("no answer for %s question %s", q.Kind(), q.Common().ID)
	}
	if s.Kind() != q.Kind() {
		return fmt.Errorf("%s answer given for %s question %s", s.Kind(), q.Kind(), q.Common().ID)
	}
	return nil
}

// Package answer holds the in-progress answer for the current question.
// States are values: every edit returns a new State and never mutates the
// receiver, so the UI hands answers to the engine instead of sharing fields.
package answer

import (
	"slices"
	"time"

	"github.com/kokou-stm/kalanso/internal/question"
)

// State is the sealed sum type of per-question answer inputs.
type State interface {
	// Kind returns the question type this state answers.
	Kind() question.Type
	isState()
}

// Choice answers a multiple_choice_single question.
type Choice struct {
	Selected *question.Key
}

// Boolean answers a true_false question.
type Boolean struct {
	Value *bool
}

// Text answers a short_answer question.
type Text struct {
	Text string
}

// Number answers a numerical question. Raw is kept as typed so that the
// validator, not the input widget, decides what parses.
type Number struct {
	Raw string
}

// Blanks answers a fill_blank question, keyed by blank id.
type Blanks struct {
	Values map[string]string
}

// Order answers an ordering question with the current item id order.
type Order struct {
	IDs []string
}

// Placement answers a categorization question.
type Placement struct {
	// Assigned maps item id to category id.
	Assigned map[string]string
	// Unplaced lists item ids not in any category, in display order.
	Unplaced []string
}

// Image is one file accepted by the upload collaborator.
type Image struct {
	URL        string    `json:"url"`
	Filename   string    `json:"filename"`
	UploadedAt time.Time `json:"uploadedAt"`
	Angle      string    `json:"angle,omitempty"`
}

// Uploads answers an image_upload question. Errors are user-facing messages
// from the last rejected uploads; they never remove accepted images.
type Uploads struct {
	Images []Image
	Errors []string
}

func (Choice) Kind() question.Type    { return question.TypeMultipleChoice }
func (Boolean) Kind() question.Type   { return question.TypeTrueFalse }
func (Text) Kind() question.Type      { return question.TypeShortAnswer }
func (Number) Kind() question.Type    { return question.TypeNumerical }
func (Blanks) Kind() question.Type    { return question.TypeFillBlank }
func (Order) Kind() question.Type     { return question.TypeOrdering }
func (Placement) Kind() question.Type { return question.TypeCategorization }
func (Uploads) Kind() question.Type   { return question.TypeImageUpload }

func (Choice) isState()    {}
func (Boolean) isState()   {}
func (Text) isState()      {}
func (Number) isState()    {}
func (Blanks) isState()    {}
func (Order) isState()     {}
func (Placement) isState() {}
func (Uploads) isState()   {}

// Select returns a Choice with key selected.
func (c Choice) Select(key question.Key) Choice {
	return Choice{Selected: &key}
}

// Set returns a Boolean holding v.
func (b Boolean) Set(v bool) Boolean {
	return Boolean{Value: &v}
}

// Fill returns a copy of b with blank id set to text.
func (b Blanks) Fill(id, text string) Blanks {
	values := make(map[string]string, len(b.Values)+1)
	for k, v := range b.Values {
		values[k] = v
	}
	values[id] = text
	return Blanks{Values: values}
}

// Move returns a copy of o with itemID moved to newIndex. The index is
// clamped to the list bounds; unknown ids leave the order unchanged.
func (o Order) Move(itemID string, newIndex int) Order {
	from := slices.Index(o.IDs, itemID)
	if from < 0 {
		return Order{IDs: slices.Clone(o.IDs)}
	}
	ids := slices.Delete(slices.Clone(o.IDs), from, from+1)
	newIndex = max(0, min(newIndex, len(ids)))
	return Order{IDs: slices.Insert(ids, newIndex, itemID)}
}

// Position returns the current index of itemID, or -1.
func (o Order) Position(itemID string) int {
	return slices.Index(o.IDs, itemID)
}

// Assign returns a copy of p with itemID placed in categoryID.
func (p Placement) Assign(itemID, categoryID string) Placement {
	out := p.clone()
	out.Assigned[itemID] = categoryID
	out.Unplaced = slices.DeleteFunc(out.Unplaced, func(id string) bool { return id == itemID })
	return out
}

// Unassign returns a copy of p with itemID moved back to the unplaced pool.
func (p Placement) Unassign(itemID string) Placement {
	out := p.clone()
	if _, ok := out.Assigned[itemID]; !ok {
		return out
	}
	delete(out.Assigned, itemID)
	out.Unplaced = append(out.Unplaced, itemID)
	return out
}

func (p Placement) clone() Placement {
	assigned := make(map[string]string, len(p.Assigned))
	for k, v := range p.Assigned {
		assigned[k] = v
	}
	return Placement{Assigned: assigned, Unplaced: slices.Clone(p.Unplaced)}
}

// Add returns a copy of u with imgs appended and errs replacing the
// previous error list.
func (u Uploads) Add(imgs []Image, errs []string) Uploads {
	return Uploads{
		Images: append(slices.Clone(u.Images), imgs...),
		Errors: slices.Clone(errs),
	}
}

// Remove returns a copy of u without the image at index i.
func (u Uploads) Remove(i int) Uploads {
	if i < 0 || i >= len(u.Images) {
		return Uploads{Images: slices.Clone(u.Images)}
	}
	return Uploads{Images: slices.Delete(slices.Clone(u.Images), i, i+1)}
}

package question

// Unit is the learning unit an assessment belongs to. Sequence orders units
// for next-unit lookup.
type Unit struct {
	ID       string `json:"id"`
	Title    string `json:"title,omitempty"`
	Sequence int    `json:"sequence"`
}

// Assessment is the read-only definition supplied at assessment start.
type Assessment struct {
	SchemaVersion string `json:"schemaVersion"`
	ID            string `json:"id"`
	Title         string `json:"title,omitempty"`

	// GloTitle and TaxonomyCell are display labels only.
	GloTitle     string `json:"gloTitle,omitempty"`
	TaxonomyCell string `json:"taxonomyCell,omitempty"`

	Unit Unit `json:"unit"`

	// MasteryThreshold is nil when the file does not set one; callers fall
	// back to the configured default.
	MasteryThreshold *float64 `json:"masteryThreshold,omitempty"`

	Questions []Question `json:"-"`
}

// Threshold returns the assessment's mastery threshold, or def when unset.
func (a *Assessment) Threshold(def float64) float64 {
	if a.MasteryThreshold != nil {
		return *a.MasteryThreshold
	}
	return def
}

// TotalPoints sums the points of every question.
func (a *Assessment) TotalPoints() float64 {
	var total float64
	for _, q := range a.Questions {
		total += q.Common().Points
	}
	return total
}

// Question returns the question with the given id.
func (a *Assessment) Question(id string) (Question, bool) {
	for _, q := range a.Questions {
		if q.Common().ID == id {
			return q, true
		}
	}
	return nil, false
}

package mastery

// Status is a unit's position in the progression lifecycle, as stored in
// the session-progress record.
type Status string

const (
	StatusCurrent   Status = "current"
	StatusCompleted Status = "completed"
	StatusMastered  Status = "mastered"
)

// StatusFor maps a decision to the stored progress status.
func StatusFor(d Decision) Status {
	switch {
	case d.Mastered:
		return StatusMastered
	case d.Passed:
		return StatusCompleted
	default:
		return StatusCurrent
	}
}

// Rank orders statuses so progress never regresses on display.
func (s Status) Rank() int {
	switch s {
	case StatusCompleted:
		return 1
	case StatusMastered:
		return 2
	default:
		return 0
	}
}

// StateTransition records a progress status change for display and logging.
type StateTransition struct {
	UnitID  string
	From    Status
	To      Status
	Trigger string // "first-attempt", "passed", "mastered", "retake"
}

// Transition returns the change from prev to d's status, or nil if the status
// is unchanged. An empty prev means the unit had no record yet.
func Transition(unitID string, prev Status, d Decision) *StateTransition {
	to := StatusFor(d)
	if prev == to {
		return nil
	}
	trigger := "retake"
	switch {
	case prev == "":
		trigger = "first-attempt"
	case to == StatusMastered:
		trigger = "mastered"
	case to == StatusCompleted:
		trigger = "passed"
	}
	return &StateTransition{UnitID: unitID, From: prev, To: to, Trigger: trigger}
}

package take

import "time"

// tickMsg fires once per second for the attempt that scheduled it. A retake
// inside that second leaves the old chain pending, so ticks from another
// attempt are dropped.
type tickMsg struct {
	at      time.Time
	attempt int
}

package answer

import (
	"math"
	"strconv"
	"strings"
)

// Words counts whitespace-separated, non-empty tokens.
func (t Text) Words() int {
	return len(strings.Fields(t.Text))
}

// Value parses the typed number. Surrounding space is ignored; NaN and
// infinities are rejected.
func (n Number) Value() (float64, bool) {
	s := strings.TrimSpace(n.Raw)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

package question

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Key identifies a multiple-choice option. Authoring files may use numbers
// or strings; keys that parse as numbers are stored in canonical numeric form
// so that 2, "2" and "2.0" all name the same option.
type Key string

// NormalizeKey returns the canonical form of a raw option key.
func NormalizeKey(raw string) Key {
	s := strings.TrimSpace(raw)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Key(strconv.FormatFloat(f, 'f', -1, 64))
	}
	return Key(s)
}

// Equal compares keys after coercion, numerically when both sides are numbers.
func (k Key) Equal(other Key) bool {
	a, aErr := strconv.ParseFloat(strings.TrimSpace(string(k)), 64)
	b, bErr := strconv.ParseFloat(strings.TrimSpace(string(other)), 64)
	if aErr == nil && bErr == nil {
		return a == b
	}
	return strings.TrimSpace(string(k)) == strings.TrimSpace(string(other))
}

func (k *Key) UnmarshalText(text []byte) error {
	*k = NormalizeKey(string(text))
	return nil
}

func (k *Key) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*k = NormalizeKey(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("option key must be a string or number: %w", err)
	}
	*k = NormalizeKey(n.String())
	return nil
}

// sortKeys orders numeric keys ascending before non-numeric keys, which sort lexically.
func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool {
		a, aErr := strconv.ParseFloat(string(keys[i]), 64)
		b, bErr := strconv.ParseFloat(string(keys[j]), 64)
		switch {
		case aErr == nil && bErr == nil:
			return a < b
		case aErr == nil:
			return true
		case bErr == nil:
			return false
		}
		return keys[i] < keys[j]
	})
}

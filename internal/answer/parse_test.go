package answer

import "testing"

func TestNumberValue(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"42", 42, true},
		{" 3.5 ", 3.5, true},
		{"-0.25", -0.25, true},
		{"1e3", 1000, true},
		{"", 0, false},
		{"1,5", 0, false},
		{"Inf", 0, false},
		{"NaN", 0, false},
	}
	for _, tc := range tests {
		got, ok := Number{Raw: tc.in}.Value()
		if ok != tc.ok || got != tc.want {
			t.Errorf("Number{%q}.Value() = %v, %v, want %v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestTextWords(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"   ", 0},
		{"plane the edge", 3},
		{" glue\tand\nclamp ", 3},
	}
	for _, tc := range tests {
		if got := (Text{Text: tc.in}).Words(); got != tc.want {
			t.Errorf("Text{%q}.Words() = %d, want %d", tc.in, got, tc.want)
		}
	}
}

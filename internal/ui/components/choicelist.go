package components

import (
	"fmt"
	"strings"

	"github.com/kokou-stm/kalanso/internal/ui/theme"
)

// ChoiceList renders labelled options with a cursor. After submission,
// Correct and Chosen mark the options for feedback; -1 means none.
type ChoiceList struct {
	Labels  []string
	Options []string
	Cursor  int

	Locked  bool
	Correct int
	Chosen  int
}

// NewChoiceList labels options A, B, C... unless labels are given.
func NewChoiceList(options []string, labels []string) ChoiceList {
	if len(labels) != len(options) {
		labels = make([]string, len(options))
		for i := range options {
			labels[i] = letter(i)
		}
	}
	return ChoiceList{Labels: labels, Options: options, Correct: -1, Chosen: -1}
}

func letter(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return fmt.Sprintf("%d", i+1)
}

func (c *ChoiceList) Up() {
	if c.Cursor > 0 {
		c.Cursor--
	}
}

func (c *ChoiceList) Down() {
	if c.Cursor < len(c.Options)-1 {
		c.Cursor++
	}
}

// IndexForKey maps "1".."9" or a label letter to an option index, or -1.
func (c ChoiceList) IndexForKey(key string) int {
	if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
		if i := int(key[0] - '1'); i < len(c.Options) {
			return i
		}
	}
	for i, l := range c.Labels {
		if strings.EqualFold(l, key) {
			return i
		}
	}
	return -1
}

// Lock freezes the list for feedback rendering.
func (c *ChoiceList) Lock(chosen, correct int) {
	c.Locked, c.Chosen, c.Correct = true, chosen, correct
}

func (c ChoiceList) View() string {
	var b strings.Builder
	for i, opt := range c.Options {
		prefix := "  "
		if i == c.Cursor && !c.Locked {
			prefix = "▸ "
		}
		line := fmt.Sprintf("%s%s)  %s", prefix, c.Labels[i], opt)

		switch {
		case c.Locked && i == c.Correct:
			b.WriteString(theme.Correct.Render(line + "  ✓"))
		case c.Locked && i == c.Chosen:
			b.WriteString(theme.Incorrect.Render(line + "  ✗"))
		case c.Locked:
			b.WriteString(theme.Dim.Render(line))
		case i == c.Cursor:
			b.WriteString(theme.Selected.Render(line))
		default:
			b.WriteString(theme.Unselected.Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/kokou-stm/kalanso/internal/ui/theme"
)

// ProgressBar displays a horizontal bar, optionally with a marker at
// Threshold (0-1) such as the mastery line on a score.
type ProgressBar struct {
	Label       string
	Percent     float64
	Threshold   float64
	ShowPercent bool
	Width       int
}

func NewProgressBar(label string, percent float64, showPercent bool, width int) ProgressBar {
	return ProgressBar{
		Label:       label,
		Percent:     percent,
		ShowPercent: showPercent,
		Width:       width,
	}
}

func (p ProgressBar) View() string {
	var result string

	if p.Label != "" {
		result += lipgloss.NewStyle().Foreground(theme.Text).Render(p.Label) + "  "
	}

	percentWidth := 0
	if p.ShowPercent {
		percentWidth = 6 // "  100%"
	}
	barWidth := max(p.Width-lipgloss.Width(result)-percentWidth, 4)

	filled := max(0, min(int(float64(barWidth)*p.Percent), barWidth))
	marker := -1
	if p.Threshold > 0 && p.Threshold <= 1 {
		marker = min(int(float64(barWidth)*p.Threshold), barWidth-1)
	}

	for i := 0; i < barWidth; i++ {
		style := theme.ProgressEmpty
		if i < filled {
			style = theme.ProgressFilled
		}
		cell := " "
		if i == marker {
			cell = "┃"
		}
		result += style.Render(cell)
	}

	if p.ShowPercent {
		result += theme.Dim.Render(fmt.Sprintf("  %d%%", int(p.Percent*100+0.5)))
	}

	return strings.TrimRight(result, "\n")
}

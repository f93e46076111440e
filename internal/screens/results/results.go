// Package results shows the outcome of a completed attempt.
package results

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/kokou-stm/kalanso/internal/assessment"
	"github.com/kokou-stm/kalanso/internal/mastery"
	"github.com/kokou-stm/kalanso/internal/router"
	"github.com/kokou-stm/kalanso/internal/screen"
	"github.com/kokou-stm/kalanso/internal/store"
	"github.com/kokou-stm/kalanso/internal/ui/components"
	"github.com/kokou-stm/kalanso/internal/ui/layout"
	"github.com/kokou-stm/kalanso/internal/ui/theme"
)

// nextUnitWait bounds how long the screen waits for the next-unit lookup.
const nextUnitWait = 5 * time.Second

const (
	itemRetake = iota
	itemQuit
)

// Options configures the results screen.
type Options struct {
	Clock func() time.Time

	// NextUnit receives the unit after a mastered one, or nil at the end
	// of the sequence.
	NextUnit <-chan *store.Unit

	// Restart returns the screen to show after a successful retake.
	Restart func() screen.Screen
}

// tickMsg refreshes the retry countdown for the attempt that scheduled it.
type tickMsg struct {
	at      time.Time
	attempt int
}

type nextUnitMsg struct {
	unit *store.Unit
	ok   bool
}

// Screen renders the machine's result and decision.
type Screen struct {
	m    *assessment.Machine
	opts Options
	now  time.Time
	menu components.Menu

	next       *store.Unit
	nextLoaded bool
	nextFailed bool
	errMsg     string
}

var (
	_ screen.Screen          = (*Screen)(nil)
	_ screen.KeyHintProvider = (*Screen)(nil)
)

// New returns a results screen for a machine in the Results phase.
func New(m *assessment.Machine, opts Options) *Screen {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	s := &Screen{m: m, opts: opts, now: opts.Clock()}
	s.menu = components.NewMenu([]components.MenuItem{
		{Label: "Retake assessment", Action: s.retake},
		{Label: "Quit", Action: func() tea.Cmd { return tea.Quit }},
	})
	s.refresh()
	return s
}

func (s *Screen) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(s.m.Attempt())}
	if d := s.m.Decision(); d != nil && d.Mastered && s.opts.NextUnit != nil {
		cmds = append(cmds, waitNextUnit(s.opts.NextUnit))
	}
	return tea.Batch(cmds...)
}

func (s *Screen) Title() string { return "Results" }

func (s *Screen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{{Key: "↑↓", Description: "Navigate"}, {Key: "Enter", Description: "Select"}}
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if msg.attempt != s.m.Attempt() || s.m.Phase() != assessment.PhaseResults {
			return s, nil
		}
		s.now = msg.at
		s.refresh()
		return s, tickCmd(msg.attempt)

	case nextUnitMsg:
		s.next, s.nextLoaded, s.nextFailed = msg.unit, msg.ok, !msg.ok
		return s, nil

	case tea.KeyPressMsg:
		s.errMsg = ""
		var cmd tea.Cmd
		s.menu, cmd = s.menu.Update(msg)
		return s, cmd
	}
	return s, nil
}

// refresh enables Retake once the cooldown has passed.
func (s *Screen) refresh() {
	s.menu.SetDisabled(itemRetake, !s.m.CanRetry(s.now))
}

func (s *Screen) retake() tea.Cmd {
	now := s.opts.Clock()
	if err := s.m.Retake(now); err != nil {
		s.errMsg = err.Error()
		return nil
	}
	if s.opts.Restart == nil {
		return nil
	}
	next := s.opts.Restart()
	return func() tea.Msg { return router.ReplaceScreenMsg{Screen: next} }
}

func (s *Screen) View(width, height int) string {
	res, d := s.m.Result(), s.m.Decision()
	if res == nil || d == nil {
		return ""
	}
	inner := max(width-4, 20)

	var b strings.Builder
	b.WriteString(theme.Title.Render(s.m.Assessment().Title))
	b.WriteString("\n")
	b.WriteString(layout.Rule(inner))
	b.WriteString("\n\n")

	bar := components.NewProgressBar("Score", res.Score/100, true, min(inner, 60))
	bar.Threshold = res.MasteryThreshold / 100
	b.WriteString(bar.View())
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "%s / %s points   %d of %d correct   time %s\n",
		formatNumber(res.EarnedPoints), formatNumber(res.TotalPoints),
		res.CorrectAnswers, res.TotalQuestions, formatDuration(res.TimeTaken))
	b.WriteString(theme.Dim.Render(fmt.Sprintf("Mastery at %s%%", formatNumber(res.MasteryThreshold))))
	b.WriteString("\n\n")

	switch {
	case res.Mastered:
		b.WriteString(theme.Correct.Render("Unit mastered"))
	case res.Passed:
		b.WriteString(theme.Partial.Render("Passed, not yet mastered"))
	default:
		b.WriteString(theme.Incorrect.Render("Not passed"))
	}
	b.WriteString("\n")

	if res.PendingReview > 0 {
		b.WriteString(theme.Review.Render(fmt.Sprintf("%d response(s) await coach review", res.PendingReview)))
		b.WriteString("\n")
	}

	if res.Mastered {
		b.WriteString(s.renderNextUnit())
	} else if s.m.CanRetry(s.now) {
		b.WriteString(theme.Body.Render("Retake available now"))
	} else {
		b.WriteString(theme.Body.Render("Retake available in " + mastery.FormatCountdown(s.m.RetryIn(s.now))))
	}
	b.WriteString("\n\n")

	b.WriteString(s.menu.View())
	if s.errMsg != "" {
		b.WriteString("\n" + theme.ErrorText.Render(s.errMsg))
	}

	return lipgloss.NewStyle().Width(inner).Padding(1, 2).Render(b.String())
}

func (s *Screen) renderNextUnit() string {
	switch {
	case s.nextLoaded && s.next != nil:
		return theme.Body.Render("Next unit: " + s.next.Title)
	case s.nextLoaded:
		return theme.Body.Render("All units in this sequence are complete")
	case s.nextFailed || s.opts.NextUnit == nil:
		return ""
	}
	return theme.Dim.Render("Looking up the next unit...")
}

func waitNextUnit(ch <-chan *store.Unit) tea.Cmd {
	return func() tea.Msg {
		select {
		case u := <-ch:
			return nextUnitMsg{unit: u, ok: true}
		case <-time.After(nextUnitWait):
			return nextUnitMsg{}
		}
	}
}

func tickCmd(attempt int) tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg{at: t, attempt: attempt}
	})
}

func formatDuration(secs int) string {
	if secs >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", secs/3600, (secs/60)%60, secs%60)
	}
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// formatNumber rounds to one decimal and drops a trailing ".0".
func formatNumber(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}

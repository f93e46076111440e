package results

import (
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/kokou-stm/kalanso/internal/answer"
	"github.com/kokou-stm/kalanso/internal/assessment"
	"github.com/kokou-stm/kalanso/internal/mastery"
	"github.com/kokou-stm/kalanso/internal/question"
	"github.com/kokou-stm/kalanso/internal/router"
	"github.com/kokou-stm/kalanso/internal/screen"
	"github.com/kokou-stm/kalanso/internal/store"
)

var t0 = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

type placeholder struct{}

func (placeholder) Init() tea.Cmd                           { return nil }
func (placeholder) Update(tea.Msg) (screen.Screen, tea.Cmd) { return placeholder{}, nil }
func (placeholder) View(int, int) string                    { return "" }
func (placeholder) Title() string                           { return "restarted" }

// finished returns a machine in Results after answering the single
// question with key.
func finished(t *testing.T, key question.Key) *assessment.Machine {
	t.Helper()
	def := &question.Assessment{
		ID:    "a1",
		Title: "Sharpening",
		Unit:  question.Unit{ID: "u1", Title: "Edges", Sequence: 1},
		Questions: []question.Question{
			&question.MultipleChoice{
				Base:          question.Base{ID: "q1", Points: 10},
				Options:       map[question.Key]string{"1": "Coarse first", "2": "Fine first"},
				CorrectAnswer: "1",
			},
		},
	}
	m, err := assessment.New(def, assessment.Options{Gate: mastery.NewGate(70, time.Hour)})
	if err != nil {
		t.Fatal(err)
	}
	steps := []func() error{
		func() error { return m.Start(t0) },
		func() error { return m.SetAnswer(answer.Choice{}.Select(key)) },
		func() error { _, err := m.Submit(t0); return err },
		func() error { return m.Continue(t0) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			t.Fatal(err)
		}
	}
	return m
}

func enter() tea.KeyPressMsg { return tea.KeyPressMsg{Code: tea.KeyEnter} }

func TestRetakeLockedDuringCooldown(t *testing.T) {
	now := t0.Add(10 * time.Minute)
	m := finished(t, "2")
	s := New(m, Options{
		Clock:   func() time.Time { return now },
		Restart: func() screen.Screen { return placeholder{} },
	})

	if !s.menu.Items[itemRetake].Disabled {
		t.Fatal("retake should be disabled during cooldown")
	}
	if s.menu.Selected != itemQuit {
		t.Errorf("cursor = %d, want quit", s.menu.Selected)
	}
	view := s.View(80, 30)
	for _, want := range []string{"Not passed", "0 / 10 points", "Retake available in 00:50:00", "Mastery at 80%"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	// Enter on the disabled item does nothing even when forced there.
	s.menu.Selected = itemRetake
	if _, cmd := s.Update(enter()); cmd != nil {
		t.Error("disabled retake should not run")
	}
	if m.Phase() != assessment.PhaseResults {
		t.Errorf("phase = %s, want results", m.Phase())
	}
}

func TestRetakeAfterCooldown(t *testing.T) {
	now := t0.Add(10 * time.Minute)
	m := finished(t, "2")
	s := New(m, Options{
		Clock:   func() time.Time { return now },
		Restart: func() screen.Screen { return placeholder{} },
	})

	now = t0.Add(time.Hour)
	if _, cmd := s.Update(tickMsg{at: now, attempt: m.Attempt()}); cmd == nil {
		t.Error("tick should reschedule itself")
	}
	if s.menu.Items[itemRetake].Disabled {
		t.Fatal("retake should be enabled once the cooldown passes")
	}
	if !strings.Contains(s.View(80, 30), "Retake available now") {
		t.Error("expected retake-available line")
	}

	s.Update(tea.KeyPressMsg{Code: tea.KeyUp})
	_, cmd := s.Update(enter())
	if cmd == nil {
		t.Fatal("retake should navigate")
	}
	msg, ok := cmd().(router.ReplaceScreenMsg)
	if !ok {
		t.Fatal("expected ReplaceScreenMsg")
	}
	if msg.Screen.Title() != "restarted" {
		t.Errorf("replacement title = %q", msg.Screen.Title())
	}
	if m.Phase() != assessment.PhaseTaking || m.Attempt() != 2 {
		t.Errorf("phase %s attempt %d, want taking attempt 2", m.Phase(), m.Attempt())
	}
}

func TestMasteredShowsNextUnit(t *testing.T) {
	ch := make(chan *store.Unit, 1)
	m := finished(t, "1")
	s := New(m, Options{Clock: func() time.Time { return t0 }, NextUnit: ch})

	if s.menu.Items[itemRetake].Disabled {
		t.Error("mastered attempts have no cooldown")
	}
	if !strings.Contains(s.View(80, 30), "Looking up the next unit") {
		t.Error("expected pending lookup line")
	}

	ch <- &store.Unit{ID: "u2", Title: "Honing", Sequence: 2}
	msg := waitNextUnit(ch)()
	s.Update(msg)
	view := s.View(80, 30)
	if !strings.Contains(view, "Unit mastered") || !strings.Contains(view, "Next unit: Honing") {
		t.Errorf("view:\n%s", view)
	}

	s.Update(nextUnitMsg{ok: true})
	if !strings.Contains(s.View(80, 30), "All units in this sequence are complete") {
		t.Error("nil next unit should end the sequence")
	}
}

func TestFormatNumber(t *testing.T) {
	tests := map[float64]string{10: "10", 7.5: "7.5", 66.666: "66.7", 0: "0"}
	for in, want := range tests {
		if got := formatNumber(in); got != want {
			t.Errorf("formatNumber(%v) = %q, want %q", in, got, want)
		}
	}
}

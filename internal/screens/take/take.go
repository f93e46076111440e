// Package take is the screen a learner answers questions on.
package take

import (
	"fmt"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"go.uber.org/zap"

	"github.com/kokou-stm/kalanso/internal/answer"
	"github.com/kokou-stm/kalanso/internal/assessment"
	"github.com/kokou-stm/kalanso/internal/question"
	"github.com/kokou-stm/kalanso/internal/router"
	"github.com/kokou-stm/kalanso/internal/screen"
	"github.com/kokou-stm/kalanso/internal/screens/results"
	"github.com/kokou-stm/kalanso/internal/store"
	"github.com/kokou-stm/kalanso/internal/ui/components"
	"github.com/kokou-stm/kalanso/internal/ui/layout"
	"github.com/kokou-stm/kalanso/internal/upload"
)

// Options configures the take screen. All fields are optional.
type Options struct {
	Clock func() time.Time

	// NextUnit delivers the recorder's next-unit lookup to the results
	// screen.
	NextUnit <-chan *store.Unit

	Logger *zap.Logger
}

// Screen drives an assessment.Machine from key presses. The machine is the
// single source of truth; widgets only mirror the current answer.
type Screen struct {
	m    *assessment.Machine
	opts Options
	log  *zap.Logger

	built     int // question index the widgets were built for, -1 if none
	choices   components.ChoiceList
	keys      []question.Key
	input     components.TextInput
	blanks    []components.TextInput
	blankIDs  []string
	focus     int
	cursor    int
	showHints bool
	notice    string
	errMsg    string
}

var (
	_ screen.Screen          = (*Screen)(nil)
	_ screen.KeyHintProvider = (*Screen)(nil)
	_ screen.StatusProvider  = (*Screen)(nil)
)

// New returns a screen for m. If m has not started, Init starts it.
func New(m *assessment.Machine, opts Options) *Screen {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Screen{m: m, opts: opts, log: log.Named("tui"), built: -1}
}

func (s *Screen) Init() tea.Cmd {
	if s.m.Phase() == assessment.PhaseNotStarted {
		if err := s.m.Start(s.opts.Clock()); err != nil {
			s.errMsg = err.Error()
			return nil
		}
	}
	return tea.Batch(s.rebuild(), tickCmd(s.m.Attempt()))
}

func (s *Screen) Title() string {
	if t := s.m.Assessment().Title; t != "" {
		return t
	}
	return "Assessment"
}

// Status shows the question counter and the assessment timer.
func (s *Screen) Status() string {
	return fmt.Sprintf("Q %d/%d  %s", s.m.Index()+1, s.m.Total(), formatElapsed(s.m.Elapsed()))
}

func (s *Screen) KeyHints() []layout.KeyHint {
	if s.m.Phase() == assessment.PhaseFeedback {
		return []layout.KeyHint{{Key: "any key", Description: "Continue"}}
	}
	switch s.m.Question().(type) {
	case *question.MultipleChoice, *question.TrueFalse:
		return []layout.KeyHint{{Key: "↑↓", Description: "Move"}, {Key: "Enter", Description: "Submit"}}
	case *question.FillBlank:
		return []layout.KeyHint{{Key: "Tab", Description: "Next blank"}, {Key: "Enter", Description: "Submit"}}
	case *question.Ordering:
		return []layout.KeyHint{{Key: "↑↓", Description: "Select"}, {Key: "Shift+↑↓", Description: "Move item"}, {Key: "Enter", Description: "Submit"}}
	case *question.Categorization:
		return []layout.KeyHint{{Key: "↑↓", Description: "Select"}, {Key: "←→", Description: "Category"}, {Key: "Enter", Description: "Submit"}}
	case *question.ImageUpload:
		return []layout.KeyHint{{Key: "Enter", Description: "Add path / Submit"}, {Key: "Ctrl+D", Description: "Remove last"}}
	}
	return []layout.KeyHint{{Key: "Enter", Description: "Submit"}}
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if msg.attempt != s.m.Attempt() {
			return s, nil
		}
		s.m.Tick()
		if s.m.Phase() == assessment.PhaseResults {
			return s, nil
		}
		return s, tickCmd(msg.attempt)

	case tea.KeyPressMsg:
		return s.handleKey(msg)
	}

	if s.m.Phase() == assessment.PhaseTaking && s.usesInput() {
		return s.forward(msg)
	}
	return s, nil
}

func (s *Screen) handleKey(msg tea.KeyPressMsg) (screen.Screen, tea.Cmd) {
	if s.errMsg != "" {
		return s, nil
	}
	if s.m.Phase() == assessment.PhaseFeedback {
		return s.next()
	}
	if s.m.Phase() != assessment.PhaseTaking {
		return s, nil
	}

	key := msg.String()
	if key == "f1" {
		s.showHints = !s.showHints
		return s, nil
	}
	s.notice = ""

	switch q := s.m.Question().(type) {
	case *question.MultipleChoice, *question.TrueFalse:
		return s.choiceKey(key)
	case *question.FillBlank:
		switch key {
		case "tab", "down":
			return s, s.focusBlank(s.focus + 1)
		case "shift+tab", "up":
			return s, s.focusBlank(s.focus - 1)
		case "enter":
			return s.submit()
		}
		return s.forward(msg)
	case *question.Ordering:
		return s.orderingKey(key)
	case *question.Categorization:
		return s.categorizationKey(q, key)
	case *question.ImageUpload:
		switch key {
		case "enter":
			if strings.TrimSpace(s.input.Value()) != "" {
				s.addUploads(q)
				return s, nil
			}
			return s.submit()
		case "ctrl+d":
			if u, ok := s.m.Answer().(answer.Uploads); ok && len(u.Images) > 0 {
				s.setAnswer(u.Remove(len(u.Images) - 1))
			}
			return s, nil
		}
		return s.forward(msg)
	}

	if key == "enter" {
		return s.submit()
	}
	return s.forward(msg)
}

func (s *Screen) choiceKey(key string) (screen.Screen, tea.Cmd) {
	switch key {
	case "up", "k":
		s.choices.Up()
		return s, nil
	case "down", "j":
		s.choices.Down()
		return s, nil
	case "enter", "space":
		s.selectChoice(s.choices.Cursor)
		return s.submit()
	}
	if i := s.choices.IndexForKey(key); i >= 0 {
		s.choices.Cursor = i
		s.selectChoice(i)
		return s.submit()
	}
	return s, nil
}

func (s *Screen) selectChoice(i int) {
	switch s.m.Question().(type) {
	case *question.MultipleChoice:
		if i < len(s.keys) {
			s.setAnswer(answer.Choice{}.Select(s.keys[i]))
		}
	case *question.TrueFalse:
		s.setAnswer(answer.Boolean{}.Set(i == 0))
	}
}

func (s *Screen) orderingKey(key string) (screen.Screen, tea.Cmd) {
	o, _ := s.m.Answer().(answer.Order)
	switch key {
	case "up", "k":
		s.cursor = max(s.cursor-1, 0)
	case "down", "j":
		s.cursor = min(s.cursor+1, len(o.IDs)-1)
	case "shift+up", "K":
		if s.cursor > 0 {
			s.reorder(o.IDs[s.cursor], s.cursor-1)
			s.cursor--
		}
	case "shift+down", "J":
		if s.cursor < len(o.IDs)-1 {
			s.reorder(o.IDs[s.cursor], s.cursor+1)
			s.cursor++
		}
	case "enter":
		return s.submit()
	}
	return s, nil
}

func (s *Screen) reorder(id string, to int) {
	if err := s.m.Reorder(id, to); err != nil {
		s.log.Warn("reorder", zap.Error(err))
	}
}

func (s *Screen) categorizationKey(q *question.Categorization, key string) (screen.Screen, tea.Cmd) {
	p, _ := s.m.Answer().(answer.Placement)
	switch key {
	case "up", "k":
		s.cursor = max(s.cursor-1, 0)
	case "down", "j":
		s.cursor = min(s.cursor+1, len(q.Items)-1)
	case "left", "h":
		s.setAnswer(cycleCategory(q, p, q.Items[s.cursor].ID, -1))
	case "right", "l":
		s.setAnswer(cycleCategory(q, p, q.Items[s.cursor].ID, +1))
	case "backspace", "x":
		s.setAnswer(p.Unassign(q.Items[s.cursor].ID))
	case "enter":
		return s.submit()
	}
	return s, nil
}

// cycleCategory steps an item through unplaced, then each category in
// order, wrapping in either direction.
func cycleCategory(q *question.Categorization, p answer.Placement, itemID string, step int) answer.Placement {
	slots := len(q.Categories) + 1 // index 0 is unplaced
	cur := 0
	if cat, ok := p.Assigned[itemID]; ok {
		for i, c := range q.Categories {
			if c.ID == cat {
				cur = i + 1
			}
		}
	}
	next := ((cur+step)%slots + slots) % slots
	if next == 0 {
		return p.Unassign(itemID)
	}
	return p.Assign(itemID, q.Categories[next-1].ID)
}

func (s *Screen) addUploads(q *question.ImageUpload) {
	u, _ := s.m.Answer().(answer.Uploads)
	paths := strings.Split(s.input.Value(), ",")
	imgs, errs := upload.Check(q, len(u.Images), paths, s.opts.Clock())
	if err := s.m.AddUploads(imgs, errs); err != nil {
		s.log.Warn("add uploads", zap.Error(err))
		return
	}
	for _, e := range errs {
		s.log.Info("upload rejected", zap.String("question", q.ID), zap.String("reason", e))
	}
	s.input.SetValue("")
}

// forward passes msg to the focused text widget and mirrors its value into
// the machine.
func (s *Screen) forward(msg tea.Msg) (screen.Screen, tea.Cmd) {
	var cmd tea.Cmd
	switch s.m.Question().(type) {
	case *question.ShortAnswer:
		s.input, cmd = s.input.Update(msg)
		s.setAnswer(answer.Text{Text: s.input.Value()})
	case *question.Numerical:
		s.input, cmd = s.input.Update(msg)
		s.setAnswer(answer.Number{Raw: s.input.Value()})
	case *question.FillBlank:
		if s.focus < len(s.blanks) {
			s.blanks[s.focus], cmd = s.blanks[s.focus].Update(msg)
			b, _ := s.m.Answer().(answer.Blanks)
			s.setAnswer(b.Fill(s.blankIDs[s.focus], s.blanks[s.focus].Value()))
		}
	case *question.ImageUpload:
		s.input, cmd = s.input.Update(msg)
	}
	return s, cmd
}

func (s *Screen) usesInput() bool {
	switch s.m.Question().(type) {
	case *question.ShortAnswer, *question.Numerical, *question.FillBlank, *question.ImageUpload:
		return true
	}
	return false
}

func (s *Screen) setAnswer(st answer.State) {
	if err := s.m.SetAnswer(st); err != nil {
		s.log.Warn("set answer", zap.Error(err))
	}
}

func (s *Screen) focusBlank(i int) tea.Cmd {
	if len(s.blanks) == 0 {
		return nil
	}
	s.blanks[s.focus].Blur()
	s.focus = (i%len(s.blanks) + len(s.blanks)) % len(s.blanks)
	return s.blanks[s.focus].Focus()
}

func (s *Screen) submit() (screen.Screen, tea.Cmd) {
	if !s.m.CanSubmit() {
		s.notice = incompleteNotice(s.m.Question())
		return s, nil
	}
	resp, err := s.m.Submit(s.opts.Clock())
	if err != nil {
		s.notice = err.Error()
		return s, nil
	}
	s.lockChoices(resp)
	return s, nil
}

// next leaves Feedback, replacing this screen with results after the last
// question.
func (s *Screen) next() (screen.Screen, tea.Cmd) {
	if err := s.m.Continue(s.opts.Clock()); err != nil {
		s.errMsg = err.Error()
		return s, nil
	}
	if s.m.Phase() != assessment.PhaseResults {
		return s, s.rebuild()
	}
	res := results.New(s.m, results.Options{
		Clock:    s.opts.Clock,
		NextUnit: s.opts.NextUnit,
		Restart:  func() screen.Screen { return New(s.m, s.opts) },
	})
	return s, func() tea.Msg { return router.ReplaceScreenMsg{Screen: res} }
}

// rebuild resets the widgets for the current question.
func (s *Screen) rebuild() tea.Cmd {
	if s.built == s.m.Index() && s.m.Phase() == assessment.PhaseTaking {
		return nil
	}
	s.built = s.m.Index()
	s.cursor, s.focus, s.notice, s.showHints = 0, 0, "", false
	s.blanks, s.blankIDs, s.keys = nil, nil, nil

	switch q := s.m.Question().(type) {
	case *question.MultipleChoice:
		s.keys = q.SortedKeys()
		opts := make([]string, len(s.keys))
		for i, k := range s.keys {
			opts[i] = q.Options[k]
		}
		s.choices = components.NewChoiceList(opts, nil)
	case *question.TrueFalse:
		s.choices = components.NewChoiceList([]string{"True", "False"}, []string{"T", "F"})
	case *question.ShortAnswer:
		s.input = components.NewTextInput("Type your answer...", false, 0)
		return s.input.Init()
	case *question.Numerical:
		s.input = components.NewTextInput("Enter a number", true, 32)
		return s.input.Init()
	case *question.FillBlank:
		for i, b := range q.Blanks {
			in := components.NewTextInput(fmt.Sprintf("blank %d", i+1), false, 64)
			if i > 0 {
				in.Blur()
			}
			s.blanks = append(s.blanks, in)
			s.blankIDs = append(s.blankIDs, b.ID)
		}
		if len(s.blanks) > 0 {
			return s.blanks[0].Init()
		}
	case *question.ImageUpload:
		s.input = components.NewTextInput("Path to photo (comma-separate several)", false, 0)
		return s.input.Init()
	}
	return nil
}

func incompleteNotice(q question.Question) string {
	switch q := q.(type) {
	case *question.MultipleChoice, *question.TrueFalse:
		return "Choose an answer first."
	case *question.ShortAnswer:
		switch {
		case q.MinWords != nil && q.MaxWords != nil:
			return fmt.Sprintf("Write between %d and %d words.", *q.MinWords, *q.MaxWords)
		case q.MinWords != nil:
			return fmt.Sprintf("Write at least %d words.", *q.MinWords)
		case q.MaxWords != nil:
			return fmt.Sprintf("Write at most %d words.", *q.MaxWords)
		}
		return "Write an answer first."
	case *question.Numerical:
		return "Enter a number within the allowed range."
	case *question.FillBlank:
		return "Fill in every blank."
	case *question.Categorization:
		return "Place every item in a category."
	case *question.ImageUpload:
		return fmt.Sprintf("Add at least %d photo(s).", q.MinImages)
	}
	return "Answer incomplete."
}

func formatElapsed(d time.Duration) string {
	secs := int(d / time.Second)
	if secs >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", secs/3600, (secs/60)%60, secs%60)
	}
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

func tickCmd(attempt int) tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg{at: t, attempt: attempt}
	})
}

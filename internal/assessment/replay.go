package assessment

import (
	"fmt"
	"time"

	"github.com/kokou-stm/kalanso/internal/answer"
)

// Replay drives m from start to Results with scripted answers. Each
// question's scripted timeSpent advances both the virtual clock and the
// elapsed timer; unscripted questions take no time.
func Replay(m *Machine, script answer.Script, start time.Time) error {
	if err := m.Start(start); err != nil {
		return err
	}
	now := start
	for m.Phase() != PhaseResults {
		q := m.Question()
		id := q.Common().ID

		st, err := script.State(q)
		if err != nil {
			return fmt.Errorf("question %s: %w", id, err)
		}
		if err := m.SetAnswer(st); err != nil {
			return fmt.Errorf("question %s: %w", id, err)
		}
		if secs, ok := script.TimeSpent(id); ok && secs > 0 {
			for range int(secs) {
				m.Tick()
			}
			now = now.Add(time.Duration(secs * float64(time.Second)))
		}
		if _, err := m.Submit(now); err != nil {
			return fmt.Errorf("question %s: %w", id, err)
		}
		if err := m.Continue(now); err != nil {
			return err
		}
	}
	return nil
}

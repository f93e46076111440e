// Package router holds the active TUI screen and swaps it on request.
package router

import (
	tea "charm.land/bubbletea/v2"

	"github.com/kokou-stm/kalanso/internal/screen"
)

// ReplaceScreenMsg swaps the active screen. The take screen sends it to
// show results, and the results screen sends it back on retake.
type ReplaceScreenMsg struct {
	Screen screen.Screen
}

// Router owns the screen currently on display.
type Router struct {
	active screen.Screen
}

func New(initial screen.Screen) *Router {
	return &Router{active: initial}
}

// Replace makes s the active screen and returns its Init command.
func (r *Router) Replace(s screen.Screen) tea.Cmd {
	if s == nil {
		return nil
	}
	r.active = s
	return s.Init()
}

func (r *Router) Active() screen.Screen {
	return r.active
}

// Update handles ReplaceScreenMsg and forwards everything else to the
// active screen.
func (r *Router) Update(msg tea.Msg) tea.Cmd {
	if msg, ok := msg.(ReplaceScreenMsg); ok {
		return r.Replace(msg.Screen)
	}
	if r.active == nil {
		return nil
	}
	updated, cmd := r.active.Update(msg)
	r.active = updated
	return cmd
}

func (r *Router) View(width, height int) string {
	if r.active == nil {
		return ""
	}
	return r.active.View(width, height)
}

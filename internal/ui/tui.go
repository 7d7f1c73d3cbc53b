// ABOUTME: TUI initialization and control
// ABOUTME: Wraps bubbletea program and exposes the worker redraw hook
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// NewModel creates a new TUI model with the address field prefilled
func NewModel(ep Endpoint, address string) Model {
	return Model{
		ep:      ep,
		status:  StatusReady,
		address: address,
	}
}

// Run creates the TUI program; the caller runs it
func Run(ep Endpoint, address string) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(ep, address), tea.WithAltScreen())
	return p, nil
}

// Notifier returns a redraw hook for the worker. Send returns immediately once the program has exited.
func Notifier(p *tea.Program) func() {
	return func() {
		p.Send(RedrawMsg{})
	}
}

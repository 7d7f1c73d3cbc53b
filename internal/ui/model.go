// ABOUTME: Bubbletea model for player TUI
// ABOUTME: Address entry, connect/disconnect toggle and status display driven by worker events
package ui

import (
	"errors"
	"log"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fastmic/fastmic-go/pkg/control"
)

// Endpoint is the UI side of the control channel
type Endpoint interface {
	Send(action control.Action) error
	TryReceive() (control.Event, error)
}

// RedrawMsg asks the model to drain pending worker events
type RedrawMsg struct{}

// Model represents the TUI state
type Model struct {
	ep Endpoint

	// Connection
	status  Status
	message string
	address string

	// Set once the worker goroutine has gone away
	workerGone bool
	quitting   bool

	// Dimensions
	width  int
	height int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case RedrawMsg:
		m.drainEvents()
		if m.workerGone {
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// drainEvents applies every queued worker event in order
func (m *Model) drainEvents() {
	for {
		ev, err := m.ep.TryReceive()
		if errors.Is(err, control.ErrEmpty) {
			return
		}
		if err != nil {
			log.Printf("Worker gone: %v", err)
			m.workerGone = true
			return
		}
		m.applyEvent(ev)
	}
}

func (m *Model) applyEvent(ev control.Event) {
	m.status, m.message = statusForEvent(ev)
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if err := m.ep.Send(control.Exit{}); err != nil {
			log.Printf("Cannot send exit: %v", err)
		}
		m.quitting = true
		return m, tea.Quit
	case "enter":
		m.toggle()
		return m, nil
	case "backspace":
		if m.status.CanConnect() && len(m.address) > 0 {
			m.address = m.address[:len(m.address)-1]
		}
		return m, nil
	}

	if msg.Type == tea.KeyRunes && m.status.CanConnect() {
		m.address += string(msg.Runes)
	}
	return m, nil
}

// toggle connects from Ready/Failed and disconnects from Connected
func (m *Model) toggle() {
	switch {
	case m.status.CanConnect():
		address := strings.TrimSpace(m.address)
		if address == "" {
			m.message = "Enter an address (ip:port)"
			return
		}
		if err := m.ep.Send(control.Connect{Address: address}); err != nil {
			m.status, m.message = StatusFailed, err.Error()
			return
		}
		m.address = address
		m.status, m.message = StatusConnecting, ""

	case m.status == StatusConnected:
		if err := m.ep.Send(control.Disconnect{}); err != nil {
			m.status, m.message = StatusFailed, err.Error()
			return
		}
		m.status, m.message = StatusDisconnecting, ""
	}
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205")).
		MarginBottom(1)

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86"))

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("250"))

	var b strings.Builder

	b.WriteString(titleStyle.Render("Fast Mic"))
	b.WriteString("\n\n")

	b.WriteString(headerStyle.Render("Status:  "))
	b.WriteString(m.status.Style().Render(m.status.String()))
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Address: "))
	address := m.address
	if m.status.CanConnect() {
		address += "_"
	}
	b.WriteString(valueStyle.Render(address))
	b.WriteString("\n")

	if m.message != "" {
		style := transitionalStyle
		if m.status == StatusFailed {
			style = failedStyle
		}
		b.WriteString("\n")
		b.WriteString(style.Render(truncate(m.message, 60)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Faint(true).Render(m.help()))

	return b.String()
}

func (m Model) help() string {
	switch {
	case m.status.CanConnect():
		return "enter: connect  q: quit"
	case m.status == StatusConnected:
		return "enter: disconnect  q: quit"
	default:
		return "q: quit"
	}
}

// Status returns the displayed connection state
func (m Model) Status() Status {
	return m.status
}

// Address returns the address in the input field
func (m Model) Address() string {
	return m.address
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

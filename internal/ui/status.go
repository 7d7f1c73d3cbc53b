// ABOUTME: Connection status shown to the user
// ABOUTME: Maps worker events onto display states and colours
package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/fastmic/fastmic-go/pkg/control"
)

// Status is the connection state as the user sees it
type Status int

const (
	StatusReady Status = iota
	StatusConnecting
	StatusReconnecting
	StatusConnected
	StatusFailed
	StatusDisconnecting
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "Ready"
	case StatusConnecting:
		return "Connecting"
	case StatusReconnecting:
		return "Reconnecting"
	case StatusConnected:
		return "Connected"
	case StatusFailed:
		return "Failed"
	case StatusDisconnecting:
		return "Disconnecting"
	default:
		return "Unknown"
	}
}

// CanConnect reports whether a Connect may be issued from this state
func (s Status) CanConnect() bool {
	return s == StatusReady || s == StatusFailed
}

var (
	transitionalStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	goodStyle         = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	failedStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

// Style returns the colour used to render the status
func (s Status) Style() lipgloss.Style {
	switch s {
	case StatusReady, StatusConnected:
		return goodStyle
	case StatusFailed:
		return failedStyle
	default:
		return transitionalStyle
	}
}

// statusForEvent returns the display state for an event and an optional message
func statusForEvent(ev control.Event) (Status, string) {
	switch e := ev.(type) {
	case control.Ready:
		return StatusReady, ""
	case control.SocketConnected:
		return StatusConnected, ""
	case control.SocketCannotConnect:
		return StatusReady, "Error connecting"
	case control.SocketClosed:
		return StatusReady, ""
	case control.SocketReconnecting:
		return StatusReconnecting, "Connection lost, reconnecting..."
	case control.AudioStreamError:
		return StatusFailed, e.Message
	default:
		return StatusFailed, "Unknown event"
	}
}

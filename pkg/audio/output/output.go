// ABOUTME: Audio output session interface and backend selection
// ABOUTME: Opens a playback stream that drains a sample buffer consumer
package output

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fastmic/fastmic-go/pkg/audio"
	"github.com/fastmic/fastmic-go/pkg/audio/ring"
)

var (
	// ErrNoDevice is returned when the backend reports no playback device
	ErrNoDevice = errors.New("no audio output device")

	// ErrDevice is returned when a device or stream cannot be opened
	ErrDevice = errors.New("audio device error")

	// ErrStream is returned when a running stream cannot be paused
	ErrStream = errors.New("audio stream error")
)

// Backend names an output implementation
type Backend string

const (
	BackendMalgo Backend = "malgo"
	BackendOto   Backend = "oto"
)

const (
	// DefaultDeviceName is the virtual cable input preferred when present
	DefaultDeviceName = "CABLE Input"

	// DefaultSampleRate and DefaultChannels apply to backends that need an explicit format
	DefaultSampleRate = 48000
	DefaultChannels   = 2
)

// ParseBackend maps a user-supplied name to a Backend
func ParseBackend(name string) (Backend, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(name))) {
	case "", BackendMalgo:
		return BackendMalgo, nil
	case BackendOto:
		return BackendOto, nil
	default:
		return "", fmt.Errorf("unknown audio backend %q (supported: malgo, oto)", name)
	}
}

// Config selects and configures the output backend
type Config struct {
	// Backend is the implementation to use (default: malgo)
	Backend Backend

	// DeviceName is matched as a prefix against playback device names (default: "CABLE Input")
	DeviceName string

	// SampleRate and Channels are used only by backends without device negotiation
	SampleRate int
	Channels   int
}

func (c Config) withDefaults() Config {
	if c.Backend == "" {
		c.Backend = BackendMalgo
	}
	if c.DeviceName == "" {
		c.DeviceName = DefaultDeviceName
	}
	if c.SampleRate <= 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.Channels <= 0 {
		c.Channels = DefaultChannels
	}
	return c
}

// StreamInfo describes an opened stream
type StreamInfo struct {
	Device     string
	Format     audio.SampleFormat
	Channels   int
	SampleRate int
}

// Session is one playing output stream
type Session interface {
	// Stop pauses playback; the callback no longer touches the consumer afterwards
	Stop() error

	// Close releases the device
	Close() error

	// Underruns reports how often the callback played silence
	Underruns() uint64

	// Info describes the opened stream
	Info() StreamInfo
}

// Open starts playback on the configured backend. The session takes ownership of consumer.
func Open(cfg Config, consumer *ring.Consumer) (Session, error) {
	cfg = cfg.withDefaults()

	switch cfg.Backend {
	case BackendMalgo:
		return openMalgo(cfg, consumer)
	case BackendOto:
		return openOto(cfg, consumer)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrDevice, cfg.Backend)
	}
}

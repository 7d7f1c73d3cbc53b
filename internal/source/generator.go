// ABOUTME: Sample generators for the reference PCM source
// ABOUTME: Produces a 440Hz tone or digital silence as mono 16-bit samples
package source

import (
	"fmt"
	"math"
)

// Mode selects what the source streams
type Mode string

const (
	ModeTone    Mode = "tone"
	ModeSilence Mode = "silence"
)

// ParseMode validates a mode name
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeTone, ModeSilence:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown source mode %q (want tone or silence)", s)
	}
}

// Generator fills a buffer with mono samples
type Generator interface {
	Read(samples []int16)
}

// NewGenerator creates a fresh generator for one connection
func NewGenerator(mode Mode, sampleRate int) Generator {
	if mode == ModeSilence {
		return Silence{}
	}
	return NewTone(440.0, sampleRate)
}

// Tone generates a sine wave at half volume
type Tone struct {
	frequency   float64
	sampleRate  int
	sampleIndex uint64
}

// NewTone creates a tone generator
func NewTone(frequency float64, sampleRate int) *Tone {
	return &Tone{
		frequency:  frequency,
		sampleRate: sampleRate,
	}
}

func (t *Tone) Read(samples []int16) {
	for i := range samples {
		pos := float64(t.sampleIndex+uint64(i)) / float64(t.sampleRate)
		samples[i] = int16(math.Sin(2*math.Pi*t.frequency*pos) * 32767.0 * 0.5)
	}
	t.sampleIndex += uint64(len(samples))
}

// Silence generates zeros
type Silence struct{}

func (Silence) Read(samples []int16) {
	clear(samples)
}

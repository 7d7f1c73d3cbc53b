// ABOUTME: Audio output tests
// ABOUTME: Covers device selection, backend parsing and the callback fill paths
package output

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/fastmic/fastmic-go/pkg/audio"
	"github.com/fastmic/fastmic-go/pkg/audio/ring"
	"github.com/gen2brain/malgo"
)

func TestMalgoImplementsSession(t *testing.T) {
	var _ Session = (*Malgo)(nil)
}

func TestOtoImplementsSession(t *testing.T) {
	var _ Session = (*Oto)(nil)
}

func TestSelectDevice(t *testing.T) {
	devices := []DeviceEntry{
		{Name: "Speakers (Realtek)"},
		{Name: "CABLE Input (VB-Audio Virtual Cable)\x00\x00"},
		{Name: "Headphones", IsDefault: true},
	}

	tests := []struct {
		name     string
		devices  []DeviceEntry
		prefix   string
		expected int
		err      error
	}{
		{"prefix match wins", devices, "CABLE Input", 1, nil},
		{"fallback to default", devices, "Missing Device", 2, nil},
		{"empty prefix uses default", devices, "", 2, nil},
		{"no default flagged", devices[:2], "Missing", -1, nil},
		{"prefix is not substring", devices, "Realtek", 2, nil},
		{"no devices", nil, "CABLE Input", -1, ErrNoDevice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := SelectDevice(tt.devices, tt.prefix)
			if !errors.Is(err, tt.err) {
				t.Fatalf("expected error %v, got %v", tt.err, err)
			}
			if idx != tt.expected {
				t.Errorf("expected index %d, got %d", tt.expected, idx)
			}
		})
	}
}

func TestParseBackend(t *testing.T) {
	tests := []struct {
		input    string
		expected Backend
		wantErr  bool
	}{
		{"", BackendMalgo, false},
		{"malgo", BackendMalgo, false},
		{" OTO ", BackendOto, false},
		{"portaudio", "", true},
	}

	for _, tt := range tests {
		got, err := ParseBackend(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("%q: unexpected error state %v", tt.input, err)
		}
		if got != tt.expected {
			t.Errorf("%q: expected %q, got %q", tt.input, tt.expected, got)
		}
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()

	if cfg.Backend != BackendMalgo {
		t.Errorf("expected malgo backend, got %q", cfg.Backend)
	}
	if cfg.DeviceName != DefaultDeviceName {
		t.Errorf("expected device name %q, got %q", DefaultDeviceName, cfg.DeviceName)
	}
	if cfg.SampleRate != DefaultSampleRate || cfg.Channels != DefaultChannels {
		t.Errorf("expected %dHz %dch, got %dHz %dch",
			DefaultSampleRate, DefaultChannels, cfg.SampleRate, cfg.Channels)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	_, consumer := ring.New(4)
	_, err := Open(Config{Backend: "alsa"}, consumer)
	if !errors.Is(err, ErrDevice) {
		t.Errorf("expected ErrDevice, got %v", err)
	}
}

func TestFromMalgoFormat(t *testing.T) {
	tests := []struct {
		input    malgo.FormatType
		expected audio.SampleFormat
	}{
		{malgo.FormatF32, audio.FormatF32},
		{malgo.FormatS16, audio.FormatS16},
		{malgo.FormatS24, audio.FormatS24},
		{malgo.FormatS32, audio.FormatS32},
		{malgo.FormatU8, audio.FormatU8},
		{malgo.FormatUnknown, audio.FormatUnknown},
	}

	for _, tt := range tests {
		if got := fromMalgoFormat(tt.input); got != tt.expected {
			t.Errorf("format %d: expected %s, got %s", tt.input, tt.expected, got)
		}
	}
}

func TestMalgoCallbackUpmixAndSilence(t *testing.T) {
	producer, consumer := ring.New(8)
	producer.Push(1000)
	producer.Push(-1000)

	m := &Malgo{
		consumer: consumer,
		next:     consumer.Next,
		info:     StreamInfo{Format: audio.FormatS16, Channels: 2},
	}

	out := make([]byte, 3*2*2) // 3 frames, stereo, S16
	m.dataCallback(out, nil, 3)

	expected := []int16{1000, 1000, -1000, -1000, 0, 0}
	for i, want := range expected {
		got := int16(binary.LittleEndian.Uint16(out[i*2:]))
		if got != want {
			t.Errorf("sample %d: expected %d, got %d", i, want, got)
		}
	}
	if m.Underruns() != 1 {
		t.Errorf("expected 1 underrun, got %d", m.Underruns())
	}
}

func TestMalgoCallbackAfterStopLeavesBuffer(t *testing.T) {
	producer, consumer := ring.New(8)
	producer.Push(500)

	m := &Malgo{
		consumer: consumer,
		next:     consumer.Next,
		info:     StreamInfo{Format: audio.FormatS16, Channels: 1},
	}
	m.stopped.Store(true)

	out := []byte{0xAA, 0xAA}
	m.dataCallback(out, nil, 1)

	if out[0] != 0 || out[1] != 0 {
		t.Errorf("expected silence after stop, got % x", out)
	}
	if consumer.Len() != 1 {
		t.Errorf("expected buffer untouched, len=%d", consumer.Len())
	}
}

func TestConsumerReaderWholeFrames(t *testing.T) {
	producer, consumer := ring.New(8)
	producer.Push(7)

	r := &consumerReader{next: consumer.Next, channels: 2}
	p := make([]byte, 10) // two whole stereo frames plus two stray bytes

	n, err := r.Read(p)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if n != 8 {
		t.Fatalf("expected 8 bytes, got %d", n)
	}

	expected := []int16{7, 7, 0, 0}
	for i, want := range expected {
		got := int16(binary.LittleEndian.Uint16(p[i*2:]))
		if got != want {
			t.Errorf("sample %d: expected %d, got %d", i, want, got)
		}
	}
}

func TestConsumerReaderStopped(t *testing.T) {
	producer, consumer := ring.New(8)
	producer.Push(7)

	r := &consumerReader{next: consumer.Next, channels: 1}
	r.stopped.Store(true)

	p := []byte{1, 1}
	if _, err := r.Read(p); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if p[0] != 0 || p[1] != 0 {
		t.Errorf("expected silence, got % x", p)
	}
	if consumer.Len() != 1 {
		t.Errorf("expected buffer untouched, len=%d", consumer.Len())
	}
}

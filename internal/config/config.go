// ABOUTME: Player settings file loaded from and saved to YAML
// ABOUTME: Holds last address, output device, backend and buffer sizing
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fastmic/fastmic-go/pkg/audio/output"
	"github.com/fastmic/fastmic-go/pkg/audio/ring"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the settings file name used when no path is given
const DefaultFile = "fastmic.yaml"

// Config holds persisted player settings
type Config struct {
	// Address is the last source address (ip:port)
	Address string `yaml:"address"`

	// DeviceName selects the first output device whose name starts with it
	DeviceName string `yaml:"device_name"`

	// Backend is the audio output backend ("malgo" or "oto")
	Backend string `yaml:"backend"`

	// BufferCapacity is the sample buffer size in samples
	BufferCapacity int `yaml:"buffer_capacity"`

	// SampleRate is used by backends that cannot report a native rate
	SampleRate int `yaml:"sample_rate"`

	// Channels is used by backends that cannot report a native layout
	Channels int `yaml:"channels"`
}

// Default returns settings with every field populated
func Default() *Config {
	return &Config{
		DeviceName:     output.DefaultDeviceName,
		Backend:        string(output.BackendMalgo),
		BufferCapacity: ring.DefaultCapacity,
		SampleRate:     output.DefaultSampleRate,
		Channels:       output.DefaultChannels,
	}
}

// Load reads the YAML settings at path. A missing file yields defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML settings from r over the defaults and validates them
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid field at once
func (c *Config) Validate() error {
	var errs []error

	if _, err := output.ParseBackend(c.Backend); err != nil {
		errs = append(errs, fmt.Errorf("backend: %w", err))
	}
	if c.BufferCapacity <= 0 {
		errs = append(errs, fmt.Errorf("buffer_capacity %d must be positive", c.BufferCapacity))
	}
	if c.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample_rate %d must be positive", c.SampleRate))
	}
	if c.Channels <= 0 {
		errs = append(errs, fmt.Errorf("channels %d must be positive", c.Channels))
	}

	return errors.Join(errs...)
}

// Save writes the settings to path, creating parent directories
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: encode yaml: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create %q: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %q: %w", path, err)
	}
	return nil
}

// Output returns the audio output configuration
func (c *Config) Output() output.Config {
	backend, _ := output.ParseBackend(c.Backend)
	return output.Config{
		Backend:    backend,
		DeviceName: c.DeviceName,
		SampleRate: c.SampleRate,
		Channels:   c.Channels,
	}
}

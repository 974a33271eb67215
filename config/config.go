package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// AudioConfig holds the render host settings
type AudioConfig struct {
	SampleRate float64 `json:"sampleRate,omitempty"`
	BufferSize int     `json:"bufferSize,omitempty"`
}

// TransportConfig holds the default musical timing
type TransportConfig struct {
	Tempo        float64 `json:"tempo,omitempty"`
	TimeSigNum   int     `json:"timeSigNum,omitempty"`
	TimeSigDenom int     `json:"timeSigDenom,omitempty"`
}

// MIDIConfig holds MIDI input/output preferences
type MIDIConfig struct {
	InputPort  string `json:"inputPort,omitempty"`  // note input arms layers
	OutputPort string `json:"outputPort,omitempty"` // layer state echo
	Channel    uint8  `json:"channel,omitempty"`
}

// LayerConfig seeds a layer at startup
type LayerConfig struct {
	Name     string  `json:"name"`
	File     string  `json:"file,omitempty"` // WAV to stage on startup
	Tempo    float64 `json:"tempo,omitempty"`
	MIDINote int     `json:"midiNote,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Audio     AudioConfig     `json:"audio,omitempty"`
	Transport TransportConfig `json:"transport,omitempty"`
	MIDI      MIDIConfig      `json:"midi,omitempty"`
	Layers    []LayerConfig   `json:"layers,omitempty"`
	Palette   string          `json:"palette,omitempty"` // .gpl file for the TUI theme
	Debug     bool            `json:"debug,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate: 48000,
			BufferSize: 512,
		},
		Transport: TransportConfig{
			Tempo:        120,
			TimeSigNum:   4,
			TimeSigDenom: 4,
		},
		MIDI: MIDIConfig{
			Channel: 1,
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "loopgrid"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads a config file from an explicit path
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.fillDefaults()
	return cfg, nil
}

// fillDefaults patches zero values a hand-edited file may leave behind
func (c *Config) fillDefaults() {
	d := DefaultConfig()
	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = d.Audio.SampleRate
	}
	if c.Audio.BufferSize <= 0 {
		c.Audio.BufferSize = d.Audio.BufferSize
	}
	if c.Transport.Tempo <= 0 {
		c.Transport.Tempo = d.Transport.Tempo
	}
	if c.Transport.TimeSigNum < 1 {
		c.Transport.TimeSigNum = d.Transport.TimeSigNum
	}
	if c.Transport.TimeSigDenom < 1 {
		c.Transport.TimeSigDenom = d.Transport.TimeSigDenom
	}
}

// Save writes the config to its default location
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to an explicit path, creating the directory
// if needed
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

package loopvm

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Settings configures an engine instance. It is read from a TOML file; any
// field left out keeps its default.
type Settings struct {
	SampleRate   float64 `toml:"sample_rate"`
	BPM          float64 `toml:"bpm"`
	LoopStart    float64 `toml:"loop_start"`
	LoopEnd      float64 `toml:"loop_end"`
	CacheSamples int     `toml:"cache_samples"` // budget of the track cache, in samples
	LogVerbosity int     `toml:"log_verbosity"`
	LogFile      string  `toml:"log_file"`
}

// DefaultSettings returns the settings used when no file is given.
func DefaultSettings() Settings {
	return Settings{
		SampleRate:   48000,
		BPM:          120,
		LoopStart:    0,
		LoopEnd:      16,
		CacheSamples: 64 << 20,
		LogVerbosity: 1,
	}
}

// LoadSettings reads a settings file on top of the defaults.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("cannot read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("invalid settings in %s: %w", path, err)
	}
	return s, nil
}

// Validate checks the settings that the real-time path cannot check itself.
func (s Settings) Validate() error {
	if s.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %v", s.SampleRate)
	}
	if s.BPM <= 0 {
		return fmt.Errorf("bpm must be positive, got %v", s.BPM)
	}
	if s.LoopEnd <= s.LoopStart {
		return fmt.Errorf("loop_end (%v) must be after loop_start (%v)", s.LoopEnd, s.LoopStart)
	}
	if s.CacheSamples <= 0 {
		return fmt.Errorf("cache_samples must be positive, got %v", s.CacheSamples)
	}
	return nil
}

// Clock returns a clock configured by the settings.
func (s Settings) Clock() *Clock {
	c := NewClock(s.SampleRate, s.BPM, s.LoopEnd)
	c.SetLoop(s.LoopStart, s.LoopEnd)
	return c
}

package loopvm_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/loopvm/loopvm"
)

func TestLoadSettingsKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loopvm.toml")
	if err := os.WriteFile(path, []byte("bpm = 90\nloop_end = 8\n"), 0644); err != nil {
		t.Fatal(err)
	}
	s, err := loopvm.LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	def := loopvm.DefaultSettings()
	if s.BPM != 90 || s.LoopEnd != 8 {
		t.Fatalf("values from the file not applied: %+v", s)
	}
	if s.SampleRate != def.SampleRate || s.CacheSamples != def.CacheSamples {
		t.Fatalf("defaults lost: %+v", s)
	}
	c := s.Clock()
	if c.BPM != 90 || c.EndTime != 8 {
		t.Fatalf("clock does not follow the settings: %+v", c)
	}
}

func TestLoadSettingsRejectsInvalid(t *testing.T) {
	for name, text := range map[string]string{
		"syntax":      "bpm = \n",
		"bpm":         "bpm = -1\n",
		"loop":        "loop_start = 4\nloop_end = 4\n",
		"sample rate": "sample_rate = 0\n",
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "loopvm.toml")
			if err := os.WriteFile(path, []byte(text), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := loopvm.LoadSettings(path); err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
}

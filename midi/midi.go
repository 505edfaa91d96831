// Package midi imports note lists from Standard MIDI Files.
package midi

import (
	"fmt"
	"io"
	"os"

	"github.com/loopvm/loopvm"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// AllChannels makes Read take the notes of every channel.
const AllChannels = -1

// File is the part of a MIDI file the engine uses.
type File struct {
	Notes loopvm.Notes // sorted by onset, times in bars of four quarters
	BPM   float64      // first tempo event, 0 if none
}

// ReadFile reads the notes of one channel (or AllChannels) from a file.
func ReadFile(path string, channel int) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		return File{}, fmt.Errorf("cannot open %s: %w", path, err)
	}
	defer f.Close()
	ret, err := Read(f, channel)
	if err != nil {
		return ret, fmt.Errorf("%s: %w", path, err)
	}
	return ret, nil
}

// ReadNotes is a shorthand for reading only the notes of all channels.
func ReadNotes(path string) (loopvm.Notes, error) {
	f, err := ReadFile(path, AllChannels)
	return f.Notes, err
}

// Read reads the notes from a Standard MIDI File. Notes still sounding at
// the end of their track are closed there.
func Read(r io.Reader, channel int) (File, error) {
	s, err := smf.ReadFrom(r)
	if err != nil {
		return File{}, fmt.Errorf("could not read MIDI data: %w", err)
	}
	ticks, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return File{}, fmt.Errorf("SMPTE time format is not supported")
	}
	barTicks := 4 * float64(ticks.Ticks4th())
	var ret File
	for _, track := range s.Tracks {
		var open [16][128]int // index+1 into ret.Notes of the sounding note
		var abs uint64
		for _, ev := range track {
			abs += uint64(ev.Delta)
			bar := float64(abs) / barTicks
			var bpm float64
			if ret.BPM == 0 && ev.Message.GetMetaTempo(&bpm) {
				ret.BPM = bpm
				continue
			}
			msg := gomidi.Message(ev.Message)
			var ch, key, vel uint8
			switch {
			case msg.GetNoteStart(&ch, &key, &vel):
				if channel != AllChannels && int(ch) != channel {
					continue
				}
				closeNote(ret.Notes, &open[ch][key], bar)
				ret.Notes = append(ret.Notes, loopvm.Note{Pitch: float64(key), Time: bar, Velocity: float64(vel) / 127})
				open[ch][key] = len(ret.Notes)
			case msg.GetNoteEnd(&ch, &key):
				closeNote(ret.Notes, &open[ch][key], bar)
			}
		}
		bar := float64(abs) / barTicks
		for ch := range open {
			for key := range open[ch] {
				closeNote(ret.Notes, &open[ch][key], bar)
			}
		}
	}
	ret.Notes.Sort()
	return ret, nil
}

func closeNote(notes loopvm.Notes, open *int, bar float64) {
	if *open == 0 {
		return
	}
	n := &notes[*open-1]
	n.Length = bar - n.Time
	*open = 0
}

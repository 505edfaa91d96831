package player

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"slices"

	"github.com/loopvm/loopvm"
	"github.com/loopvm/loopvm/midi"
	"github.com/loopvm/loopvm/vm"
	"github.com/tliron/commonlog"
	"github.com/zeebo/xxh3"
)

// Scheduler is the control-thread side of the player. It compiles the
// voices of a project, renders them into tracks kept in a Cache, lays the
// tracks out on the next grid and publishes it.
type Scheduler struct {
	player   *Player
	cache    *Cache
	settings loopvm.Settings
	voices   map[string]*vm.Voice
	log      commonlog.Logger
}

type rendered struct {
	floats []float32
	coeff  float64
	pan    float32
	bars   int
}

func NewScheduler(p *Player, settings loopvm.Settings) *Scheduler {
	return &Scheduler{
		player:   p,
		cache:    NewCache(settings.CacheSamples),
		settings: settings,
		voices:   map[string]*vm.Voice{},
		log:      commonlog.GetLogger("loopvm.scheduler"),
	}
}

// Cache returns the track cache.
func (s *Scheduler) Cache() *Cache { return s.cache }

// Voice returns the compiled voice with the given name.
func (s *Scheduler) Voice(name string) (*vm.Voice, bool) {
	v, ok := s.voices[name]
	return v, ok
}

// Load compiles and renders every voice of the project and publishes the
// resulting grid. dir is the directory sample and note files are relative
// to. If a voice fails to compile, Load returns the error and the player
// keeps playing the previous grid.
func (s *Scheduler) Load(p *loopvm.Project, dir string) error {
	settings := p.Apply(s.settings)
	tracks := make(map[string]rendered, len(p.Voices))
	var errs []error
	for i := range p.Voices {
		src := &p.Voices[i]
		r, err := s.render(src, dir, settings)
		if err != nil {
			s.log.Errorf("voice %q: %s", src.Name, err)
			errs = append(errs, fmt.Errorf("voice %q: %w", src.Name, err))
			continue
		}
		tracks[src.Name] = r
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	for name := range s.voices {
		if _, ok := p.Voice(name); !ok {
			delete(s.voices, name)
			s.cache.Evict(name)
		}
	}
	grid := s.player.Bars().Next()
	for _, pl := range p.Tracks {
		r := tracks[pl.Voice]
		for _, bar := range pl.Bars {
			t := &Track{
				Len:    len(r.floats),
				Offset: float64(bar),
				Coeff:  r.coeff,
				Floats: r.floats,
				Pan:    max(-1, min(1, float32(pl.Pan)+r.pan)),
				Vol:    float32(pl.Gain()),
			}
			for k := 0; k < r.bars; k++ {
				if !grid.Add(bar+k, t) {
					s.log.Warningf("bar %d is full or outside the grid, %q dropped there", bar+k, pl.Voice)
				}
			}
		}
	}
	s.SwapBars()
	s.player.Transport().SetBPM(settings.BPM)
	s.player.Transport().SetLoop(settings.LoopStart, settings.LoopEnd)
	s.log.Infof("loaded %d voices, %d placements, cache %d/%d samples", len(p.Voices), len(p.Tracks), s.cache.Used(), settings.CacheSamples)
	return nil
}

// SwapBars publishes the next grid to the player.
func (s *Scheduler) SwapBars() {
	bars := s.player.Bars()
	bars.Swap()
	s.log.Debugf("published grid %d, player at %d", bars.gen, bars.Acked())
}

func (s *Scheduler) render(src *loopvm.VoiceSource, dir string, settings loopvm.Settings) (rendered, error) {
	samples := make([][]float32, len(src.Samples))
	for i, path := range src.Samples {
		data, err := loopvm.LoadSamples(filepath.Join(dir, path))
		if err != nil {
			return rendered{}, err
		}
		samples[i] = data
	}
	notes := slices.Clone(src.Notes)
	if src.NotesFile != "" {
		imported, err := midi.ReadNotes(filepath.Join(dir, src.NotesFile))
		if err != nil {
			return rendered{}, err
		}
		notes = append(notes, imported...)
	}
	notes.Sort()
	if end := notes.Length(); end > src.Length {
		s.log.Warningf("voice %q: notes run until bar %v, past its length %v", src.Name, end, src.Length)
	}
	prog, err := vm.FromSource(src, samples)
	if err != nil {
		return rendered{}, err
	}
	v, ok := s.voices[src.Name]
	if !ok {
		v = vm.NewVoice()
	}
	rebuilt, err := v.Compile(prog)
	if err != nil {
		return rendered{}, err
	}
	s.voices[src.Name] = v
	clock := loopvm.NewClock(settings.SampleRate, settings.BPM, src.Length)
	r := rendered{coeff: clock.Coeff, bars: int(math.Ceil(src.Length))}
	key := CacheKey{Voice: src.Name, Hash: renderHash(prog, notes, src.Length), BPM: settings.BPM, SampleRate: settings.SampleRate}
	if track, ok := s.cache.Get(key); ok {
		s.log.Debugf("voice %q: cached", src.Name)
		r.floats, r.pan = track.Floats, track.Pan
		return r, nil
	}
	n := int(math.Ceil(src.Length / clock.Coeff * settings.SampleRate))
	if err := v.Restart(); err != nil {
		return rendered{}, err
	}
	track, err := s.cache.Alloc(key, n)
	if err != nil {
		return rendered{}, err
	}
	v.Render(clock, notes, track.Floats, 0, n)
	track.Pan = v.Pan()
	s.log.Debugf("voice %q: rendered %d samples (rebuilt %t)", src.Name, n, rebuilt)
	r.floats, r.pan = track.Floats, track.Pan
	return r, nil
}

// renderHash covers everything the rendered track of a voice depends on
// besides tempo and sample rate.
func renderHash(p vm.VoiceProgram, notes loopvm.Notes, length float64) uint64 {
	h := xxh3.New()
	le := binary.LittleEndian
	binary.Write(h, le, p.Literals)
	for _, l := range p.Lists {
		binary.Write(h, le, int32(len(l)))
		binary.Write(h, le, l)
	}
	for _, s := range p.Samples {
		binary.Write(h, le, int32(len(s)))
		binary.Write(h, le, s)
	}
	binary.Write(h, le, int32(len(p.Setup)))
	binary.Write(h, le, p.Setup)
	binary.Write(h, le, p.Run)
	binary.Write(h, le, [2]int32{p.Out.Word(), p.OutRight.Word()})
	binary.Write(h, le, []loopvm.Note(notes))
	binary.Write(h, le, length)
	return h.Sum64()
}

package player

import (
	"fmt"
	"sync/atomic"
)

// Mode is the playback state of the player.
//
//	Idle   silence, clock stopped
//	Reset  clock back to bar zero, then Play
//	Play   normal playback
//	Stop   fade out over one block, then Idle
//	Pause  silence at once, then Idle
type Mode uint32

const (
	Idle Mode = iota
	Reset
	Play
	Stop
	Pause
	numModes
)

var modeNames = [numModes]string{"idle", "reset", "play", "stop", "pause"}

func (m Mode) String() string {
	if m >= numModes {
		return fmt.Sprintf("mode(%d)", uint32(m))
	}
	return modeNames[m]
}

// ModeByName parses the names printed by String.
func ModeByName(name string) (Mode, bool) {
	for i, n := range modeNames {
		if n == name {
			return Mode(i), true
		}
	}
	return Idle, false
}

// modeFlag is the single word shared by the control and the audio thread.
// The last write wins; the audio thread hands Reset, Stop and Pause over to
// their follow-up mode with a compare-and-swap, so a write that arrived in
// the meantime is kept.
type modeFlag struct {
	v atomic.Uint32
}

func (f *modeFlag) Load() Mode   { return Mode(f.v.Load()) }
func (f *modeFlag) Store(m Mode) { f.v.Store(uint32(m)) }

func (f *modeFlag) advance(from, to Mode) bool {
	return f.v.CompareAndSwap(uint32(from), uint32(to))
}

package player_test

import (
	"math"
	"testing"

	"github.com/loopvm/loopvm"
	"github.com/loopvm/loopvm/player"
)

// constantPlayer returns a player whose grid has a track of 0.5 on every bar
// of the default loop.
func constantPlayer(status chan player.Status) *player.Player {
	p := player.NewPlayer(loopvm.DefaultSettings(), status)
	floats := make([]float32, 1000)
	for i := range floats {
		floats[i] = 0.5
	}
	g := p.Bars().Next()
	for bar := 0; bar < 16; bar++ {
		g.Add(bar, &player.Track{Len: len(floats), Offset: float64(bar), Coeff: 0.5, Floats: floats, Vol: 1})
	}
	p.Bars().Swap()
	return p
}

func TestIdleIsSilent(t *testing.T) {
	status := make(chan player.Status, 16)
	p := constantPlayer(status)
	buf := make(loopvm.AudioBuffer, 256)
	buf.Fill(1)
	p.Process(buf)
	for i, f := range buf {
		if f != [2]float32{} {
			t.Fatalf("frame %d: %v", i, f)
		}
	}
	if len(status) != 2 {
		t.Fatalf("expected a status per block, got %d", len(status))
	}
	if s := <-status; s.Mode != player.Idle || s.BarTime != 0 {
		t.Fatalf("idle status %+v", s)
	}
}

func TestPlayFadesInThenPlays(t *testing.T) {
	p := constantPlayer(nil)
	p.SetMode(player.Play)
	buf := make(loopvm.AudioBuffer, 300)
	p.Process(buf[:100])
	p.Process(buf[100:])
	if buf[0][0] >= 0.5 || buf[0][0] <= 0 {
		t.Fatalf("first frame should be fading in, got %v", buf[0])
	}
	for i := player.BlockSize - 1; i < len(buf); i++ {
		if buf[i] != [2]float32{0.5, 0.5} {
			t.Fatalf("frame %d: %v", i, buf[i])
		}
	}
	if p.Mode() != player.Play {
		t.Fatalf("mode %v", p.Mode())
	}
	if p.Bars().Acked() != 1 {
		t.Fatalf("grid not acknowledged")
	}
}

func TestStopFadesOutToIdle(t *testing.T) {
	p := constantPlayer(nil)
	p.SetMode(player.Play)
	p.Process(make(loopvm.AudioBuffer, 2*player.BlockSize))
	p.SetMode(player.Stop)
	buf := make(loopvm.AudioBuffer, player.BlockSize)
	p.Process(buf)
	if buf[0][0] <= 0.49 || buf[player.BlockSize-1] != [2]float32{} {
		t.Fatalf("expected a fade from 0.5 to 0, got %v ... %v", buf[0], buf[player.BlockSize-1])
	}
	if p.Mode() != player.Idle {
		t.Fatalf("stop should end in idle, got %v", p.Mode())
	}
}

func TestPauseSilencesAtOnce(t *testing.T) {
	p := constantPlayer(nil)
	p.SetMode(player.Play)
	p.Process(make(loopvm.AudioBuffer, 2*player.BlockSize))
	p.SetMode(player.Pause)
	buf := make(loopvm.AudioBuffer, player.BlockSize)
	p.Process(buf)
	if buf[0] != [2]float32{} {
		t.Fatalf("pause should be silent at once, got %v", buf[0])
	}
	if p.Mode() != player.Idle {
		t.Fatalf("pause should end in idle, got %v", p.Mode())
	}
}

func TestResetRewindsClock(t *testing.T) {
	status := make(chan player.Status, 64)
	p := constantPlayer(status)
	p.SetMode(player.Play)
	p.Process(make(loopvm.AudioBuffer, 20*player.BlockSize))
	p.SetMode(player.Reset)
	p.Process(make(loopvm.AudioBuffer, player.BlockSize))
	var last player.Status
	for len(status) > 0 {
		last = <-status
	}
	step := 1.0 / 48000 * 120 / 60 / 4
	if want := (player.BlockSize - 1) * step; math.Abs(last.BarTime-want) > 1e-9 {
		t.Fatalf("bar time after reset %v, expected %v", last.BarTime, want)
	}
	if p.Mode() != player.Play {
		t.Fatalf("reset should hand over to play, got %v", p.Mode())
	}
}

func TestTransportSeekAndTempo(t *testing.T) {
	status := make(chan player.Status, 4)
	p := constantPlayer(status)
	p.SetMode(player.Play)
	p.Transport().SetBPM(240)
	p.Transport().Seek(3)
	p.Process(make(loopvm.AudioBuffer, player.BlockSize))
	s := <-status
	if want := 3 + (player.BlockSize-1)/48000.0; math.Abs(s.BarTime-want) > 1e-9 {
		t.Fatalf("bar time %v, expected %v", s.BarTime, want)
	}
	p.Transport().SetLoop(0, 1)
	p.Process(make(loopvm.AudioBuffer, player.BlockSize))
	if s := <-status; s.BarTime >= 1 {
		t.Fatalf("loop window not applied, bar time %v", s.BarTime)
	}
}

func TestTrySend(t *testing.T) {
	c := make(chan int, 1)
	if !player.TrySend(c, 1) || player.TrySend(c, 2) {
		t.Fatalf("TrySend should send once and then drop")
	}
	if player.TrySend[int](nil, 1) {
		t.Fatalf("TrySend to a nil channel should drop")
	}
}

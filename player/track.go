package player

import "math"

// Track is a pre-rendered voice placed on the bar grid. Offset is the bar
// where the track starts and Coeff the bars per second it was rendered at,
// so it plays back at its original speed regardless of the current tempo.
// Len is the number of samples in Floats.
type Track struct {
	Len    int
	Offset float64
	Coeff  float64
	Floats []float32
	Pan    float32 // -1 left, 1 right
	Vol    float32
}

// At returns the track's sample at a bar position, read cyclically and
// interpolated with a cubic Hermite spline. Positions that cannot be
// computed read as silence.
func (t *Track) At(barTime, sampleRate float64) float32 {
	if t.Len <= 0 || t.Len > len(t.Floats) || !(t.Coeff > 0) {
		return 0
	}
	pos := math.Mod((barTime-t.Offset)/t.Coeff*sampleRate, float64(t.Len))
	if math.IsNaN(pos) {
		return 0
	}
	if pos < 0 {
		pos += float64(t.Len)
	}
	if pos >= float64(t.Len) {
		pos = 0
	}
	i := int(pos)
	frac := float32(pos - float64(i))
	x := t.Floats
	n := t.Len
	return hermite(x[(i+n-1)%n], x[i%n], x[(i+1)%n], x[(i+2)%n], frac)
}

// Gains returns the linear pan gains of the track, scaled by its volume.
func (t *Track) Gains() (l, r float32) {
	return max(0, 1-t.Pan) * t.Vol, max(0, 1+t.Pan) * t.Vol
}

func hermite(x0, x1, x2, x3, t float32) float32 {
	c1 := 0.5 * (x2 - x0)
	c2 := x0 - 2.5*x1 + 2*x2 - 0.5*x3
	c3 := 0.5*(x3-x0) + 1.5*(x1-x2)
	return ((c3*t+c2)*t+c1)*t + x1
}

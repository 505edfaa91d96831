package loopvm

type (
	// AudioBuffer is a buffer of stereo frames.
	AudioBuffer [][2]float32

	// AudioContext is a real-time audio output. Play starts calling render
	// from the audio thread whenever the device needs more frames; render must
	// fill the whole buffer it is given.
	AudioContext interface {
		Play(render func(buf AudioBuffer) error) CloserWaiter
		Close() error
	}

	// CloserWaiter stops a playing stream. Wait blocks until the stream has
	// stopped, either because of Close or because render returned an error.
	CloserWaiter interface {
		Close() error
		Wait()
	}
)

// Fill sets every frame of the buffer to value.
func (b AudioBuffer) Fill(value float32) {
	for i := range b {
		b[i] = [2]float32{value, value}
	}
}

// Interleave appends the buffer as interleaved L/R samples to dst.
func (b AudioBuffer) Interleave(dst []float32) []float32 {
	for _, f := range b {
		dst = append(dst, f[0], f[1])
	}
	return dst
}

// FromMono returns a stereo buffer with the same signal in both channels.
func FromMono(mono []float32) AudioBuffer {
	ret := make(AudioBuffer, len(mono))
	for i, v := range mono {
		ret[i] = [2]float32{v, v}
	}
	return ret
}

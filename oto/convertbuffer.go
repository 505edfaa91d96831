package oto

import (
	"encoding/binary"
	"math"

	"github.com/loopvm/loopvm"
)

// putFrames writes the frames as interleaved little-endian float32 samples
// into dst, which must have room for 8 bytes per frame.
func putFrames(dst []byte, frames loopvm.AudioBuffer) {
	for i, f := range frames {
		binary.LittleEndian.PutUint32(dst[8*i:], math.Float32bits(clip(f[0])))
		binary.LittleEndian.PutUint32(dst[8*i+4:], math.Float32bits(clip(f[1])))
	}
}

func clip(x float32) float32 {
	return max(-1, min(1, x))
}

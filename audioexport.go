package loopvm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Wav encodes the buffer as a stereo .wav file at the given sample rate,
// either as 32-bit float or, with pcm16, as 16-bit signed integer samples.
func Wav(buffer AudioBuffer, sampleRate int, pcm16 bool) ([]byte, error) {
	buf := new(bytes.Buffer)
	writeWavHeader(buf, len(buffer)*2, sampleRate, pcm16)
	if err := writeSamples(buf, buffer, pcm16); err != nil {
		return nil, fmt.Errorf("Wav failed: %w", err)
	}
	return buf.Bytes(), nil
}

// Raw encodes the buffer as interleaved little-endian samples without a
// header.
func Raw(buffer AudioBuffer, pcm16 bool) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := writeSamples(buf, buffer, pcm16); err != nil {
		return nil, fmt.Errorf("Raw failed: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSamples(buf *bytes.Buffer, buffer AudioBuffer, pcm16 bool) error {
	var err error
	if pcm16 {
		data := make([]int16, 0, len(buffer)*2)
		for _, f := range buffer {
			data = append(data, toInt16(f[0]), toInt16(f[1]))
		}
		err = binary.Write(buf, binary.LittleEndian, data)
	} else {
		err = binary.Write(buf, binary.LittleEndian, buffer.Interleave(make([]float32, 0, len(buffer)*2)))
	}
	if err != nil {
		return fmt.Errorf("could not binary write data to binary buffer: %w", err)
	}
	return nil
}

func toInt16(v float32) int16 {
	return int16(min(max(int(v*math.MaxInt16), math.MinInt16), math.MaxInt16))
}

// writeWavHeader writes the RIFF header for numSamples interleaved stereo
// samples.
// See http://www-mmsp.ece.mcgill.ca/Documents/AudioFormats/WAVE/WAVE.html
func writeWavHeader(buf *bytes.Buffer, numSamples, sampleRate int, pcm16 bool) {
	const numChannels = 2
	bytesPerSample, fmtChunkSize, waveFormat := 4, 18, 3 // IEEE float
	chunkSize := 50 + bytesPerSample*numSamples
	if pcm16 {
		bytesPerSample, fmtChunkSize, waveFormat = 2, 16, 1 // PCM
		chunkSize = 36 + bytesPerSample*numSamples
	}
	le := binary.LittleEndian
	buf.WriteString("RIFF")
	binary.Write(buf, le, uint32(chunkSize))
	buf.WriteString("WAVEfmt ")
	binary.Write(buf, le, uint32(fmtChunkSize))
	binary.Write(buf, le, uint16(waveFormat))
	binary.Write(buf, le, uint16(numChannels))
	binary.Write(buf, le, uint32(sampleRate))
	binary.Write(buf, le, uint32(sampleRate*numChannels*bytesPerSample)) // avgBytesPerSec
	binary.Write(buf, le, uint16(numChannels*bytesPerSample))            // blockAlign
	binary.Write(buf, le, uint16(8*bytesPerSample))                      // bits per sample
	if !pcm16 {
		binary.Write(buf, le, uint16(0)) // size of extension
		buf.WriteString("fact")
		binary.Write(buf, le, uint32(4))
		binary.Write(buf, le, uint32(numSamples/numChannels))
	}
	buf.WriteString("data")
	binary.Write(buf, le, uint32(bytesPerSample*numSamples))
}

package loopvm_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/loopvm/loopvm"
)

func TestWavHeader(t *testing.T) {
	buffer := loopvm.FromMono([]float32{0, 0.5, -0.5, 1})
	for _, pcm := range []bool{false, true} {
		wav, err := loopvm.Wav(buffer, 44100, pcm)
		if err != nil {
			t.Fatalf("Wav failed: %v", err)
		}
		raw, err := loopvm.Raw(buffer, pcm)
		if err != nil {
			t.Fatalf("Raw failed: %v", err)
		}
		if !bytes.HasPrefix(wav, []byte("RIFF")) || !bytes.Equal(wav[8:16], []byte("WAVEfmt ")) {
			t.Fatalf("not a wav file: % x", wav[:16])
		}
		if !bytes.HasSuffix(wav, raw) {
			t.Fatalf("wav data does not match raw data (pcm %v)", pcm)
		}
		if size := binary.LittleEndian.Uint32(wav[4:]); int(size) != len(wav)-8 {
			t.Fatalf("RIFF chunk size %d, file is %d bytes (pcm %v)", size, len(wav), pcm)
		}
		if rate := binary.LittleEndian.Uint32(wav[24:]); rate != 44100 {
			t.Fatalf("sample rate %d", rate)
		}
	}
}

func TestRawPCMClips(t *testing.T) {
	raw, err := loopvm.Raw(loopvm.AudioBuffer{{2, -2}}, true)
	if err != nil {
		t.Fatal(err)
	}
	l := int16(binary.LittleEndian.Uint16(raw))
	r := int16(binary.LittleEndian.Uint16(raw[2:]))
	if l != 32767 || r != -32768 {
		t.Fatalf("expected clipping, got %d %d", l, r)
	}
}

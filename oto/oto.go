package oto

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/loopvm/loopvm"
)

// Context is the real-time output of the engine on the system's default
// audio device.
type Context struct {
	ctx        *oto.Context
	sampleRate int
}

type stream struct {
	player *oto.Player
	render func(loopvm.AudioBuffer) error
	frames loopvm.AudioBuffer
	err    error
	once   sync.Once
	done   chan struct{}
}

const otoBufferSize = 40 * time.Millisecond

// bufferFrames is the number of frames oto's buffer holds, with room to
// spare.
func bufferFrames(sampleRate int) int {
	return max(1, 2*int(time.Duration(sampleRate)*otoBufferSize/time.Second))
}

// NewContext opens the audio device for stereo float32 output.
func NewContext(sampleRate int) (*Context, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   otoBufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &Context{ctx: ctx, sampleRate: sampleRate}, nil
}

// Play starts pulling audio from render. Render is called from oto's
// goroutine; if it returns an error, playback stops and Wait returns.
func (c *Context) Play(render func(loopvm.AudioBuffer) error) loopvm.CloserWaiter {
	s := &stream{
		render: render,
		frames: make(loopvm.AudioBuffer, bufferFrames(c.sampleRate)),
		done:   make(chan struct{}),
	}
	s.player = c.ctx.NewPlayer(s)
	s.player.Play()
	return s
}

func (c *Context) Close() error {
	if err := c.ctx.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend oto context: %w", err)
	}
	return nil
}

// Read renders into the preallocated frame buffer; requests larger than
// the buffer are served in several renders.
func (s *stream) Read(p []byte) (int, error) {
	written := 0
	for len(p)-written >= 8 {
		n := min((len(p)-written)/8, len(s.frames))
		frames := s.frames[:n]
		if err := s.render(frames); err != nil {
			s.err = err
			s.finish()
			if written > 0 {
				return written, nil
			}
			return 0, io.EOF
		}
		putFrames(p[written:], frames)
		written += 8 * n
	}
	return written, nil
}

func (s *stream) finish() {
	s.once.Do(func() { close(s.done) })
}

// Close stops the stream.
func (s *stream) Close() error {
	err := s.player.Close()
	s.finish()
	if err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return s.err
}

func (s *stream) Wait() {
	<-s.done
}

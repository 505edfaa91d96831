// Package rpc exposes the transport of a running player over net/rpc, so
// that tempo, loop, position and playback mode can be driven from another
// process.
package rpc

import (
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"sync/atomic"

	"github.com/loopvm/loopvm/player"
)

// DefaultPort is the port the play command listens on.
const DefaultPort = 31337

type (
	// Transport is the receiver registered with the rpc server.
	Transport struct {
		player *player.Player
		status atomic.Pointer[player.Status]
	}

	Loop struct {
		Start, End float64
	}

	// Status is the last position reported by the player.
	Status struct {
		Mode       string
		BarTime    float64
		Time       float64
		Generation uint64
		Peak       [2]float32
	}

	Client struct {
		client *rpc.Client
	}
)

var ErrUnknownMode = errors.New("unknown mode")

func NewTransport(p *player.Player) *Transport {
	return &Transport{player: p}
}

// Report records a status sent by the player; Status returns the latest.
func (t *Transport) Report(s player.Status) {
	t.status.Store(&s)
}

func (t *Transport) SetBPM(bpm float64, reply *bool) error {
	if bpm <= 0 {
		return fmt.Errorf("bpm must be positive, got %v", bpm)
	}
	t.player.Transport().SetBPM(bpm)
	*reply = true
	return nil
}

func (t *Transport) SetLoop(l Loop, reply *bool) error {
	if l.End <= l.Start {
		return fmt.Errorf("loop end (%v) must be after start (%v)", l.End, l.Start)
	}
	t.player.Transport().SetLoop(l.Start, l.End)
	*reply = true
	return nil
}

func (t *Transport) Seek(bar float64, reply *bool) error {
	t.player.Transport().Seek(bar)
	*reply = true
	return nil
}

func (t *Transport) SetMode(name string, reply *bool) error {
	m, ok := player.ModeByName(name)
	if !ok {
		return fmt.Errorf("%q: %w", name, ErrUnknownMode)
	}
	t.player.SetMode(m)
	*reply = true
	return nil
}

func (t *Transport) Status(_ int, reply *Status) error {
	s := t.status.Load()
	if s == nil {
		*reply = Status{Mode: t.player.Mode().String()}
		return nil
	}
	*reply = Status{Mode: s.Mode.String(), BarTime: s.BarTime, Time: s.Time, Generation: s.Generation, Peak: s.Peak}
	return nil
}

// Serve accepts connections on l until it is closed.
func Serve(l net.Listener, t *Transport) error {
	server := rpc.NewServer()
	if err := server.Register(t); err != nil {
		return fmt.Errorf("cannot register transport: %w", err)
	}
	go server.Accept(l)
	return nil
}

// Listen starts serving on the given address, e.g. ":31337".
func Listen(address string, t *Transport) (net.Listener, error) {
	l, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("net.Listen failed: %w", err)
	}
	if err := Serve(l, t); err != nil {
		l.Close()
		return nil, err
	}
	return l, nil
}

func Dial(address string) (*Client, error) {
	c, err := rpc.Dial("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("rpc.Dial failed: %w", err)
	}
	return &Client{client: c}, nil
}

func (c *Client) call(method string, args any) error {
	var reply bool
	if err := c.client.Call("Transport."+method, args, &reply); err != nil {
		return fmt.Errorf("Transport.%s: %w", method, err)
	}
	return nil
}

func (c *Client) SetBPM(bpm float64) error         { return c.call("SetBPM", bpm) }
func (c *Client) SetLoop(start, end float64) error { return c.call("SetLoop", Loop{start, end}) }
func (c *Client) Seek(bar float64) error           { return c.call("Seek", bar) }
func (c *Client) SetMode(mode string) error        { return c.call("SetMode", mode) }

func (c *Client) Status() (Status, error) {
	var s Status
	if err := c.client.Call("Transport.Status", 0, &s); err != nil {
		return s, fmt.Errorf("Transport.Status: %w", err)
	}
	return s, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// ABOUTME: TCP session reading a raw PCM microphone stream
// ABOUTME: Decodes, smooths and feeds samples into the sample buffer producer
package stream

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/netip"
	"time"

	"github.com/fastmic/fastmic-go/pkg/audio"
	"github.com/fastmic/fastmic-go/pkg/audio/ring"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

const (
	// ChunkSize is the number of bytes read per fill (1920 mono S16LE samples)
	ChunkSize = 3840

	// DefaultIterations is the number of fills performed by one Seek call
	DefaultIterations = 300

	// DefaultReadTimeout bounds a stalled read
	DefaultReadTimeout = 10 * time.Second
)

var (
	// ErrAddress is returned for malformed addresses; no I/O is attempted
	ErrAddress = errors.New("invalid address")

	// ErrConnection is returned when the remote refuses or is unreachable
	ErrConnection = errors.New("connection failed")

	// ErrSetup is returned when the socket cannot be configured
	ErrSetup = errors.New("socket setup failed")

	// ErrConnectionLost is returned by Seek on any read failure, timeouts included
	ErrConnectionLost = errors.New("connection lost")

	// ErrShutdown is returned when the socket cannot be shut down
	ErrShutdown = errors.New("socket shutdown failed")
)

// Options tunes a session. Zero values select the defaults.
type Options struct {
	// ReadTimeout bounds each chunk read (default: 10s)
	ReadTimeout time.Duration

	// DialTimeout bounds connection setup (default: none beyond the OS)
	DialTimeout time.Duration

	// Iterations is the number of chunk fills per Seek (default: 300)
	Iterations int
}

func (o Options) withDefaults() Options {
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = DefaultReadTimeout
	}
	if o.Iterations <= 0 {
		o.Iterations = DefaultIterations
	}
	return o
}

// Stats holds cumulative counters for one session
type Stats struct {
	Samples int64 // samples pushed into the buffer
	Dropped int64 // samples discarded because the buffer was full
}

// Session owns one TCP connection and the producer half of a sample buffer
type Session struct {
	id       string
	address  netip.AddrPort
	conn     net.Conn
	opts     Options
	producer *ring.Producer
	smoother audio.Smoother
	scratch  [ChunkSize]byte

	emit    func(int16)
	dropped int64
	stats   Stats
	closed  bool
}

// ParseAddress validates an ip:port string without performing any I/O
func ParseAddress(address string) (netip.AddrPort, error) {
	addr, err := netip.ParseAddrPort(address)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("%w %q: %v", ErrAddress, address, err)
	}
	return addr, nil
}

// Dial connects to address and returns a session feeding producer.
// The session takes ownership of producer.
func Dial(address string, producer *ring.Producer, opts Options) (*Session, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	dialer := net.Dialer{Timeout: opts.DialTimeout}
	conn, err := dialer.Dial("tcp", addr.String())
	if err != nil {
		log.Printf("Error connecting to %s: %v", addr, err)
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(opts.ReadTimeout)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %v", ErrSetup, err)
	}

	s := &Session{
		id:       uuid.New().String(),
		address:  addr,
		conn:     conn,
		opts:     opts,
		producer: producer,
	}
	s.emit = s.push

	log.Printf("Session %s connected to %s", s.id, addr)
	return s, nil
}

// ID returns the session identifier used in logs
func (s *Session) ID() string {
	return s.id
}

// Address returns the remote endpoint
func (s *Session) Address() netip.AddrPort {
	return s.address
}

// Stats returns cumulative counters
func (s *Session) Stats() Stats {
	return s.stats
}

// Seek performs up to Options.Iterations chunk fills. Any read failure aborts the
// call with ErrConnectionLost; samples from completed fills stay in the buffer.
func (s *Session) Seek() error {
	for i := 0; i < s.opts.Iterations; i++ {
		if err := s.conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout)); err != nil {
			return fmt.Errorf("%w: %v", ErrConnectionLost, err)
		}

		if _, err := io.ReadFull(s.conn, s.scratch[:]); err != nil {
			log.Printf("Session %s: error reading stream: %v", s.id, err)
			return fmt.Errorf("%w: %v", ErrConnectionLost, err)
		}

		s.dropped = 0
		s.smoother.DecodeS16LE(s.scratch[:], s.emit)
		if s.dropped > 0 {
			log.Printf("Session %s: sample buffer full, dropped %d samples", s.id, s.dropped)
			s.stats.Dropped += s.dropped
		}
	}
	return nil
}

// push hands one smoothed sample to the producer, counting drops
func (s *Session) push(sample int16) {
	if s.producer.Push(sample) {
		s.stats.Samples++
		return
	}
	s.dropped++
}

// Disconnect shuts down both directions and closes the socket.
// Calling it a second time returns ErrShutdown.
func (s *Session) Disconnect() error {
	if s.closed {
		return fmt.Errorf("%w: session %s already disconnected", ErrShutdown, s.id)
	}
	s.closed = true

	var err error
	if hc, ok := s.conn.(halfCloser); ok {
		err = multierr.Append(hc.CloseRead(), hc.CloseWrite())
	}
	err = multierr.Append(err, s.conn.Close())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrShutdown, err)
	}

	log.Printf("Session %s disconnected from %s", s.id, s.address)
	return nil
}

type halfCloser interface {
	CloseRead() error
	CloseWrite() error
}

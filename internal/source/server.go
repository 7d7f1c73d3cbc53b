// ABOUTME: Reference TCP source streaming raw little-endian PCM
// ABOUTME: Paces output in real time and serves each connection independently
package source

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"
)

const (
	// DefaultPort is the port the player connects to by default
	DefaultPort = 8000

	// DefaultSampleRate is the nominal stream rate
	DefaultSampleRate = 48000

	// DefaultTick is the pacing interval between writes
	DefaultTick = 20 * time.Millisecond
)

// Config holds source configuration
type Config struct {
	// Addr is the listen address (default: ":8000")
	Addr string

	// Mode selects tone or silence (default: tone)
	Mode Mode

	// SampleRate sets the pacing rate in samples per second (default: 48000)
	SampleRate int

	// Tick is the interval between writes (default: 20ms)
	Tick time.Duration

	// Generator builds a per-connection generator, overriding Mode
	Generator func() Generator
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = fmt.Sprintf(":%d", DefaultPort)
	}
	if c.Mode == "" {
		c.Mode = ModeTone
	}
	if c.SampleRate <= 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.Tick <= 0 {
		c.Tick = DefaultTick
	}
	return c
}

// Server streams generated PCM to every connected client
type Server struct {
	config   Config
	listener net.Listener

	connsMu sync.Mutex
	conns   map[net.Conn]struct{}

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a source server
func New(config Config) *Server {
	return &Server{
		config:   config.withDefaults(),
		conns:    make(map[net.Conn]struct{}),
		stopChan: make(chan struct{}),
	}
}

// Start begins listening and accepting connections in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	s.listener = ln
	log.Printf("PCM source listening on %s (mode: %s, rate: %d)", ln.Addr(), s.config.Mode, s.config.SampleRate)

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Addr returns the bound listen address
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Stop closes the listener and every client connection, then waits for handlers
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		if s.listener != nil {
			s.listener.Close()
		}

		s.connsMu.Lock()
		for conn := range s.conns {
			conn.Close()
		}
		s.connsMu.Unlock()

		s.wg.Wait()
		log.Printf("PCM source stopped")
	})
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Printf("Accept error: %v", err)
			continue
		}

		s.connsMu.Lock()
		select {
		case <-s.stopChan:
			s.connsMu.Unlock()
			conn.Close()
			return
		default:
		}
		s.conns[conn] = struct{}{}
		s.connsMu.Unlock()

		s.wg.Add(1)
		go s.serve(conn)
	}
}

// serve writes one tick of samples per interval until the client goes away
func (s *Server) serve(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.connsMu.Lock()
		delete(s.conns, conn)
		s.connsMu.Unlock()
		conn.Close()
	}()

	log.Printf("Client connected: %s", conn.RemoteAddr())

	var gen Generator
	if s.config.Generator != nil {
		gen = s.config.Generator()
	} else {
		gen = NewGenerator(s.config.Mode, s.config.SampleRate)
	}
	perTick := int(int64(s.config.SampleRate) * int64(s.config.Tick) / int64(time.Second))
	if perTick < 1 {
		perTick = 1
	}
	samples := make([]int16, perTick)
	buf := make([]byte, perTick*2)

	ticker := time.NewTicker(s.config.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
		}

		gen.Read(samples)
		for i, v := range samples {
			binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
		}
		if _, err := conn.Write(buf); err != nil {
			log.Printf("Client %s gone: %v", conn.RemoteAddr(), err)
			return
		}
	}
}

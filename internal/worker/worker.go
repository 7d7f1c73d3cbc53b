// ABOUTME: Worker state machine owning the session lifecycle
// ABOUTME: Handles connect/disconnect actions, seek cycles and bounded reconnection
package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/fastmic/fastmic-go/internal/observe"
	"github.com/fastmic/fastmic-go/pkg/audio/output"
	"github.com/fastmic/fastmic-go/pkg/audio/ring"
	"github.com/fastmic/fastmic-go/pkg/control"
	"github.com/fastmic/fastmic-go/pkg/stream"
	"go.uber.org/multierr"
)

// LostConnectionMessage is reported once reconnection attempts are exhausted
const LostConnectionMessage = "Lost connection"

// Status is the worker's internal state
type Status int

const (
	StatusReady Status = iota
	StatusConnected
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusConnected:
		return "connected"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// NetworkSession is the reading half of a session pair
type NetworkSession interface {
	Seek() error
	Disconnect() error
	Stats() stream.Stats
}

// AudioSession is the playback half of a session pair
type AudioSession interface {
	Stop() error
	Close() error
	Underruns() uint64
}

// NetworkDialer connects to address and takes ownership of producer
type NetworkDialer func(address string, producer *ring.Producer) (NetworkSession, error)

// AudioOpener starts playback and takes ownership of consumer
type AudioOpener func(consumer *ring.Consumer) (AudioSession, error)

// Policy bounds reconnection after a stream loss
type Policy struct {
	// MaxAttempts is the number of reconnect attempts (default: 5)
	MaxAttempts int

	// Backoff is the pause between attempts (default: 2s)
	Backoff time.Duration

	// Sleep waits between attempts (default: time.Sleep)
	Sleep func(time.Duration)
}

// DefaultPolicy returns 5 attempts spaced 2 seconds apart
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		Backoff:     2 * time.Second,
		Sleep:       time.Sleep,
	}
}

// Config holds worker configuration
type Config struct {
	// BufferCapacity is the sample buffer size per session (default: 10000)
	BufferCapacity int

	// Policy controls reconnection
	Policy Policy

	// Notify is invoked once after every emitted event (UI redraw request)
	Notify func()

	// Dial opens the network session (default: stream.Dial with default options)
	Dial NetworkDialer

	// OpenAudio opens the output session (default: output.Open with default config)
	OpenAudio AudioOpener

	// Metrics receives counters (default: observe.DefaultMetrics)
	Metrics *observe.Metrics
}

// Worker runs the connection state machine on a single goroutine
type Worker struct {
	ep     *control.WorkerEndpoint
	config Config
	ctx    context.Context

	status  Status
	address string
	network NetworkSession
	audio   AudioSession

	lastStats     stream.Stats
	lastUnderruns uint64
}

// New creates a worker bound to the worker end of a control channel
func New(ep *control.WorkerEndpoint, config Config) *Worker {
	if config.BufferCapacity <= 0 {
		config.BufferCapacity = ring.DefaultCapacity
	}
	defaults := DefaultPolicy()
	if config.Policy.MaxAttempts <= 0 {
		config.Policy.MaxAttempts = defaults.MaxAttempts
	}
	if config.Policy.Backoff <= 0 {
		config.Policy.Backoff = defaults.Backoff
	}
	if config.Policy.Sleep == nil {
		config.Policy.Sleep = defaults.Sleep
	}
	if config.Dial == nil {
		config.Dial = DialStream(stream.Options{})
	}
	if config.OpenAudio == nil {
		config.OpenAudio = OpenOutput(output.Config{})
	}
	if config.Metrics == nil {
		config.Metrics = observe.DefaultMetrics()
	}

	return &Worker{
		ep:     ep,
		config: config,
		ctx:    context.Background(),
		status: StatusReady,
	}
}

// Start runs a new worker on its own goroutine. The returned channel closes when it exits.
func Start(ep *control.WorkerEndpoint, config Config) <-chan struct{} {
	done := make(chan struct{})
	w := New(ep, config)
	go func() {
		defer close(done)
		w.Run()
	}()
	return done
}

// DialStream adapts stream.Dial to a NetworkDialer
func DialStream(opts stream.Options) NetworkDialer {
	return func(address string, producer *ring.Producer) (NetworkSession, error) {
		s, err := stream.Dial(address, producer, opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// OpenOutput adapts output.Open to an AudioOpener
func OpenOutput(cfg output.Config) AudioOpener {
	return func(consumer *ring.Consumer) (AudioSession, error) {
		s, err := output.Open(cfg, consumer)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// Run announces readiness and processes actions until Exit or the UI endpoint closes
func (w *Worker) Run() {
	w.emit(control.Ready{})

	for w.step() {
	}

	if w.network != nil || w.audio != nil {
		if err := w.teardown(); err != nil {
			log.Printf("Error releasing session on exit: %v", err)
		}
	}
	w.ep.Close()
	log.Printf("Worker exiting")
}

// step handles one blocking receive (Ready) or one poll (Connected).
// It returns false when the loop should terminate.
func (w *Worker) step() bool {
	switch w.status {
	case StatusReady:
		action, err := w.ep.Receive()
		if err != nil {
			log.Printf("Control channel closed: %v", err)
			return false
		}
		return w.handleReady(action)

	case StatusConnected:
		action, err := w.ep.TryReceive()
		switch {
		case err == nil:
			return w.handleConnected(action)
		case errors.Is(err, control.ErrEmpty):
			w.seek()
			return true
		default:
			log.Printf("Control channel closed: %v", err)
			return false
		}
	}
	return false
}

func (w *Worker) handleReady(action control.Action) bool {
	switch a := action.(type) {
	case control.Connect:
		w.address = a.Address
		network, audio, err := w.connect(false)
		if err != nil {
			w.emit(control.AudioStreamError{Message: err.Error()})
			return true
		}
		w.install(network, audio)
		w.emit(control.SocketConnected{})

	case control.Disconnect:
		log.Printf("Not connected yet")

	case control.Exit:
		return false
	}
	return true
}

func (w *Worker) handleConnected(action control.Action) bool {
	switch action.(type) {
	case control.Connect:
		log.Printf("Already connected to %s", w.address)

	case control.Disconnect:
		if err := w.teardown(); err != nil {
			log.Printf("Error disconnecting: %v", err)
			w.emit(control.AudioStreamError{Message: err.Error()})
			return true
		}
		w.emit(control.SocketClosed{})

	case control.Exit:
		return false
	}
	return true
}

// seek runs one read cycle and drives reconnection when the stream is lost
func (w *Worker) seek() {
	start := time.Now()
	err := w.network.Seek()
	w.config.Metrics.SeekDuration.Record(w.ctx, time.Since(start).Seconds())
	w.recordStats()
	if err == nil {
		return
	}

	log.Printf("Cannot seek from socket: %v", err)
	w.config.Metrics.StreamLosses.Add(w.ctx, 1)
	if terr := w.teardown(); terr != nil {
		log.Printf("Error releasing lost session: %v", terr)
	}
	w.emit(control.SocketReconnecting{})

	policy := w.config.Policy
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			policy.Sleep(policy.Backoff)
		}

		network, audio, err := w.connect(true)
		if err == nil {
			log.Printf("Reconnected to %s on attempt %d", w.address, attempt)
			w.install(network, audio)
			w.emit(control.SocketConnected{})
			return
		}
		log.Printf("Error reconnecting (attempt %d/%d): %v", attempt, policy.MaxAttempts, err)
	}

	w.status = StatusReady
	w.emit(control.AudioStreamError{Message: LostConnectionMessage})
}

// connect builds a fresh buffer and session pair, releasing the audio half if the network half fails
func (w *Worker) connect(reconnect bool) (NetworkSession, AudioSession, error) {
	producer, consumer := ring.New(w.config.BufferCapacity)

	audio, err := w.config.OpenAudio(consumer)
	if err != nil {
		log.Printf("Audio output error: %v", err)
		w.config.Metrics.RecordConnect(w.ctx, reconnect, err)
		return nil, nil, err
	}

	network, err := w.config.Dial(w.address, producer)
	if err != nil {
		log.Printf("Connection error: %v", err)
		if aerr := multierr.Append(audio.Stop(), audio.Close()); aerr != nil {
			log.Printf("Error releasing audio output: %v", aerr)
		}
		w.config.Metrics.RecordConnect(w.ctx, reconnect, err)
		return nil, nil, connectError(err)
	}

	w.config.Metrics.RecordConnect(w.ctx, reconnect, nil)
	return network, audio, nil
}

// connectError maps network failures to user-facing messages
func connectError(err error) error {
	switch {
	case errors.Is(err, stream.ErrAddress):
		return errors.New("Device address invalid")
	case errors.Is(err, stream.ErrConnection):
		return errors.New("Error connecting to device")
	case errors.Is(err, stream.ErrSetup):
		return errors.New("Internal error")
	default:
		return err
	}
}

func (w *Worker) install(network NetworkSession, audio AudioSession) {
	w.network = network
	w.audio = audio
	w.lastStats = stream.Stats{}
	w.lastUnderruns = 0
	w.status = StatusConnected
	w.config.Metrics.ActiveSessions.Add(w.ctx, 1)
}

// teardown releases both sessions. Every step runs even if an earlier one
// fails; ownership is dropped and the worker returns to Ready regardless.
func (w *Worker) teardown() error {
	w.recordStats()

	var err error
	if w.network != nil {
		err = multierr.Append(err, w.network.Disconnect())
	}
	if w.audio != nil {
		err = multierr.Append(err, w.audio.Stop())
		err = multierr.Append(err, w.audio.Close())
	}
	if w.network != nil || w.audio != nil {
		w.config.Metrics.ActiveSessions.Add(w.ctx, -1)
	}

	w.network = nil
	w.audio = nil
	w.status = StatusReady
	return err
}

// recordStats forwards counter deltas from the live sessions to metrics
func (w *Worker) recordStats() {
	if w.network != nil {
		stats := w.network.Stats()
		if d := stats.Samples - w.lastStats.Samples; d > 0 {
			w.config.Metrics.SamplesReceived.Add(w.ctx, d)
		}
		if d := stats.Dropped - w.lastStats.Dropped; d > 0 {
			w.config.Metrics.SamplesDropped.Add(w.ctx, d)
		}
		w.lastStats = stats
	}
	if w.audio != nil {
		underruns := w.audio.Underruns()
		if d := underruns - w.lastUnderruns; underruns > w.lastUnderruns {
			w.config.Metrics.Underruns.Add(w.ctx, int64(d))
		}
		w.lastUnderruns = underruns
	}
}

// emit sends an event to the UI and requests a redraw
func (w *Worker) emit(event control.Event) {
	log.Printf("Worker event: %s", event)
	if err := w.ep.Send(event); err != nil {
		log.Printf("Cannot send %s: %v", event, err)
	}
	if w.config.Notify != nil {
		w.config.Notify()
	}
}

// ABOUTME: Tests for the worker state machine
// ABOUTME: Drives transitions with fake sessions and an injected backoff clock
package worker

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/fastmic/fastmic-go/internal/observe"
	"github.com/fastmic/fastmic-go/pkg/audio/ring"
	"github.com/fastmic/fastmic-go/pkg/control"
	"github.com/fastmic/fastmic-go/pkg/stream"
	"go.opentelemetry.io/otel/metric/noop"
)

type fakeNetwork struct {
	seekErrs      []error
	seeks         int
	disconnects   int
	disconnectErr error
	stats         stream.Stats
}

func (f *fakeNetwork) Seek() error {
	f.seeks++
	f.stats.Samples += 10
	if len(f.seekErrs) == 0 {
		return nil
	}
	err := f.seekErrs[0]
	f.seekErrs = f.seekErrs[1:]
	return err
}

func (f *fakeNetwork) Disconnect() error {
	f.disconnects++
	return f.disconnectErr
}

func (f *fakeNetwork) Stats() stream.Stats { return f.stats }

type fakeAudio struct {
	consumer *ring.Consumer
	stops    int
	closes   int
	stopErr  error
	closeErr error
}

func (f *fakeAudio) Stop() error {
	f.stops++
	return f.stopErr
}

func (f *fakeAudio) Close() error {
	f.closes++
	return f.closeErr
}

func (f *fakeAudio) Underruns() uint64 { return 0 }

// harness wires a worker to fakes and records everything it does
type harness struct {
	t        *testing.T
	ui       *control.UIEndpoint
	worker   *Worker
	notifies int
	sleeps   []time.Duration

	dialErrs []error // consumed per dial; nil entries succeed
	dials    []string
	networks []*fakeNetwork
	nextNet  func() *fakeNetwork
	audioErr error
	audios   []*fakeAudio
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{t: t}
	h.nextNet = func() *fakeNetwork { return &fakeNetwork{} }

	metrics, err := observe.NewMetrics(noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}

	ui, ep := control.NewPair()
	h.ui = ui
	h.worker = New(ep, Config{
		BufferCapacity: 64,
		Policy: Policy{
			MaxAttempts: 5,
			Backoff:     2 * time.Second,
			Sleep: func(d time.Duration) {
				h.sleeps = append(h.sleeps, d)
			},
		},
		Notify: func() { h.notifies++ },
		Dial: func(address string, producer *ring.Producer) (NetworkSession, error) {
			h.dials = append(h.dials, address)
			if len(h.dialErrs) > 0 {
				err := h.dialErrs[0]
				h.dialErrs = h.dialErrs[1:]
				if err != nil {
					return nil, err
				}
			}
			n := h.nextNet()
			h.networks = append(h.networks, n)
			return n, nil
		},
		OpenAudio: func(consumer *ring.Consumer) (AudioSession, error) {
			if h.audioErr != nil {
				return nil, h.audioErr
			}
			a := &fakeAudio{consumer: consumer}
			h.audios = append(h.audios, a)
			return a, nil
		},
		Metrics: metrics,
	})
	return h
}

func (h *harness) send(action control.Action) {
	h.t.Helper()
	if err := h.ui.Send(action); err != nil {
		h.t.Fatalf("Send failed: %v", err)
	}
}

func (h *harness) step() bool {
	return h.worker.step()
}

// events drains every pending event
func (h *harness) events() []control.Event {
	var out []control.Event
	for {
		ev, err := h.ui.TryReceive()
		if err != nil {
			return out
		}
		out = append(out, ev)
	}
}

func (h *harness) connect() {
	h.t.Helper()
	h.send(control.Connect{Address: "127.0.0.1:8000"})
	if !h.step() {
		h.t.Fatal("step returned false on connect")
	}
	evs := h.events()
	if len(evs) != 1 || evs[0] != (control.SocketConnected{}) {
		h.t.Fatalf("expected [SocketConnected], got %v", evs)
	}
}

func TestConnectFromReady(t *testing.T) {
	h := newHarness(t)
	h.connect()

	if h.worker.status != StatusConnected {
		t.Errorf("expected connected, got %s", h.worker.status)
	}
	if len(h.dials) != 1 || h.dials[0] != "127.0.0.1:8000" {
		t.Errorf("unexpected dials: %v", h.dials)
	}
	if len(h.audios) != 1 {
		t.Errorf("expected 1 audio session, got %d", len(h.audios))
	}
	if h.notifies != 1 {
		t.Errorf("expected 1 notify, got %d", h.notifies)
	}
}

func TestConnectErrors(t *testing.T) {
	tests := []struct {
		name     string
		dialErr  error
		audioErr error
		want     string
		opened   bool
	}{
		{"address", fmt.Errorf("bad: %w", stream.ErrAddress), nil, "Device address invalid", true},
		{"connection", fmt.Errorf("refused: %w", stream.ErrConnection), nil, "Error connecting to device", true},
		{"setup", fmt.Errorf("opts: %w", stream.ErrSetup), nil, "Internal error", true},
		{"audio", nil, errors.New("no audio output device"), "no audio output device", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.dialErrs = []error{tt.dialErr}
			h.audioErr = tt.audioErr

			h.send(control.Connect{Address: "x"})
			if !h.step() {
				t.Fatal("step returned false")
			}

			evs := h.events()
			want := control.AudioStreamError{Message: tt.want}
			if len(evs) != 1 || evs[0] != want {
				t.Fatalf("expected [%v], got %v", want, evs)
			}
			if h.worker.status != StatusReady {
				t.Errorf("expected ready, got %s", h.worker.status)
			}
			if tt.opened {
				if len(h.audios) != 1 || h.audios[0].stops != 1 || h.audios[0].closes != 1 {
					t.Errorf("expected audio session released after dial failure")
				}
			} else if len(h.dials) != 0 {
				t.Errorf("expected no dial when audio fails, got %d", len(h.dials))
			}
		})
	}
}

func TestInvalidAddressWithRealDialer(t *testing.T) {
	h := newHarness(t)
	h.worker.config.Dial = DialStream(stream.Options{})

	h.send(control.Connect{Address: "localhost:8000"})
	h.step()

	evs := h.events()
	want := control.AudioStreamError{Message: "Device address invalid"}
	if len(evs) != 1 || evs[0] != want {
		t.Fatalf("expected [%v], got %v", want, evs)
	}
}

func TestDisconnectWhileReadyIsIgnored(t *testing.T) {
	h := newHarness(t)
	h.send(control.Disconnect{})
	if !h.step() {
		t.Fatal("step returned false")
	}

	if evs := h.events(); len(evs) != 0 {
		t.Errorf("expected no events, got %v", evs)
	}
	if h.notifies != 0 {
		t.Errorf("expected no notify, got %d", h.notifies)
	}
	if h.worker.status != StatusReady {
		t.Errorf("expected ready, got %s", h.worker.status)
	}
}

func TestConnectWhileConnectedIsIgnored(t *testing.T) {
	h := newHarness(t)
	h.connect()

	h.send(control.Connect{Address: "10.0.0.1:9000"})
	h.step()

	if evs := h.events(); len(evs) != 0 {
		t.Errorf("expected no events, got %v", evs)
	}
	if len(h.dials) != 1 {
		t.Errorf("expected no new session, got %d dials", len(h.dials))
	}
	if h.networks[0].seeks != 0 {
		t.Errorf("expected pending action handled instead of seeking")
	}
	if h.worker.status != StatusConnected {
		t.Errorf("expected connected, got %s", h.worker.status)
	}
}

func TestSeekWhenIdle(t *testing.T) {
	h := newHarness(t)
	h.connect()

	for i := 0; i < 3; i++ {
		h.step()
	}
	if h.networks[0].seeks != 3 {
		t.Errorf("expected 3 seeks, got %d", h.networks[0].seeks)
	}
	if evs := h.events(); len(evs) != 0 {
		t.Errorf("expected no events, got %v", evs)
	}
}

func TestDisconnect(t *testing.T) {
	h := newHarness(t)
	h.connect()

	h.send(control.Disconnect{})
	h.step()

	evs := h.events()
	if len(evs) != 1 || evs[0] != (control.SocketClosed{}) {
		t.Fatalf("expected [SocketClosed], got %v", evs)
	}
	if h.worker.status != StatusReady {
		t.Errorf("expected ready, got %s", h.worker.status)
	}
	if h.networks[0].disconnects != 1 {
		t.Errorf("expected network disconnected once, got %d", h.networks[0].disconnects)
	}
	if h.audios[0].stops != 1 || h.audios[0].closes != 1 {
		t.Errorf("expected audio stopped and closed")
	}
	if h.worker.network != nil || h.worker.audio != nil {
		t.Errorf("expected sessions released")
	}
	if h.notifies != 2 {
		t.Errorf("expected 2 notifies, got %d", h.notifies)
	}
}

func TestDisconnectFailureStillReleases(t *testing.T) {
	h := newHarness(t)
	h.nextNet = func() *fakeNetwork {
		return &fakeNetwork{disconnectErr: stream.ErrShutdown}
	}
	h.connect()

	h.send(control.Disconnect{})
	h.step()

	evs := h.events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event, got %v", evs)
	}
	ase, ok := evs[0].(control.AudioStreamError)
	if !ok {
		t.Fatalf("expected AudioStreamError, got %v", evs[0])
	}
	if ase.Message != stream.ErrShutdown.Error() {
		t.Errorf("expected %q, got %q", stream.ErrShutdown.Error(), ase.Message)
	}
	if h.worker.status != StatusReady {
		t.Errorf("expected ready, got %s", h.worker.status)
	}
	if h.audios[0].stops != 1 || h.audios[0].closes != 1 {
		t.Errorf("expected audio release to run despite network failure")
	}
}

func TestReconnectSucceeds(t *testing.T) {
	h := newHarness(t)
	h.nextNet = func() *fakeNetwork {
		if len(h.networks) == 0 {
			return &fakeNetwork{seekErrs: []error{stream.ErrConnectionLost}}
		}
		return &fakeNetwork{}
	}
	h.connect()

	// First two reconnect attempts fail, third succeeds
	h.dialErrs = []error{stream.ErrConnection, stream.ErrConnection, nil}
	h.step()

	evs := h.events()
	want := []control.Event{control.SocketReconnecting{}, control.SocketConnected{}}
	if len(evs) != len(want) {
		t.Fatalf("expected %v, got %v", want, evs)
	}
	for i := range want {
		if evs[i] != want[i] {
			t.Errorf("event %d: expected %v, got %v", i, want[i], evs[i])
		}
	}
	if len(h.sleeps) != 2 {
		t.Errorf("expected 2 backoff sleeps, got %d", len(h.sleeps))
	}
	if h.worker.status != StatusConnected {
		t.Errorf("expected connected, got %s", h.worker.status)
	}
	if h.networks[0].disconnects != 1 || h.audios[0].closes != 1 {
		t.Errorf("expected lost session torn down before reconnecting")
	}
	if h.dials[len(h.dials)-1] != "127.0.0.1:8000" {
		t.Errorf("expected reconnect to the last address, got %s", h.dials[len(h.dials)-1])
	}
}

func TestReconnectExhausted(t *testing.T) {
	h := newHarness(t)
	h.nextNet = func() *fakeNetwork {
		return &fakeNetwork{seekErrs: []error{stream.ErrConnectionLost}}
	}
	h.connect()

	h.dialErrs = []error{
		stream.ErrConnection, stream.ErrConnection, stream.ErrConnection,
		stream.ErrConnection, stream.ErrConnection,
	}
	h.step()

	if got := len(h.dials) - 1; got != 5 {
		t.Errorf("expected 5 reconnect attempts, got %d", got)
	}
	if len(h.sleeps) != 4 {
		t.Errorf("expected 4 backoff sleeps, got %d", len(h.sleeps))
	}
	for i, d := range h.sleeps {
		if d < 2*time.Second {
			t.Errorf("sleep %d: expected at least 2s, got %v", i, d)
		}
	}

	evs := h.events()
	want := []control.Event{
		control.SocketReconnecting{},
		control.AudioStreamError{Message: LostConnectionMessage},
	}
	if len(evs) != len(want) {
		t.Fatalf("expected %v, got %v", want, evs)
	}
	for i := range want {
		if evs[i] != want[i] {
			t.Errorf("event %d: expected %v, got %v", i, want[i], evs[i])
		}
	}
	if h.worker.status != StatusReady {
		t.Errorf("expected ready, got %s", h.worker.status)
	}
	if h.notifies != 3 {
		t.Errorf("expected 3 notifies, got %d", h.notifies)
	}
	// Every opened audio session must have been released
	for i, a := range h.audios {
		if a.closes != 1 {
			t.Errorf("audio session %d: expected closed once, got %d", i, a.closes)
		}
	}
}

func TestExit(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		h := newHarness(t)
		h.send(control.Exit{})
		if h.step() {
			t.Error("expected step to stop on Exit")
		}
		if evs := h.events(); len(evs) != 0 {
			t.Errorf("expected no events, got %v", evs)
		}
	})

	t.Run("connected", func(t *testing.T) {
		h := newHarness(t)
		h.connect()
		h.send(control.Exit{})
		if h.step() {
			t.Error("expected step to stop on Exit")
		}
	})
}

func TestPeerGone(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		h := newHarness(t)
		h.ui.Close()
		if h.step() {
			t.Error("expected step to stop when UI is gone")
		}
	})

	t.Run("connected", func(t *testing.T) {
		h := newHarness(t)
		h.connect()
		h.ui.Close()
		if h.step() {
			t.Error("expected step to stop when UI is gone")
		}
	})
}

func TestRunEmitsReadyAndReleasesOnExit(t *testing.T) {
	h := newHarness(t)
	h.send(control.Connect{Address: "127.0.0.1:8000"})
	h.send(control.Exit{})

	done := make(chan struct{})
	go func() {
		h.worker.Run()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not exit")
	}

	evs := h.events()
	want := []control.Event{control.Ready{}, control.SocketConnected{}}
	if len(evs) != len(want) {
		t.Fatalf("expected %v, got %v", want, evs)
	}
	for i := range want {
		if evs[i] != want[i] {
			t.Errorf("event %d: expected %v, got %v", i, want[i], evs[i])
		}
	}
	if h.notifies != len(evs) {
		t.Errorf("expected one notify per event (%d), got %d", len(evs), h.notifies)
	}
	if h.networks[0].disconnects != 1 || h.audios[0].closes != 1 {
		t.Error("expected session released on exit")
	}
	if err := h.ui.Send(control.Disconnect{}); !errors.Is(err, control.ErrPeerGone) {
		t.Errorf("expected ErrPeerGone after worker exit, got %v", err)
	}
}

func TestStartReturnsDoneChannel(t *testing.T) {
	ui, ep := control.NewPair()
	done := Start(ep, Config{
		OpenAudio: func(*ring.Consumer) (AudioSession, error) { return &fakeAudio{}, nil },
	})

	ev, err := ui.Receive()
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if ev != (control.Ready{}) {
		t.Errorf("expected Ready, got %v", ev)
	}

	ui.Close()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not exit after UI closed")
	}
}

func TestStatusString(t *testing.T) {
	if StatusReady.String() != "ready" {
		t.Errorf("expected ready, got %s", StatusReady)
	}
	if StatusConnected.String() != "connected" {
		t.Errorf("expected connected, got %s", StatusConnected)
	}
}

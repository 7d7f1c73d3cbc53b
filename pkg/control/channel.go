// ABOUTME: Paired mailboxes connecting the UI and the worker
// ABOUTME: Non-blocking send, blocking and polling receive, peer-gone detection
package control

import (
	"errors"
	"sync"
)

var (
	// ErrEmpty is returned by TryReceive when no message is queued
	ErrEmpty = errors.New("control: no message pending")

	// ErrPeerGone is returned once the other endpoint has been closed
	ErrPeerGone = errors.New("control: peer endpoint closed")
)

// mailbox is an unbounded one-directional queue with one sender and one receiver
type mailbox[T any] struct {
	mu           sync.Mutex
	queue        []T
	ready        chan struct{}
	senderGone   bool
	receiverGone bool
}

func newMailbox[T any]() *mailbox[T] {
	return &mailbox[T]{ready: make(chan struct{}, 1)}
}

func (m *mailbox[T]) send(msg T) error {
	m.mu.Lock()
	if m.receiverGone {
		m.mu.Unlock()
		return ErrPeerGone
	}
	m.queue = append(m.queue, msg)
	m.mu.Unlock()

	m.signal()
	return nil
}

func (m *mailbox[T]) tryReceive() (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero T
	if len(m.queue) > 0 {
		msg := m.queue[0]
		m.queue[0] = zero
		m.queue = m.queue[1:]
		return msg, nil
	}
	if m.senderGone {
		return zero, ErrPeerGone
	}
	return zero, ErrEmpty
}

func (m *mailbox[T]) receive() (T, error) {
	for {
		msg, err := m.tryReceive()
		if !errors.Is(err, ErrEmpty) {
			return msg, err
		}
		<-m.ready
	}
}

func (m *mailbox[T]) closeSender() {
	m.mu.Lock()
	m.senderGone = true
	m.mu.Unlock()
	m.signal()
}

func (m *mailbox[T]) closeReceiver() {
	m.mu.Lock()
	m.receiverGone = true
	m.queue = nil
	m.mu.Unlock()
}

func (m *mailbox[T]) signal() {
	select {
	case m.ready <- struct{}{}:
	default:
	}
}

// UIEndpoint sends actions and receives events
type UIEndpoint struct {
	out       *mailbox[Action]
	in        *mailbox[Event]
	closeOnce sync.Once
}

// WorkerEndpoint sends events and receives actions
type WorkerEndpoint struct {
	out       *mailbox[Event]
	in        *mailbox[Action]
	closeOnce sync.Once
}

// NewPair creates the two ends of a control channel
func NewPair() (*UIEndpoint, *WorkerEndpoint) {
	actions := newMailbox[Action]()
	events := newMailbox[Event]()

	return &UIEndpoint{out: actions, in: events},
		&WorkerEndpoint{out: events, in: actions}
}

// Send queues an action for the worker without blocking
func (e *UIEndpoint) Send(action Action) error {
	return e.out.send(action)
}

// Receive blocks until the worker sends an event
func (e *UIEndpoint) Receive() (Event, error) {
	return e.in.receive()
}

// TryReceive returns a pending event, ErrEmpty, or ErrPeerGone
func (e *UIEndpoint) TryReceive() (Event, error) {
	return e.in.tryReceive()
}

// Close drops this endpoint; the worker observes ErrPeerGone
func (e *UIEndpoint) Close() {
	e.closeOnce.Do(func() {
		e.out.closeSender()
		e.in.closeReceiver()
	})
}

// Send queues an event for the UI without blocking
func (e *WorkerEndpoint) Send(event Event) error {
	return e.out.send(event)
}

// Receive blocks until the UI sends an action
func (e *WorkerEndpoint) Receive() (Action, error) {
	return e.in.receive()
}

// TryReceive returns a pending action, ErrEmpty, or ErrPeerGone
func (e *WorkerEndpoint) TryReceive() (Action, error) {
	return e.in.tryReceive()
}

// Close drops this endpoint; the UI observes ErrPeerGone
func (e *WorkerEndpoint) Close() {
	e.closeOnce.Do(func() {
		e.out.closeSender()
		e.in.closeReceiver()
	})
}

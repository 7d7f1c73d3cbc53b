// ABOUTME: Lock-free single-producer/single-consumer sample buffer
// ABOUTME: Bridges the network goroutine and the real-time audio callback
package ring

import (
	"sync/atomic"
)

// DefaultCapacity is the sample capacity used when none is configured
const DefaultCapacity = 10000

// buffer is the fixed backing store shared by exactly one Producer and one Consumer.
// head counts samples consumed, tail counts samples produced; both only grow.
type buffer struct {
	data []int16
	size uint64

	head atomic.Uint64
	tail atomic.Uint64

	underruns atomic.Uint64
}

// Producer is the write side of a sample buffer. Only one goroutine may use it.
type Producer struct {
	buf *buffer
}

// Consumer is the read side of a sample buffer. Only one goroutine may use it.
type Consumer struct {
	buf *buffer
}

// New allocates a buffer of the given capacity and returns its two halves.
// A capacity below 1 falls back to DefaultCapacity.
func New(capacity int) (*Producer, *Consumer) {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	buf := &buffer{
		data: make([]int16, capacity),
		size: uint64(capacity),
	}
	return &Producer{buf: buf}, &Consumer{buf: buf}
}

// Push appends a sample. It returns false without enqueuing when the buffer is full.
func (p *Producer) Push(sample int16) bool {
	b := p.buf
	tail := b.tail.Load()
	if tail-b.head.Load() == b.size {
		return false
	}
	b.data[tail%b.size] = sample
	b.tail.Store(tail + 1)
	return true
}

// IsFull reports whether the next Push would fail
func (p *Producer) IsFull() bool {
	return p.buf.len() == p.buf.size
}

// Len returns the number of buffered samples
func (p *Producer) Len() int {
	return int(p.buf.len())
}

// Cap returns the fixed capacity
func (p *Producer) Cap() int {
	return int(p.buf.size)
}

// Pop removes the oldest sample. It returns (0, false) when the buffer is empty.
func (c *Consumer) Pop() (int16, bool) {
	b := c.buf
	head := b.head.Load()
	if head == b.tail.Load() {
		return 0, false
	}
	sample := b.data[head%b.size]
	b.head.Store(head + 1)
	return sample, true
}

// Next pops one sample or returns silence, counting the underrun.
// Safe for use inside a real-time audio callback: it never blocks or allocates.
func (c *Consumer) Next() int16 {
	sample, ok := c.Pop()
	if !ok {
		c.buf.underruns.Add(1)
	}
	return sample
}

// Underruns returns how many times Next found the buffer empty.
// It may be read from any goroutine.
func (c *Consumer) Underruns() uint64 {
	return c.buf.underruns.Load()
}

// Len returns the number of buffered samples
func (c *Consumer) Len() int {
	return int(c.buf.len())
}

// Cap returns the fixed capacity
func (c *Consumer) Cap() int {
	return int(c.buf.size)
}

func (b *buffer) len() uint64 {
	return b.tail.Load() - b.head.Load()
}

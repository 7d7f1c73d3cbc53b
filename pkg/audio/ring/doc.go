// ABOUTME: Sample buffer package
// ABOUTME: Fixed-capacity SPSC queue of 16-bit samples
// Package ring provides the fixed-capacity sample queue that sits between the
// network reader and the audio callback.
//
// The buffer is created once and split into a Producer and a Consumer. Each half
// must be owned by exactly one goroutine; the cursors are atomics, so no mutex is
// involved on either side.
//
// Example:
//
//	producer, consumer := ring.New(10000)
//	producer.Push(sample)       // false when full, sample dropped
//	s := consumer.Next()        // 0 when empty
package ring

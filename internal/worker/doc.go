// ABOUTME: Worker package
// ABOUTME: Connection lifecycle state machine for the microphone player
// Package worker drives one streaming session at a time.
//
// The worker has two states. While Ready it blocks on the control channel for a
// Connect. While Connected it polls the channel and, when nothing is pending,
// runs one seek cycle on the network session. A failed seek tears the session
// pair down and retries the same address under a bounded Policy; if every
// attempt fails the worker reports "Lost connection" and returns to Ready.
//
// All socket I/O, decoding and backoff sleeps run on the worker goroutine. The
// only state shared with the audio callback is the sample buffer.
package worker

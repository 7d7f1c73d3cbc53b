// ABOUTME: Source package
// ABOUTME: Reference PCM server used for local testing of the player
// Package source implements a minimal microphone source: a TCP listener that
// streams raw signed 16-bit little-endian mono samples, paced in real time.
//
// There is no framing or handshake. Each accepted connection gets its own
// generator and receives samples until it closes or the server stops.
package source

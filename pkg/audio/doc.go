// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines sample formats, encoders and the input smoothing filter
// Package audio provides the sample-level building blocks shared by the stream
// reader and the output backends.
//
//   - SampleFormat: how an output device stores one sample (F32, S16, U16, S24, S32, U8)
//   - FillFrames: mono-to-N upmix of a sample source into an interleaved device buffer
//   - Smoother: the first-order averaging filter applied to incoming wire samples
//
// Example:
//
//	var s audio.Smoother
//	s.DecodeS16LE(chunk, func(v int16) { producer.Push(v) })
//
//	audio.FillFrames(out, audio.FormatF32, 2, consumer.Next)
package audio

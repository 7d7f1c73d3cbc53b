// ABOUTME: First-order smoothing filter for incoming PCM
// ABOUTME: Averages each sample with the previous output, carried across reads
package audio

import "encoding/binary"

// Smoother applies y[i] = (x[i] + y[i-1]) / 2 with truncating integer division.
// The zero value starts with a carry of 0.
type Smoother struct {
	last int16
}

// Next filters one raw sample
func (s *Smoother) Next(raw int16) int16 {
	s.last = int16((int32(raw) + int32(s.last)) / 2)
	return s.last
}

// Last returns the carry used for the next sample
func (s *Smoother) Last() int16 {
	return s.last
}

// Reset clears the carry
func (s *Smoother) Reset() {
	s.last = 0
}

// DecodeS16LE decodes little-endian 16-bit samples from data, smooths them,
// and hands each result to emit. A trailing odd byte is ignored.
func (s *Smoother) DecodeS16LE(data []byte, emit func(int16)) {
	for i := 0; i+SampleWidth <= len(data); i += SampleWidth {
		emit(s.Next(int16(binary.LittleEndian.Uint16(data[i:]))))
	}
}

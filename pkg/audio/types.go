// ABOUTME: Audio type definitions
// ABOUTME: Defines output sample formats and per-format sample encoders
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// SampleWidth is the size in bytes of one wire sample (mono S16LE)
const SampleWidth = 2

// SampleFormat identifies how an output device stores one sample
type SampleFormat int

const (
	FormatUnknown SampleFormat = iota
	FormatF32
	FormatS16
	FormatU16
	FormatS24
	FormatS32
	FormatU8
)

// String returns a short format name for logs
func (f SampleFormat) String() string {
	switch f {
	case FormatF32:
		return "F32"
	case FormatS16:
		return "S16"
	case FormatU16:
		return "U16"
	case FormatS24:
		return "S24"
	case FormatS32:
		return "S32"
	case FormatU8:
		return "U8"
	default:
		return fmt.Sprintf("Unknown(%d)", int(f))
	}
}

// BytesPerSample returns the storage size of one sample, or 0 for unknown formats
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case FormatU8:
		return 1
	case FormatS16, FormatU16:
		return 2
	case FormatS24:
		return 3
	case FormatF32, FormatS32:
		return 4
	default:
		return 0
	}
}

// Put encodes a 16-bit sample into dst (little-endian) using format f.
// dst must hold at least f.BytesPerSample() bytes.
func (f SampleFormat) Put(dst []byte, sample int16) {
	switch f {
	case FormatF32:
		binary.LittleEndian.PutUint32(dst, math.Float32bits(SampleToFloat32(sample)))
	case FormatS16:
		binary.LittleEndian.PutUint16(dst, uint16(sample))
	case FormatU16:
		binary.LittleEndian.PutUint16(dst, SampleToUint16(sample))
	case FormatS24:
		b := SampleTo24Bit(SampleFromInt16(sample))
		dst[0], dst[1], dst[2] = b[0], b[1], b[2]
	case FormatS32:
		binary.LittleEndian.PutUint32(dst, uint32(int32(sample)<<16))
	case FormatU8:
		dst[0] = uint8((int32(sample) >> 8) + 128)
	}
}

// SampleToFloat32 maps a 16-bit sample into [-1.0, 1.0)
func SampleToFloat32(sample int16) float32 {
	return float32(sample) / 32768.0
}

// SampleToUint16 shifts a signed sample into the unsigned range (silence = 32768)
func SampleToUint16(sample int16) uint16 {
	return uint16(int32(sample) + 32768)
}

// SampleFromInt16 converts int16 sample to int32 (left-justified in 24-bit)
func SampleFromInt16(sample int16) int32 {
	return int32(sample) << 8
}

// SampleTo24Bit converts int32 to 24-bit packed bytes (little-endian)
func SampleTo24Bit(sample int32) [3]byte {
	return [3]byte{
		byte(sample),
		byte(sample >> 8),
		byte(sample >> 16),
	}
}

// FillFrames writes one sample per frame into out, copied to every channel.
// next is called once per frame; out is expected to hold whole frames.
// It performs no allocation so it can run inside an audio callback.
func FillFrames(out []byte, format SampleFormat, channels int, next func() int16) {
	width := format.BytesPerSample()
	if width == 0 || channels < 1 {
		return
	}
	frameSize := width * channels
	for off := 0; off+frameSize <= len(out); off += frameSize {
		sample := next()
		for ch := 0; ch < channels; ch++ {
			format.Put(out[off+ch*width:], sample)
		}
	}
}

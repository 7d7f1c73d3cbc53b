// ABOUTME: Network session package
// ABOUTME: Reads the raw mono S16LE microphone stream over TCP
// Package stream reads the microphone wire stream.
//
// The wire format is an unframed, continuous sequence of little-endian 16-bit
// mono samples with no header or handshake. A Session reads it in 3840-byte
// chunks, smooths the samples and pushes them into a ring.Producer.
//
// Example:
//
//	producer, consumer := ring.New(ring.DefaultCapacity)
//	s, err := stream.Dial("192.168.1.20:8000", producer, stream.Options{})
//	for {
//	    if err := s.Seek(); err != nil {
//	        break // errors.Is(err, stream.ErrConnectionLost)
//	    }
//	}
//	s.Disconnect()
package stream

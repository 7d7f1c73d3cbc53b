// ABOUTME: Audio output package for playing the microphone stream
// ABOUTME: Provides the Session interface with malgo and oto backends
// Package output plays a sample buffer on a local output device.
//
// Open selects a playback device (a name-prefix match, typically a virtual
// cable, else the system default), opens it in the device's native format and
// starts a stream whose callback pops one sample per frame and copies it to every
// channel. An empty buffer plays silence.
//
// Example:
//
//	out, err := output.Open(output.Config{DeviceName: "CABLE Input"}, consumer)
//	defer out.Close()
//	err = out.Stop()
package output

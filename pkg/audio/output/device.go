// ABOUTME: Playback device selection
// ABOUTME: Prefers a name-prefix match, then the system default device
package output

import (
	"strings"
)

// DeviceEntry is the backend-neutral view of one playback device
type DeviceEntry struct {
	Name      string
	IsDefault bool
}

// SelectDevice returns the index of the device to open. It prefers the first
// device whose name starts with prefix, then the one flagged as default.
// -1 means "let the backend pick its default". An empty list is ErrNoDevice.
func SelectDevice(devices []DeviceEntry, prefix string) (int, error) {
	if len(devices) == 0 {
		return -1, ErrNoDevice
	}

	if prefix != "" {
		for i, d := range devices {
			if strings.HasPrefix(cleanName(d.Name), prefix) {
				return i, nil
			}
		}
	}

	for i, d := range devices {
		if d.IsDefault {
			return i, nil
		}
	}

	return -1, nil
}

// cleanName strips the NUL padding some backends leave in device names
func cleanName(name string) string {
	return strings.TrimRight(name, "\x00")
}

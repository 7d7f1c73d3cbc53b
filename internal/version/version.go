// ABOUTME: Version information for the player and source
// ABOUTME: Product identity used in logs, mDNS names and metrics resources
package version

import "fmt"

// Version is overridden at build time with -ldflags "-X .../internal/version.Version=..."
var Version = "0.1.0"

const (
	Product      = "fastmic"
	Manufacturer = "fastmic"
)

// String returns "product version"
func String() string {
	return fmt.Sprintf("%s %s", Product, Version)
}

// ABOUTME: Version and product identity
// ABOUTME: Reported in HTTP Server headers and the user agent
package version

// Version is overridden at build time with -ldflags "-X .../version.Version=..."
var Version = "0.3.0"

const (
	Product      = "swyh-go"
	Manufacturer = "swyh-go contributors"
)

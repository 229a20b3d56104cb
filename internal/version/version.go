// ABOUTME: Version information for the avsync player
// ABOUTME: Reported in the client hello and in startup logs
package version

const (
	Version      = "0.3.0"
	Product      = "avsync-player"
	Manufacturer = "Resonate"
)

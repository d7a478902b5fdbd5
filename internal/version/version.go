// ABOUTME: Version and product identification constants
// ABOUTME: Reported in logs, the control server hello and mDNS TXT records
package version

const (
	// Version is the release version
	Version = "0.3.0"

	// Product is the product name shown to remote clients
	Product = "Soundboard"

	// Manufacturer identifies the publisher
	Manufacturer = "towerofbabel"
)

// String returns the product name and version as printed by -version
func String() string {
	return Product + " " + Version
}

// TXT returns the build entries published in mDNS TXT records
func TXT() []string {
	return []string{
		"product=" + Product,
		"software=" + Version,
		"vendor=" + Manufacturer,
	}
}

package instance

import "os"

// GetID returns the identifier a running binary reports in its log fields.
// BIOVAULT_INSTANCE_ID wins so deployments can pin an explicit id; otherwise
// the hostname stands in, which container schedulers assign per replica.
func GetID() string {
	if id := os.Getenv("BIOVAULT_INSTANCE_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}

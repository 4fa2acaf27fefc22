package instance

import "os"

const fallbackID = "local"

// GetID identifies the running process for logs and lock ownership. It prefers
// LOUPES_INSTANCE_ID, then the platform's DYNO name, then the hostname.
func GetID() string {
	for _, key := range []string{"LOUPES_INSTANCE_ID", "DYNO"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}

package instance

import (
	"os"
	"strings"
)

const envID = "GEARSHED_INSTANCE_ID"

// GetID names this process in lock values and logs. It prefers
// GEARSHED_INSTANCE_ID, then the host name.
func GetID() string {
	if id := strings.TrimSpace(os.Getenv(envID)); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}

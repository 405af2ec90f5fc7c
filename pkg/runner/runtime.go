package runner

import (
	"fmt"
)

// DetectRuntime returns the container runtime CLI to use: docker if it is
// on PATH, otherwise podman.
func DetectRuntime() (string, error) {
	// Check docker first
	if _, err := lookPath("docker"); err == nil {
		return "docker", nil
	}
	// Fallback to podman
	if _, err := lookPath("podman"); err == nil {
		return "podman", nil
	}
	return "", fmt.Errorf("no container runtime found (docker or podman)")
}

//go:build !darwin && !linux

package storage

// Unknown platforms skip the remote filesystem check.
func detectFilesystemType(string) (string, error) { return "", nil }

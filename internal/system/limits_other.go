//go:build !linux && !darwin

package system

// RaiseFileLimit is a no-op where the limit is not adjustable through rlimit.
func RaiseFileLimit() (uint64, error) { return 0, nil }

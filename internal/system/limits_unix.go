//go:build linux || darwin

package system

import "syscall"

const wantOpenFiles = 4096

// RaiseFileLimit lifts the soft open-file limit towards wantOpenFiles, capped
// by the hard limit, and returns the limit in effect afterwards.
func RaiseFileLimit() (uint64, error) {
	var rl syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rl); err != nil {
		return 0, err
	}
	if rl.Cur >= wantOpenFiles {
		return rl.Cur, nil
	}

	prev := rl.Cur
	rl.Cur = wantOpenFiles
	if rl.Cur > rl.Max {
		rl.Cur = rl.Max
	}
	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rl); err != nil {
		return prev, err
	}
	return rl.Cur, nil
}

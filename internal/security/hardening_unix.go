//go:build !windows

package security

import "syscall"

// disableCoreDumps disables core dumps to prevent memory disclosure
func disableCoreDumps() error {
	var rLimit syscall.Rlimit
	rLimit.Cur = 0
	rLimit.Max = 0
	return syscall.Setrlimit(syscall.RLIMIT_CORE, &rLimit)
}

func setUmask(mask int) (int, bool) {
	return syscall.Umask(mask), true
}

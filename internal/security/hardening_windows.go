//go:build windows

package security

// Windows has neither core dump limits nor a umask; file ACLs are inherited.
func disableCoreDumps() error {
	return nil
}

func setUmask(mask int) (int, bool) {
	return 0, false
}

//go:build !windows
// +build !windows

package truststore

import "fmt"

// openSystemRootStore is not supported on non-Windows platforms
func openSystemRootStore() (RootStore, error) {
	return nil, fmt.Errorf("the %s store is only available on Windows", WindowsRootStore)
}

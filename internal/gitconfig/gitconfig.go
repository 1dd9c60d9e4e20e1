// Package gitconfig adjusts the user's global git settings so git trusts
// certificates from the operating system store.
package gitconfig

import (
	"context"
	"fmt"
	"strings"

	"fastgithub/internal/command"
)

// DefaultSSLBackend is the backend that reads the Windows certificate store
const DefaultSSLBackend = "schannel"

// SetSSLBackend runs `git config --global http.sslbackend <value>`.
// The value is lower-cased before use.
func SetSSLBackend(ctx context.Context, runner command.Runner, value string) error {
	backend := strings.ToLower(strings.TrimSpace(value))
	if backend == "" {
		return fmt.Errorf("empty http.sslbackend value")
	}

	if err := runner.Run(ctx, "git", "config", "--global", "http.sslbackend", backend); err != nil {
		return fmt.Errorf("git config http.sslbackend %s: %w", backend, err)
	}
	return nil
}

// Package command runs external programs on behalf of the installers and
// the git configuration step.
package command

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// Runner executes external commands
type Runner interface {
	// Run executes the command with the parent's stdin, stdout and stderr
	// and waits for it to exit. A nonzero exit status is an error.
	Run(ctx context.Context, name string, args ...string) error
	// Output executes the command and returns its standard output
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// System runs commands on the host with os/exec
type System struct{}

// NewSystem returns a Runner backed by os/exec
func NewSystem() *System {
	return &System{}
}

// Run implements Runner
func (System) Run(ctx context.Context, name string, args ...string) error {
	logrus.Debugf("execute: %s %s", name, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd.Run()
}

// Output implements Runner
func (System) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	logrus.Debugf("execute: %s %s", name, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = os.Stderr

	return cmd.Output()
}

// Package security applies process hardening before FastGithub handles the
// CA private key.
package security

import (
	"github.com/sirupsen/logrus"
)

// SecureUmask keeps files created by the process private to its owner
const SecureUmask = 0077

// HardenProcess implements security hardening measures for the FastGithub process
type HardenProcess struct {
	umask           int
	disableCoreDump bool
}

// NewHardening creates a new process hardening configuration
func NewHardening() *HardenProcess {
	return &HardenProcess{
		umask:           SecureUmask,
		disableCoreDump: true,
	}
}

// ApplyHardening applies security hardening measures to the current process.
// Individual failures are logged; the process keeps running.
func (h *HardenProcess) ApplyHardening() error {
	// Disable core dumps (prevent private key disclosure)
	if h.disableCoreDump {
		if err := disableCoreDumps(); err != nil {
			logrus.WithError(err).Warn("Failed to disable core dumps")
		}
	}

	// Set secure file permissions
	if old, ok := setUmask(h.umask); ok {
		logrus.Debugf("Changed umask from %04o to %04o", old, h.umask)
	}

	return nil
}

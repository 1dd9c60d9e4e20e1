package truststore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"fastgithub/internal/audit"
	"fastgithub/internal/command"
	"fastgithub/internal/platform"

	"github.com/sirupsen/logrus"
)

// ErrNoLinuxTrustStore is returned when none of the known anchor
// directories exists on the host
var ErrNoLinuxTrustStore = errors.New("no supported CA anchor directory found")

// linuxTrustStore is a distribution's anchor directory and the tool that
// rebuilds the system bundle from it
type linuxTrustStore struct {
	name      string
	anchorDir string
	refresh   []string
}

var linuxTrustStores = []linuxTrustStore{
	{name: "debian", anchorDir: "/usr/local/share/ca-certificates", refresh: []string{"update-ca-certificates"}},
	{name: "fedora", anchorDir: "/etc/pki/ca-trust/source/anchors", refresh: []string{"update-ca-trust", "extract"}},
	{name: "arch", anchorDir: "/etc/ca-certificates/trust-source/anchors", refresh: []string{"trust", "extract-compat"}},
	{name: "opensuse", anchorDir: "/usr/share/pki/trust/anchors", refresh: []string{"update-ca-certificates"}},
}

// LinuxInstaller trusts the CA by dropping it into the distribution's
// anchor directory and refreshing the system bundle
type LinuxInstaller struct {
	info   platform.Info
	runner command.Runner
	root   string
}

// NewLinuxInstaller creates a LinuxInstaller. root is prepended to anchor
// directories; empty means the real filesystem root.
func NewLinuxInstaller(info platform.Info, runner command.Runner, root string) *LinuxInstaller {
	return &LinuxInstaller{info: info, runner: runner, root: root}
}

func (l *LinuxInstaller) Platform() platform.OS { return platform.Linux }

func (l *LinuxInstaller) IsSupported(caCertPath string) bool {
	return l.info.IsLinux()
}

func (l *LinuxInstaller) ManualHint(caCertPath string) string {
	return fmt.Sprintf("copy %s to /usr/local/share/ca-certificates/ (or your distribution's anchor directory) and run update-ca-certificates", caCertPath)
}

func (l *LinuxInstaller) findTrustStore() (linuxTrustStore, error) {
	for _, ts := range linuxTrustStores {
		if info, err := os.Stat(filepath.Join(l.root, ts.anchorDir)); err == nil && info.IsDir() {
			return ts, nil
		}
	}
	return linuxTrustStore{}, ErrNoLinuxTrustStore
}

func (l *LinuxInstaller) anchorPath(ts linuxTrustStore) string {
	return filepath.Join(l.root, ts.anchorDir, l.info.SystemName+".crt")
}

// Install writes the CA as PEM to <anchor dir>/<system name>.crt. An
// identical anchor means the CA is already trusted; a different one is
// the stale CA from an earlier run and gets replaced.
func (l *LinuxInstaller) Install(ctx context.Context, caCertPath string) error {
	target, err := LoadCertificate(caCertPath)
	if err != nil {
		return err
	}

	ts, err := l.findTrustStore()
	if err != nil {
		return err
	}

	anchor := l.anchorPath(ts)
	data := EncodePEM(target)

	existing, err := os.ReadFile(anchor)
	if err == nil && bytes.Equal(existing, data) {
		logrus.Debugf("CA certificate %s is already installed at %s", caCertPath, anchor)
		audit.Log(audit.EventCAAlreadyTrusted, "info", "CA certificate already trusted", map[string]interface{}{
			"path":   caCertPath,
			"anchor": anchor,
		})
		return nil
	}
	if err == nil {
		audit.Log(audit.EventCAStaleRemoved, "info", "Stale CA anchor replaced", map[string]interface{}{
			"anchor": anchor,
		})
	}

	if err := os.WriteFile(anchor, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", anchor, err)
	}
	// Anchors must stay world readable whatever the process umask is
	if err := os.Chmod(anchor, 0644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", anchor, err)
	}

	if err := l.runner.Run(ctx, ts.refresh[0], ts.refresh[1:]...); err != nil {
		return fmt.Errorf("%s failed: %w", ts.refresh[0], err)
	}

	logrus.WithField("distribution", ts.name).Debugf("CA certificate %s installed", caCertPath)
	audit.Log(audit.EventCAInstalled, "info", "CA certificate installed", map[string]interface{}{
		"path":   caCertPath,
		"anchor": anchor,
	})
	return nil
}

// Uninstall removes the anchor for this host and refreshes the bundle
func (l *LinuxInstaller) Uninstall(ctx context.Context, caCertPath string) error {
	ts, err := l.findTrustStore()
	if err != nil {
		return err
	}

	anchor := l.anchorPath(ts)
	if err := os.Remove(anchor); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to remove %s: %w", anchor, err)
	}

	refresh := append([]string(nil), ts.refresh...)
	if ts.name == "debian" || ts.name == "opensuse" {
		refresh = append(refresh, "--fresh")
	}
	if err := l.runner.Run(ctx, refresh[0], refresh[1:]...); err != nil {
		return fmt.Errorf("%s failed: %w", refresh[0], err)
	}
	return nil
}

package truststore

import (
	"context"
	"crypto/sha1"
	"encoding/pem"
	"fmt"

	"fastgithub/internal/audit"
	"fastgithub/internal/command"
	"fastgithub/internal/platform"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

const systemKeychain = "/Library/Keychains/System.keychain"

// MacOSInstaller trusts the CA in the System keychain with the security tool
type MacOSInstaller struct {
	info   platform.Info
	runner command.Runner
}

// NewMacOSInstaller creates a MacOSInstaller
func NewMacOSInstaller(info platform.Info, runner command.Runner) *MacOSInstaller {
	return &MacOSInstaller{info: info, runner: runner}
}

func (m *MacOSInstaller) Platform() platform.OS { return platform.MacOS }

func (m *MacOSInstaller) IsSupported(caCertPath string) bool {
	return m.info.IsMacOS()
}

func (m *MacOSInstaller) ManualHint(caCertPath string) string {
	return fmt.Sprintf("open Keychain Access, drag %s into the System keychain and set \"When using this certificate\" to \"Always Trust\"", caCertPath)
}

// Install adds the CA as a trusted root unless it already verifies.
// Self-signed certificates named after this host with another key are
// deleted first.
func (m *MacOSInstaller) Install(ctx context.Context, caCertPath string) error {
	target, err := LoadCertificate(caCertPath)
	if err != nil {
		return err
	}

	if _, err := m.runner.Output(ctx, "security", "verify-cert", "-c", caCertPath); err == nil {
		logrus.Debugf("CA certificate %s is already trusted", caCertPath)
		audit.Log(audit.EventCAAlreadyTrusted, "info", "CA certificate already trusted", map[string]interface{}{
			"path":     caCertPath,
			"keychain": systemKeychain,
		})
		return nil
	}

	var result *multierror.Error
	for _, entry := range m.keychainEntries(ctx) {
		if samePublicKey(entry.Certificate, target) || !isStale(entry.Alias, entry.Certificate, m.info.SystemName) {
			continue
		}
		if err := m.delete(ctx, entry); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		audit.Log(audit.EventCAStaleRemoved, "info", "Stale CA certificate removed", map[string]interface{}{
			"alias":    entry.Alias,
			"serial":   entry.Certificate.SerialNumber.String(),
			"keychain": systemKeychain,
		})
	}

	logrus.Info("Installing CA certificate (Touch ID or admin password required)...")
	if err := m.runner.Run(ctx, "sudo", "-p", "Touch ID or enter password: ",
		"security", "add-trusted-cert", "-d", "-r", "trustRoot", "-k", systemKeychain, caCertPath); err != nil {
		result = multierror.Append(result, fmt.Errorf("failed to add CA to System keychain: %w", err))
		return result.ErrorOrNil()
	}

	audit.Log(audit.EventCAInstalled, "info", "CA certificate installed", map[string]interface{}{
		"path":     caCertPath,
		"keychain": systemKeychain,
	})
	return result.ErrorOrNil()
}

// Uninstall deletes the CA and stale CAs for this host from the System keychain
func (m *MacOSInstaller) Uninstall(ctx context.Context, caCertPath string) error {
	target, err := LoadCertificate(caCertPath)
	if err != nil {
		return err
	}

	var result *multierror.Error
	for _, entry := range m.keychainEntries(ctx) {
		if !samePublicKey(entry.Certificate, target) && !isStale(entry.Alias, entry.Certificate, m.info.SystemName) {
			continue
		}
		if err := m.delete(ctx, entry); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// keychainEntries lists System keychain certificates whose label matches
// the system name. find-certificate exits nonzero when nothing matches.
func (m *MacOSInstaller) keychainEntries(ctx context.Context) []Entry {
	if m.info.SystemName == "" {
		return nil
	}

	out, err := m.runner.Output(ctx, "security", "find-certificate", "-a", "-c", m.info.SystemName, "-p", systemKeychain)
	if err != nil {
		return nil
	}

	var entries []Entry
	for {
		var block *pem.Block
		block, out = pem.Decode(out)
		if block == nil {
			break
		}
		cert, err := ParseCertificate(block.Bytes)
		if err != nil {
			logrus.WithError(err).Debug("Skipping unparseable keychain certificate")
			continue
		}
		entries = append(entries, Entry{Alias: cert.Subject.CommonName, Certificate: cert})
	}
	return entries
}

func (m *MacOSInstaller) delete(ctx context.Context, entry Entry) error {
	hash := fmt.Sprintf("%X", sha1.Sum(entry.Certificate.Raw))
	if err := m.runner.Run(ctx, "sudo", "security", "delete-certificate", "-Z", hash, systemKeychain); err != nil {
		return fmt.Errorf("delete %s (%s): %w", entry.Alias, hash, err)
	}
	logrus.Debugf("Removed CA certificate %s from System keychain", entry.Alias)
	return nil
}

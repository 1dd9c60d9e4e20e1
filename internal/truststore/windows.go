package truststore

import (
	"context"
	"crypto/x509"
	"fmt"

	"fastgithub/internal/audit"
	"fastgithub/internal/platform"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

// WindowsRootStore names the store holding trusted root authorities
const WindowsRootStore = "Windows-ROOT"

// Entry is one certificate in a root store and the alias it is kept under
type Entry struct {
	Alias       string
	Certificate *x509.Certificate
}

// RootStore is the subset of a certificate store the Windows installer needs
type RootStore interface {
	Entries() ([]Entry, error)
	// Remove deletes exactly the given entry
	Remove(entry Entry) error
	// Add stores cert under alias and persists the store
	Add(alias string, cert *x509.Certificate) error
	Close() error
}

// WindowsInstaller trusts the CA through the Windows root store
type WindowsInstaller struct {
	info      platform.Info
	openStore func() (RootStore, error)
}

// NewWindowsInstaller creates a WindowsInstaller using openStore to reach the
// root store
func NewWindowsInstaller(info platform.Info, openStore func() (RootStore, error)) *WindowsInstaller {
	return &WindowsInstaller{info: info, openStore: openStore}
}

func (w *WindowsInstaller) Platform() platform.OS { return platform.Windows }

func (w *WindowsInstaller) IsSupported(caCertPath string) bool {
	return w.info.IsWindows()
}

func (w *WindowsInstaller) ManualHint(caCertPath string) string {
	return fmt.Sprintf("install %s manually into \"Place all certificates in the following store\" > \"Trusted Root Certification Authorities\"", caCertPath)
}

// Install adds the certificate under the system name alias unless a
// certificate with the same public key is already present. Self-signed
// entries under the same alias with a different key are removed first.
func (w *WindowsInstaller) Install(ctx context.Context, caCertPath string) error {
	target, err := LoadCertificate(caCertPath)
	if err != nil {
		return err
	}

	store, err := w.openStore()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", WindowsRootStore, err)
	}
	defer store.Close()

	entries, err := store.Entries()
	if err != nil {
		return fmt.Errorf("failed to enumerate %s: %w", WindowsRootStore, err)
	}

	found := false
	var stale []Entry
	for _, entry := range entries {
		if samePublicKey(entry.Certificate, target) {
			found = true
			continue
		}
		if isStale(entry.Alias, entry.Certificate, w.info.SystemName) {
			stale = append(stale, entry)
		}
	}

	var result *multierror.Error
	for _, entry := range stale {
		if err := store.Remove(entry); err != nil {
			result = multierror.Append(result, fmt.Errorf("remove %q: %w", entry.Alias, err))
			continue
		}
		logrus.Debugf("Removed stale CA certificate with alias %s", entry.Alias)
		audit.Log(audit.EventCAStaleRemoved, "info", "Stale CA certificate removed", map[string]interface{}{
			"alias":  entry.Alias,
			"serial": entry.Certificate.SerialNumber.String(),
			"store":  WindowsRootStore,
		})
	}
	// A stale entry that could not be removed aborts the install
	if err := result.ErrorOrNil(); err != nil {
		return err
	}

	if found {
		logrus.Debugf("CA certificate %s is already installed", caCertPath)
		audit.Log(audit.EventCAAlreadyTrusted, "info", "CA certificate already trusted", map[string]interface{}{
			"path":  caCertPath,
			"store": WindowsRootStore,
		})
		return nil
	}

	if err := store.Add(w.info.SystemName, target); err != nil {
		return fmt.Errorf("add %q: %w", w.info.SystemName, err)
	}

	logrus.Debugf("CA certificate %s installed", caCertPath)
	audit.Log(audit.EventCAInstalled, "info", "CA certificate installed", map[string]interface{}{
		"path":  caCertPath,
		"alias": w.info.SystemName,
		"store": WindowsRootStore,
	})
	return nil
}

// Uninstall removes entries holding the certificate's public key and stale
// entries for this host
func (w *WindowsInstaller) Uninstall(ctx context.Context, caCertPath string) error {
	target, err := LoadCertificate(caCertPath)
	if err != nil {
		return err
	}

	store, err := w.openStore()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", WindowsRootStore, err)
	}
	defer store.Close()

	entries, err := store.Entries()
	if err != nil {
		return fmt.Errorf("failed to enumerate %s: %w", WindowsRootStore, err)
	}

	var result *multierror.Error
	for _, entry := range entries {
		if !samePublicKey(entry.Certificate, target) && !isStale(entry.Alias, entry.Certificate, w.info.SystemName) {
			continue
		}
		if err := store.Remove(entry); err != nil {
			result = multierror.Append(result, fmt.Errorf("remove %q: %w", entry.Alias, err))
			continue
		}
		logrus.Infof("Removed CA certificate %s from %s", entry.Alias, WindowsRootStore)
	}
	return result.ErrorOrNil()
}

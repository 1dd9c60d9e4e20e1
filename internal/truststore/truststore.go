// Package truststore installs the FastGithub root CA into the native trust
// store of the host operating system.
//
// One Installer exists per platform family. Installers returns them in a
// fixed order and Select picks the first one supporting the current host.
// Every installer is idempotent: a CA that is already trusted is left alone,
// and stale self-signed CAs previously issued for the same host are removed.
package truststore

import (
	"bytes"
	"context"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"fastgithub/internal/command"
	"fastgithub/internal/platform"
	"fastgithub/internal/utils"
)

// ErrUnsupportedPlatform is returned when no installer matches the host
var ErrUnsupportedPlatform = errors.New("no trust store installer for this platform")

// Installer installs a CA certificate file into a platform trust store
type Installer interface {
	// Platform is the OS family the installer targets
	Platform() platform.OS
	// IsSupported reports whether the installer can run on this host.
	// The path is not inspected.
	IsSupported(caCertPath string) bool
	// Install trusts the certificate at caCertPath. Installing an already
	// trusted certificate is a no-op.
	Install(ctx context.Context, caCertPath string) error
	// Uninstall removes the certificate at caCertPath and any stale
	// certificate issued for this host
	Uninstall(ctx context.Context, caCertPath string) error
	// ManualHint tells the user how to trust the certificate by hand
	ManualHint(caCertPath string) string
}

// Options configures the installers returned by Installers
type Options struct {
	// Runner executes external tools. Defaults to command.NewSystem().
	Runner command.Runner
	// OpenRootStore opens the Windows root store. Defaults to the native
	// crypt32 store.
	OpenRootStore func() (RootStore, error)
	// FSRoot is prepended to Linux anchor directories. Empty means "/".
	FSRoot string
}

// Installers returns the installers in dispatch order: Linux, Windows, macOS
func Installers(info platform.Info, opts Options) []Installer {
	if opts.Runner == nil {
		opts.Runner = command.NewSystem()
	}
	if opts.OpenRootStore == nil {
		opts.OpenRootStore = openSystemRootStore
	}

	return []Installer{
		NewLinuxInstaller(info, opts.Runner, opts.FSRoot),
		NewWindowsInstaller(info, opts.OpenRootStore),
		NewMacOSInstaller(info, opts.Runner),
	}
}

// Select returns the first installer that supports the host
func Select(installers []Installer, caCertPath string) (Installer, error) {
	for _, installer := range installers {
		if installer.IsSupported(caCertPath) {
			return installer, nil
		}
	}
	return nil, ErrUnsupportedPlatform
}

// LoadCertificate reads a certificate file in DER or PEM form
func LoadCertificate(path string) (*x509.Certificate, error) {
	data, err := utils.ReadFileLimited(path, utils.MaxCertificateFileSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate %s: %w", path, err)
	}
	return ParseCertificate(data)
}

// ParseCertificate parses a single DER or PEM encoded certificate
func ParseCertificate(data []byte) (*x509.Certificate, error) {
	if block, _ := pem.Decode(data); block != nil {
		if block.Type != "CERTIFICATE" {
			return nil, fmt.Errorf("unexpected PEM block type %q", block.Type)
		}
		data = block.Bytes
	}

	cert, err := x509.ParseCertificate(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	return cert, nil
}

// EncodePEM returns the PEM form of cert
func EncodePEM(cert *x509.Certificate) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
}

func samePublicKey(a, b *x509.Certificate) bool {
	return bytes.Equal(a.RawSubjectPublicKeyInfo, b.RawSubjectPublicKeyInfo)
}

// isStale reports whether a store entry is an earlier self-signed CA
// issued for systemName. Callers must have ruled out a matching public key.
func isStale(alias string, cert *x509.Certificate, systemName string) bool {
	if systemName == "" || alias != systemName {
		return false
	}
	subject := cert.Subject.String()
	return subject == cert.Issuer.String() && strings.Contains(subject, systemName)
}

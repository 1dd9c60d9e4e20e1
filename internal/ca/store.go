package ca

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fastgithub/internal/audit"
	"fastgithub/internal/command"
	"fastgithub/internal/gitconfig"
	"fastgithub/internal/platform"
	"fastgithub/internal/truststore"

	"github.com/sirupsen/logrus"
)

const (
	certDirName  = "cert"
	lockFileName = ".ca_creation.lock"

	// DefaultFileName is the base name of the certificate and key files
	DefaultFileName = "fastgithub"

	// DefaultValidityYears is how long a generated CA stays valid
	DefaultValidityYears = 10

	// NotBeforeOffset backdates the CA to tolerate clock skew
	NotBeforeOffset = 24 * time.Hour

	defaultLockWait  = 5 * time.Second
	lockPollInterval = 100 * time.Millisecond
	staleLockAge     = time.Minute
)

var errLocked = errors.New("CA creation lock is held by another process")

// Paths locates the CA artifacts on disk
type Paths struct {
	Dir      string
	CertFile string
	KeyFile  string
}

// DefaultDir returns the cert directory under the working directory
func DefaultDir(info platform.Info) string {
	return filepath.Join(info.WorkDir, certDirName)
}

// NewPaths computes the artifact paths. The certificate uses .crt on Linux
// and .cer elsewhere; the key is always .key.
func NewPaths(dir, fileName string, os platform.OS) Paths {
	ext := ".cer"
	if os == platform.Linux {
		ext = ".crt"
	}
	return Paths{
		Dir:      dir,
		CertFile: filepath.Join(dir, fileName+ext),
		KeyFile:  filepath.Join(dir, fileName+".key"),
	}
}

// Options configures a Store. Zero values select the defaults.
type Options struct {
	Dir           string
	FileName      string
	SubjectName   string
	ValidityYears int
	KeyBits       int
	// GitSSLBackend is written to git's http.sslbackend after installation.
	// Empty skips the git step.
	GitSSLBackend string

	Runner     command.Runner
	Installers []truststore.Installer
	Generator  *Generator
	Now        func() time.Time
	LockWait   time.Duration
}

// Store keeps the root CA on disk and installs it into the host trust store
type Store struct {
	info          platform.Info
	paths         Paths
	subjectName   string
	validityYears int
	gitSSLBackend string
	generator     *Generator
	runner        command.Runner
	installers    []truststore.Installer
	now           func() time.Time
	lockWait      time.Duration
}

// NewStore creates a Store for the given host
func NewStore(info platform.Info, opts Options) *Store {
	if opts.Dir == "" {
		opts.Dir = DefaultDir(info)
	}
	if opts.FileName == "" {
		opts.FileName = DefaultFileName
	}
	if opts.SubjectName == "" {
		opts.SubjectName = info.SystemName
	}
	if opts.ValidityYears <= 0 {
		opts.ValidityYears = DefaultValidityYears
	}
	if opts.Generator == nil {
		opts.Generator = NewGenerator()
	}
	if opts.KeyBits > 0 {
		opts.Generator = opts.Generator.WithKeyBits(opts.KeyBits)
	}
	if opts.Runner == nil {
		opts.Runner = command.NewSystem()
	}
	if opts.Installers == nil {
		opts.Installers = truststore.Installers(info, truststore.Options{Runner: opts.Runner})
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.LockWait <= 0 {
		opts.LockWait = defaultLockWait
	}

	return &Store{
		info:          info,
		paths:         NewPaths(opts.Dir, opts.FileName, info.OS),
		subjectName:   opts.SubjectName,
		validityYears: opts.ValidityYears,
		gitSSLBackend: opts.GitSSLBackend,
		generator:     opts.Generator,
		runner:        opts.Runner,
		installers:    opts.Installers,
		now:           opts.Now,
		lockWait:      opts.LockWait,
	}
}

// Paths returns the artifact locations
func (s *Store) Paths() Paths {
	return s.paths
}

// SubjectName returns the common name used for new CAs
func (s *Store) SubjectName() string {
	return s.subjectName
}

// Exists reports whether both the certificate and the key file are present
func (s *Store) Exists() bool {
	return fileExists(s.paths.CertFile) && fileExists(s.paths.KeyFile)
}

// Certificate loads the CA certificate from disk
func (s *Store) Certificate() (*x509.Certificate, error) {
	return truststore.LoadCertificate(s.paths.CertFile)
}

// EnsureCertificateAuthority creates the CA if the certificate or key file
// is missing and reports whether a new CA was written. An existing pair is
// never validated or regenerated; a partial pair is deleted and replaced.
// Failures are logged and reported as false.
func (s *Store) EnsureCertificateAuthority() bool {
	if s.Exists() {
		return false
	}

	if err := os.MkdirAll(s.paths.Dir, 0700); err != nil {
		logrus.WithError(err).Errorf("Failed to create certificate directory %s", s.paths.Dir)
		return false
	}

	// Serialize the check-then-write against other processes
	unlock, err := s.lock()
	if err != nil {
		if errors.Is(err, errLocked) {
			logrus.Warn("Another process is creating the CA certificate, skipping")
		} else {
			logrus.WithError(err).Error("Failed to lock certificate directory")
		}
		return false
	}
	defer unlock()

	if s.Exists() {
		return false
	}
	s.removeArtifacts()

	now := s.now()
	notBefore := now.Add(-NotBeforeOffset)
	notAfter := now.AddDate(s.validityYears, 0, 0)

	start := time.Now()
	cert, err := s.generator.CreateRootCertificate(s.subjectName, notBefore, notAfter)
	if err != nil {
		logrus.WithError(err).Error("CA certificate generation failed")
		return false
	}

	if err := s.write(cert); err != nil {
		logrus.WithError(err).Errorf("Failed to write CA certificate %s", s.paths.CertFile)
		return false
	}

	audit.LogCAGenerated(s.subjectName, cert.X509().SerialNumber.String(), notAfter, time.Since(start))
	logrus.WithFields(logrus.Fields{
		"subject":   s.subjectName,
		"cert":      s.paths.CertFile,
		"not_after": notAfter.Format("2006-01-02"),
	}).Info("Created CA certificate")
	return true
}

// InstallAndTrust installs the CA with the first installer supporting this
// host, then points git at the configured TLS backend. Nothing is returned:
// failures are logged with manual instructions.
func (s *Store) InstallAndTrust(ctx context.Context) {
	path := s.paths.CertFile

	installer, err := truststore.Select(s.installers, path)
	if err != nil {
		logrus.Warnf("Please install and trust the CA certificate %s manually for your platform", path)
	} else if err := installer.Install(ctx, path); err != nil {
		logrus.WithError(err).Warnf("Failed to install CA certificate: %s", installer.ManualHint(path))
	}

	s.configureGit(ctx)
}

// Uninstall removes the CA from the host trust store
func (s *Store) Uninstall(ctx context.Context) error {
	path := s.paths.CertFile

	installer, err := truststore.Select(s.installers, path)
	if err != nil {
		return err
	}
	if err := installer.Uninstall(ctx, path); err != nil {
		return err
	}

	audit.Log(audit.EventCAUninstalled, "info", "CA certificate removed from trust store", map[string]interface{}{
		"path":     path,
		"platform": installer.Platform().String(),
	})
	return nil
}

// RemoveFiles deletes the certificate and key files
func (s *Store) RemoveFiles() error {
	for _, path := range []string{s.paths.CertFile, s.paths.KeyFile} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (s *Store) configureGit(ctx context.Context) {
	if s.gitSSLBackend == "" {
		return
	}

	err := gitconfig.SetSSLBackend(ctx, s.runner, s.gitSSLBackend)
	audit.LogGitConfigured("http.sslbackend", s.gitSSLBackend, err == nil)
	if err != nil {
		logrus.WithError(err).Warn("Failed to configure git SSL backend")
	}
}

// write stores both artifacts through temp files so a failure never leaves
// a half-written pair behind
func (s *Store) write(cert *Certificate) (err error) {
	certTmp := s.paths.CertFile + ".tmp"
	keyTmp := s.paths.KeyFile + ".tmp"

	defer func() {
		if err != nil {
			os.Remove(certTmp)
			os.Remove(keyTmp)
			s.removeArtifacts()
		}
	}()

	if err = writeFile(certTmp, cert.DER(), 0644); err != nil {
		return err
	}
	if err = writeFile(keyTmp, cert.KeyPEM(), 0600); err != nil {
		return err
	}

	// The key goes first: the pair only counts as present once the
	// certificate appears.
	if err = os.Rename(keyTmp, s.paths.KeyFile); err != nil {
		return err
	}
	return os.Rename(certTmp, s.paths.CertFile)
}

func (s *Store) removeArtifacts() {
	for _, path := range []string{s.paths.CertFile, s.paths.KeyFile} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logrus.WithError(err).Warnf("Failed to remove %s", path)
		}
	}
}

// lock takes an exclusive lock file in the cert directory. A lock older
// than staleLockAge is treated as abandoned by a crashed process.
func (s *Store) lock() (func(), error) {
	lockPath := filepath.Join(s.paths.Dir, lockFileName)
	deadline := time.Now().Add(s.lockWait)

	for {
		lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
		if err == nil {
			fmt.Fprintf(lockFile, "%d\n", os.Getpid())
			return func() {
				lockFile.Close()
				os.Remove(lockPath)
			}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to acquire CA creation lock: %w", err)
		}

		if info, statErr := os.Stat(lockPath); statErr == nil && time.Since(info.ModTime()) > staleLockAge {
			logrus.Warnf("Removing abandoned CA creation lock %s", lockPath)
			os.Remove(lockPath)
			continue
		}

		if time.Now().After(deadline) {
			return nil, errLocked
		}
		time.Sleep(lockPollInterval)
	}
}

func writeFile(path string, data []byte, perm os.FileMode) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		return err
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

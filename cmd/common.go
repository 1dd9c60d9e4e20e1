package cmd

import (
	"fmt"

	"fastgithub/internal/audit"
	"fastgithub/internal/ca"
	"fastgithub/internal/config"
	"fastgithub/internal/logging"
	"fastgithub/internal/platform"

	"github.com/sirupsen/logrus"
)

// GlobalOptions holds flags shared by every command
type GlobalOptions struct {
	ConfigFile string
}

// environment is what a command needs after configuration is loaded
type environment struct {
	cfg   *config.Config
	info  platform.Info
	store *ca.Store
}

func setup(opts *GlobalOptions) (*environment, error) {
	cfg, err := config.LoadConfig(opts.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %v", err)
	}

	logging.Setup(cfg.LogLevel)

	for _, warning := range config.ValidateCredentialSecurity(cfg) {
		logrus.Warnf("SECURITY WARNING: %s", warning)
	}

	if err := config.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %v", err)
	}

	// Log sanitized config (credentials removed)
	logrus.Debugf("Loaded configuration: %+v", config.SanitizeConfig(cfg))
	logrus.WithFields(logrus.Fields(config.SanitizeConfigForLogging(cfg))).Debug("Configuration loaded")

	if cfg.Audit.Enabled {
		dir := cfg.Audit.Dir
		if dir == "" {
			dir = audit.DefaultDir()
		}
		if err := audit.Initialize(dir); err != nil {
			logrus.WithError(err).Warn("Failed to initialize audit logging")
		}
	}

	info, err := platform.Current()
	if err != nil {
		audit.Close()
		return nil, fmt.Errorf("failed to detect platform: %v", err)
	}

	return &environment{
		cfg:   cfg,
		info:  info,
		store: ca.NewStore(info, storeOptions(cfg)),
	}, nil
}

func storeOptions(cfg *config.Config) ca.Options {
	opts := ca.Options{
		Dir:           cfg.Cert.Dir,
		FileName:      cfg.Cert.FileName,
		SubjectName:   cfg.Cert.SubjectName,
		ValidityYears: cfg.Cert.ValidityYears,
		KeyBits:       cfg.Cert.KeyBits,
	}
	if cfg.Git.Configure {
		opts.GitSSLBackend = cfg.Git.SSLBackend
	}
	return opts
}

func (e *environment) close() {
	if err := audit.Close(); err != nil {
		logrus.WithError(err).Debug("Failed to close audit log")
	}
}

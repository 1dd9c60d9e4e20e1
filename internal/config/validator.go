package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/go-multierror"
)

var (
	validLogLevels = map[string]bool{
		"panic": true, "fatal": true, "error": true, "warn": true,
		"warning": true, "info": true, "debug": true, "trace": true,
	}

	validSSLBackends = map[string]bool{
		"schannel": true, "openssl": true, "gnutls": true, "secure-transport": true,
	}

	// fileNamePattern keeps the artifact base name a single path segment
	fileNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
)

// ValidateConfig checks the configuration and reports every problem found
func ValidateConfig(cfg *Config) error {
	var result *multierror.Error

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		result = multierror.Append(result, fmt.Errorf("invalid logLevel %q", cfg.LogLevel))
	}

	if !fileNamePattern.MatchString(cfg.Cert.FileName) {
		result = multierror.Append(result, fmt.Errorf("invalid cert.fileName %q", cfg.Cert.FileName))
	}
	if cfg.Cert.ValidityYears < 1 || cfg.Cert.ValidityYears > 30 {
		result = multierror.Append(result, fmt.Errorf("cert.validityYears must be between 1 and 30, got %d", cfg.Cert.ValidityYears))
	}
	if cfg.Cert.KeyBits < 2048 || cfg.Cert.KeyBits > 8192 {
		result = multierror.Append(result, fmt.Errorf("cert.keyBits must be between 2048 and 8192, got %d", cfg.Cert.KeyBits))
	}

	if cfg.Git.Configure && !validSSLBackends[strings.ToLower(cfg.Git.SSLBackend)] {
		result = multierror.Append(result, fmt.Errorf("invalid git.sslBackend %q", cfg.Git.SSLBackend))
	}

	if cfg.Publish.Bucket != "" && strings.TrimSpace(cfg.Publish.Key) == "" {
		result = multierror.Append(result, fmt.Errorf("publish.key is required when publish.bucket is set"))
	}

	return result.ErrorOrNil()
}

// ValidateCredentialSecurity checks for insecure credential practices and
// returns one warning per problem; callers decide how to report them
func ValidateCredentialSecurity(cfg *Config) []string {
	var warnings []string

	// Check for AWS credentials in config
	if cfg.Publish.AccessKeyID != "" || cfg.Publish.SecretKey != "" {
		warnings = append(warnings, "AWS credentials found in configuration file - consider using environment variables or IAM roles")
	}

	if strings.EqualFold(cfg.LogLevel, "debug") || strings.EqualFold(cfg.LogLevel, "trace") {
		warnings = append(warnings, "Running in debug mode - certificate paths and subjects will be logged")
	}

	return warnings
}

// SanitizeConfigForLogging returns a sanitized version of the config for logging
func SanitizeConfigForLogging(cfg *Config) map[string]interface{} {
	sanitized := map[string]interface{}{
		"log_level":           cfg.LogLevel,
		"cert_file_name":      cfg.Cert.FileName,
		"cert_validity_years": cfg.Cert.ValidityYears,
		"cert_key_bits":       cfg.Cert.KeyBits,
		"git_configure":       cfg.Git.Configure,
		"git_ssl_backend":     cfg.Git.SSLBackend,
		"audit_enabled":       cfg.Audit.Enabled,
	}

	if cfg.Cert.Dir != "" {
		sanitized["cert_dir"] = cfg.Cert.Dir
	}

	if cfg.Publish.Bucket != "" {
		sanitized["publish_bucket"] = cfg.Publish.Bucket
		sanitized["publish_region"] = cfg.Publish.Region
		// Explicitly not including AccessKeyID or SecretKey
		if cfg.Publish.AccessKeyID != "" {
			sanitized["publish_credentials"] = "[CONFIGURED]"
		}
	}

	return sanitized
}

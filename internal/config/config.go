// Package config defines configuration structures and loading logic for FastGithub.
// It supports YAML configuration files with sensible defaults; every key is
// optional so FastGithub runs without a config file at all.
package config

import (
	"os"

	"fastgithub/internal/utils"

	"gopkg.in/yaml.v3"
)

const (
	// EnvConfigFile overrides the config file location
	EnvConfigFile = "FASTGITHUB_CONFIG"
	// EnvLogLevel overrides the configured log level
	EnvLogLevel = "FASTGITHUB_LOG_LEVEL"
)

// DefaultPaths are searched in order when no config file is given
var DefaultPaths = []string{"./config.yaml", "/etc/fastgithub/config.yaml"}

type Config struct {
	LogLevel string        `yaml:"logLevel"`
	Cert     CertConfig    `yaml:"cert"`
	Git      GitConfig     `yaml:"git"`
	Audit    AuditConfig   `yaml:"audit"`
	Publish  PublishConfig `yaml:"publish"`
}

type CertConfig struct {
	// Dir holds the CA files; empty means <working dir>/cert
	Dir string `yaml:"dir,omitempty"`
	// FileName is the base name of the .crt/.cer and .key files
	FileName string `yaml:"fileName"`
	// SubjectName is the CA common name; empty means the system name
	SubjectName   string `yaml:"subjectName,omitempty"`
	ValidityYears int    `yaml:"validityYears"`
	KeyBits       int    `yaml:"keyBits"`
}

type GitConfig struct {
	// Configure sets git's http.sslbackend after installing the CA
	Configure  bool   `yaml:"configure"`
	SSLBackend string `yaml:"sslBackend"`
}

type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir,omitempty"`
}

// PublishConfig selects where publish-ca uploads the CA certificate
type PublishConfig struct {
	Bucket      string `yaml:"bucket"`
	Region      string `yaml:"region"`
	Key         string `yaml:"key"`
	AccessKeyID string `yaml:"accessKeyId,omitempty"`
	SecretKey   string `yaml:"secretKey,omitempty"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Cert: CertConfig{
			FileName:      "fastgithub",
			ValidityYears: 10,
			KeyBits:       2048,
		},
		Git: GitConfig{
			Configure:  true,
			SSLBackend: "schannel",
		},
		Publish: PublishConfig{
			Key: "fastgithub/ca.crt",
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}

	// If no path specified, try default locations
	if path == "" {
		for _, p := range DefaultPaths {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	// If we have a config file, load it
	if path != "" {
		data, err := utils.ReadFileLimited(path, utils.MaxConfigFileSize)
		if err != nil {
			return nil, err
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	if level := os.Getenv(EnvLogLevel); level != "" {
		cfg.LogLevel = level
	}

	return cfg, nil
}

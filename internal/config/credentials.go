package config

import (
	"fmt"
	"os"
)

// CredentialSource represents where credentials come from
type CredentialSource string

const (
	CredentialSourceNone        CredentialSource = "none"
	CredentialSourceEnvironment CredentialSource = "environment"
	CredentialSourceConfig      CredentialSource = "config"
	CredentialSourceIAMRole     CredentialSource = "iam-role"
)

// AWSCredentials holds AWS credential information
type AWSCredentials struct {
	AccessKeyID     string
	SecretAccessKey string
	Source          CredentialSource
}

// GetAWSCredentials retrieves AWS credentials from the most secure available source
func GetAWSCredentials(publish *PublishConfig) (*AWSCredentials, error) {
	// Priority order (most secure to least secure):
	// 1. IAM Role (no credentials needed)
	// 2. Environment variables
	// 3. Config file (deprecated, will warn)

	if os.Getenv("AWS_CONTAINER_CREDENTIALS_RELATIVE_URI") != "" ||
		os.Getenv("AWS_CONTAINER_CREDENTIALS_FULL_URI") != "" ||
		os.Getenv("AWS_EXECUTION_ENV") != "" {
		return &AWSCredentials{
			Source: CredentialSourceIAMRole,
		}, nil
	}

	accessKey := os.Getenv("AWS_ACCESS_KEY_ID")
	secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY")

	if accessKey != "" && secretKey != "" {
		return &AWSCredentials{
			AccessKeyID:     accessKey,
			SecretAccessKey: secretKey,
			Source:          CredentialSourceEnvironment,
		}, nil
	}

	if publish.AccessKeyID != "" && publish.SecretKey != "" {
		fmt.Fprintf(os.Stderr, "WARNING: AWS credentials found in config file. This is insecure!\n")
		fmt.Fprintf(os.Stderr, "Please use environment variables or IAM roles instead.\n\n")

		return &AWSCredentials{
			AccessKeyID:     publish.AccessKeyID,
			SecretAccessKey: publish.SecretKey,
			Source:          CredentialSourceConfig,
		}, nil
	}

	if (publish.AccessKeyID == "") != (publish.SecretKey == "") {
		return nil, fmt.Errorf("publish.accessKeyId and publish.secretKey must be set together")
	}

	// No credentials found - AWS SDK will try default credential chain
	return &AWSCredentials{
		Source: CredentialSourceNone,
	}, nil
}

// SanitizeConfig removes sensitive information from config for logging
func SanitizeConfig(cfg *Config) Config {
	sanitized := *cfg

	if sanitized.Publish.AccessKeyID != "" {
		sanitized.Publish.AccessKeyID = "***REDACTED***"
	}
	if sanitized.Publish.SecretKey != "" {
		sanitized.Publish.SecretKey = "***REDACTED***"
	}

	return sanitized
}

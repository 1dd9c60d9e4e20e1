// Package publish distributes the public FastGithub CA certificate through
// S3 so other machines of a team can trust the same root. The private key
// is never uploaded.
package publish

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"fastgithub/internal/audit"
	"fastgithub/internal/config"
	"fastgithub/internal/truststore"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
)

// ContentType is the media type of an uploaded CA certificate
const ContentType = "application/x-x509-ca-cert"

// PutObjectAPI is the S3 operation the publisher needs
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Publisher uploads CA certificates to one S3 object
type Publisher struct {
	client PutObjectAPI
	bucket string
	key    string
}

// New creates a Publisher for an existing client
func New(client PutObjectAPI, bucket, key string) *Publisher {
	return &Publisher{
		client: client,
		bucket: bucket,
		key:    strings.TrimPrefix(key, "/"),
	}
}

// NewFromConfig creates a Publisher with an S3 client built from cfg
func NewFromConfig(ctx context.Context, cfg *config.PublishConfig) (*Publisher, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("publish.bucket is not configured")
	}

	creds, err := config.GetAWSCredentials(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to get AWS credentials: %v", err)
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	switch creds.Source {
	case config.CredentialSourceEnvironment, config.CredentialSourceConfig:
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			creds.AccessKeyID,
			creds.SecretAccessKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %v", err)
	}

	logrus.Infof("Using AWS credentials from: %s", creds.Source)

	return New(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.Key), nil
}

// Publish uploads the certificate at certPath in PEM form and returns the
// s3:// URI of the object
func (p *Publisher) Publish(ctx context.Context, certPath string) (string, error) {
	if p.bucket == "" || p.key == "" {
		return "", fmt.Errorf("S3 bucket or key not configured")
	}

	cert, err := truststore.LoadCertificate(certPath)
	if err != nil {
		return "", err
	}
	if !cert.IsCA {
		return "", fmt.Errorf("%s is not a CA certificate", certPath)
	}

	body := truststore.EncodePEM(cert)
	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(p.key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(ContentType),
		Metadata: map[string]string{
			"subject":   cert.Subject.String(),
			"serial":    cert.SerialNumber.String(),
			"not-after": cert.NotAfter.UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload CA certificate to s3://%s/%s: %w", p.bucket, p.key, err)
	}

	uri := fmt.Sprintf("s3://%s/%s", p.bucket, p.key)
	audit.Log(audit.EventCAPublished, "info", "CA certificate published", map[string]interface{}{
		"uri":    uri,
		"serial": cert.SerialNumber.String(),
	})
	return uri, nil
}

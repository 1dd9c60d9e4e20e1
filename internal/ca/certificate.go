// Package ca handles Certificate Authority operations for FastGithub.
// It generates the self-signed root CA, keeps the certificate and private
// key on disk and drives installation into the operating system trust
// store so git and browsers accept certificates issued by it.
//
// Security Warning: the CA private key can sign certificates for ANY
// domain. The key file is written with 0600 permissions and must never be
// distributed; only the certificate is meant to leave the machine.
package ca

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
)

// Certificate is a generated CA certificate bound to its private key.
// It is immutable once returned by the Generator.
type Certificate struct {
	cert *x509.Certificate
	key  *rsa.PrivateKey
}

// X509 returns the parsed certificate
func (c *Certificate) X509() *x509.Certificate {
	return c.cert
}

// PrivateKey returns the CA private key
func (c *Certificate) PrivateKey() *rsa.PrivateKey {
	return c.key
}

// DER returns the certificate in binary DER form
func (c *Certificate) DER() []byte {
	return append([]byte(nil), c.cert.Raw...)
}

// CertPEM returns the certificate in PEM form
func (c *Certificate) CertPEM() []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE",
		Bytes: c.cert.Raw,
	})
}

// KeyPEM returns the private key as a PKCS#1 PEM block
func (c *Certificate) KeyPEM() []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(c.key),
	})
}

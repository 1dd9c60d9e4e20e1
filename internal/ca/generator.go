package ca

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultKeyBits is the RSA modulus size of the root CA
	DefaultKeyBits = 2048

	// PathLenConstraint allows one level of intermediate below the root
	PathLenConstraint = 1

	// serialRandomBits is 18 hex digits of entropy before the decimal bound
	serialRandomBits = 18 * 4
)

var (
	// ErrInvalidSubject is returned for an empty subject name
	ErrInvalidSubject = errors.New("subject name must not be empty")
	// ErrInvalidValidity is returned when notBefore is not before notAfter
	ErrInvalidValidity = errors.New("notBefore must be before notAfter")

	// serialBound keeps serial numbers within 18 decimal digits
	serialBound = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

	oidExtensionExtendedKeyUsage = asn1.ObjectIdentifier{2, 5, 29, 37}
	oidExtKeyUsageServerAuth     = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 1}
	oidExtKeyUsageClientAuth     = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 2}
)

// Generator creates self-signed root CA certificates
type Generator struct {
	rand    io.Reader
	keyBits int
}

// NewGenerator creates a Generator using crypto/rand and DefaultKeyBits
func NewGenerator() *Generator {
	return &Generator{rand: rand.Reader, keyBits: DefaultKeyBits}
}

// WithKeyBits returns a copy of the generator producing keys of the given size
func (g *Generator) WithKeyBits(bits int) *Generator {
	c := *g
	c.keyBits = bits
	return &c
}

// CreateRootCertificate generates an RSA key pair and a self-signed CA
// certificate for CN=subjectName valid from notBefore to notAfter.
//
// The certificate carries basicConstraints (CA, pathlen 1), keyUsage
// (digitalSignature, keyCertSign, cRLSign), extendedKeyUsage (serverAuth,
// clientAuth), a subjectAltName DNS entry equal to subjectName and a
// subjectKeyIdentifier derived from the public key. It is signed with
// SHA256-with-RSA.
func (g *Generator) CreateRootCertificate(subjectName string, notBefore, notAfter time.Time) (*Certificate, error) {
	if strings.TrimSpace(subjectName) == "" {
		return nil, ErrInvalidSubject
	}
	if !notBefore.Before(notAfter) {
		return nil, ErrInvalidValidity
	}

	key, err := rsa.GenerateKey(g.rand, g.keyBits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}

	serial, err := newSerialNumber(g.rand)
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	eku, err := criticalExtKeyUsage()
	if err != nil {
		return nil, err
	}

	subject := pkix.Name{CommonName: subjectName}
	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               subject,
		Issuer:                subject,
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLen:            PathLenConstraint,
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		ExtraExtensions:       []pkix.Extension{eku},
		DNSNames:              []string{subjectName},
		SubjectKeyId:          subjectKeyID(&key.PublicKey),
		SignatureAlgorithm:    x509.SHA256WithRSA,
	}

	certDER, err := x509.CreateCertificate(g.rand, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}

	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}

	logrus.Debugf("CA certificate: issuer %s, subject %s, valid from %s to %s",
		subjectName, subjectName, notBefore.Format(time.RFC3339), notAfter.Format(time.RFC3339))

	return &Certificate{cert: cert, key: key}, nil
}

// criticalExtKeyUsage encodes serverAuth and clientAuth as a critical
// extension. crypto/x509 always emits ExtKeyUsage as non-critical and skips
// it when the same OID is in ExtraExtensions.
func criticalExtKeyUsage() (pkix.Extension, error) {
	value, err := asn1.Marshal([]asn1.ObjectIdentifier{oidExtKeyUsageServerAuth, oidExtKeyUsageClientAuth})
	if err != nil {
		return pkix.Extension{}, fmt.Errorf("failed to encode extended key usage: %w", err)
	}
	return pkix.Extension{Id: oidExtensionExtendedKeyUsage, Critical: true, Value: value}, nil
}

// newSerialNumber draws 72 random bits and reduces them modulo 10^18
func newSerialNumber(r io.Reader) (*big.Int, error) {
	limit := new(big.Int).Lsh(big.NewInt(1), serialRandomBits)
	n, err := rand.Int(r, limit)
	if err != nil {
		return nil, err
	}
	return n.Mod(n, serialBound), nil
}

// subjectKeyID is the SHA-1 of the subjectPublicKey bit string (RFC 5280
// section 4.2.1.2, method 1)
func subjectKeyID(pub *rsa.PublicKey) []byte {
	sum := sha1.Sum(x509.MarshalPKCS1PublicKey(pub))
	return sum[:]
}

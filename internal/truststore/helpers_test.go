package truststore

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// newCert returns a certificate for subjectCN signed by issuerCN's key. When
// both names match the certificate is self-signed.
func newCert(t *testing.T, subjectCN, issuerCN string) *x509.Certificate {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	serial, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: subjectCN},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}

	parent := template
	signer := key
	if issuerCN != subjectCN {
		signer, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		require.NoError(t, err)
		parent = &x509.Certificate{
			SerialNumber: big.NewInt(1),
			Subject:      pkix.Name{CommonName: issuerCN},
		}
	}

	der, err := x509.CreateCertificate(rand.Reader, template, parent, &key.PublicKey, signer)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert
}

func writeDER(t *testing.T, cert *x509.Certificate) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fastgithub.cer")
	require.NoError(t, os.WriteFile(path, cert.Raw, 0644))
	return path
}

// memoryRootStore keeps entries in insertion order. Like the native store it
// allows several entries under one alias.
type memoryRootStore struct {
	entries   []Entry
	removeErr error
	closed    bool
}

func newMemoryRootStore(entries ...Entry) *memoryRootStore {
	return &memoryRootStore{entries: append([]Entry(nil), entries...)}
}

func (s *memoryRootStore) open() (RootStore, error) {
	s.closed = false
	return s, nil
}

func (s *memoryRootStore) Entries() ([]Entry, error) {
	return append([]Entry(nil), s.entries...), nil
}

func (s *memoryRootStore) Remove(entry Entry) error {
	if s.removeErr != nil {
		return s.removeErr
	}
	for i, e := range s.entries {
		if e.Alias == entry.Alias && bytes.Equal(e.Certificate.Raw, entry.Certificate.Raw) {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("certificate %q not found", entry.Alias)
}

func (s *memoryRootStore) Add(alias string, cert *x509.Certificate) error {
	s.entries = append(s.entries, Entry{Alias: alias, Certificate: cert})
	return nil
}

// withAlias returns the certificates stored under alias
func (s *memoryRootStore) withAlias(alias string) []*x509.Certificate {
	var certs []*x509.Certificate
	for _, e := range s.entries {
		if e.Alias == alias {
			certs = append(certs, e.Certificate)
		}
	}
	return certs
}

func (s *memoryRootStore) Close() error {
	s.closed = true
	return nil
}

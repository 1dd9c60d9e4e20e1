//go:build windows
// +build windows

package truststore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/windows"
)

func openMemoryStore(t *testing.T) *systemRootStore {
	t.Helper()
	handle, err := windows.CertOpenStore(windows.CERT_STORE_PROV_MEMORY, 0, 0, 0, 0)
	require.NoError(t, err)
	s := &systemRootStore{handle: handle}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFriendlyNameWithoutProperty(t *testing.T) {
	// The subject CN must not stand in for a missing friendly name
	ca := newCert(t, "fastgithub", "fastgithub")
	ctx, err := windows.CertCreateCertificateContext(
		windows.X509_ASN_ENCODING|windows.PKCS_7_ASN_ENCODING, &ca.Raw[0], uint32(len(ca.Raw)))
	require.NoError(t, err)
	defer windows.CertFreeCertificateContext(ctx)

	alias, err := friendlyName(ctx)
	require.NoError(t, err)
	assert.Empty(t, alias)

	require.NoError(t, setFriendlyName(ctx, "fastgithub"))
	alias, err = friendlyName(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fastgithub", alias)
}

func TestSystemRootStoreEntries(t *testing.T) {
	s := openMemoryStore(t)

	entries, err := s.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)

	ca := newCert(t, "fastgithub", "fastgithub")
	other := newCert(t, "Some Root", "Some Root")
	require.NoError(t, s.Add("fastgithub", ca))
	require.NoError(t, s.Add("someroot", other))

	entries, err = s.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	aliases := map[string][]byte{}
	for _, e := range entries {
		aliases[e.Alias] = e.Certificate.Raw
	}
	assert.Equal(t, ca.Raw, aliases["fastgithub"])
	assert.Equal(t, other.Raw, aliases["someroot"])

	require.NoError(t, s.Remove(Entry{Alias: "fastgithub", Certificate: ca}))
	entries, err = s.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "someroot", entries[0].Alias)

	assert.Error(t, s.Remove(Entry{Alias: "fastgithub", Certificate: ca}))
}

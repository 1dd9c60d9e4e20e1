//go:build windows
// +build windows

package truststore

import (
	"bytes"
	"crypto/x509"
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

const certFriendlyNamePropID = 11

// errCryptNotFound (CRYPT_E_NOT_FOUND) ends an enumeration or reports a
// missing property
const errCryptNotFound = windows.Errno(0x80092004)

var (
	crypt32                               = windows.NewLazySystemDLL("crypt32.dll")
	procCertGetCertificateContextProperty = crypt32.NewProc("CertGetCertificateContextProperty")
	procCertSetCertificateContextProperty = crypt32.NewProc("CertSetCertificateContextProperty")
)

// systemRootStore is the current user's ROOT system store. Aliases are the
// certificates' friendly display names.
type systemRootStore struct {
	handle windows.Handle
}

func openSystemRootStore() (RootStore, error) {
	name, err := windows.UTF16PtrFromString("ROOT")
	if err != nil {
		return nil, err
	}

	handle, err := windows.CertOpenSystemStore(0, name)
	if err != nil {
		return nil, fmt.Errorf("CertOpenSystemStore: %w", err)
	}
	return &systemRootStore{handle: handle}, nil
}

func (s *systemRootStore) Entries() ([]Entry, error) {
	var entries []Entry
	err := s.each(func(ctx *windows.CertContext, entry Entry) bool {
		entries = append(entries, entry)
		return true
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *systemRootStore) Remove(entry Entry) error {
	var removeErr error
	removed := false

	err := s.each(func(ctx *windows.CertContext, candidate Entry) bool {
		if candidate.Alias != entry.Alias || !bytes.Equal(candidate.Certificate.Raw, entry.Certificate.Raw) {
			return true
		}
		// CertDeleteCertificateFromStore frees the context it is given, so
		// hand it a duplicate and let the enumeration release the original.
		removeErr = windows.CertDeleteCertificateFromStore(windows.CertDuplicateCertificateContext(ctx))
		removed = true
		return false
	})
	if err != nil {
		return err
	}

	if removeErr != nil {
		return fmt.Errorf("CertDeleteCertificateFromStore: %w", removeErr)
	}
	if !removed {
		return fmt.Errorf("certificate %q not found", entry.Alias)
	}
	return nil
}

func (s *systemRootStore) Add(alias string, cert *x509.Certificate) error {
	if len(cert.Raw) == 0 {
		return fmt.Errorf("empty certificate")
	}

	ctx, err := windows.CertCreateCertificateContext(
		windows.X509_ASN_ENCODING|windows.PKCS_7_ASN_ENCODING,
		&cert.Raw[0],
		uint32(len(cert.Raw)),
	)
	if err != nil {
		return fmt.Errorf("CertCreateCertificateContext: %w", err)
	}
	defer windows.CertFreeCertificateContext(ctx)

	if err := setFriendlyName(ctx, alias); err != nil {
		return fmt.Errorf("set friendly name: %w", err)
	}

	if err := windows.CertAddCertificateContextToStore(s.handle, ctx, windows.CERT_STORE_ADD_REPLACE_EXISTING, nil); err != nil {
		return fmt.Errorf("CertAddCertificateContextToStore: %w", err)
	}
	return nil
}

func (s *systemRootStore) Close() error {
	return windows.CertCloseStore(s.handle, 0)
}

// each walks the store until fn returns false. Unparseable certificates are
// skipped.
func (s *systemRootStore) each(fn func(ctx *windows.CertContext, entry Entry) bool) error {
	var ctx *windows.CertContext
	for {
		// The previous context is released by every call, successful or not
		next, err := windows.CertEnumCertificatesInStore(s.handle, ctx)
		if err != nil {
			if errors.Is(err, errCryptNotFound) {
				return nil
			}
			return fmt.Errorf("CertEnumCertificatesInStore: %w", err)
		}
		if next == nil {
			return nil
		}
		ctx = next

		der := make([]byte, ctx.Length)
		copy(der, unsafe.Slice(ctx.EncodedCert, ctx.Length))
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			continue
		}

		alias, err := friendlyName(ctx)
		if err != nil {
			windows.CertFreeCertificateContext(ctx)
			return err
		}

		if !fn(ctx, Entry{Alias: alias, Certificate: cert}) {
			windows.CertFreeCertificateContext(ctx)
			return nil
		}
	}
}

// friendlyName reads the friendly name property. A certificate without one
// has an empty alias; the subject name is never substituted.
func friendlyName(ctx *windows.CertContext) (string, error) {
	var size uint32
	r, _, callErr := procCertGetCertificateContextProperty.Call(
		uintptr(unsafe.Pointer(ctx)),
		certFriendlyNamePropID,
		0,
		uintptr(unsafe.Pointer(&size)),
	)
	if r == 0 {
		if errors.Is(callErr, errCryptNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("CertGetCertificateContextProperty: %w", callErr)
	}
	if size < 2 {
		return "", nil
	}

	buf := make([]uint16, (size+1)/2)
	r, _, callErr = procCertGetCertificateContextProperty.Call(
		uintptr(unsafe.Pointer(ctx)),
		certFriendlyNamePropID,
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(unsafe.Pointer(&size)),
	)
	if r == 0 {
		return "", fmt.Errorf("CertGetCertificateContextProperty: %w", callErr)
	}
	return windows.UTF16ToString(buf), nil
}

func setFriendlyName(ctx *windows.CertContext, name string) error {
	utf16, err := windows.UTF16FromString(name)
	if err != nil {
		return err
	}

	blob := windows.CryptDataBlob{
		Size: uint32(len(utf16) * 2),
		Data: (*byte)(unsafe.Pointer(&utf16[0])),
	}
	r, _, callErr := procCertSetCertificateContextProperty.Call(
		uintptr(unsafe.Pointer(ctx)),
		certFriendlyNamePropID,
		0,
		uintptr(unsafe.Pointer(&blob)),
	)
	if r == 0 {
		return callErr
	}
	return nil
}

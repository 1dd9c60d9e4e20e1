package truststore

import (
	"context"
	"crypto/sha1"
	"errors"
	"fmt"
	"testing"

	"fastgithub/internal/command/commandtest"
	"fastgithub/internal/platform"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func macOSInfo() platform.Info {
	return platform.New(platform.MacOS, "/Users/dev/fastgithub")
}

func TestMacOSInstallAlreadyTrusted(t *testing.T) {
	runner := commandtest.NewRecorder()
	installer := NewMacOSInstaller(macOSInfo(), runner)

	path := writeDER(t, newCert(t, "fastgithub", "fastgithub"))
	require.NoError(t, installer.Install(context.Background(), path))

	assert.Equal(t, []string{"security verify-cert -c " + path}, runner.Lines())
}

func TestMacOSInstallReplacesStale(t *testing.T) {
	stale := newCert(t, "fastgithub", "fastgithub")
	unrelated := newCert(t, "fastgithub", "Corporate Root")
	keychain := append(EncodePEM(stale), EncodePEM(unrelated)...)

	runner := commandtest.NewRecorder().
		On("security verify-cert", commandtest.Response{Err: errors.New("exit status 1")}).
		On("security find-certificate", commandtest.Response{Output: keychain})
	installer := NewMacOSInstaller(macOSInfo(), runner)

	path := writeDER(t, newCert(t, "fastgithub", "fastgithub"))
	require.NoError(t, installer.Install(context.Background(), path))

	staleHash := fmt.Sprintf("%X", sha1.Sum(stale.Raw))
	assert.Equal(t, []string{
		"security verify-cert -c " + path,
		"security find-certificate -a -c fastgithub -p " + systemKeychain,
		"sudo security delete-certificate -Z " + staleHash + " " + systemKeychain,
		"sudo -p Touch ID or enter password:  security add-trusted-cert -d -r trustRoot -k " + systemKeychain + " " + path,
	}, runner.Lines())
}

func TestMacOSInstallAddFailure(t *testing.T) {
	runner := commandtest.NewRecorder().
		On("security verify-cert", commandtest.Response{Err: errors.New("exit status 1")}).
		On("security find-certificate", commandtest.Response{Err: errors.New("exit status 44")}).
		On("sudo -p", commandtest.Response{Err: errors.New("exit status 1")})
	installer := NewMacOSInstaller(macOSInfo(), runner)

	err := installer.Install(context.Background(), writeDER(t, newCert(t, "fastgithub", "fastgithub")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "System keychain")
}

func TestMacOSUninstall(t *testing.T) {
	ca := newCert(t, "fastgithub", "fastgithub")
	runner := commandtest.NewRecorder().
		On("security find-certificate", commandtest.Response{Output: EncodePEM(ca)})
	installer := NewMacOSInstaller(macOSInfo(), runner)

	require.NoError(t, installer.Uninstall(context.Background(), writeDER(t, ca)))

	hash := fmt.Sprintf("%X", sha1.Sum(ca.Raw))
	assert.Contains(t, runner.Lines(), "sudo security delete-certificate -Z "+hash+" "+systemKeychain)
}

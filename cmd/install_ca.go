package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewInstallCACmd creates the install-ca command
func NewInstallCACmd(global *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "install-ca",
		Short: "Generate the root CA if needed and trust it on this host",
		Long: `Generate the FastGithub root Certificate Authority when it does not exist yet,
then install it into the trust store of the current operating system.

On Windows the certificate is added to the current user's root store and git is
configured to use the schannel TLS backend. On macOS you may be prompted for your
password or Touch ID. On Linux the certificate is placed in the distribution's
anchor directory, which usually requires root.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstallCA(cmd.Context(), global)
		},
	}
}

func runInstallCA(ctx context.Context, global *GlobalOptions) error {
	env, err := setup(global)
	if err != nil {
		return err
	}
	defer env.close()

	if ctx == nil {
		ctx = context.Background()
	}

	fmt.Println("🔐 FastGithub CA Installation")
	fmt.Println("=============================")

	paths := env.store.Paths()
	if env.store.EnsureCertificateAuthority() {
		fmt.Printf("✅ Generated new CA certificate: %s\n", paths.CertFile)
	} else if env.store.Exists() {
		fmt.Printf("✅ Using existing CA certificate: %s\n", paths.CertFile)
	} else {
		return fmt.Errorf("CA certificate could not be created in %s", paths.Dir)
	}

	printCertificate(env)

	fmt.Printf("\n🔧 Installing CA into the %s trust store...\n", env.info.OS)
	env.store.InstallAndTrust(ctx)

	fmt.Println("\n✅ Done. Check the log output above for any manual steps.")
	return nil
}

// NewEnsureCACmd creates the ensure-ca command
func NewEnsureCACmd(global *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-ca",
		Short: "Generate the root CA files without touching the trust store",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(global)
			if err != nil {
				return err
			}
			defer env.close()

			created := env.store.EnsureCertificateAuthority()
			if !env.store.Exists() {
				return fmt.Errorf("CA certificate could not be created in %s", env.store.Paths().Dir)
			}
			if created {
				fmt.Printf("✅ Generated new CA certificate: %s\n", env.store.Paths().CertFile)
			} else {
				fmt.Printf("✅ CA certificate already present: %s\n", env.store.Paths().CertFile)
			}
			return nil
		},
	}
}

func printCertificate(env *environment) {
	cert, err := env.store.Certificate()
	if err != nil {
		fmt.Printf("⚠️  Could not read CA certificate: %v\n", err)
		return
	}
	fmt.Printf("   Subject:     %s\n", cert.Subject)
	fmt.Printf("   Serial:      %s\n", cert.SerialNumber)
	fmt.Printf("   Valid until: %s\n", cert.NotAfter.Format("2006-01-02"))
	fmt.Printf("   Key file:    %s\n", env.store.Paths().KeyFile)
}

package cmd

import (
	"fmt"
	"time"

	"fastgithub/internal/truststore"

	"github.com/spf13/cobra"
)

// NewStatusCmd creates the status command
func NewStatusCmd(global *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the FastGithub CA state on this host",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(global)
		},
	}
}

func runStatus(global *GlobalOptions) error {
	env, err := setup(global)
	if err != nil {
		return err
	}
	defer env.close()

	fmt.Println("🔍 FastGithub CA Status")
	fmt.Println("=======================")
	fmt.Printf("Platform:    %s\n", env.info.OS)
	fmt.Printf("System name: %s\n", env.info.SystemName)
	fmt.Printf("Subject:     %s\n", env.store.SubjectName())

	fmt.Println("\n📜 CA Certificate:")
	paths := env.store.Paths()
	if !env.store.Exists() {
		fmt.Printf("❌ Not found in %s (run 'install-ca' first)\n", paths.Dir)
		return nil
	}

	fmt.Printf("✅ Certificate: %s\n", paths.CertFile)
	fmt.Printf("✅ Private key: %s\n", paths.KeyFile)
	printCertificate(env)

	if cert, err := env.store.Certificate(); err == nil {
		remaining := time.Until(cert.NotAfter)
		if remaining <= 0 {
			fmt.Println("❌ Certificate has expired, remove it with 'uninstall-ca --remove-files' and reinstall")
		} else if remaining < 30*24*time.Hour {
			fmt.Printf("⚠️  Certificate expires in %d days\n", int(remaining.Hours()/24))
		}
	}

	fmt.Println("\n🔧 Trust store:")
	installers := truststore.Installers(env.info, truststore.Options{})
	installer, err := truststore.Select(installers, paths.CertFile)
	if err != nil {
		fmt.Println("⚠️  No automatic installer for this platform")
		return nil
	}
	fmt.Printf("Installer:   %s\n", installer.Platform())
	fmt.Printf("Manual step: %s\n", installer.ManualHint(paths.CertFile))
	return nil
}

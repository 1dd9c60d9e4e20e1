package cmd

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// UninstallOptions contains options for the uninstall-ca command
type UninstallOptions struct {
	RemoveFiles bool
}

// NewUninstallCmd creates the uninstall-ca command
func NewUninstallCmd(global *GlobalOptions) *cobra.Command {
	opts := &UninstallOptions{}

	cmd := &cobra.Command{
		Use:   "uninstall-ca",
		Short: "Remove the FastGithub CA from the trust store",
		Long: `Remove the FastGithub root certificate, and stale FastGithub certificates
left by earlier installations, from the trust store of the current operating system.

Use --remove-files to also delete the certificate and private key files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUninstall(cmd.Context(), global, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.RemoveFiles, "remove-files", false, "Also delete the CA certificate and private key files")

	return cmd
}

func runUninstall(ctx context.Context, global *GlobalOptions, opts *UninstallOptions) error {
	env, err := setup(global)
	if err != nil {
		return err
	}
	defer env.close()

	if ctx == nil {
		ctx = context.Background()
	}

	fmt.Println("🗑️  FastGithub CA Uninstall")
	fmt.Println("===========================")

	paths := env.store.Paths()
	if env.store.Exists() {
		if err := env.store.Uninstall(ctx); err != nil {
			logrus.WithError(err).Error("Failed to remove CA from trust store")
			fmt.Printf("❌ Failed to remove CA from trust store: %v\n", err)
			return err
		}
		fmt.Println("✅ CA removed from trust store")
	} else {
		fmt.Printf("ℹ️  No CA certificate at %s, nothing to remove from the trust store\n", paths.CertFile)
	}

	if opts.RemoveFiles {
		if err := env.store.RemoveFiles(); err != nil {
			return fmt.Errorf("failed to remove CA files: %v", err)
		}
		fmt.Printf("✅ Removed %s and %s\n", paths.CertFile, paths.KeyFile)
	}

	return nil
}

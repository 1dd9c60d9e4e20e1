package main

import (
	"fmt"
	"os"

	"fastgithub/cmd"
	"fastgithub/internal/security"

	"github.com/spf13/cobra"
)

var version = "1.0.0"

func main() {
	global := &cmd.GlobalOptions{}

	// Restrict the key file and memory of this process before anything runs
	if err := security.NewHardening().ApplyHardening(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	var rootCmd = &cobra.Command{
		Use:   "fastgithub",
		Short: "Manage the FastGithub root certificate authority",
		Long: `FastGithub generates a local root Certificate Authority used to intercept
and accelerate GitHub traffic, and installs it into the trust store of
Windows, Linux or macOS so that TLS connections validate without warnings.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&global.ConfigFile, "config", "", "config file (default is ./config.yaml)")

	rootCmd.AddCommand(
		cmd.NewInstallCACmd(global),
		cmd.NewEnsureCACmd(global),
		cmd.NewStatusCmd(global),
		cmd.NewUninstallCmd(global),
		cmd.NewPublishCmd(global),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("FastGithub v%s\n", version)
		},
	}
}

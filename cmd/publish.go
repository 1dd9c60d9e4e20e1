package cmd

import (
	"context"
	"fmt"

	"fastgithub/internal/publish"

	"github.com/spf13/cobra"
)

// NewPublishCmd creates the publish-ca command
func NewPublishCmd(global *GlobalOptions) *cobra.Command {
	var bucket, key string

	cmd := &cobra.Command{
		Use:   "publish-ca",
		Short: "Upload the public CA certificate to S3",
		Long: `Upload the FastGithub root certificate (never the private key) to the
configured S3 bucket so other machines can fetch and trust it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(global)
			if err != nil {
				return err
			}
			defer env.close()

			if bucket != "" {
				env.cfg.Publish.Bucket = bucket
			}
			if key != "" {
				env.cfg.Publish.Key = key
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			if !env.store.Exists() {
				return fmt.Errorf("no CA certificate at %s (run 'ensure-ca' first)", env.store.Paths().CertFile)
			}

			publisher, err := publish.NewFromConfig(ctx, &env.cfg.Publish)
			if err != nil {
				return err
			}

			fmt.Println("📤 Publishing CA certificate...")
			uri, err := publisher.Publish(ctx, env.store.Paths().CertFile)
			if err != nil {
				return err
			}
			fmt.Printf("✅ Published to %s\n", uri)
			return nil
		},
	}

	cmd.Flags().StringVar(&bucket, "bucket", "", "S3 bucket (overrides publish.bucket)")
	cmd.Flags().StringVar(&key, "key", "", "S3 object key (overrides publish.key)")

	return cmd
}

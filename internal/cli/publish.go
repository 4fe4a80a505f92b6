package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/malbeclabs/wlfixtures/config"
	"github.com/malbeclabs/wlfixtures/internal/publish"
	"github.com/spf13/cobra"
)

type PublishCmd struct{}

func NewPublishCmd() *PublishCmd {
	return &PublishCmd{}
}

func (c *PublishCmd) Command() *cobra.Command {
	var (
		dir      string
		bucket   string
		prefix   string
		region   string
		endpoint string
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload the fixtures and their manifest to S3-compatible storage",
		RunE: withContext(func(ctx context.Context, log *slog.Logger, cmd *cobra.Command, args []string) error {
			p, err := publish.NewPublisher(ctx, publish.Config{
				Logger:          log,
				Bucket:          bucket,
				Prefix:          prefix,
				Region:          region,
				EndpointURL:     endpoint,
				AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
				SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			})
			if err != nil {
				return fmt.Errorf("failed to create publisher: %w", err)
			}
			objects, err := p.Publish(ctx, dir)
			if err != nil {
				return err
			}
			table := newTable(cmd.OutOrStdout(), []string{"Key", "Bytes", "URL"})
			for _, o := range objects {
				table.Append([]string{o.Key, fmt.Sprint(o.Size), o.URL})
			}
			table.Render()
			return nil
		}),
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", config.DefaultFixturesDir, "fixtures directory")
	cmd.Flags().StringVar(&bucket, "bucket", os.Getenv("WL_FIXTURES_BUCKET"), "destination bucket (env: WL_FIXTURES_BUCKET)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "key prefix")
	cmd.Flags().StringVar(&region, "region", os.Getenv("AWS_REGION"), "bucket region (env: AWS_REGION)")
	cmd.Flags().StringVar(&endpoint, "endpoint-url", os.Getenv("AWS_ENDPOINT_URL"), "S3-compatible endpoint, e.g. MinIO (env: AWS_ENDPOINT_URL)")

	return cmd
}

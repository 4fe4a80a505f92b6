package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/malbeclabs/wlfixtures/config"
	"github.com/malbeclabs/wlfixtures/internal/pipeline"
	"github.com/malbeclabs/wlfixtures/internal/registry"
	"github.com/malbeclabs/wlfixtures/internal/runner"
	"github.com/malbeclabs/wlfixtures/internal/snapshot"
	"github.com/spf13/cobra"
)

type ExportCmd struct{}

func NewExportCmd() *ExportCmd {
	return &ExportCmd{}
}

func (c *ExportCmd) Command() *cobra.Command {
	var (
		manifestPath string
		outDir       string
		naming       string
		dump         string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Re-export the accounts listed in a manifest from a running network",
		RunE: withContext(func(ctx context.Context, log *slog.Logger, cmd *cobra.Command, args []string) error {
			rpcURL, err := rpcURLFlag(cmd)
			if err != nil {
				return err
			}
			m, err := registry.ReadManifest(manifestPath)
			if err != nil {
				return err
			}
			reg, err := m.Registry()
			if err != nil {
				return fmt.Errorf("invalid manifest %s: %w", manifestPath, err)
			}
			if outDir == "" {
				outDir = filepath.Dir(manifestPath)
			}

			dumper, err := pipeline.NewDumper(pipeline.DumpMode(dump), runner.NewExecRunner(log), config.SolanaBinary, rpcURL)
			if err != nil {
				return err
			}
			exporter, err := snapshot.NewExporter(snapshot.Config{
				Logger: log,
				Dumper: dumper,
				Dir:    outDir,
				Naming: snapshot.Naming(naming),
			})
			if err != nil {
				return fmt.Errorf("failed to create exporter: %w", err)
			}
			files, err := exporter.ExportAll(ctx, reg)
			if err != nil {
				return err
			}
			printFiles(cmd.OutOrStdout(), files)
			return nil
		}),
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", filepath.Join(config.DefaultFixturesDir, config.DefaultManifestFilename), "manifest listing the accounts to export")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default: the manifest's directory)")
	cmd.Flags().StringVar(&naming, "naming", string(snapshot.NamingKey), "fixture file naming: key or address")
	cmd.Flags().StringVar(&dump, "dump", string(pipeline.DumpRPC), "how account data is fetched: cli or rpc")

	return cmd
}


package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/malbeclabs/wlfixtures/config"
	"github.com/malbeclabs/wlfixtures/internal/registry"
	"github.com/malbeclabs/wlfixtures/pkg/fixtures"
	"github.com/spf13/cobra"
)

type RenderCmd struct{}

func NewRenderCmd() *RenderCmd {
	return &RenderCmd{}
}

func (c *RenderCmd) Command() *cobra.Command {
	var (
		manifestPath string
		templatePath string
		outPath      string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the fixtures manifest through a template, by default a Rust module of address constants",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := registry.ReadManifest(manifestPath)
			if err != nil {
				return err
			}
			var out string
			if templatePath == "" {
				out, err = fixtures.RenderRust(m)
			} else {
				out, err = fixtures.RenderFile(templatePath, m)
			}
			if err != nil {
				return fmt.Errorf("failed to render manifest: %w", err)
			}
			if outPath == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), out)
				return err
			}
			if err := os.WriteFile(outPath, []byte(out), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", outPath, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", filepath.Join(config.DefaultFixturesDir, config.DefaultManifestFilename), "fixtures manifest")
	cmd.Flags().StringVarP(&templatePath, "template", "t", "", "text/template file; the built-in Rust module when empty")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default: stdout)")

	return cmd
}

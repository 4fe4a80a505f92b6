package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/malbeclabs/wlfixtures/config"
	"github.com/malbeclabs/wlfixtures/internal/keypair"
	"github.com/malbeclabs/wlfixtures/internal/pipeline"
	"github.com/malbeclabs/wlfixtures/internal/runner"
	"github.com/malbeclabs/wlfixtures/internal/tokenprog"
	"github.com/malbeclabs/wlfixtures/internal/validator"
	"github.com/spf13/cobra"
)

type CleanupCmd struct{}

func NewCleanupCmd() *CleanupCmd {
	return &CleanupCmd{}
}

func (c *CleanupCmd) Command() *cobra.Command {
	var (
		workDir     string
		keepNetwork bool
		keepPayer   bool
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove the identity files of an aborted run and stop the local network",
		RunE: withContext(func(ctx context.Context, log *slog.Logger, cmd *cobra.Command, args []string) error {
			run := runner.NewExecRunner(log)
			kp, err := keypair.NewManager(keypair.Config{Logger: log, Runner: run, Dir: workDir})
			if err != nil {
				return fmt.Errorf("failed to create keypair manager: %w", err)
			}
			var network validator.Network
			if !keepNetwork {
				network, err = validator.NewProcess(validator.ProcessConfig{Logger: log, Runner: run})
				if err != nil {
					return fmt.Errorf("failed to create network: %w", err)
				}
			}
			return pipeline.NewCleanup(log, kp, network).Run(ctx, cleanupNames(keepPayer), nil)
		}),
	}

	cmd.Flags().StringVarP(&workDir, "work-dir", "C", ".", "directory holding the identity files")
	cmd.Flags().BoolVar(&keepNetwork, "keep-network", false, "only remove the identity files")
	cmd.Flags().BoolVar(&keepPayer, "keep-payer", false, "do not remove "+config.PayerIdentity+".json; use when the run reused an existing payer")

	return cmd
}

func cleanupNames(keepPayer bool) []string {
	names := pipeline.IdentityNames(tokenprog.All)
	if !keepPayer {
		return names
	}
	kept := names[:0]
	for _, name := range names {
		if name != config.PayerIdentity {
			kept = append(kept, name)
		}
	}
	return kept
}

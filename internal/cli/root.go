package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/malbeclabs/wlfixtures/config"
	"github.com/spf13/cobra"
)

type ExitCode int

const (
	exitCodeSuccess = 0
	exitCodeError   = 1
)

// BuildInfo is set through ldflags in cmd/wl-fixtures.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

func Run(info BuildInfo) ExitCode {
	if err := NewRootCmd(info).Execute(); err != nil {
		return exitCodeError
	}
	return exitCodeSuccess
}

func NewRootCmd(info BuildInfo) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "wl-fixtures",
		Short:        "Provision whitelist program accounts on a local network and export them as test fixtures.",
		Version:      fmt.Sprintf("%s (commit %s, built %s)", info.Version, info.Commit, info.Date),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to load .env: %w", err)
			}
			path, err := cmd.Flags().GetString("config")
			if err != nil {
				return fmt.Errorf("failed to get config flag: %w", err)
			}
			if path == "" {
				return nil
			}
			return applyConfigFile(cmd.Flags(), path)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			err := cmd.Help()
			if err != nil {
				return fmt.Errorf("failed to show help: %w", err)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "set debug logging level")
	rootCmd.PersistentFlags().StringP("config", "c", "", "YAML file of flag values; flags given on the command line take precedence")
	rootCmd.PersistentFlags().StringP("rpc-url", "u", "", "RPC URL or moniker (l/local, d/devnet, t/testnet, m/mainnet); defaults to $SOLANA_RPC_URL")

	rootCmd.AddCommand(
		NewProvisionCmd().Command(),
		NewExportCmd().Command(),
		NewInspectCmd().Command(),
		NewPublishCmd().Command(),
		NewCleanupCmd().Command(),
		NewRenderCmd().Command(),
		NewParseCmd().Command(),
	)

	return rootCmd
}

// withContext runs f with a logger built from the root flags and a context cancelled on
// SIGINT/SIGTERM.
func withContext(f func(ctx context.Context, log *slog.Logger, cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		verbose, err := cmd.Flags().GetBool("verbose")
		if err != nil {
			return fmt.Errorf("failed to get verbose flag: %w", err)
		}
		return f(ctx, newLogger(verbose), cmd, args)
	}
}

func rpcURLFlag(cmd *cobra.Command) (string, error) {
	value, err := cmd.Flags().GetString("rpc-url")
	if err != nil {
		return "", fmt.Errorf("failed to get rpc-url flag: %w", err)
	}
	return config.ResolveRPCURL(value)
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/malbeclabs/wlfixtures/config"
	"github.com/malbeclabs/wlfixtures/internal/metrics"
	"github.com/malbeclabs/wlfixtures/internal/pipeline"
	"github.com/malbeclabs/wlfixtures/internal/prompt"
	"github.com/malbeclabs/wlfixtures/internal/runner"
	"github.com/malbeclabs/wlfixtures/internal/snapshot"
	"github.com/malbeclabs/wlfixtures/internal/tokenprog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

const (
	defaultPostTestCommand      = "cargo test --manifest-path program/Cargo.toml"
	defaultValidatorTestCommand = "cargo test-bpf --manifest-path program/Cargo.toml"
)

type provisionOptions struct {
	workDir         string
	variants        string
	parallel        bool
	strictExit      bool
	payer           string
	whitelistClient string
	buildSubcmd     string
	auxToolDir      string
	skipClientBuild bool

	network        string
	validatorImage string
	validatorArgs  []string
	healthCheck    bool
	warmUp         time.Duration
	pollInterval   time.Duration
	readyTimeout   time.Duration

	fixturesDir string
	naming      string
	dump        string
	manifest    string

	postTestCommand      string
	validatorTestCommand string
	prompt               bool
	yes                  bool

	metricsFile string
}

type ProvisionCmd struct {
	opts provisionOptions
}

func NewProvisionCmd() *ProvisionCmd {
	return &ProvisionCmd{}
}

func (c *ProvisionCmd) Command() *cobra.Command {
	o := &c.opts
	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Deploy the whitelist program to a fresh network, create its accounts and export them as fixtures",
		RunE: withContext(func(ctx context.Context, log *slog.Logger, cmd *cobra.Command, args []string) error {
			rpcURL, err := rpcURLFlag(cmd)
			if err != nil {
				return err
			}
			rpcURL, err = networkRPCURL(log, o.network, rpcURL, cmd.Flags().Changed("rpc-url"))
			if err != nil {
				return err
			}
			return c.run(ctx, log, cmd, rpcURL)
		}),
	}

	f := cmd.Flags()
	f.StringVarP(&o.workDir, "work-dir", "C", ".", "repository root; identity files are written here and relative paths resolve against it")
	f.StringVar(&o.variants, "variants", "token2022,legacy", "token program variants to provision, in order")
	f.BoolVar(&o.parallel, "parallel", false, "run the variants of each phase concurrently")
	f.BoolVar(&o.strictExit, "strict-exit", false, "fail on any non-zero exit status from the external tools")
	f.StringVar(&o.payer, "payer", "", "existing payer keypair to use instead of generating one; it is never removed")
	f.StringVar(&o.whitelistClient, "whitelist-client", config.WhitelistClientBinary, "whitelist command-line client binary")
	f.StringVar(&o.buildSubcmd, "build-subcmd", config.DefaultBuildSubcmd, "cargo subcommand that builds the on-chain program")
	f.StringVar(&o.auxToolDir, "aux-tool-dir", config.DefaultAuxToolDir, "companion crate built and installed after deploy; empty skips it")
	f.BoolVar(&o.skipClientBuild, "skip-client-build", false, "do not build the whitelist client")

	f.StringVar(&o.network, "network", networkProcess, "network backend: process, container or external")
	f.StringVar(&o.validatorImage, "validator-image", config.DefaultValidatorImage, "image for the container network backend")
	f.StringSliceVar(&o.validatorArgs, "validator-arg", nil, "extra argument passed to the test validator (repeatable)")
	f.BoolVar(&o.healthCheck, "health-check", true, "wait for the network RPC to report healthy")
	f.DurationVar(&o.warmUp, "warm-up", 0, "grace period before the network is probed (default 2s)")
	f.DurationVar(&o.pollInterval, "poll-interval", 0, "network readiness poll interval")
	f.DurationVar(&o.readyTimeout, "ready-timeout", 0, "how long to wait for the network to become ready")

	f.StringVar(&o.fixturesDir, "fixtures-dir", config.DefaultFixturesDir, "directory the fixtures are written to")
	f.StringVar(&o.naming, "naming", string(snapshot.NamingKey), "fixture file naming: key or address")
	f.StringVar(&o.dump, "dump", string(pipeline.DumpCLI), "how account data is fetched: cli or rpc")
	f.StringVar(&o.manifest, "manifest", "", "manifest path (default <fixtures-dir>/"+config.DefaultManifestFilename+")")

	f.StringVar(&o.postTestCommand, "test-command", defaultPostTestCommand, "command run after provisioning; empty disables it")
	f.StringVar(&o.validatorTestCommand, "validator-test-command", defaultValidatorTestCommand, "command run when the validator test prompt is answered yes")
	f.BoolVar(&o.prompt, "prompt", true, "ask whether to run the validator tests")
	f.BoolVarP(&o.yes, "yes", "y", false, "run the validator tests without asking")

	f.StringVar(&o.metricsFile, "metrics-file", "", "write run metrics to this node-exporter textfile")

	return cmd
}

func (c *ProvisionCmd) run(ctx context.Context, log *slog.Logger, cmd *cobra.Command, rpcURL string) error {
	o := c.opts
	run := runner.NewExecRunner(log)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	network, err := newNetwork(log, run, networkOptions{
		kind:         o.network,
		image:        o.validatorImage,
		rpcURL:       rpcURL,
		dir:          o.workDir,
		extraArgs:    o.validatorArgs,
		healthCheck:  o.healthCheck,
		warmUp:       o.warmUp,
		pollInterval: o.pollInterval,
		timeout:      o.readyTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create network: %w", err)
	}

	cfg, err := o.pipelineConfig(log, run, rpcURL)
	if err != nil {
		return err
	}
	cfg.Network = network
	cfg.Metrics = m

	p, err := pipeline.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	res, runErr := p.Run(ctx)

	if o.metricsFile != "" {
		if err := metrics.WriteTextfile(o.metricsFile, reg); err != nil {
			log.Warn("Failed to write metrics", "error", err)
		}
	}

	out := cmd.OutOrStdout()
	printSteps(out, res.Steps)
	if runErr != nil {
		log.Error("Provisioning failed", "errorType", pipeline.ErrorType(runErr), "error", runErr)
		return runErr
	}
	printFiles(out, res.Files)
	log.Info("Provisioning complete", "programID", res.ProgramID, "wallet", res.WalletAddress, "manifest", res.ManifestPath)
	return nil
}

func (o provisionOptions) pipelineConfig(log *slog.Logger, run runner.Runner, rpcURL string) (pipeline.Config, error) {
	variants, err := tokenprog.ParseList(o.variants)
	if err != nil {
		return pipeline.Config{}, err
	}
	naming, err := snapshot.ParseNaming(o.naming)
	if err != nil {
		return pipeline.Config{}, err
	}
	workDir := o.workDir
	if workDir == "" {
		workDir = "."
	}
	if _, err := os.Stat(workDir); err != nil {
		return pipeline.Config{}, fmt.Errorf("invalid work dir: %w", err)
	}

	cfg := pipeline.Config{
		Logger:               log,
		Runner:               run,
		WorkDir:              workDir,
		AuxToolDir:           o.auxToolDir,
		SkipClientBuild:      o.skipClientBuild,
		BuildSubcmd:          o.buildSubcmd,
		WhitelistClient:      o.whitelistClient,
		ExistingPayer:        o.payer,
		Variants:             variants,
		Parallel:             o.parallel,
		StrictExit:           o.strictExit,
		RPCURL:               rpcURL,
		FixturesDir:          o.fixturesDir,
		Naming:               naming,
		Dump:                 pipeline.DumpMode(o.dump),
		ManifestPath:         o.manifest,
		PostTestCommand:      strings.Fields(o.postTestCommand),
		ValidatorTestCommand: strings.Fields(o.validatorTestCommand),
	}
	switch {
	case o.yes:
		cfg.Confirm = prompt.Always(true)
	case o.prompt:
		cfg.Confirm = prompt.Confirm
	}
	return cfg, nil
}

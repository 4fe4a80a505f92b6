// Package pipeline provisions the whitelist program test fixtures.
//
// A run generates the identities, patches and deploys the program against a fresh network,
// creates the mints, token accounts, whitelists and tickets for every token program variant,
// exports each account to a fixture file and finally removes the identities and stops the
// network, whatever the outcome.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/alitto/pond/v2"
	"github.com/malbeclabs/wlfixtures/config"
	"github.com/malbeclabs/wlfixtures/internal/keypair"
	"github.com/malbeclabs/wlfixtures/internal/patch"
	"github.com/malbeclabs/wlfixtures/internal/registry"
	"github.com/malbeclabs/wlfixtures/internal/runner"
	"github.com/malbeclabs/wlfixtures/internal/snapshot"
	"github.com/malbeclabs/wlfixtures/internal/tokenprog"
	"github.com/malbeclabs/wlfixtures/internal/validator"
	"github.com/malbeclabs/wlfixtures/pkg/solrpc"
)

type Result struct {
	ProgramID     string
	WalletAddress string
	RPCURL        string
	Registry      *registry.Registry
	Files         []snapshot.File
	ManifestPath  string
	Steps         []StepTiming

	TestsPassed       bool
	ValidatorTestsRan bool
}

type Pipeline struct {
	log      *slog.Logger
	cfg      Config
	keypairs *keypair.Manager
	cleanup  *Cleanup

	mu    sync.Mutex
	steps []StepTiming
}

func New(cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	kp, err := keypair.NewManager(keypair.Config{
		Logger:       cfg.Logger,
		Runner:       cfg.Runner,
		Dir:          cfg.WorkDir,
		SolanaBinary: cfg.SolanaBinary,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create keypair manager: %w", err)
	}
	return &Pipeline{
		log:      cfg.Logger,
		cfg:      cfg,
		keypairs: kp,
		cleanup:  NewCleanup(cfg.Logger, kp, cfg.Network),
	}, nil
}

// Run provisions and exports the fixtures, cleans up, and then runs the configured test commands.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	res, err := p.provision(ctx)
	res.Steps = p.Steps()
	if m := p.cfg.Metrics; m != nil {
		if err != nil {
			m.RunSuccess.Set(0)
		} else {
			m.RunSuccess.Set(1)
		}
	}
	if err != nil {
		return res, err
	}

	if err := p.runTests(ctx, res); err != nil {
		return res, err
	}
	return res, nil
}

// Steps returns the steps run so far, in completion order.
func (p *Pipeline) Steps() []StepTiming {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]StepTiming, len(p.steps))
	copy(out, p.steps)
	return out
}

func (p *Pipeline) provision(ctx context.Context) (res *Result, err error) {
	reg := registry.New()
	res = &Result{Registry: reg}

	var (
		ephemeral []string
		handle    *validator.Handle
	)
	defer func() {
		cleanupErr := p.cleanup.Run(context.WithoutCancel(ctx), ephemeral, handle)
		if cleanupErr != nil {
			p.log.Error("--> Cleanup incomplete", "error", cleanupErr)
		}
		err = errors.Join(err, cleanupErr)
	}()
	create := func(name string) error {
		ephemeral = append(ephemeral, name)
		return p.keypairs.Create(ctx, name)
	}

	p.log.Info("==> Generating program identity")
	err = p.step("program_identity", 0, func() error {
		if err := create(config.ProgramIdentity); err != nil {
			return err
		}
		addr, err := p.keypairs.Resolve(ctx, config.ProgramIdentity)
		res.ProgramID = addr
		return err
	})
	if err != nil {
		return res, err
	}

	err = p.step("patch_declaration", 0, func() error {
		r, err := patch.Declaration(p.path(p.cfg.ProgramSource), p.cfg.DeclareMarker, res.ProgramID)
		if err != nil {
			return err
		}
		p.log.Info("--> Patched program id", "path", r.Path, "line", r.Line, "programID", res.ProgramID)
		p.log.Debug("--> Declaration diff", "diff", r.Diff)
		return nil
	})
	if err != nil {
		return res, err
	}

	p.log.Info("==> Preparing payer")
	payerPath := p.cfg.ExistingPayer
	err = p.step("payer_identity", 0, func() error {
		if payerPath != "" {
			payerPath = p.path(payerPath)
			addr, err := p.keypairs.ResolveFile(ctx, payerPath)
			res.WalletAddress = addr
			return err
		}
		if err := create(config.PayerIdentity); err != nil {
			return err
		}
		payerPath = p.keypairs.Path(config.PayerIdentity)
		addr, err := p.keypairs.Resolve(ctx, config.PayerIdentity)
		res.WalletAddress = addr
		return err
	})
	if err != nil {
		return res, err
	}
	p.log.Info("--> Wallet", "address", res.WalletAddress, "keypair", payerPath)

	p.log.Info("==> Generating mint and whitelist identities")
	err = p.step("account_identities", 0, func() error {
		for _, v := range p.cfg.Variants {
			if err := create(v.Key(string(registry.KindMint))); err != nil {
				return err
			}
		}
		return create(config.WhitelistIdentity)
	})
	if err != nil {
		return res, err
	}

	err = p.step("start_network", 0, func() error {
		h, err := p.cfg.Network.Start(ctx, validator.StartOptions{Reset: true, FundedAddress: res.WalletAddress})
		handle = h
		return err
	})
	if err != nil {
		return res, err
	}
	res.RPCURL = p.cfg.RPCURL
	if res.RPCURL == "" && handle != nil {
		res.RPCURL = handle.RPCURL
	}
	env := toolEnv{payerPath: payerPath, wallet: res.WalletAddress, rpcURL: res.RPCURL}

	p.log.Info("==> Building and deploying program")
	if err := p.step("build_program", 0, func() error {
		_, err := p.exec(ctx, p.cfg.CargoBinary, p.cfg.BuildSubcmd, "--manifest-path", p.path(p.cfg.ProgramManifest))
		return err
	}); err != nil {
		return res, err
	}
	if err := p.step("deploy_program", 0, func() error {
		args := []string{
			"program", "deploy", p.path(p.cfg.ProgramArtifact),
			"--program-id", p.keypairs.Path(config.ProgramIdentity),
			"--fee-payer", payerPath,
		}
		_, err := p.exec(ctx, p.cfg.SolanaBinary, withURL(args, "--url", env.rpcURL)...)
		return err
	}); err != nil {
		return res, err
	}
	if !p.cfg.SkipClientBuild {
		if err := p.step("build_client", 0, func() error {
			_, err := p.exec(ctx, p.cfg.CargoBinary, "build", "--release", "--manifest-path", p.path(p.cfg.ClientManifest))
			return err
		}); err != nil {
			return res, err
		}
	}
	if p.cfg.AuxToolDir != "" {
		p.log.Info("==> Installing auxiliary tool", "dir", p.cfg.AuxToolDir)
		if err := p.step("install_aux_tool", 0, func() error {
			dir := p.path(p.cfg.AuxToolDir)
			if _, err := p.exec(ctx, p.cfg.CargoBinary, "build", "--release", "--manifest-path", filepath.Join(dir, "Cargo.toml")); err != nil {
				return err
			}
			_, err := p.exec(ctx, p.cfg.CargoBinary, "install", "--path", dir)
			return err
		}); err != nil {
			return res, err
		}
	}

	for _, ph := range p.phases(env, reg) {
		if err := p.runPhase(ctx, reg, ph); err != nil {
			return res, err
		}
	}

	exporter, err := p.newExporter(res.RPCURL)
	if err != nil {
		return res, err
	}
	err = p.step("export_fixtures", 0, func() error {
		files, err := exporter.ExportAll(ctx, reg)
		res.Files = files
		return err
	})
	if err != nil {
		return res, err
	}
	if m := p.cfg.Metrics; m != nil {
		m.FixturesExported.Add(float64(countFiles(res.Files)))
	}

	manifest := registry.NewManifest(res.ProgramID, res.WalletAddress, reg.Entries(), exporter.FileName, p.cfg.Clock.Now())
	res.ManifestPath = filepath.Join(exporter.Dir(), config.DefaultManifestFilename)
	if p.cfg.ManifestPath != "" {
		res.ManifestPath = p.path(p.cfg.ManifestPath)
	}
	if err := registry.WriteManifest(res.ManifestPath, manifest); err != nil {
		return res, err
	}
	p.log.Info("--> Fixtures exported", "dir", exporter.Dir(), "accounts", reg.Len(), "manifest", res.ManifestPath)
	return res, nil
}

// runPhase runs ph for every variant and registers the results in variant order.
func (p *Pipeline) runPhase(ctx context.Context, reg *registry.Registry, ph phase) error {
	p.log.Info("==> " + ph.title)

	variants := p.cfg.Variants
	addrs := make([]string, len(variants))
	runOne := func(v tokenprog.Variant) (string, error) {
		var addr string
		err := p.step(ph.name, v, func() error {
			var err error
			addr, err = ph.run(ctx, v)
			return err
		})
		return addr, err
	}

	if p.cfg.Parallel && len(variants) > 1 {
		pool := pond.NewResultPool[string](len(variants))
		defer pool.StopAndWait()
		group := pool.NewGroupContext(ctx)
		for _, v := range variants {
			group.SubmitErr(func() (string, error) {
				return runOne(v)
			})
		}
		results, err := group.Wait()
		if err != nil {
			return err
		}
		copy(addrs, results)
	} else {
		for i, v := range variants {
			addr, err := runOne(v)
			if err != nil {
				return err
			}
			addrs[i] = addr
		}
	}

	if ph.kind == "" {
		return nil
	}
	for i, v := range variants {
		e := registry.Entry{Key: registry.KeyFor(ph.kind, v), Address: addrs[i], Kind: ph.kind, Variant: v}
		if err := reg.Put(e); err != nil {
			return fmt.Errorf("%s: %w", stepLabel(ph.name, v), err)
		}
		if m := p.cfg.Metrics; m != nil {
			m.AccountsProvisioned.WithLabelValues(string(ph.kind)).Inc()
		}
		p.log.Info("--> Registered account", "key", e.Key, "address", e.Address)
	}
	return nil
}

// step times fn and records its outcome. The returned error is prefixed with the step name.
func (p *Pipeline) step(name string, v tokenprog.Variant, fn func() error) error {
	start := p.cfg.Clock.Now()
	err := fn()
	elapsed := p.cfg.Clock.Since(start)

	p.mu.Lock()
	p.steps = append(p.steps, StepTiming{Step: name, Variant: variantLabel(v), Duration: elapsed, Err: err})
	p.mu.Unlock()

	if m := p.cfg.Metrics; m != nil {
		m.StepDuration.WithLabelValues(name, variantLabel(v)).Observe(elapsed.Seconds())
		if err != nil {
			m.StepErrors.WithLabelValues(name, ErrorType(err)).Inc()
		}
	}
	if err != nil {
		p.log.Error("--> Step failed", "step", stepLabel(name, v), "error", err)
		return fmt.Errorf("%s: %w", stepLabel(name, v), err)
	}
	p.log.Debug("--> Step complete", "step", stepLabel(name, v), "duration", elapsed)
	return nil
}

func (p *Pipeline) runTests(ctx context.Context, res *Result) error {
	if len(p.cfg.PostTestCommand) > 0 {
		p.log.Info("==> Running program tests", "command", strings.Join(p.cfg.PostTestCommand, " "))
		r, err := p.stream(ctx, p.cfg.PostTestCommand)
		if err != nil {
			return fmt.Errorf("failed to run program tests: %w", err)
		}
		res.TestsPassed = r.ExitCode == 0
		if !res.TestsPassed {
			p.log.Warn("--> Program tests failed", "exitCode", r.ExitCode)
			if p.cfg.StrictExit {
				return fmt.Errorf("program tests failed with exit code %d", r.ExitCode)
			}
		} else {
			p.log.Info("--> Program tests complete")
		}
	}

	if p.cfg.Confirm == nil {
		return nil
	}
	yes, err := p.cfg.Confirm("Would you like to run local validator tests")
	if err != nil {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}
	if !yes {
		p.log.Info("--> Testing completed")
		return nil
	}
	if len(p.cfg.ValidatorTestCommand) == 0 {
		p.log.Info("--> No validator test command configured")
		return nil
	}
	p.log.Info("==> Running validator tests", "command", strings.Join(p.cfg.ValidatorTestCommand, " "))
	r, err := p.stream(ctx, p.cfg.ValidatorTestCommand)
	if err != nil {
		return fmt.Errorf("failed to run validator tests: %w", err)
	}
	res.ValidatorTestsRan = true
	if r.ExitCode != 0 {
		p.log.Warn("--> Validator tests failed", "exitCode", r.ExitCode)
		if p.cfg.StrictExit {
			return fmt.Errorf("validator tests failed with exit code %d", r.ExitCode)
		}
	}
	return nil
}

func (p *Pipeline) stream(ctx context.Context, argv []string) (runner.Result, error) {
	return p.cfg.Runner.Run(ctx, runner.Command{Name: argv[0], Args: argv[1:], Stream: true, Dir: p.cfg.WorkDir})
}

func (p *Pipeline) newExporter(rpcURL string) (*snapshot.Exporter, error) {
	d, err := NewDumper(p.cfg.Dump, p.cfg.Runner, p.cfg.SolanaBinary, rpcURL)
	if err != nil {
		return nil, err
	}
	return snapshot.NewExporter(snapshot.Config{
		Logger: p.log,
		Dumper: d,
		Dir:    p.path(p.cfg.FixturesDir),
		Naming: p.cfg.Naming,
	})
}

// NewDumper returns the account dumper for mode. The RPC dumper falls back to the local network
// when rpcURL is empty.
func NewDumper(mode DumpMode, run runner.Runner, solanaBinary, rpcURL string) (snapshot.Dumper, error) {
	switch mode {
	case DumpRPC:
		if rpcURL == "" {
			rpcURL = config.LocalnetRPCURL
		}
		return &snapshot.RPCDumper{Client: solrpc.New(rpcURL, nil)}, nil
	case DumpCLI, "":
		if solanaBinary == "" {
			solanaBinary = config.SolanaBinary
		}
		return &snapshot.CLIDumper{Runner: run, Binary: solanaBinary, RPCURL: rpcURL}, nil
	}
	return nil, fmt.Errorf("unknown dump mode %q (want cli or rpc)", mode)
}

func (p *Pipeline) path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(p.cfg.WorkDir, rel)
}

func countFiles(files []snapshot.File) int {
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		seen[f.Path] = true
	}
	return len(seen)
}

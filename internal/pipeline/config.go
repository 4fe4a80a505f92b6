package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/malbeclabs/wlfixtures/config"
	"github.com/malbeclabs/wlfixtures/internal/metrics"
	"github.com/malbeclabs/wlfixtures/internal/runner"
	"github.com/malbeclabs/wlfixtures/internal/snapshot"
	"github.com/malbeclabs/wlfixtures/internal/tokenprog"
	"github.com/malbeclabs/wlfixtures/internal/validator"
)

var (
	ErrLoggerRequired  = errors.New("logger is required")
	ErrRunnerRequired  = errors.New("runner is required")
	ErrNetworkRequired = errors.New("network is required")
	ErrWorkDirRequired = errors.New("work dir is required")
	ErrNoVariants      = errors.New("at least one token program variant is required")
)

// DumpMode selects how account data is fetched during export.
type DumpMode string

const (
	DumpCLI DumpMode = "cli"
	DumpRPC DumpMode = "rpc"
)

type Config struct {
	Logger  *slog.Logger
	Runner  runner.Runner
	Network validator.Network
	Metrics *metrics.Metrics
	Clock   clockwork.Clock

	// WorkDir holds the identity files; relative paths below are resolved against it.
	WorkDir string

	ProgramSource   string
	ProgramManifest string
	ProgramArtifact string
	ClientManifest  string
	DeclareMarker   string

	// AuxToolDir is the companion crate that is built and installed after deploy. Empty skips it.
	AuxToolDir      string
	SkipClientBuild bool

	BuildSubcmd     string
	CargoBinary     string
	SolanaBinary    string
	SPLTokenBinary  string
	WhitelistClient string

	// ExistingPayer is the path of a payer keypair to use instead of generating one. It is never
	// removed.
	ExistingPayer string

	Variants []tokenprog.Variant

	// Parallel runs the variants of a phase concurrently.
	Parallel bool

	// StrictExit turns any non-zero exit status into a failure.
	StrictExit bool

	// RPCURL overrides the URL reported by the network handle.
	RPCURL string

	FixturesDir  string
	Naming       snapshot.Naming
	Dump         DumpMode
	ManifestPath string

	// PostTestCommand runs after cleanup. Empty disables it.
	PostTestCommand []string

	// Confirm gates ValidatorTestCommand. Nil skips the gate.
	Confirm              func(label string) (bool, error)
	ValidatorTestCommand []string
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return ErrLoggerRequired
	}
	if c.Runner == nil {
		return ErrRunnerRequired
	}
	if c.Network == nil {
		return ErrNetworkRequired
	}
	if c.WorkDir == "" {
		return ErrWorkDirRequired
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.ProgramSource == "" {
		c.ProgramSource = config.DefaultProgramSource
	}
	if c.ProgramManifest == "" {
		c.ProgramManifest = config.DefaultProgramManifest
	}
	if c.ProgramArtifact == "" {
		c.ProgramArtifact = config.DefaultProgramArtifact
	}
	if c.ClientManifest == "" {
		c.ClientManifest = config.DefaultClientManifest
	}
	if c.DeclareMarker == "" {
		c.DeclareMarker = config.DeclareIDMarker
	}
	if c.BuildSubcmd == "" {
		c.BuildSubcmd = config.DefaultBuildSubcmd
	}
	if c.CargoBinary == "" {
		c.CargoBinary = config.CargoBinary
	}
	if c.SolanaBinary == "" {
		c.SolanaBinary = config.SolanaBinary
	}
	if c.SPLTokenBinary == "" {
		c.SPLTokenBinary = config.SPLTokenBinary
	}
	if c.WhitelistClient == "" {
		c.WhitelistClient = config.WhitelistClientBinary
	}
	if c.Variants == nil {
		c.Variants = tokenprog.All
	}
	if len(c.Variants) == 0 {
		return ErrNoVariants
	}
	seen := map[tokenprog.Variant]bool{}
	for _, v := range c.Variants {
		if !v.Valid() {
			return fmt.Errorf("invalid token program variant %d", v)
		}
		if seen[v] {
			return fmt.Errorf("duplicate token program variant %s", v)
		}
		seen[v] = true
	}
	if c.FixturesDir == "" {
		c.FixturesDir = config.DefaultFixturesDir
	}
	if c.Dump == "" {
		c.Dump = DumpCLI
	}
	if c.Dump != DumpCLI && c.Dump != DumpRPC {
		return fmt.Errorf("unknown dump mode %q (want cli or rpc)", c.Dump)
	}
	if _, err := snapshot.ParseNaming(string(c.Naming)); err != nil {
		return err
	}
	return nil
}

// StepTiming is the outcome of one provisioning step.
type StepTiming struct {
	Step     string
	Variant  string
	Duration time.Duration
	Err      error
}

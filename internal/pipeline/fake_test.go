package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/malbeclabs/wlfixtures/config"
	"github.com/malbeclabs/wlfixtures/internal/runner"
	"github.com/malbeclabs/wlfixtures/internal/runner/runnertest"
	"github.com/malbeclabs/wlfixtures/internal/validator"
	"github.com/stretchr/testify/require"
)

// fakeTools answers the external tools with deterministic output. Accounts of the legacy variant
// get the suffix 1 and Token-2022 accounts the suffix 2, e.g. M1/M2 for the mints.
type fakeTools struct {
	t *testing.T

	mu     sync.Mutex
	events []string
	dumps  map[string]string

	// override, when it returns ok, replaces the default answer for a command.
	override func(cmd runner.Command) (runner.Result, bool)
}

func newFakeTools(t *testing.T) *fakeTools {
	return &fakeTools{t: t, dumps: map[string]string{}}
}

func (f *fakeTools) record(event string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeTools) Events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.events)
}

func (f *fakeTools) Dumps() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.dumps))
	for k, v := range f.dumps {
		out[k] = v
	}
	return out
}

func (f *fakeTools) Runner() *runnertest.Runner {
	return runnertest.New(f.handle)
}

func (f *fakeTools) handle(ctx context.Context, cmd runner.Command) (runner.Result, error) {
	f.record(eventFor(cmd))
	if f.override != nil {
		if res, ok := f.override(cmd); ok {
			return res, nil
		}
	}

	args := cmd.Args
	switch cmd.Name {
	case config.SolanaKeygenBinary:
		path := args[len(args)-1]
		data, _ := keygenJSON(f.t)
		require.NoError(f.t, os.WriteFile(path, data, 0o600))
		return runner.Result{}, nil

	case config.SolanaBinary:
		switch args[0] {
		case "address":
			addr, err := keygenAddress(args[2])
			if err != nil {
				return runner.Result{ExitCode: 1, Stderr: err.Error()}, nil
			}
			return runnertest.Stdout(addr + "\n")
		case "account":
			f.mu.Lock()
			f.dumps[filepath.Base(args[3])] = args[1]
			f.mu.Unlock()
			return runner.Result{}, nil
		}
		return runner.Result{}, nil

	case config.SPLTokenBinary:
		n := suffixFor(flagValue(args, "--program-id"))
		switch args[0] {
		case "create-token":
			return runnertest.Stdout("Creating token M" + n + " under program " + flagValue(args, "--program-id") + "\n\nAddress:  M" + n + "\nDecimals:  9\n\nSignature: 5xyz\n")
		case "create-account":
			owner := flagValue(args, "--owner")
			var addr string
			switch {
			case owner == "WL"+n:
				addr = "V" + n
			case owner == "T"+n:
				addr = "TT" + n
			default:
				addr = "W" + n
			}
			return runnertest.Stdout("Creating account " + addr + "\n\nSignature: 5xyz\n")
		}

	case config.WhitelistClientBinary:
		sub, rest := whitelistSubcommand(args)
		n := strings.TrimPrefix(rest[0], "M")
		switch sub {
		case "init":
			return runnertest.Stdout("Whitelist Account: WL" + n + "\nVault Account: VA" + n + "\n")
		case "allow-register":
			return runner.Result{}, nil
		case "register":
			return runnertest.Stdout("Ticket T" + n + "\n")
		}
	}
	return runner.Result{}, nil
}

func eventFor(cmd runner.Command) string {
	switch cmd.Name {
	case config.SolanaKeygenBinary:
		return "keygen " + strings.TrimSuffix(filepath.Base(cmd.Args[len(cmd.Args)-1]), ".json")
	case config.WhitelistClientBinary:
		sub, _ := whitelistSubcommand(cmd.Args)
		return cmd.Name + " " + sub
	}
	if len(cmd.Args) > 0 {
		return cmd.Name + " " + cmd.Args[0]
	}
	return cmd.Name
}

func whitelistSubcommand(args []string) (string, []string) {
	for i := 0; i < len(args); i++ {
		if strings.HasPrefix(args[i], "--") {
			i++
			continue
		}
		return args[i], args[i+1:]
	}
	return "", nil
}

func flagValue(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func suffixFor(programID string) string {
	if programID == config.Token2022ProgramID {
		return "2"
	}
	return "1"
}

type fakeNetwork struct {
	tools    *fakeTools
	startErr error

	mu      sync.Mutex
	started []validator.StartOptions
	stopped int
}

func (n *fakeNetwork) Start(ctx context.Context, opts validator.StartOptions) (*validator.Handle, error) {
	n.tools.record("network start")
	n.mu.Lock()
	n.started = append(n.started, opts)
	n.mu.Unlock()
	if n.startErr != nil {
		return &validator.Handle{Status: validator.Failed, Diagnostic: n.startErr.Error()}, n.startErr
	}
	return &validator.Handle{Status: validator.Running}, nil
}

func (n *fakeNetwork) Stop(ctx context.Context, h *validator.Handle) error {
	n.tools.record("network stop")
	n.mu.Lock()
	n.stopped++
	n.mu.Unlock()
	return nil
}

func (n *fakeNetwork) Stopped() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stopped
}

const programSource = `use solana_program::declare_id;

declare_id!("3jyFQazJomtErMzsHrhNzj18aTJYiq3Xdr3H9J51CUzp");

pub mod processor;
`

// newWorkDir lays out a program crate with a declare_id line.
func newWorkDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, config.DefaultProgramSource)
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0o755))
	require.NoError(t, os.WriteFile(src, []byte(programSource), 0o644))
	return dir
}

func requireNoIdentityFiles(t *testing.T, dir string) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	require.NoError(t, err)
	require.Empty(t, matches)
}

func indexOf(events []string, event string) int {
	return slices.Index(events, event)
}

package keypair

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/malbeclabs/wlfixtures/config"
	"github.com/malbeclabs/wlfixtures/internal/output"
	"github.com/malbeclabs/wlfixtures/internal/runner"
	"github.com/malbeclabs/wlfixtures/pkg/poll"
)

var (
	ErrLoggerRequired = errors.New("logger is required")
	ErrRunnerRequired = errors.New("runner is required")
	ErrDirRequired    = errors.New("dir is required")
	ErrInvalidName    = errors.New("invalid identity name")
)

const (
	defaultWaitTimeout  = 10 * time.Second
	defaultPollInterval = 50 * time.Millisecond
)

type Config struct {
	Logger *slog.Logger
	Runner runner.Runner

	// Dir is where <name>.json identity files are written.
	Dir string

	KeygenBinary string
	SolanaBinary string

	// WaitTimeout bounds how long Create waits for the keypair file to become readable.
	WaitTimeout  time.Duration
	PollInterval time.Duration
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return ErrLoggerRequired
	}
	if c.Runner == nil {
		return ErrRunnerRequired
	}
	if c.Dir == "" {
		return ErrDirRequired
	}
	if c.KeygenBinary == "" {
		c.KeygenBinary = config.SolanaKeygenBinary
	}
	if c.SolanaBinary == "" {
		c.SolanaBinary = config.SolanaBinary
	}
	if c.WaitTimeout <= 0 {
		c.WaitTimeout = defaultWaitTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	return nil
}

// Manager creates, resolves and removes ephemeral keypair files.
type Manager struct {
	log *slog.Logger
	cfg Config
}

func NewManager(cfg Config) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Manager{log: cfg.Logger, cfg: cfg}, nil
}

func (m *Manager) Path(name string) string {
	return filepath.Join(m.cfg.Dir, name+".json")
}

// Create generates the keypair file for name, overwriting any existing one, and returns only once
// the file holds a readable keypair.
func (m *Manager) Create(ctx context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	path := m.Path(name)
	m.log.Info("--> Generating keypair", "name", name)

	cmd := runner.Command{
		Name:    m.cfg.KeygenBinary,
		Args:    []string{"new", "--force", "--silent", "--no-bip39-passphrase", "--outfile", path},
		Capture: true,
	}
	res, err := m.cfg.Runner.Run(ctx, cmd)
	if err != nil {
		return fmt.Errorf("failed to generate keypair %s: %w", name, err)
	}
	if err := runner.CheckExit(cmd, res); err != nil {
		return fmt.Errorf("failed to generate keypair %s: %w", name, err)
	}

	err = poll.Until(ctx, func() (bool, error) {
		if _, err := solana.PrivateKeyFromSolanaKeygenFile(path); err != nil {
			return false, nil
		}
		return true, nil
	}, m.cfg.WaitTimeout, m.cfg.PollInterval)
	if err != nil {
		return fmt.Errorf("keypair file %s was not written: %w", path, err)
	}

	m.log.Debug("--> Keypair generated", "name", name, "path", path)
	return nil
}

// Resolve looks up the address of the keypair file for name with the solana client and checks it
// against the public half stored in the file.
func (m *Manager) Resolve(ctx context.Context, name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	addr, err := m.ResolveFile(ctx, m.Path(name))
	if err != nil {
		return "", fmt.Errorf("failed to resolve address of %s: %w", name, err)
	}
	return addr, nil
}

// ResolveFile is Resolve for a keypair file outside the managed directory.
func (m *Manager) ResolveFile(ctx context.Context, path string) (string, error) {
	cmd := runner.Command{
		Name:    m.cfg.SolanaBinary,
		Args:    []string{"address", "-k", path},
		Capture: true,
	}
	res, err := m.cfg.Runner.Run(ctx, cmd)
	if err != nil {
		return "", err
	}
	address := strings.TrimSpace(res.Stdout)
	if n := len(strings.Fields(address)); n != 1 {
		return "", &output.MalformedOutputError{
			Shape: "address lookup",
			Want:  1,
			Got:   n,
			Raw:   res.Stdout + res.Stderr,
		}
	}

	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read keypair: %w", err)
	}
	if len(key) != ed25519.PrivateKeySize {
		return "", fmt.Errorf("invalid keypair length: expected %d, got %d", ed25519.PrivateKeySize, len(key))
	}
	if derived := key.PublicKey().String(); derived != address {
		return "", fmt.Errorf("address mismatch: solana reported %s, keypair file %s holds %s", address, path, derived)
	}
	return address, nil
}

// Remove deletes the keypair file for name. Removing a missing file is not an error.
func (m *Manager) Remove(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	err := os.Remove(m.Path(name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove keypair %s: %w", name, err)
	}
	return nil
}

func validateName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

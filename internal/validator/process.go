package validator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/malbeclabs/wlfixtures/config"
	"github.com/malbeclabs/wlfixtures/internal/runner"
	"github.com/malbeclabs/wlfixtures/pkg/poll"
)

const (
	defaultWarmUp       = 2 * time.Second
	defaultPollInterval = 250 * time.Millisecond
	defaultReadyTimeout = 30 * time.Second
)

var (
	ErrLoggerRequired = errors.New("logger is required")
	ErrRunnerRequired = errors.New("runner is required")
)

var errExited = errors.New("process exited")

type ProcessConfig struct {
	Logger *slog.Logger

	// Runner executes the broad-match kill on Stop.
	Runner runner.Runner

	Binary      string
	ExtraArgs   []string
	Dir         string
	KillBinary  string
	KillPattern string

	// RPCURL is reported on the handle and probed by Health when set.
	RPCURL string
	Health HealthChecker

	WarmUp       time.Duration
	PollInterval time.Duration
	Timeout      time.Duration
	Clock        clockwork.Clock
}

func (c *ProcessConfig) Validate() error {
	if c.Logger == nil {
		return ErrLoggerRequired
	}
	if c.Runner == nil {
		return ErrRunnerRequired
	}
	if c.Binary == "" {
		c.Binary = config.ValidatorBinary
	}
	if c.KillBinary == "" {
		c.KillBinary = config.PkillBinary
	}
	if c.KillPattern == "" {
		c.KillPattern = c.Binary
	}
	if c.RPCURL == "" {
		c.RPCURL = config.LocalnetRPCURL
	}
	if c.WarmUp < 0 {
		return fmt.Errorf("warm-up must not be negative")
	}
	if c.WarmUp == 0 {
		c.WarmUp = defaultWarmUp
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultReadyTimeout
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	return nil
}

// Process runs the network as a local background process.
type Process struct {
	log *slog.Logger
	cfg ProcessConfig
}

func NewProcess(cfg ProcessConfig) (*Process, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Process{log: cfg.Logger, cfg: cfg}, nil
}

type process struct {
	cmd    *exec.Cmd
	stdout *tailBuffer
	stderr *tailBuffer
	done   chan struct{}
	err    error
}

func (p *process) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *process) exitCode() int {
	if p.cmd.ProcessState == nil {
		return -1
	}
	return p.cmd.ProcessState.ExitCode()
}

// Start launches the network in the background, waits the warm-up delay and then polls until the
// process is still alive and, when a health checker is configured, the RPC endpoint reports
// healthy. A process that exits first yields a Failed handle and a *StartupError carrying its
// output.
func (n *Process) Start(ctx context.Context, opts StartOptions) (*Handle, error) {
	args := validatorArgs(opts, n.cfg.ExtraArgs)
	n.log.Info("==> Starting network", "binary", n.cfg.Binary, "args", args)

	p := &process{
		stdout: newTailBuffer(defaultTailSize),
		stderr: newTailBuffer(defaultTailSize),
		done:   make(chan struct{}),
	}
	// Not bound to ctx: the network outlives the call and is terminated by Stop.
	p.cmd = exec.Command(n.cfg.Binary, args...)
	p.cmd.Dir = n.cfg.Dir
	p.cmd.Stdout = p.stdout
	p.cmd.Stderr = p.stderr

	h := &Handle{Status: Starting, RPCURL: n.cfg.RPCURL, proc: p}
	if err := p.cmd.Start(); err != nil {
		h.Status = Failed
		h.Diagnostic = err.Error()
		return h, &StartupError{Reason: "could not launch " + n.cfg.Binary, ExitCode: -1, Err: err}
	}
	h.PID = p.cmd.Process.Pid
	go func() {
		p.err = p.cmd.Wait()
		close(p.done)
	}()

	select {
	case <-ctx.Done():
		n.kill(p)
		h.Status = Failed
		return h, fmt.Errorf("network start cancelled: %w", ctx.Err())
	case <-n.cfg.Clock.After(n.cfg.WarmUp):
	}

	err := poll.UntilWithClock(ctx, n.cfg.Clock, func() (bool, error) {
		if p.exited() {
			return false, errExited
		}
		if n.cfg.Health == nil {
			return true, nil
		}
		return n.cfg.Health.Healthy(ctx)
	}, n.cfg.Timeout, n.cfg.PollInterval)
	if err != nil {
		var startErr *StartupError
		switch {
		case errors.Is(err, errExited):
			startErr = &StartupError{Reason: "process exited during warm-up", Err: p.err}
		case errors.Is(err, poll.ErrTimeout):
			n.kill(p)
			startErr = &StartupError{Reason: "not ready in time", Err: err}
		default:
			n.kill(p)
			h.Status = Failed
			return h, fmt.Errorf("failed to wait for network: %w", err)
		}
		startErr.ExitCode = p.exitCode()
		startErr.Stdout = p.stdout.String()
		startErr.Stderr = p.stderr.String()
		h.Status = Failed
		h.Diagnostic = startErr.Error()
		n.log.Error("--> Network failed to start", "pid", h.PID, "reason", startErr.Reason, "stderr", startErr.Stderr)
		return h, startErr
	}

	h.Status = Running
	n.log.Info("--> Network running", "pid", h.PID, "rpcURL", h.RPCURL)
	return h, nil
}

// Stop kills the handle's own process and then every process matching the kill pattern. Finding
// nothing to kill is not an error.
func (n *Process) Stop(ctx context.Context, h *Handle) error {
	if h != nil && h.proc != nil {
		n.kill(h.proc)
	}

	cmd := runner.Command{Name: n.cfg.KillBinary, Args: []string{"-f", "-9", n.cfg.KillPattern}, Capture: true}
	res, err := n.cfg.Runner.Run(ctx, cmd)
	if err != nil {
		return fmt.Errorf("failed to stop network: %w", err)
	}
	// pkill exits 1 when no process matched.
	if res.ExitCode != 0 && res.ExitCode != 1 {
		return fmt.Errorf("failed to stop network: %w", runner.CheckExit(cmd, res))
	}
	n.log.Debug("--> Network stopped", "matched", res.ExitCode == 0)
	return nil
}

func (n *Process) kill(p *process) {
	if p.cmd.Process == nil || p.exited() {
		return
	}
	if err := p.cmd.Process.Kill(); err != nil {
		n.log.Debug("--> Failed to kill network process", "pid", p.cmd.Process.Pid, "error", err)
		return
	}
	<-p.done
}

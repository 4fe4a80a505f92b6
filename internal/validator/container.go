package validator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	dockercontainer "github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	"github.com/malbeclabs/wlfixtures/config"
	"github.com/malbeclabs/wlfixtures/pkg/poll"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	internalRPCPort   nat.Port = "8899/tcp"
	internalRPCWSPort nat.Port = "8900/tcp"

	defaultContainerStartDeadline = 60 * time.Second
)

type containerHandle interface {
	Host(ctx context.Context) (string, error)
	Terminate(ctx context.Context, opts ...testcontainers.TerminateOption) error
	Logs(ctx context.Context) (io.ReadCloser, error)
}

type ContainerConfig struct {
	Logger    *slog.Logger
	Image     string
	ExtraArgs []string

	// Resource limits; zero leaves the docker default.
	NanoCPUs int64
	Memory   int64
	Labels   map[string]string

	// Health is probed against the mapped RPC port when nil.
	Health       func(rpcURL string) HealthChecker
	PollInterval time.Duration
	Timeout      time.Duration
}

func (c *ContainerConfig) Validate() error {
	if c.Logger == nil {
		return ErrLoggerRequired
	}
	if c.Image == "" {
		c.Image = config.DefaultValidatorImage
	}
	if c.Health == nil {
		c.Health = func(rpcURL string) HealthChecker { return NewRPCHealth(rpcURL) }
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 500 * time.Millisecond
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultContainerStartDeadline
	}
	return nil
}

// Container runs the network in a docker container managed by testcontainers.
type Container struct {
	log *slog.Logger
	cfg ContainerConfig
}

func NewContainer(cfg ContainerConfig) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Container{log: cfg.Logger, cfg: cfg}, nil
}

func (n *Container) Start(ctx context.Context, opts StartOptions) (*Handle, error) {
	args := append(validatorArgs(opts, n.cfg.ExtraArgs), "--rpc-port", "8899", "--bind-address", "0.0.0.0")
	n.log.Info("==> Starting network container", "image", n.cfg.Image, "args", args)

	req := testcontainers.ContainerRequest{
		Image:        n.cfg.Image,
		Entrypoint:   []string{config.ValidatorBinary},
		Cmd:          args,
		ExposedPorts: []string{string(internalRPCPort), string(internalRPCWSPort)},
		Labels:       n.cfg.Labels,
		HostConfigModifier: func(hc *dockercontainer.HostConfig) {
			hc.NanoCPUs = n.cfg.NanoCPUs
			hc.Memory = n.cfg.Memory
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort(internalRPCPort),
			wait.ForExec([]string{config.SolanaBinary, "cluster-version"}).WithExitCodeMatcher(func(code int) bool { return code == 0 }),
		).WithDeadline(n.cfg.Timeout),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	h := &Handle{Status: Starting}
	if err != nil {
		_ = testcontainers.TerminateContainer(c)
		h.Status = Failed
		startErr := &StartupError{Reason: "container did not start", ExitCode: -1, Err: err}
		h.Diagnostic = startErr.Error()
		return h, startErr
	}
	h.container = c

	host, err := c.Host(ctx)
	if err != nil {
		h.Status = Failed
		return h, fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := c.MappedPort(ctx, internalRPCPort)
	if err != nil {
		h.Status = Failed
		return h, fmt.Errorf("failed to get mapped rpc port: %w", err)
	}
	h.RPCURL = "http://" + net.JoinHostPort(host, port.Port())

	health := n.cfg.Health(h.RPCURL)
	err = poll.Until(ctx, func() (bool, error) {
		return health.Healthy(ctx)
	}, n.cfg.Timeout, n.cfg.PollInterval)
	if err != nil {
		h.Status = Failed
		startErr := &StartupError{Reason: "rpc not healthy", ExitCode: -1, Err: err, Stdout: containerLogs(ctx, c)}
		h.Diagnostic = startErr.Error()
		return h, startErr
	}

	h.Status = Running
	n.log.Info("--> Network container running", "container", c.GetContainerID(), "rpcURL", h.RPCURL)
	return h, nil
}

func (n *Container) Stop(ctx context.Context, h *Handle) error {
	if h == nil || h.container == nil {
		return nil
	}
	if err := h.container.Terminate(ctx); err != nil {
		return fmt.Errorf("failed to terminate network container: %w", err)
	}
	h.container = nil
	n.log.Debug("--> Network container terminated")
	return nil
}

func containerLogs(ctx context.Context, c containerHandle) string {
	rc, err := c.Logs(ctx)
	if err != nil {
		return ""
	}
	defer rc.Close()
	tail := newTailBuffer(defaultTailSize)
	_, _ = io.Copy(tail, rc)
	return tail.String()
}

// External is a network that is already running elsewhere; Start only checks it is reachable.
type External struct {
	RPCURL string
	Health HealthChecker
}

func (n *External) Start(ctx context.Context, _ StartOptions) (*Handle, error) {
	h := &Handle{Status: Running, RPCURL: n.RPCURL}
	if n.Health == nil {
		return h, nil
	}
	ok, err := n.Health.Healthy(ctx)
	if err != nil || !ok {
		h.Status = Failed
		startErr := &StartupError{Reason: "external network not healthy at " + n.RPCURL, ExitCode: -1, Err: err}
		h.Diagnostic = startErr.Error()
		return h, startErr
	}
	return h, nil
}

func (n *External) Stop(context.Context, *Handle) error { return nil }

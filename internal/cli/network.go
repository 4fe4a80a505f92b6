package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/malbeclabs/wlfixtures/config"
	"github.com/malbeclabs/wlfixtures/internal/runner"
	"github.com/malbeclabs/wlfixtures/internal/validator"
)

const (
	networkProcess   = "process"
	networkContainer = "container"
	networkExternal  = "external"
)

type networkOptions struct {
	kind         string
	image        string
	rpcURL       string
	dir          string
	extraArgs    []string
	healthCheck  bool
	warmUp       time.Duration
	pollInterval time.Duration
	timeout      time.Duration
}

func newNetwork(log *slog.Logger, run runner.Runner, o networkOptions) (validator.Network, error) {
	switch o.kind {
	case networkProcess, "":
		cfg := validator.ProcessConfig{
			Logger:       log,
			Runner:       run,
			ExtraArgs:    o.extraArgs,
			Dir:          o.dir,
			WarmUp:       o.warmUp,
			PollInterval: o.pollInterval,
			Timeout:      o.timeout,
		}
		if o.healthCheck {
			cfg.Health = validator.NewRPCHealth(config.LocalnetRPCURL)
		}
		return validator.NewProcess(cfg)
	case networkContainer:
		return validator.NewContainer(validator.ContainerConfig{
			Logger:       log,
			Image:        o.image,
			ExtraArgs:    o.extraArgs,
			Labels:       map[string]string{"org.malbeclabs.wl-fixtures": "validator"},
			PollInterval: o.pollInterval,
			Timeout:      o.timeout,
		})
	case networkExternal:
		url := o.rpcURL
		if url == "" {
			url = config.LocalnetRPCURL
		}
		n := &validator.External{RPCURL: url}
		if o.healthCheck {
			n.Health = validator.NewRPCHealth(url)
		}
		return n, nil
	}
	return nil, fmt.Errorf("unknown network backend %q (want %s, %s or %s)", o.kind, networkProcess, networkContainer, networkExternal)
}

// networkRPCURL returns the RPC URL the pipeline is pinned to for the given backend. The local
// backends report their own URL on the handle, so a URL taken from the environment is dropped and
// an explicit one is rejected.
func networkRPCURL(log *slog.Logger, kind, rpcURL string, explicit bool) (string, error) {
	if kind == networkExternal || rpcURL == "" {
		return rpcURL, nil
	}
	if explicit {
		return "", fmt.Errorf("--rpc-url is only supported with the %s network backend, not %q", networkExternal, kind)
	}
	log.Debug("--> Ignoring configured RPC URL for local network", "network", kind, "rpcURL", rpcURL)
	return "", nil
}

package pipeline

import (
	"context"
	"errors"

	"github.com/malbeclabs/wlfixtures/internal/output"
	"github.com/malbeclabs/wlfixtures/internal/patch"
	"github.com/malbeclabs/wlfixtures/internal/registry"
	"github.com/malbeclabs/wlfixtures/internal/runner"
	"github.com/malbeclabs/wlfixtures/internal/validator"
)

// ErrorType classifies err for the step error metric.
func ErrorType(err error) string {
	var (
		launchErr    *runner.LaunchError
		exitErr      *runner.ExitError
		malformedErr *output.MalformedOutputError
		startupErr   *validator.StartupError
		targetErr    *patch.TargetNotFoundError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &launchErr):
		return "launch"
	case errors.As(err, &malformedErr):
		return "malformed_output"
	case errors.As(err, &startupErr):
		return "network_startup"
	case errors.As(err, &targetErr):
		return "patch_target_not_found"
	case errors.As(err, &exitErr):
		return "exit_status"
	case errors.Is(err, registry.ErrKeyNotFound), errors.Is(err, registry.ErrDuplicateKey):
		return "registry"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "other"
	}
}

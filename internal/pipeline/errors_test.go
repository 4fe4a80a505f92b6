package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/malbeclabs/wlfixtures/internal/output"
	"github.com/malbeclabs/wlfixtures/internal/patch"
	"github.com/malbeclabs/wlfixtures/internal/pipeline"
	"github.com/malbeclabs/wlfixtures/internal/registry"
	"github.com/malbeclabs/wlfixtures/internal/runner"
	"github.com/malbeclabs/wlfixtures/internal/validator"
	"github.com/stretchr/testify/require"
)

func TestPipeline_ErrorType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&runner.LaunchError{Command: runner.Command{Name: "spl-token"}, Err: errors.New("not found")}, "launch"},
		{fmt.Errorf("create_mint[legacy]: %w", &output.MalformedOutputError{Shape: "address"}), "malformed_output"},
		{&validator.StartupError{Reason: "process exited"}, "network_startup"},
		{&patch.TargetNotFoundError{Path: "lib.rs", Marker: "declare_id!"}, "patch_target_not_found"},
		{&runner.ExitError{Result: runner.Result{ExitCode: 1}}, "exit_status"},
		{fmt.Errorf("x: %w", registry.ErrKeyNotFound), "registry"},
		{context.Canceled, "cancelled"},
		{errors.New("boom"), "other"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, pipeline.ErrorType(tt.err), "%v", tt.err)
	}
}

func TestPipeline_ErrorType_RunnerCancelledBeforeStart(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.NewExecRunner(logger).Run(ctx, runner.Command{Name: "sh", Args: []string{"-c", "true"}})
	require.Error(t, err)
	require.Equal(t, "cancelled", pipeline.ErrorType(err))
}

// Package validator manages the lifecycle of the ephemeral Solana network the fixtures are
// provisioned against.
package validator

import (
	"context"
	"fmt"
	"strings"
)

type Status int

const (
	Starting Status = iota
	Running
	Failed
)

func (s Status) String() string {
	switch s {
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

type StartOptions struct {
	// Reset wipes any existing ledger state.
	Reset bool

	// FundedAddress receives the genesis mint allocation when set.
	FundedAddress string
}

// Handle is the state of a started network. Its Status is Running or Failed once Start returns.
type Handle struct {
	Status     Status
	PID        int
	RPCURL     string
	Diagnostic string

	proc      *process
	container containerHandle
}

// Network starts and stops an ephemeral network.
type Network interface {
	Start(ctx context.Context, opts StartOptions) (*Handle, error)

	// Stop terminates the network. It is idempotent and accepts a nil handle.
	Stop(ctx context.Context, h *Handle) error
}

// StartupError is returned when the network did not become ready.
type StartupError struct {
	Reason   string
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

func (e *StartupError) Error() string {
	var b strings.Builder
	b.WriteString("network failed to start: ")
	b.WriteString(e.Reason)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		b.WriteString("\nstderr:\n")
		b.WriteString(stderr)
	}
	if stdout := strings.TrimSpace(e.Stdout); stdout != "" {
		b.WriteString("\nstdout:\n")
		b.WriteString(stdout)
	}
	return b.String()
}

func (e *StartupError) Unwrap() error { return e.Err }

func validatorArgs(opts StartOptions, extra []string) []string {
	var args []string
	if opts.Reset {
		args = append(args, "--reset")
	}
	if opts.FundedAddress != "" {
		args = append(args, "--mint", opts.FundedAddress)
	}
	return append(args, extra...)
}

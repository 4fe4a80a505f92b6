// Package runnertest provides a scripted runner.Runner for tests.
package runnertest

import (
	"context"
	"sync"

	"github.com/malbeclabs/wlfixtures/internal/runner"
)

type HandlerFunc func(ctx context.Context, cmd runner.Command) (runner.Result, error)

// Runner records every command it is asked to run and answers with Handler.
type Runner struct {
	Handler HandlerFunc

	mu    sync.Mutex
	calls []runner.Command
}

func New(h HandlerFunc) *Runner {
	return &Runner{Handler: h}
}

func (r *Runner) Run(ctx context.Context, cmd runner.Command) (runner.Result, error) {
	r.mu.Lock()
	r.calls = append(r.calls, cmd)
	r.mu.Unlock()
	if r.Handler == nil {
		return runner.Result{}, nil
	}
	return r.Handler(ctx, cmd)
}

// Calls returns the commands run so far, in order.
func (r *Runner) Calls() []runner.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]runner.Command, len(r.calls))
	copy(out, r.calls)
	return out
}

// Matching returns the recorded commands for which match reports true.
func (r *Runner) Matching(match func(runner.Command) bool) []runner.Command {
	var out []runner.Command
	for _, c := range r.Calls() {
		if match(c) {
			out = append(out, c)
		}
	}
	return out
}

// Stdout returns a successful result with the given stdout.
func Stdout(s string) (runner.Result, error) {
	return runner.Result{Stdout: s}, nil
}

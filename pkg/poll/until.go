package poll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

var ErrTimeout = errors.New("polling timed out")

// Until evaluates condition immediately and then once per interval until it reports true, returns
// an error, the timeout elapses, or ctx is cancelled.
func Until(ctx context.Context, condition func() (bool, error), timeout, interval time.Duration) error {
	return UntilWithClock(ctx, clockwork.NewRealClock(), condition, timeout, interval)
}

func UntilWithClock(ctx context.Context, clock clockwork.Clock, condition func() (bool, error), timeout, interval time.Duration) error {
	deadline := clock.NewTimer(timeout)
	defer deadline.Stop()

	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		ok, err := condition()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("polling cancelled: %w", ctx.Err())
		case <-deadline.Chan():
			return fmt.Errorf("%w after %s", ErrTimeout, timeout)
		case <-ticker.Chan():
		}
	}
}

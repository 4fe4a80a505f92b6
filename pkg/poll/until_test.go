package poll_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/malbeclabs/wlfixtures/pkg/poll"
	"github.com/stretchr/testify/require"
)

func TestPoll_Until_SucceedsAfterAttempts(t *testing.T) {
	t.Parallel()

	var attempts int
	err := poll.Until(context.Background(), func() (bool, error) {
		attempts++
		return attempts == 3, nil
	}, time.Second, time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestPoll_Until_ReturnsConditionError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	err := poll.Until(context.Background(), func() (bool, error) {
		return false, boom
	}, time.Second, time.Millisecond)
	require.ErrorIs(t, err, boom)
}

func TestPoll_Until_TimesOut(t *testing.T) {
	t.Parallel()

	err := poll.Until(context.Background(), func() (bool, error) {
		return false, nil
	}, 20*time.Millisecond, time.Millisecond)
	require.ErrorIs(t, err, poll.ErrTimeout)
}

func TestPoll_Until_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := poll.Until(ctx, func() (bool, error) {
		return false, nil
	}, time.Second, 10*time.Millisecond)
	require.ErrorIs(t, err, context.Canceled)
}

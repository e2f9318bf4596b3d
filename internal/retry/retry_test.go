package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fast = Policy{MaxAttempts: 4, Delay: time.Millisecond}

func TestPollSucceedsOnLaterAttempt(t *testing.T) {
	attempts, err := Poll(context.Background(), fast, func(attempt int) (bool, error) {
		return attempt == 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestPollExhausted(t *testing.T) {
	calls := 0
	attempts, err := Poll(context.Background(), fast, func(int) (bool, error) {
		calls++
		return false, nil
	})
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 4, attempts)
	assert.Equal(t, 4, calls)
}

func TestPollStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	attempts, err := Poll(context.Background(), fast, func(int) (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts)
}

func TestPollHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxAttempts: 100, Delay: time.Hour}

	attempts, err := Poll(ctx, p, func(int) (bool, error) {
		cancel()
		return false, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestPollZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_, err := Poll(context.Background(), Policy{}, func(int) (bool, error) {
		calls++
		return false, nil
	})
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 1, calls)
}

func TestLoad(t *testing.T) {
	n := 0
	v, err := Load(context.Background(), fast, func() (string, bool, error) {
		n++
		if n < 2 {
			return "", false, nil
		}
		return "summary.png", true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "summary.png", v)

	v, err = Load(context.Background(), fast, func() (string, bool, error) {
		return "", false, nil
	})
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Empty(t, v)
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 8, p.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, p.Delay)
}

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitEnforcesMinimumGap(t *testing.T) {
	l := NewIntervalLimiter(50*time.Millisecond, 50*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx))
	start := time.Now()
	require.NoError(t, l.Wait(ctx))

	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestWaitRespectsContextCancellation(t *testing.T) {
	l := NewIntervalLimiter(5*time.Second, 5*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.NoError(t, l.Wait(context.Background()))
	err := l.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSetDelaySwapsMisorderedBounds(t *testing.T) {
	l := NewIntervalLimiter(time.Second, 2*time.Second)
	l.SetDelay(3*time.Second, time.Second)
	assert.Equal(t, l.minDelay, l.maxDelay)
}

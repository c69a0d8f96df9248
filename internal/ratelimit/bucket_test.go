package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBucket_UnlimitedNeverBlocks(t *testing.T) {
	t.Parallel()
	b := New(0)
	for i := 0; i < 10_000; i++ {
		require.True(t, b.TryTake())
	}
}

func TestBucket_StartsFullThenDrains(t *testing.T) {
	t.Parallel()
	b := New(5)
	for i := 0; i < 5; i++ {
		require.True(t, b.TryTake(), "burst of %d tokens should be available immediately", 5)
	}
	require.False(t, b.TryTake(), "bucket should be empty after draining its burst")
}

func TestBucket_Refills(t *testing.T) {
	t.Parallel()
	b := New(1000)
	for b.TryTake() {
	}
	time.Sleep(50 * time.Millisecond)
	require.True(t, b.TryTake(), "bucket should refill after waiting")
}

func TestBucket_RefundRestoresToken(t *testing.T) {
	t.Parallel()
	b := New(3)
	for i := 0; i < 3; i++ {
		require.True(t, b.TryTake())
	}
	require.False(t, b.TryTake())
	b.Refund()
	require.True(t, b.TryTake())
}

func TestBucket_WaitRespectsDone(t *testing.T) {
	t.Parallel()
	b := New(1)
	require.True(t, b.TryTake())
	done := make(chan struct{})
	close(done)
	require.False(t, b.Wait(done), "Wait must return promptly once done is closed")
}

func TestBucket_RateConformance(t *testing.T) {
	t.Parallel()
	b := New(1000)
	done := make(chan struct{})
	defer close(done)

	start := time.Now()
	sent := 0
	for time.Since(start) < 2*time.Second {
		if b.Wait(done) {
			sent++
		}
	}
	require.LessOrEqual(t, sent, 2001)
	require.GreaterOrEqual(t, sent, 1900)
}

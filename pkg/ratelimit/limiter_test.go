package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryLimiter_AllowsWithinBudget(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewInMemoryLimiter(Config{MaxPerHour: 5}, func() time.Time { return clock })

	for i := 0; i < 5; i++ {
		ok, err := l.Allow(context.Background(), "session-1")
		require.NoError(t, err)
		assert.True(t, ok, "request %d should be allowed", i)
	}

	ok, err := l.Allow(context.Background(), "session-1")
	require.NoError(t, err)
	assert.False(t, ok, "6th request should exceed the 5/hour budget")
}

func TestInMemoryLimiter_RefillsOverTime(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewInMemoryLimiter(Config{MaxPerHour: 60}, func() time.Time { return clock })

	for i := 0; i < 60; i++ {
		ok, _ := l.Allow(context.Background(), "s")
		require.True(t, ok)
	}
	ok, _ := l.Allow(context.Background(), "s")
	assert.False(t, ok)

	clock = clock.Add(time.Minute)
	ok, _ = l.Allow(context.Background(), "s")
	assert.True(t, ok, "after a minute at 60/hour, one token should have refilled")
}

func TestInMemoryLimiter_CooldownAfterBurst(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewInMemoryLimiter(Config{MaxPerHour: 2, BurstThreshold: 2, CooldownAfterBurst: time.Hour}, func() time.Time { return clock })

	l.Allow(context.Background(), "s")
	l.Allow(context.Background(), "s")
	l.Allow(context.Background(), "s")
	ok, _ := l.Allow(context.Background(), "s")
	assert.False(t, ok)

	clock = clock.Add(30 * time.Minute)
	ok, _ = l.Allow(context.Background(), "s")
	assert.False(t, ok, "still within cooldown window")
}

func TestInMemoryLimiter_IndependentKeys(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewInMemoryLimiter(Config{MaxPerHour: 1}, func() time.Time { return clock })

	ok1, _ := l.Allow(context.Background(), "session-a")
	ok2, _ := l.Allow(context.Background(), "session-b")
	assert.True(t, ok1)
	assert.True(t, ok2)
}

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/guildgate/guildgate-bot/pkg/config"
)

func gateConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:   true,
		Submit:    config.RateLimitRule{Limit: 2, Window: time.Minute},
		Message:   config.RateLimitRule{Limit: 3, Window: time.Minute},
		Whitelist: []int64{777},
	}
}

func TestGateEnforcesSubmitRule(t *testing.T) {
	gate := NewGate(NewMemoryLimiter(testLogger()), gateConfig(), testLogger())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, _ := gate.AllowSubmit(ctx, 1)
		assert.True(t, allowed)
	}

	allowed, retryAfter := gate.AllowSubmit(ctx, 1)
	assert.False(t, allowed)
	assert.GreaterOrEqual(t, retryAfter, 1)

	// Another user has an independent window.
	allowed, _ = gate.AllowSubmit(ctx, 2)
	assert.True(t, allowed)
}

func TestGateWhitelistBypassesLimits(t *testing.T) {
	gate := NewGate(NewMemoryLimiter(testLogger()), gateConfig(), testLogger())
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		allowed, _ := gate.AllowSubmit(ctx, 777)
		assert.True(t, allowed)
	}
}

func TestGateDisabled(t *testing.T) {
	cfg := gateConfig()
	cfg.Enabled = false
	gate := NewGate(NewMemoryLimiter(testLogger()), cfg, testLogger())

	for i := 0; i < 10; i++ {
		allowed, _ := gate.AllowMessage(context.Background(), 1)
		assert.True(t, allowed)
	}
}

func TestGateNilLimiterAllowsEverything(t *testing.T) {
	gate := NewGate(nil, gateConfig(), testLogger())

	allowed, _ := gate.AllowSubmit(context.Background(), 1)
	assert.True(t, allowed)
}

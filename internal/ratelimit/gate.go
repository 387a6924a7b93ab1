package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/guildgate/guildgate-bot/pkg/config"
)

// Gate applies the configured admission rules to user actions. It sits in
// front of the store: a rejected action never reaches a mutating operation.
type Gate struct {
	limiter Limiter
	cfg     config.RateLimitConfig
	log     *slog.Logger
}

// NewGate builds the admission gate. A nil limiter disables all limits.
func NewGate(limiter Limiter, cfg config.RateLimitConfig, log *slog.Logger) *Gate {
	if log == nil {
		log = slog.Default()
	}

	return &Gate{
		limiter: limiter,
		cfg:     cfg,
		log:     log,
	}
}

// AllowSubmit reports whether the user may submit an application right now,
// and the seconds until the window resets when not.
func (g *Gate) AllowSubmit(ctx context.Context, userID int64) (bool, int) {
	return g.check(ctx, "submit", userID, g.cfg.Submit)
}

// AllowMessage reports whether a group message from the user still earns XP.
func (g *Gate) AllowMessage(ctx context.Context, userID int64) (bool, int) {
	return g.check(ctx, "message", userID, g.cfg.Message)
}

// IsWhitelisted reports whether the user bypasses all limits.
func (g *Gate) IsWhitelisted(userID int64) bool {
	for _, id := range g.cfg.Whitelist {
		if id == userID {
			return true
		}
	}
	return false
}

func (g *Gate) check(ctx context.Context, action string, userID int64, rule config.RateLimitRule) (bool, int) {
	if g.limiter == nil || !g.cfg.Enabled || rule.Limit <= 0 || rule.Window <= 0 {
		return true, 0
	}

	if g.IsWhitelisted(userID) {
		return true, 0
	}

	key := fmt.Sprintf("%s:%d", action, userID)

	result, err := g.limiter.Check(ctx, key, rule.Limit, rule.Window)
	if err != nil && result == nil {
		// Fail open: a broken limiter backend must not take the bot down.
		g.log.Error("rate limit check failed", slog.String("action", action), slog.Int64("user_id", userID), slog.Any("error", err))
		return true, 0
	}

	if result.Allowed {
		return true, 0
	}

	retryAfter := int(time.Until(result.ResetAt).Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}

	return false, retryAfter
}

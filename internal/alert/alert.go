package alert

import (
	"context"
	"time"

	"go.uber.org/zap"

	"linkkeeper/internal/utils"
)

const (
	LevelInfo = "INFO"
	LevelWarn = "WARN"
)

// Notifier surfaces operator-facing events, typically to a Discord channel.
// A rate limiter keeps a guild pinned at the pending cap from repeating the
// same warning on every rejected link.
type Notifier struct {
	logger   *zap.Logger
	limiter  *utils.RateLimiter
	cooldown time.Duration
	notify   func(ctx context.Context, level, message string)
}

func NewNotifier(logger *zap.Logger, cooldown time.Duration) *Notifier {
	return &Notifier{
		logger:   logger,
		limiter:  utils.NewRateLimiter(),
		cooldown: cooldown,
	}
}

// SetNotifier installs the delivery function. The bot wires this after the
// session is connected; until then alerts only hit the log.
func (n *Notifier) SetNotifier(notify func(ctx context.Context, level, message string)) {
	n.notify = notify
}

// CapacityReached reports a guild hitting its pending-link cap, at most once
// per cooldown per guild.
func (n *Notifier) CapacityReached(ctx context.Context, guildID string, cap int) {
	n.logger.Warn("guild pending capacity reached", zap.String("guild_id", guildID), zap.Int("cap", cap))
	if !n.limiter.Allow(guildID, "capacity", n.cooldown, time.Now()) {
		return
	}
	n.send(ctx, LevelWarn, "Pending-link capacity reached for guild "+guildID+"; new links are being rejected until some are resolved.")
}

// Event reports a one-off operator event without rate limiting.
func (n *Notifier) Event(ctx context.Context, level, message string) {
	n.logger.Info("operator event", zap.String("level", level), zap.String("message", message))
	n.send(ctx, level, message)
}

func (n *Notifier) send(ctx context.Context, level, message string) {
	if n.notify == nil {
		return
	}
	n.notify(ctx, level, message)
}

// Trim drops stale limiter entries, called from the cleanup scheduler.
func (n *Notifier) Trim(now time.Time) {
	n.limiter.Trim(24*time.Hour, now)
}

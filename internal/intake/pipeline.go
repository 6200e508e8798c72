package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"linkkeeper/internal/ai"
	"linkkeeper/internal/alert"
	"linkkeeper/internal/burst"
	"linkkeeper/internal/storage"
	"linkkeeper/internal/utils"
)

var (
	ErrNotAuthor           = errors.New("prompt belongs to another user")
	ErrRateLimited         = errors.New("command is on cooldown")
	ErrReviewInProgress    = errors.New("a pending review is already running")
	ErrNothingToCategorize = errors.New("no link is awaiting a category")
)

// Stale interactive views disable themselves after this long.
const flowTimeout = 3 * time.Minute

const batchQueuedEmoji = "\U0001F5C2️" // 🗂️

// Options carries the pipeline's tunables, filled from config.
type Options struct {
	BurstThreshold  int
	BurstWindow     time.Duration
	AutoExpire      bool
	ExpireAfter     time.Duration
	ConfirmTimeout  time.Duration
	SelectLimit     int
	GuildPendingCap int
	SeenCap         int
	ReviewCooldown  time.Duration
}

// Pipeline implements the link intake flow: gate, extract, burst-branch,
// and the confirmation workflows. It owns all workflow state and talks to
// the platform only through the Chat interface.
type Pipeline struct {
	opts     Options
	chat     Chat
	advisor  Advisor
	store    *storage.Store
	detector *burst.Detector
	registry *Registry
	seen     *utils.SeenSet
	limiter  *utils.RateLimiter
	alerts   *alert.Notifier
	logger   *zap.Logger
}

func NewPipeline(opts Options, chat Chat, advisor Advisor, store *storage.Store, alerts *alert.Notifier, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		opts:     opts,
		chat:     chat,
		advisor:  advisor,
		store:    store,
		detector: burst.NewDetector(opts.BurstWindow, opts.BurstThreshold),
		registry: NewRegistry(opts.GuildPendingCap),
		seen:     utils.NewSeenSet(opts.SeenCap),
		limiter:  utils.NewRateLimiter(),
		alerts:   alerts,
		logger:   logger,
	}
}

func (p *Pipeline) Registry() *Registry {
	return p.registry
}

// RehydrateCounters seeds the per-guild pending counters from the durable
// store, so restarts do not reset the capacity guard.
func (p *Pipeline) RehydrateCounters(ctx context.Context) error {
	counts, err := p.store.CountPendingByGuild(ctx)
	if err != nil {
		return fmt.Errorf("count pending by guild: %w", err)
	}
	for guildID, n := range counts {
		p.registry.SetCount(guildID, n)
	}
	return nil
}

// Sweep is the recurring cleanup pass: drops quiet burst channels and
// stale rate-limit entries.
func (p *Pipeline) Sweep(now time.Time) {
	removed := p.detector.Sweep(now)
	p.limiter.Trim(24*time.Hour, now)
	p.alerts.Trim(now)
	p.logger.Debug("cleanup sweep", zap.Int("burst_channels_removed", removed))
}

// HandleMessage runs one inbound message through the pipeline. The seen
// gate runs before anything else so redelivered events are no-ops.
func (p *Pipeline) HandleMessage(ctx context.Context, msg Message) {
	if msg.Bot || msg.MessageID == "" {
		return
	}
	if p.seen.CheckAndMark(msg.MessageID) {
		return
	}

	urls := extractLinks(msg.Content)
	if len(urls) == 0 {
		return
	}

	if len(urls) > 1 {
		p.startFlow(ctx, msg, urls)
		return
	}

	url := urls[0]
	count := p.detector.Record(msg.ChannelID, time.Now())
	if count > p.opts.BurstThreshold {
		p.queueToBatch(ctx, msg, url, true)
		return
	}
	p.promptSingle(ctx, msg, url)
}

// extractLinks returns the message's valid, non-media candidate URLs in
// order of appearance.
func extractLinks(content string) []string {
	var out []string
	for _, raw := range utils.ExtractURLs(content) {
		if utils.IsMediaURL(raw) || !utils.IsValidURL(raw) {
			continue
		}
		out = append(out, raw)
	}
	return out
}

// promptSingle is the per-link path: reserve capacity, persist, fetch the
// advisory verdict, show the decision prompt and arm its expiry.
func (p *Pipeline) promptSingle(ctx context.Context, msg Message, url string) {
	if !p.tryAcquire(ctx, msg.GuildID, msg.ChannelID) {
		return
	}

	id, err := p.store.AddPendingLink(ctx, storage.PendingLink{
		GuildID:           msg.GuildID,
		UserID:            msg.AuthorID,
		ChannelID:         msg.ChannelID,
		OriginalMessageID: msg.MessageID,
		URL:               url,
		CreatedAt:         time.Now(),
	})
	if err != nil {
		p.registry.Release(msg.GuildID)
		p.logger.Error("persist pending link", zap.String("url", url), zap.Error(err))
		p.notify(ctx, msg.ChannelID, "Could not track that link, please try again.")
		return
	}

	verdict := p.advisor.Verdict(ctx, url)

	botMsgID, err := p.chat.SendLinkPrompt(ctx, msg.ChannelID, LinkPrompt{
		AuthorID:   msg.AuthorID,
		URL:        url,
		Verdict:    verdict,
		Suspicious: ai.SuspiciousLink(url),
	})
	if err != nil {
		p.logger.Warn("send link prompt", zap.String("url", url), zap.Error(err))
		_ = p.store.DeletePendingLink(ctx, id)
		p.registry.Release(msg.GuildID)
		return
	}

	if err := p.store.UpdatePendingBotMessage(ctx, id, botMsgID); err != nil {
		p.logger.Warn("link prompt message id not persisted", zap.Int64("id", id), zap.Error(err))
	}

	p.registerPrompt(botMsgID, &Prompt{
		DurableID:         id,
		GuildID:           msg.GuildID,
		UserID:            msg.AuthorID,
		ChannelID:         msg.ChannelID,
		OriginalMessageID: msg.MessageID,
		URL:               url,
	})
}

func (p *Pipeline) registerPrompt(botMessageID string, prompt *Prompt) {
	p.registry.AddPrompt(botMessageID, prompt)
	if p.opts.AutoExpire {
		p.registry.ArmPromptExpiry(botMessageID, p.opts.ExpireAfter, func() {
			p.expirePrompt(botMessageID)
		})
	}
}

// expirePrompt finalizes a prompt that got no response. TakePrompt is the
// race arbiter: whichever of expiry and user action takes the record first
// finalizes it, the other no-ops.
func (p *Pipeline) expirePrompt(botMessageID string) {
	prompt, ok := p.registry.TakePrompt(botMessageID)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := p.store.DeletePendingLink(ctx, prompt.DurableID); err != nil {
		p.logger.Warn("delete expired pending link", zap.Int64("id", prompt.DurableID), zap.Error(err))
	}
	p.registry.Release(prompt.GuildID)
	if err := p.chat.DeleteMessage(ctx, prompt.ChannelID, botMessageID); err != nil {
		p.logger.Debug("expired prompt already gone", zap.String("message_id", botMessageID))
	}
	p.logger.Info("pending link expired", zap.String("url", prompt.URL), zap.String("user_id", prompt.UserID))
}

// queueToBatch persists a burst-routed link to the author's batch bucket
// without prompting. A filing reaction acknowledges it when react is true.
func (p *Pipeline) queueToBatch(ctx context.Context, msg Message, url string, react bool) {
	if !p.tryAcquire(ctx, msg.GuildID, msg.ChannelID) {
		return
	}

	id, err := p.store.AddPendingLink(ctx, storage.PendingLink{
		GuildID:           msg.GuildID,
		UserID:            msg.AuthorID,
		ChannelID:         msg.ChannelID,
		OriginalMessageID: msg.MessageID,
		URL:               url,
		CreatedAt:         time.Now(),
	})
	if err != nil {
		p.registry.Release(msg.GuildID)
		p.logger.Error("queue batch link", zap.String("url", url), zap.Error(err))
		return
	}

	p.registry.AddBatchEntry(msg.GuildID, msg.AuthorID, BatchEntry{DurableID: id, URL: url})
	if react {
		if err := p.chat.React(ctx, msg.ChannelID, msg.MessageID, batchQueuedEmoji); err != nil {
			p.logger.Debug("batch ack reaction failed", zap.Error(err))
		}
	}
}

// tryAcquire reserves a pending slot or reports capacity exhaustion to the
// user and the operator channel.
func (p *Pipeline) tryAcquire(ctx context.Context, guildID, channelID string) bool {
	if p.registry.TryAcquire(guildID) {
		return true
	}
	p.notify(ctx, channelID, "Too many links are awaiting review right now, please try again later.")
	p.alerts.CapacityReached(ctx, guildID, p.opts.GuildPendingCap)
	return false
}

func (p *Pipeline) notify(ctx context.Context, channelID, content string) {
	if _, err := p.chat.SendText(ctx, channelID, content); err != nil {
		p.logger.Debug("notify failed", zap.String("channel_id", channelID), zap.Error(err))
	}
}

package intake

import (
	"context"
	"time"

	"go.uber.org/zap"

	"linkkeeper/internal/ai"
	"linkkeeper/internal/storage"
	"linkkeeper/internal/utils"
)

// ReviewPending rehydrates a user's durable pending links, including the
// batch bucket, into fresh per-link prompts. One review at a time per user,
// with a cooldown between invocations.
func (p *Pipeline) ReviewPending(ctx context.Context, guildID, channelID, userID string) (int, error) {
	if !p.limiter.Allow(userID, "review", p.opts.ReviewCooldown, time.Now()) {
		return 0, ErrRateLimited
	}
	if !p.registry.StartReview(userID) {
		return 0, ErrReviewInProgress
	}
	defer p.registry.EndReview(userID)

	entries, err := p.store.ListPendingForUser(ctx, guildID, userID)
	if err != nil {
		return 0, err
	}

	prompted := 0
	for _, entry := range entries {
		// Skip links whose prompt is still live on screen.
		if entry.BotMessageID != "" && p.registry.HasPrompt(entry.BotMessageID) {
			continue
		}

		botMsgID, err := p.chat.SendLinkPrompt(ctx, channelID, LinkPrompt{
			AuthorID:   userID,
			URL:        entry.URL,
			Verdict:    p.advisor.Verdict(ctx, entry.URL),
			Suspicious: ai.SuspiciousLink(entry.URL),
		})
		if err != nil {
			p.logger.Warn("send review prompt", zap.String("url", entry.URL), zap.Error(err))
			continue
		}
		if err := p.store.UpdatePendingBotMessage(ctx, entry.ID, botMsgID); err != nil {
			p.logger.Warn("review prompt message id not persisted", zap.Int64("id", entry.ID), zap.Error(err))
		}

		// The durable entry already holds its capacity slot, so no
		// acquire here; finalizing the prompt releases it.
		p.registerPrompt(botMsgID, &Prompt{
			DurableID:         entry.ID,
			GuildID:           guildID,
			UserID:            userID,
			ChannelID:         channelID,
			OriginalMessageID: entry.OriginalMessageID,
			URL:               entry.URL,
		})
		prompted++
	}

	// Everything in the bucket is now reachable through its prompt.
	p.registry.TakeBatch(guildID, userID)

	p.logger.Info("pending review", zap.String("user_id", userID), zap.Int("prompted", prompted))
	return prompted, nil
}

// PendingLinks lists a user's durable pending links without prompting.
func (p *Pipeline) PendingLinks(ctx context.Context, guildID, userID string) ([]storage.PendingLink, error) {
	return p.store.ListPendingForUser(ctx, guildID, userID)
}

// Categorize consumes the user's to-categorize slot and persists the link
// under the given category. Links saved through the batch path still hold a
// pending record; that record and its capacity slot are released here.
func (p *Pipeline) Categorize(ctx context.Context, userID, category string) (string, error) {
	slot, ok := p.registry.TakeCategorySlot(userID)
	if !ok {
		return "", ErrNothingToCategorize
	}

	// Store the canonical form so the same link is not saved twice under
	// cosmetic variations.
	if normalized, _, err := utils.NormalizeURL(slot.URL); err == nil {
		slot.URL = normalized
	}

	if _, err := p.store.AddSavedLink(ctx, storage.SavedLink{
		GuildID:   slot.GuildID,
		URL:       slot.URL,
		Category:  category,
		Author:    slot.Author,
		CreatedAt: time.Now(),
	}); err != nil {
		// Put the slot back so the user can retry.
		p.registry.SetCategorySlot(userID, slot)
		return "", err
	}

	if slot.DurableID != 0 {
		if err := p.store.DeletePendingLink(ctx, slot.DurableID); err != nil {
			p.logger.Warn("delete categorized pending link", zap.Int64("id", slot.DurableID), zap.Error(err))
		}
		p.registry.Release(slot.GuildID)
	}

	p.logger.Info("link categorized", zap.String("url", slot.URL), zap.String("category", category), zap.String("user_id", userID))
	return slot.URL, nil
}

// CancelCategorize drops the user's to-categorize slot. A batch-path link
// keeps its pending record and stays reviewable.
func (p *Pipeline) CancelCategorize(userID string) (string, bool) {
	slot, ok := p.registry.TakeCategorySlot(userID)
	if !ok {
		return "", false
	}
	return slot.URL, true
}

// AllowAnalyze gates the ad-hoc AI verdict command per user.
func (p *Pipeline) AllowAnalyze(userID string, cooldown time.Duration) bool {
	return p.limiter.Allow(userID, "analyze", cooldown, time.Now())
}

// AnalyzeRetryIn reports how long until the user may analyze again.
func (p *Pipeline) AnalyzeRetryIn(userID string, cooldown time.Duration) time.Duration {
	return p.limiter.Remaining(userID, "analyze", cooldown, time.Now())
}

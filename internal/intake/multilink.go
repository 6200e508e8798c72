package intake

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"linkkeeper/internal/storage"
)

func newPendingLink(flow *Flow, url string) storage.PendingLink {
	return storage.PendingLink{
		GuildID:           flow.GuildID,
		UserID:            flow.UserID,
		ChannelID:         flow.ChannelID,
		OriginalMessageID: flow.OriginalMessageID,
		URL:               url,
		CreatedAt:         time.Now(),
	}
}

// startFlow begins the multi-link workflow for a message carrying several
// links. Candidates past the select cap skip the UI and go straight to the
// author's batch bucket.
func (p *Pipeline) startFlow(ctx context.Context, msg Message, urls []string) {
	if len(urls) > p.opts.SelectLimit {
		p.notify(ctx, msg.ChannelID, fmt.Sprintf("%d links detected, only the first %d fit the picker. Use /pendinglinks to review the rest.", len(urls), p.opts.SelectLimit))
		for _, url := range urls[p.opts.SelectLimit:] {
			p.queueToBatch(ctx, msg, url, false)
		}
		urls = urls[:p.opts.SelectLimit]
		if err := p.chat.React(ctx, msg.ChannelID, msg.MessageID, batchQueuedEmoji); err != nil {
			p.logger.Debug("batch ack reaction failed", zap.Error(err))
		}
	}

	disclosureID, err := p.chat.SendDisclosure(ctx, msg.ChannelID, msg.AuthorID, len(urls))
	if err != nil {
		p.logger.Warn("send disclosure", zap.Error(err))
		return
	}

	p.registerFlow(disclosureID, &Flow{
		GuildID:           msg.GuildID,
		UserID:            msg.AuthorID,
		UserName:          msg.AuthorName,
		ChannelID:         msg.ChannelID,
		OriginalMessageID: msg.MessageID,
		URLs:              urls,
	})
}

func (p *Pipeline) registerFlow(messageID string, flow *Flow) {
	p.registry.AddFlow(messageID, flow)
	p.registry.ArmFlowTimeout(messageID, flowTimeout, func() {
		p.expireFlow(messageID)
	})
}

// expireFlow disables a stale view's controls and drops the flow. Links
// already queued to the batch bucket are unaffected.
func (p *Pipeline) expireFlow(messageID string) {
	flow, ok := p.registry.TakeFlow(messageID)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := p.chat.DisableComponents(ctx, flow.ChannelID, messageID); err != nil {
		p.logger.Debug("stale flow view already gone", zap.String("message_id", messageID))
	}
}

// takeFlowFor removes the flow at messageID after verifying the acting user
// owns it. A nil flow with a nil error means the flow is already gone.
func (p *Pipeline) takeFlowFor(messageID, userID string) (*Flow, error) {
	existing, ok := p.registry.PeekFlow(messageID)
	if !ok {
		return nil, nil
	}
	if existing.UserID != userID {
		return nil, ErrNotAuthor
	}
	flow, ok := p.registry.TakeFlow(messageID)
	if !ok {
		return nil, nil
	}
	return flow, nil
}

// HandleDisclosureYes advances the flow to the multi-select step.
func (p *Pipeline) HandleDisclosureYes(ctx context.Context, messageID, userID string) error {
	flow, err := p.takeFlowFor(messageID, userID)
	if flow == nil || err != nil {
		return err
	}

	if err := p.chat.DeleteMessage(ctx, flow.ChannelID, messageID); err != nil {
		p.logger.Debug("disclosure already gone", zap.String("message_id", messageID))
	}

	selectID, err := p.chat.SendLinkSelect(ctx, flow.ChannelID, flow.URLs)
	if err != nil {
		p.logger.Warn("send link select", zap.Error(err))
		p.notify(ctx, flow.ChannelID, "Could not open the link picker, the links were not saved.")
		return nil
	}
	p.registerFlow(selectID, flow)
	return nil
}

// HandleDisclosureNo discards the whole flow without persisting anything.
func (p *Pipeline) HandleDisclosureNo(ctx context.Context, messageID, userID string) error {
	flow, err := p.takeFlowFor(messageID, userID)
	if flow == nil || err != nil {
		return err
	}
	if err := p.chat.DeleteMessage(ctx, flow.ChannelID, messageID); err != nil {
		p.logger.Debug("disclosure already gone", zap.String("message_id", messageID))
	}
	return nil
}

// HandleSelect records the user's chosen links and advances to the batch
// confirmation step. Selections arrive as candidate positions, since the
// view keys its options by position to keep repeated URLs distinct.
func (p *Pipeline) HandleSelect(ctx context.Context, messageID, userID string, selected []string) error {
	flow, err := p.takeFlowFor(messageID, userID)
	if flow == nil || err != nil {
		return err
	}

	if err := p.chat.DeleteMessage(ctx, flow.ChannelID, messageID); err != nil {
		p.logger.Debug("select view already gone", zap.String("message_id", messageID))
	}

	chosen := make([]string, 0, len(selected))
	for _, value := range selected {
		idx, err := strconv.Atoi(value)
		if err != nil || idx < 0 || idx >= len(flow.URLs) {
			p.logger.Warn("select value out of range", zap.String("value", value))
			continue
		}
		chosen = append(chosen, flow.URLs[idx])
	}

	if len(chosen) == 0 {
		p.notify(ctx, flow.ChannelID, "No links selected, nothing to review.")
		return nil
	}

	flow.Selected = chosen
	confirmID, err := p.chat.SendBatchConfirm(ctx, flow.ChannelID, len(chosen))
	if err != nil {
		p.logger.Warn("send batch confirm", zap.Error(err))
		p.notify(ctx, flow.ChannelID, "Could not open the confirmation, the links were not saved.")
		return nil
	}
	p.registerFlow(confirmID, flow)
	return nil
}

// HandleBatchConfirm persists each selected link sequentially. A failure on
// one link is reported and does not abort the rest.
func (p *Pipeline) HandleBatchConfirm(ctx context.Context, messageID, userID string) error {
	flow, err := p.takeFlowFor(messageID, userID)
	if flow == nil || err != nil {
		return err
	}

	if err := p.chat.DeleteMessage(ctx, flow.ChannelID, messageID); err != nil {
		p.logger.Debug("batch confirm already gone", zap.String("message_id", messageID))
	}

	saved := 0
	for _, url := range flow.Selected {
		if !p.tryAcquire(ctx, flow.GuildID, flow.ChannelID) {
			continue
		}

		id, err := p.store.AddPendingLink(ctx, newPendingLink(flow, url))
		if err != nil {
			p.registry.Release(flow.GuildID)
			p.logger.Error("persist batch link", zap.String("url", url), zap.Error(err))
			p.notify(ctx, flow.ChannelID, "Could not save "+url+", please try again.")
			continue
		}

		p.registry.SetCategorySlot(userID, CategorySlot{
			GuildID:   flow.GuildID,
			URL:       url,
			Author:    flow.UserName,
			DurableID: id,
		})
		saved++
		p.notify(ctx, flow.ChannelID, fmt.Sprintf("Link %d/%d saved, use /category to file it: %s", saved, len(flow.Selected), url))
	}
	p.logger.Info("batch confirmed", zap.String("user_id", userID), zap.Int("saved", saved), zap.Int("selected", len(flow.Selected)))
	return nil
}

// HandleBatchCancel drops the selection without persisting.
func (p *Pipeline) HandleBatchCancel(ctx context.Context, messageID, userID string) error {
	flow, err := p.takeFlowFor(messageID, userID)
	if flow == nil || err != nil {
		return err
	}
	if err := p.chat.DeleteMessage(ctx, flow.ChannelID, messageID); err != nil {
		p.logger.Debug("batch confirm already gone", zap.String("message_id", messageID))
	}
	return nil
}

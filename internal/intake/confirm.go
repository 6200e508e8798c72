package intake

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// HandleSave resolves a link prompt as saved. The durable record is removed,
// the capacity slot freed, and the link parked in the author's to-categorize
// slot until they name a category.
func (p *Pipeline) HandleSave(ctx context.Context, botMessageID, userID, userName string) error {
	existing, ok := p.registry.PeekPrompt(botMessageID)
	if !ok {
		// Already finalized by expiry or another handler.
		return nil
	}
	if existing.UserID != userID {
		return ErrNotAuthor
	}

	prompt, ok := p.registry.TakePrompt(botMessageID)
	if !ok {
		return nil
	}

	if err := p.store.DeletePendingLink(ctx, prompt.DurableID); err != nil {
		p.logger.Warn("delete saved pending link", zap.Int64("id", prompt.DurableID), zap.Error(err))
	}
	p.registry.Release(prompt.GuildID)

	p.registry.SetCategorySlot(userID, CategorySlot{
		GuildID: prompt.GuildID,
		URL:     prompt.URL,
		Author:  userName,
	})

	if err := p.chat.DeleteMessage(ctx, prompt.ChannelID, botMessageID); err != nil {
		p.logger.Debug("saved prompt already gone", zap.String("message_id", botMessageID))
	}
	p.notify(ctx, prompt.ChannelID, "Link saved. Use /category to file it: "+prompt.URL)
	p.logger.Info("pending link saved", zap.String("url", prompt.URL), zap.String("user_id", userID))
	return nil
}

// HandleIgnore opens the secondary "are you sure" dialog. The original
// prompt stays live until the deletion is confirmed.
func (p *Pipeline) HandleIgnore(ctx context.Context, botMessageID, userID string) error {
	prompt, ok := p.registry.PeekPrompt(botMessageID)
	if !ok {
		return nil
	}
	if prompt.UserID != userID {
		return ErrNotAuthor
	}

	confirmMsgID, err := p.chat.SendDeleteConfirm(ctx, prompt.ChannelID)
	if err != nil {
		p.logger.Warn("send delete confirm", zap.Error(err))
		return nil
	}

	p.registry.AddConfirm(confirmMsgID, &DeleteConfirm{
		PromptMessageID: botMessageID,
		ChannelID:       prompt.ChannelID,
		UserID:          userID,
	})
	p.registry.ArmConfirmDismiss(confirmMsgID, p.opts.ConfirmTimeout, func() {
		p.dismissConfirm(confirmMsgID)
	})
	return nil
}

// dismissConfirm times out an unanswered "are you sure" dialog. Defaults to
// no deletion; the link prompt itself is untouched.
func (p *Pipeline) dismissConfirm(confirmMessageID string) {
	confirm, ok := p.registry.TakeConfirm(confirmMessageID)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := p.chat.DeleteMessage(ctx, confirm.ChannelID, confirmMessageID); err != nil {
		p.logger.Debug("confirm dialog already gone", zap.String("message_id", confirmMessageID))
	}
}

// HandleConfirmDelete finalizes an ignore: origin message, prompt message
// and durable record all go away.
func (p *Pipeline) HandleConfirmDelete(ctx context.Context, confirmMessageID, userID string) error {
	existing, ok := p.registry.PeekConfirm(confirmMessageID)
	if !ok {
		return nil
	}
	if existing.UserID != userID {
		return ErrNotAuthor
	}

	confirm, ok := p.registry.TakeConfirm(confirmMessageID)
	if !ok {
		return nil
	}
	if err := p.chat.DeleteMessage(ctx, confirm.ChannelID, confirmMessageID); err != nil {
		p.logger.Debug("confirm dialog already gone", zap.String("message_id", confirmMessageID))
	}

	prompt, ok := p.registry.TakePrompt(confirm.PromptMessageID)
	if !ok {
		// The prompt expired while the dialog was open.
		return nil
	}

	if err := p.store.DeletePendingLink(ctx, prompt.DurableID); err != nil {
		p.logger.Warn("delete ignored pending link", zap.Int64("id", prompt.DurableID), zap.Error(err))
	}
	p.registry.Release(prompt.GuildID)

	if err := p.chat.DeleteMessage(ctx, prompt.ChannelID, prompt.OriginalMessageID); err != nil {
		p.logger.Debug("origin message already gone", zap.String("message_id", prompt.OriginalMessageID))
	}
	if err := p.chat.DeleteMessage(ctx, prompt.ChannelID, confirm.PromptMessageID); err != nil {
		p.logger.Debug("link prompt already gone", zap.String("message_id", confirm.PromptMessageID))
	}
	p.logger.Info("pending link ignored", zap.String("url", prompt.URL), zap.String("user_id", userID))
	return nil
}

// HandleCancelDelete closes the dialog and keeps the link prompt live.
func (p *Pipeline) HandleCancelDelete(ctx context.Context, confirmMessageID, userID string) error {
	existing, ok := p.registry.PeekConfirm(confirmMessageID)
	if !ok {
		return nil
	}
	if existing.UserID != userID {
		return ErrNotAuthor
	}

	confirm, ok := p.registry.TakeConfirm(confirmMessageID)
	if !ok {
		return nil
	}
	if err := p.chat.DeleteMessage(ctx, confirm.ChannelID, confirmMessageID); err != nil {
		p.logger.Debug("confirm dialog already gone", zap.String("message_id", confirmMessageID))
	}
	return nil
}

package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"linkkeeper/internal/ai"
	"linkkeeper/internal/intake"
)

// Component custom ids. Interactions carry the message id they belong to,
// which is all the pipeline needs to find its state.
const (
	customIDSave          = "link_save"
	customIDIgnore        = "link_ignore"
	customIDConfirmDelete = "confirm_delete"
	customIDCancelDelete  = "cancel_delete"
	customIDDisclosureYes = "disclosure_yes"
	customIDDisclosureNo  = "disclosure_no"
	customIDLinkSelect    = "link_select"
	customIDBatchSave     = "batch_save"
	customIDBatchCancel   = "batch_cancel"
)

func (b *Bot) SendText(_ context.Context, channelID, content string) (string, error) {
	msg, err := b.session.ChannelMessageSend(channelID, content)
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (b *Bot) SendLinkPrompt(_ context.Context, channelID string, prompt intake.LinkPrompt) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<@%s> Save this link?\n%s", prompt.AuthorID, prompt.URL)
	if prompt.Suspicious {
		sb.WriteString("\n⚠️ This link matches common phishing patterns, check it carefully.")
	}
	if prompt.Verdict != "" {
		if token, reason := ai.ParseVerdict(prompt.Verdict); token != "" {
			fmt.Fprintf(&sb, "\nAI suggestion: **%s** - %s", token, reason)
		} else {
			sb.WriteString("\n" + prompt.Verdict)
		}
	}

	msg, err := b.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: sb.String(),
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{CustomID: customIDSave, Label: "Save", Style: discordgo.SuccessButton},
				discordgo.Button{CustomID: customIDIgnore, Label: "Ignore", Style: discordgo.DangerButton},
			}},
		},
	})
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (b *Bot) SendDisclosure(_ context.Context, channelID, authorID string, count int) (string, error) {
	msg, err := b.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: fmt.Sprintf("<@%s> You posted %d links. Review any of them?", authorID, count),
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{CustomID: customIDDisclosureYes, Label: "Yes", Style: discordgo.PrimaryButton},
				discordgo.Button{CustomID: customIDDisclosureNo, Label: "No", Style: discordgo.SecondaryButton},
			}},
		},
	})
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

// linkSelectOptions builds one option per candidate, keyed by position
// rather than by URL. Option values must be unique and at most 100
// characters, which repeated or long URLs would violate.
func linkSelectOptions(urls []string) []discordgo.SelectMenuOption {
	options := make([]discordgo.SelectMenuOption, 0, len(urls))
	for i, url := range urls {
		options = append(options, discordgo.SelectMenuOption{
			Label:       fmt.Sprintf("Link %d", i+1),
			Value:       strconv.Itoa(i),
			Description: truncate(url, 100),
		})
	}
	return options
}

func (b *Bot) SendLinkSelect(_ context.Context, channelID string, urls []string) (string, error) {
	options := linkSelectOptions(urls)

	minValues := 0
	msg, err := b.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: "Pick the links worth keeping:",
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.SelectMenu{
					CustomID:    customIDLinkSelect,
					Placeholder: "Select links...",
					MinValues:   &minValues,
					MaxValues:   len(options),
					Options:     options,
				},
			}},
		},
	})
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (b *Bot) SendBatchConfirm(_ context.Context, channelID string, count int) (string, error) {
	msg, err := b.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: fmt.Sprintf("Save %d selected links?", count),
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{CustomID: customIDBatchSave, Label: "Save all", Style: discordgo.SuccessButton},
				discordgo.Button{CustomID: customIDBatchCancel, Label: "Cancel", Style: discordgo.SecondaryButton},
			}},
		},
	})
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (b *Bot) SendDeleteConfirm(_ context.Context, channelID string) (string, error) {
	msg, err := b.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: "Really ignore this link? The original message will be removed.",
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{CustomID: customIDConfirmDelete, Label: "Delete", Style: discordgo.DangerButton},
				discordgo.Button{CustomID: customIDCancelDelete, Label: "Keep", Style: discordgo.SecondaryButton},
			}},
		},
	})
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (b *Bot) DeleteMessage(_ context.Context, channelID, messageID string) error {
	return b.session.ChannelMessageDelete(channelID, messageID)
}

func (b *Bot) DisableComponents(_ context.Context, channelID, messageID string) error {
	_, err := b.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    channelID,
		ID:         messageID,
		Components: []discordgo.MessageComponent{},
	})
	return err
}

func (b *Bot) React(_ context.Context, channelID, messageID, emoji string) error {
	return b.session.MessageReactionAdd(channelID, messageID, emoji)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"linkkeeper/internal/ai"
	"linkkeeper/internal/intake"
	"linkkeeper/internal/storage"
	"linkkeeper/internal/utils"
)

const responseChunkSize = 1500

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	ctx := context.Background()
	switch interaction.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(ctx, session, interaction)
	case discordgo.InteractionMessageComponent:
		b.handleComponent(ctx, session, interaction)
	}
}

func interactionUser(interaction *discordgo.InteractionCreate) *discordgo.User {
	if interaction.Member != nil && interaction.Member.User != nil {
		return interaction.Member.User
	}
	return interaction.User
}

// handleComponent routes button and select interactions to the pipeline.
// The component's message id is the lookup key; no state lives here.
func (b *Bot) handleComponent(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	user := interactionUser(interaction)
	if user == nil || interaction.Message == nil {
		return
	}
	messageID := interaction.Message.ID
	data := interaction.MessageComponentData()

	var err error
	switch data.CustomID {
	case customIDSave:
		err = b.pipeline.HandleSave(ctx, messageID, user.ID, user.Username)
	case customIDIgnore:
		err = b.pipeline.HandleIgnore(ctx, messageID, user.ID)
	case customIDConfirmDelete:
		err = b.pipeline.HandleConfirmDelete(ctx, messageID, user.ID)
	case customIDCancelDelete:
		err = b.pipeline.HandleCancelDelete(ctx, messageID, user.ID)
	case customIDDisclosureYes:
		err = b.pipeline.HandleDisclosureYes(ctx, messageID, user.ID)
	case customIDDisclosureNo:
		err = b.pipeline.HandleDisclosureNo(ctx, messageID, user.ID)
	case customIDLinkSelect:
		err = b.pipeline.HandleSelect(ctx, messageID, user.ID, data.Values)
	case customIDBatchSave:
		err = b.pipeline.HandleBatchConfirm(ctx, messageID, user.ID)
	case customIDBatchCancel:
		err = b.pipeline.HandleBatchCancel(ctx, messageID, user.ID)
	default:
		return
	}

	if errors.Is(err, intake.ErrNotAuthor) {
		b.respond(session, interaction, "Only the person who posted the link can use this.", true)
		return
	}
	if err != nil {
		b.logger.Warn("component interaction failed", zap.String("custom_id", data.CustomID), zap.Error(err))
	}

	// The pipeline manages the prompt messages itself; just acknowledge.
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
}

func (b *Bot) handleCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	user := interactionUser(interaction)
	if user == nil {
		return
	}
	if interaction.GuildID == "" {
		b.respond(session, interaction, "This command only works inside a server.", true)
		return
	}

	data := interaction.ApplicationCommandData()
	switch data.Name {
	case "pendinglinks":
		b.handlePendingLinks(ctx, session, interaction, user)
	case "category":
		b.handleCategory(ctx, session, interaction, user, data.Options)
	case "cancel":
		b.handleCancel(session, interaction, user)
	case "getlinks":
		b.handleGetLinks(ctx, session, interaction, data.Options)
	case "categories":
		b.handleCategories(ctx, session, interaction)
	case "searchlinks":
		b.handleSearchLinks(ctx, session, interaction, data.Options)
	case "deletelink":
		b.handleDeleteLink(ctx, session, interaction, data.Options)
	case "recent":
		b.handleRecent(ctx, session, interaction)
	case "stats":
		b.handleStats(ctx, session, interaction)
	case "analyze":
		b.handleAnalyze(ctx, session, interaction, user, data.Options)
	default:
		b.respond(session, interaction, "Unknown command.", true)
	}
}

func (b *Bot) handlePendingLinks(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, user *discordgo.User) {
	prompted, err := b.pipeline.ReviewPending(ctx, interaction.GuildID, interaction.ChannelID, user.ID)
	switch {
	case errors.Is(err, intake.ErrRateLimited):
		b.respond(session, interaction, "Give it a few seconds before reviewing again.", true)
	case errors.Is(err, intake.ErrReviewInProgress):
		b.respond(session, interaction, "A review is already running, finish that one first.", true)
	case err != nil:
		b.logger.Warn("pending review failed", zap.Error(err))
		b.respond(session, interaction, "Could not load your pending links, try again.", true)
	case prompted == 0:
		b.respond(session, interaction, "No pending links waiting for you.", true)
	default:
		b.respond(session, interaction, fmt.Sprintf("Re-sent %d pending link prompt(s).", prompted), true)
	}
}

func (b *Bot) handleCategory(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, user *discordgo.User, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if len(options) == 0 {
		b.respond(session, interaction, "Give the category a name.", true)
		return
	}
	name := strings.TrimSpace(options[0].StringValue())
	if name == "" {
		b.respond(session, interaction, "Give the category a name.", true)
		return
	}

	url, err := b.pipeline.Categorize(ctx, user.ID, name)
	switch {
	case errors.Is(err, intake.ErrNothingToCategorize):
		b.respond(session, interaction, "No link is waiting for a category. Save one first.", true)
	case err != nil:
		b.logger.Warn("categorize failed", zap.Error(err))
		b.respond(session, interaction, "Could not save the link, try again.", true)
	default:
		b.respond(session, interaction, fmt.Sprintf("Saved under **%s**: %s", name, url), false)
	}
}

func (b *Bot) handleCancel(session *discordgo.Session, interaction *discordgo.InteractionCreate, user *discordgo.User) {
	if url, ok := b.pipeline.CancelCategorize(user.ID); ok {
		b.respond(session, interaction, "Discarded: "+url, true)
		return
	}
	b.respond(session, interaction, "Nothing to cancel.", true)
}

func (b *Bot) handleGetLinks(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	category := ""
	if len(options) > 0 {
		category = options[0].StringValue()
	}

	links, err := b.store.ListSavedLinks(ctx, interaction.GuildID, category)
	if err != nil {
		b.logger.Warn("list saved links failed", zap.Error(err))
		b.respond(session, interaction, "Could not load saved links, try again.", true)
		return
	}
	if len(links) == 0 {
		b.respond(session, interaction, "No saved links yet.", true)
		return
	}
	b.respondChunked(session, interaction, formatLinks(links))
}

func (b *Bot) handleCategories(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	categories, err := b.store.ListCategories(ctx, interaction.GuildID)
	if err != nil {
		b.logger.Warn("list categories failed", zap.Error(err))
		b.respond(session, interaction, "Could not load categories, try again.", true)
		return
	}
	if len(categories) == 0 {
		b.respond(session, interaction, "No categories yet.", true)
		return
	}

	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	sort.Strings(names)

	var lines []string
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("**%s** - %d link(s)", name, categories[name]))
	}
	b.respondChunked(session, interaction, lines)
}

func (b *Bot) handleSearchLinks(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if len(options) == 0 {
		b.respond(session, interaction, "Give me a search term.", true)
		return
	}
	term := options[0].StringValue()

	links, err := b.store.SearchSavedLinks(ctx, interaction.GuildID, term)
	if err != nil {
		b.logger.Warn("search saved links failed", zap.Error(err))
		b.respond(session, interaction, "Search failed, try again.", true)
		return
	}
	if len(links) == 0 {
		b.respond(session, interaction, "No links match "+term+".", true)
		return
	}
	b.respondChunked(session, interaction, formatLinks(links))
}

func (b *Bot) handleDeleteLink(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if len(options) == 0 {
		b.respond(session, interaction, "Give me the link's position from /getlinks.", true)
		return
	}
	position := int(options[0].IntValue())

	links, err := b.store.ListSavedLinks(ctx, interaction.GuildID, "")
	if err != nil {
		b.logger.Warn("list saved links failed", zap.Error(err))
		b.respond(session, interaction, "Could not delete the link, try again.", true)
		return
	}
	if position < 1 || position > len(links) {
		b.respond(session, interaction, fmt.Sprintf("Position must be between 1 and %d.", len(links)), true)
		return
	}

	target := links[position-1]
	if err := b.store.DeleteSavedLink(ctx, target.ID); err != nil {
		b.logger.Warn("delete saved link failed", zap.Error(err))
		b.respond(session, interaction, "Could not delete the link, try again.", true)
		return
	}
	b.respond(session, interaction, "Deleted: "+target.URL, false)
}

func (b *Bot) handleRecent(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	links, err := b.store.RecentSavedLinks(ctx, interaction.GuildID, 5)
	if err != nil {
		b.logger.Warn("recent saved links failed", zap.Error(err))
		b.respond(session, interaction, "Could not load recent links, try again.", true)
		return
	}
	if len(links) == 0 {
		b.respond(session, interaction, "No saved links yet.", true)
		return
	}
	b.respondChunked(session, interaction, formatLinks(links))
}

func (b *Bot) handleStats(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	report, err := b.stats.Report(ctx, interaction.GuildID, 5)
	if err != nil {
		b.logger.Warn("stats report failed", zap.Error(err))
		b.respond(session, interaction, "Could not build the report, try again.", true)
		return
	}
	if report.Total == 0 {
		b.respond(session, interaction, "No saved links yet.", true)
		return
	}

	lines := []string{fmt.Sprintf("**%d** links saved in this server.", report.Total), "", "Top categories:"}
	for _, entry := range report.TopCategories {
		lines = append(lines, fmt.Sprintf("  %s - %d", entry.Name, entry.Count))
	}
	lines = append(lines, "", "Top domains:")
	for _, entry := range report.TopDomains {
		lines = append(lines, fmt.Sprintf("  %s - %d", entry.Name, entry.Count))
	}
	lines = append(lines, "", "Top contributors:")
	for _, entry := range report.TopAuthors {
		lines = append(lines, fmt.Sprintf("  %s - %d", entry.Name, entry.Count))
	}
	b.respondChunked(session, interaction, lines)
}

func (b *Bot) handleAnalyze(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, user *discordgo.User, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if len(options) == 0 {
		b.respond(session, interaction, "Give me a link to analyze.", true)
		return
	}
	url := options[0].StringValue()
	if !utils.IsValidURL(url) {
		b.respond(session, interaction, "That does not look like a valid http(s) link.", true)
		return
	}
	cooldown := time.Duration(b.cfg.Intake.AnalyzeCooldownSecs) * time.Second
	if !b.pipeline.AllowAnalyze(user.ID, cooldown) {
		wait := b.pipeline.AnalyzeRetryIn(user.ID, cooldown).Round(time.Second)
		b.respond(session, interaction, fmt.Sprintf("Give the AI a moment, try again in %s.", wait), true)
		return
	}

	// The verdict call can take several seconds with retries.
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})

	verdict := b.advisor.Verdict(ctx, url)
	content := url + "\n"
	if token, reason := ai.ParseVerdict(verdict); token != "" {
		content += fmt.Sprintf("**%s** - %s", token, reason)
	} else {
		content += verdict
	}
	if _, err := session.FollowupMessageCreate(interaction.Interaction, true, &discordgo.WebhookParams{Content: content}); err != nil {
		b.logger.Warn("analyze followup failed", zap.Error(err))
	}
}

func formatLinks(links []storage.SavedLink) []string {
	lines := make([]string, 0, len(links))
	for i, link := range links {
		category := link.Category
		if category == "" {
			category = "uncategorized"
		}
		lines = append(lines, fmt.Sprintf("%d. [%s] %s (by %s)", i+1, category, link.URL, link.Author))
	}
	return lines
}

func (b *Bot) respond(session *discordgo.Session, interaction *discordgo.InteractionCreate, content string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
}

// respondChunked answers with the first chunk and sends the rest as
// followups, keeping each message under the platform limit.
func (b *Bot) respondChunked(session *discordgo.Session, interaction *discordgo.InteractionCreate, lines []string) {
	chunks := chunkLines(lines, responseChunkSize)
	if len(chunks) == 0 {
		return
	}
	b.respond(session, interaction, chunks[0], true)
	for _, chunk := range chunks[1:] {
		if _, err := session.FollowupMessageCreate(interaction.Interaction, true, &discordgo.WebhookParams{
			Content: chunk,
			Flags:   discordgo.MessageFlagsEphemeral,
		}); err != nil {
			b.logger.Warn("followup chunk failed", zap.Error(err))
			return
		}
	}
}

func chunkLines(lines []string, limit int) []string {
	var chunks []string
	var current strings.Builder
	for _, line := range lines {
		if current.Len() > 0 && current.Len()+len(line)+1 > limit {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

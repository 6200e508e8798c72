package bot

import "github.com/bwmarrin/discordgo"

func (b *Bot) registerCommands() error {
	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "pendinglinks",
			Description: "Review your links still awaiting a decision",
		},
		{
			Name:        "category",
			Description: "File your last saved link under a category",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "name",
					Description: "category name",
					Required:    true,
				},
			},
		},
		{
			Name:        "cancel",
			Description: "Discard the link waiting for a category",
		},
		{
			Name:        "getlinks",
			Description: "List saved links",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "category",
					Description: "only links in this category",
					Required:    false,
				},
			},
		},
		{
			Name:        "categories",
			Description: "List categories and their link counts",
		},
		{
			Name:        "searchlinks",
			Description: "Search saved links by keyword",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "term",
					Description: "text to match in url or category",
					Required:    true,
				},
			},
		},
		{
			Name:        "deletelink",
			Description: "Delete a saved link by its list position",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "position",
					Description: "position shown by /getlinks",
					Required:    true,
				},
			},
		},
		{
			Name:        "recent",
			Description: "Show the five most recently saved links",
		},
		{
			Name:        "stats",
			Description: "Saved-link statistics for this server",
		},
		{
			Name:        "analyze",
			Description: "Ask the AI whether a link is worth keeping",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "url",
					Description: "link to analyze",
					Required:    true,
				},
			},
		},
	}

	appID := b.session.State.User.ID
	existing, err := b.session.ApplicationCommands(appID, "")
	if err != nil {
		for _, cmd := range commands {
			if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
				return err
			}
		}
		return nil
	}

	existingByName := make(map[string]*discordgo.ApplicationCommand)
	for _, cmd := range existing {
		existingByName[cmd.Name] = cmd
	}

	desired := make(map[string]struct{})
	for _, cmd := range commands {
		desired[cmd.Name] = struct{}{}
		if current, ok := existingByName[cmd.Name]; ok {
			if _, err := b.session.ApplicationCommandEdit(appID, "", current.ID, cmd); err != nil {
				return err
			}
			continue
		}
		if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
			return err
		}
	}

	for _, cmd := range existing {
		if _, ok := desired[cmd.Name]; ok {
			continue
		}
		_ = b.session.ApplicationCommandDelete(appID, "", cmd.ID)
	}

	return nil
}

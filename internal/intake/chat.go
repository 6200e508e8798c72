package intake

import "context"

// Message is an inbound chat message as seen by the pipeline.
type Message struct {
	GuildID    string
	ChannelID  string
	MessageID  string
	AuthorID   string
	AuthorName string
	Content    string
	Bot        bool
}

// LinkPrompt describes the per-link decision UI shown to a link's author.
type LinkPrompt struct {
	AuthorID   string
	URL        string
	Verdict    string
	Suspicious bool
}

// Chat is the outbound surface the pipeline drives. The bot package
// implements it with Discord calls; tests substitute a fake. Every method
// that creates a message returns its platform message id, which the
// pipeline uses as the routing key for later interactions.
type Chat interface {
	SendText(ctx context.Context, channelID, content string) (string, error)
	SendLinkPrompt(ctx context.Context, channelID string, prompt LinkPrompt) (string, error)
	SendDisclosure(ctx context.Context, channelID, authorID string, count int) (string, error)
	// SendLinkSelect shows a multi-select over the candidate URLs. Options
	// are keyed by position, so selection values come back as indices.
	SendLinkSelect(ctx context.Context, channelID string, urls []string) (string, error)
	SendBatchConfirm(ctx context.Context, channelID string, count int) (string, error)
	SendDeleteConfirm(ctx context.Context, channelID string) (string, error)
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	DisableComponents(ctx context.Context, channelID, messageID string) error
	React(ctx context.Context, channelID, messageID, emoji string) error
}

// Advisor produces advisory verdict text for a URL. Implementations never
// return an error; failures degrade to placeholder text.
type Advisor interface {
	Verdict(ctx context.Context, url string) string
}

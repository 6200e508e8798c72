package bot

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"linkkeeper/internal/ai"
	"linkkeeper/internal/alert"
	"linkkeeper/internal/config"
	"linkkeeper/internal/intake"
	"linkkeeper/internal/stats"
	"linkkeeper/internal/storage"
)

type Bot struct {
	cfg      config.Config
	logger   *zap.Logger
	store    *storage.Store
	advisor  *ai.Advisor
	alerts   *alert.Notifier
	stats    *stats.Service
	pipeline *intake.Pipeline
	session  *discordgo.Session
	cron     *cron.Cron
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store, advisor *ai.Advisor, alerts *alert.Notifier, statsService *stats.Service) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsMessageContent

	b := &Bot{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		advisor: advisor,
		alerts:  alerts,
		stats:   statsService,
		session: session,
	}

	b.pipeline = intake.NewPipeline(intake.Options{
		BurstThreshold:  cfg.Intake.BurstThreshold,
		BurstWindow:     time.Duration(cfg.Intake.BurstWindowSeconds) * time.Second,
		AutoExpire:      cfg.Intake.AutoExpireEnabled,
		ExpireAfter:     time.Duration(cfg.Intake.AutoExpireSeconds) * time.Second,
		ConfirmTimeout:  time.Duration(cfg.Intake.ConfirmTimeoutSeconds) * time.Second,
		SelectLimit:     cfg.Intake.SelectLimit,
		GuildPendingCap: cfg.Intake.GuildPendingCap,
		SeenCap:         cfg.Intake.SeenCap,
		ReviewCooldown:  time.Duration(cfg.Intake.ReviewCooldownSeconds) * time.Second,
	}, b, advisor, store, alerts, logger)

	if cfg.AlertChannelID != "" {
		alerts.SetNotifier(func(_ context.Context, level, message string) {
			if _, err := b.session.ChannelMessageSend(cfg.AlertChannelID, "["+level+"] "+message); err != nil {
				b.logger.Warn("operator alert not delivered", zap.Error(err))
			}
		})
	}

	return b, nil
}

// Pipeline exposes the intake pipeline for startup tasks like counter
// rehydration.
func (b *Bot) Pipeline() *intake.Pipeline {
	return b.pipeline
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	if err := b.registerCommands(); err != nil {
		return err
	}

	b.startCleanup()

	return nil
}

func (b *Bot) Close(ctx context.Context) {
	_ = ctx
	if b.cron != nil {
		b.cron.Stop()
	}
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) startCleanup() {
	b.cron = cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	if _, err := b.cron.AddFunc("@hourly", func() {
		b.pipeline.Sweep(time.Now())
	}); err != nil {
		b.logger.Warn("cleanup schedule not registered", zap.Error(err))
		return
	}
	b.cron.Start()
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready", zap.String("user", session.State.User.Username), zap.Int("guilds", len(event.Guilds)))
}

func (b *Bot) onMessageCreate(_ *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.GuildID == "" {
		return
	}

	b.pipeline.HandleMessage(context.Background(), intake.Message{
		GuildID:    msg.GuildID,
		ChannelID:  msg.ChannelID,
		MessageID:  msg.ID,
		AuthorID:   msg.Author.ID,
		AuthorName: msg.Author.Username,
		Content:    msg.Content,
		Bot:        msg.Author.Bot,
	})
}

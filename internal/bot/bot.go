package bot

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/DevSeige-Studios/WaterfallBot/internal/config"
	"github.com/DevSeige-Studios/WaterfallBot/internal/convert"
	"github.com/DevSeige-Studios/WaterfallBot/internal/detection"
	"github.com/DevSeige-Studios/WaterfallBot/internal/github"
	"github.com/DevSeige-Studios/WaterfallBot/internal/stats"
	"github.com/DevSeige-Studios/WaterfallBot/internal/storage"
)

// pendingDeletionGrace is how long a departed guild's data is kept
// before purging, so a rejoin restores everything.
const pendingDeletionGrace = 30 * 24 * time.Hour

type Bot struct {
	cfg       config.Config
	logger    *zap.Logger
	store     *storage.Store
	detection *detection.Service
	stats     *stats.Service
	currency  *convert.CurrencyConverter
	github    *github.Client
	session   *discordgo.Session
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store, detector *detection.Service, statsService *stats.Service) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildInvites |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildVoiceStates

	return &Bot{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		detection: detector,
		stats:     statsService,
		currency:  convert.NewCurrencyConverter(cfg.Currency.RatesURL, time.Duration(cfg.Currency.CacheHours)*time.Hour),
		github:    github.NewClient(cfg.GitHub.BaseURL, cfg.GitHub.UserAgent),
		session:   session,
	}, nil
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onGuildCreate)
	b.session.AddHandler(b.onGuildDelete)
	b.session.AddHandler(b.onGuildMemberAdd)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onVoiceStateUpdate)
	b.session.AddHandler(b.onInviteCreate)
	b.session.AddHandler(b.onInviteDelete)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	return b.registerCommands()
}

// MemberCount reads the cached member count for a guild, zero when the
// guild is not in state.
func (b *Bot) MemberCount(guildID string) int {
	guild, err := b.session.State.Guild(guildID)
	if err != nil {
		return 0
	}
	return guild.MemberCount
}

func (b *Bot) Close(ctx context.Context) {
	_ = ctx
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready",
		zap.String("user", session.State.User.Username),
		zap.Int("guilds", len(event.Guilds)))
}

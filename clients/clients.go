package clients

import (
	"botdash/clients/botapi"
	"botdash/clients/discord"
	"botdash/clients/notifier"
	"botdash/clients/telegram"
	"botdash/config"

	"go.uber.org/zap"
)

type Clients struct {
	Logger *zap.Logger

	BotAPI   *botapi.Client
	Discord  *discord.DiscordClient
	Telegram *telegram.TelegramClient
	Notifier notifier.Notifier // Combined audit notifier for all channels
}

func NewClients(logger *zap.Logger, cfg *config.Config) *Clients {
	if logger == nil {
		logger = zap.NewNop()
	}

	discordClient := discord.NewDiscordClient(logger.Named("discord"), cfg)
	telegramClient := telegram.NewTelegramClient(logger.Named("telegram"), cfg)

	// Only enabled channels take part in the fan-out.
	var active []notifier.Notifier
	if discordClient.Enabled() {
		active = append(active, discordClient)
	}
	if telegramClient.Enabled() {
		active = append(active, telegramClient)
	}

	return &Clients{
		Logger:   logger,
		BotAPI:   botapi.NewClient(logger.Named("botapi"), cfg),
		Discord:  discordClient,
		Telegram: telegramClient,
		Notifier: notifier.NewMultiNotifier(active...),
	}
}

// Close releases notifier resources.
func (c *Clients) Close() error {
	if c.Notifier == nil {
		return nil
	}
	return c.Notifier.Close()
}

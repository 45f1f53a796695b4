package discord

import (
	"botdash/clients/notifier"
	"botdash/config"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	colorSuccess = 0x2ECC71
	colorFailure = 0xE74C3C
	colorInfo    = 0x3498DB
)

// embedSender is the subset of *discordgo.Session used to post audit embeds.
type embedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	Close() error
}

// DiscordClient posts audit events to a Discord channel.
// Implements notifier.Notifier interface.
type DiscordClient struct {
	logger    *zap.Logger
	session   embedSender
	channelID string
}

func NewDiscordClient(logger *zap.Logger, cfg *config.Config) *DiscordClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	channelID := cfg.Discord.AuditChannelID
	token := cfg.Discord.BotToken
	if token == "" || channelID == "" {
		logger.Info("discord audit disabled", zap.Bool("hasToken", token != ""), zap.String("channelID", channelID))
		return &DiscordClient{logger: logger, channelID: channelID}
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		logger.Error("failed to create discord session", zap.Error(err))
		return &DiscordClient{logger: logger, channelID: channelID}
	}

	logger.Info("discord audit initialized", zap.String("channelID", channelID))

	return &DiscordClient{
		logger:    logger,
		session:   session,
		channelID: channelID,
	}
}

// Enabled reports whether events will actually be posted.
func (dc *DiscordClient) Enabled() bool {
	return dc.session != nil && dc.channelID != ""
}

// SendAuditEvent posts the event as an embed.
// Implements notifier.Notifier interface.
func (dc *DiscordClient) SendAuditEvent(event notifier.AuditEvent) {
	if !dc.Enabled() {
		return
	}

	embed := buildAuditEmbed(event)

	if _, err := dc.session.ChannelMessageSendEmbed(dc.channelID, embed); err != nil {
		dc.logger.Error("failed to send discord embed", zap.Error(err))
		return
	}

	dc.logger.Debug("sent discord audit event",
		zap.String("kind", string(event.Kind)),
		zap.Bool("success", event.Success),
	)
}

func buildAuditEmbed(event notifier.AuditEvent) *discordgo.MessageEmbed {
	color := colorSuccess
	if !event.Success {
		color = colorFailure
	}
	if event.Kind == notifier.AuditKindSettings {
		color = colorInfo
	}

	var fields []*discordgo.MessageEmbedField
	if event.Action != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Action", Value: event.Action, Inline: true})
	}
	if event.Target != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Target", Value: event.Target, Inline: true})
	}
	if event.Message != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Result", Value: truncate(event.Message, 1024)})
	}

	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	return &discordgo.MessageEmbed{
		Title:       event.Title(),
		Description: truncate(event.Detail, 4096),
		Color:       color,
		Fields:      fields,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("botdash * %s", ts.Format("2006-01-02 15:04:05 MST")),
		},
		Timestamp: ts.Format(time.RFC3339),
	}
}

// Close cleans up resources. Implements notifier.Notifier interface.
func (dc *DiscordClient) Close() error {
	if dc.session != nil {
		return dc.session.Close()
	}
	return nil
}

// SnowflakeCreatedAt returns the creation time encoded in a Discord id.
func SnowflakeCreatedAt(id string) (time.Time, error) {
	ts, err := discordgo.SnowflakeTimestamp(id)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse snowflake %q: %w", id, err)
	}
	return ts, nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

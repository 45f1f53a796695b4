package telegram

import (
	"botdash/clients/notifier"
	"botdash/config"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultAPIBase = "https://api.telegram.org"

// TelegramClient posts audit events to a Telegram chat.
// Implements notifier.Notifier interface.
type TelegramClient struct {
	logger   *zap.Logger
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

func NewTelegramClient(logger *zap.Logger, cfg *config.Config) *TelegramClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	chatID := cfg.Telegram.AuditChatID
	token := cfg.Telegram.BotToken
	if token == "" || chatID == "" {
		logger.Info("telegram audit disabled", zap.Bool("hasToken", token != ""), zap.String("chatID", chatID))
		return &TelegramClient{logger: logger, chatID: chatID, apiBase: defaultAPIBase}
	}

	logger.Info("telegram audit initialized", zap.String("chatID", chatID))

	return &TelegramClient{
		logger:   logger,
		botToken: token,
		chatID:   chatID,
		apiBase:  defaultAPIBase,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled reports whether events will actually be posted.
func (tc *TelegramClient) Enabled() bool {
	return tc.botToken != "" && tc.chatID != "" && tc.client != nil
}

// SendAuditEvent posts the event as a Markdown message.
// Implements notifier.Notifier interface.
func (tc *TelegramClient) SendAuditEvent(event notifier.AuditEvent) {
	if !tc.Enabled() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := tc.sendMessage(ctx, buildAuditMessage(event)); err != nil {
		tc.logger.Error("failed to send telegram message", zap.Error(err))
		return
	}

	tc.logger.Debug("sent telegram audit event",
		zap.String("kind", string(event.Kind)),
		zap.Bool("success", event.Success),
	)
}

func buildAuditMessage(event notifier.AuditEvent) string {
	var sb strings.Builder

	icon := "✅"
	if !event.Success {
		icon = "❌"
	}
	sb.WriteString(fmt.Sprintf("%s *%s*\n\n", icon, escapeMarkdown(event.Title())))

	if event.Action != "" {
		sb.WriteString(fmt.Sprintf("*Action:* %s\n", escapeMarkdown(event.Action)))
	}
	if event.Target != "" {
		sb.WriteString(fmt.Sprintf("*Target:* %s\n", escapeMarkdown(event.Target)))
	}
	if event.Detail != "" {
		sb.WriteString(fmt.Sprintf("*Detail:* %s\n", escapeMarkdown(event.Detail)))
	}
	if event.Message != "" {
		sb.WriteString(fmt.Sprintf("*Result:* %s\n", escapeMarkdown(event.Message)))
	}

	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	sb.WriteString(fmt.Sprintf("\n_%s_", ts.Format("2006-01-02 15:04:05 MST")))

	return sb.String()
}

func (tc *TelegramClient) sendMessage(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", tc.apiBase, tc.botToken)

	payload := map[string]interface{}{
		"chat_id":    tc.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	return nil
}

// Close cleans up resources. Implements notifier.Notifier interface.
func (tc *TelegramClient) Close() error {
	return nil
}

// escapeMarkdown escapes special characters for Telegram Markdown.
func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"]", "\\]",
		"`", "\\`",
	)
	return replacer.Replace(s)
}

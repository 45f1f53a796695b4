package clients

import (
	"botdash/clients/notifier"
	"botdash/config"
	"testing"

	"go.uber.org/zap"
)

func TestNewClients(t *testing.T) {
	cfg := config.Defaults()
	cfg.BotAPI.BaseURL = "http://bot.example.com"

	logger := zap.NewNop()
	clients := NewClients(logger, cfg)

	if clients.Logger != logger {
		t.Error("unexpected logger")
	}
	if clients.BotAPI == nil {
		t.Fatal("expected BotAPI client to be set")
	}
	if clients.BotAPI.BaseURL() != "http://bot.example.com" {
		t.Errorf("unexpected base URL %s", clients.BotAPI.BaseURL())
	}
	if clients.Discord == nil || clients.Telegram == nil {
		t.Error("expected notifier clients to be set")
	}
	if clients.Notifier == nil {
		t.Error("expected combined notifier")
	}
}

func TestNewClients_DisabledNotifiersAreSkipped(t *testing.T) {
	cfg := config.Defaults()
	cfg.Telegram.BotToken = "token"
	cfg.Telegram.AuditChatID = "chat"

	clients := NewClients(nil, cfg)

	mn, ok := clients.Notifier.(*notifier.MultiNotifier)
	if !ok {
		t.Fatalf("expected MultiNotifier, got %T", clients.Notifier)
	}
	if mn.Count() != 1 {
		t.Errorf("expected only telegram to be active, got %d", mn.Count())
	}
	if err := clients.Close(); err != nil {
		t.Errorf("unexpected close error: %v", err)
	}
}

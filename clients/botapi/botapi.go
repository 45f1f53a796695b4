package botapi

import (
	"botdash/config"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Backend paths, relative to the configured base URL.
const (
	pathBotInfo            = "/api/bot_info"
	pathCommandStats       = "/api/command_stats"
	pathLogs               = "/api/logs"
	pathConfig             = "/api/config"
	pathGuilds             = "/api/guilds"
	pathReactionRoles      = "/api/reaction_roles"
	pathReactionRoleAdd    = "/api/reaction_roles/add"
	pathReactionRoleRemove = "/api/reaction_roles/remove"
	pathControlBot         = "/api/control_bot"
	pathSendAnnouncement   = "/api/send_announcement"
	pathSimulateLog        = "/api/simulate_log"
)

// SinceLayout is the format of the since_timestamp query parameter.
const SinceLayout = "2006-01-02 15:04:05"

const maxBodyBytes = 4 << 20

// Client talks to the bot's REST control API.
type Client struct {
	logger     *zap.Logger
	httpClient *http.Client
	baseURL    string
}

func NewClient(logger *zap.Logger, cfg *config.Config) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := cfg.BotAPI.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		logger: logger,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(cfg.BotAPI.BaseURL, "/"),
	}
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// GetBotInfo fetches bot status and metrics.
func (c *Client) GetBotInfo(ctx context.Context) (*BotInfo, error) {
	var info BotInfo
	if err := c.doGet(ctx, pathBotInfo, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetCommandStats fetches command usage counters.
// Both the command_stats and command_counts payload shapes are accepted.
func (c *Client) GetCommandStats(ctx context.Context) (*CommandStats, error) {
	var raw rawCommandStats
	if err := c.doGet(ctx, pathCommandStats, nil, &raw); err != nil {
		return nil, err
	}
	if raw.Status == "error" {
		return nil, &APIError{StatusCode: http.StatusOK, Message: raw.Error}
	}
	stats := raw.normalize()
	return &stats, nil
}

// GetLogs fetches log lines. A non-zero since adds since_timestamp.
func (c *Client) GetLogs(ctx context.Context, since time.Time) ([]RawLog, error) {
	var q url.Values
	if !since.IsZero() {
		q = url.Values{"since_timestamp": {since.Format(SinceLayout)}}
	}

	var raw rawLogs
	if err := c.doGet(ctx, pathLogs, q, &raw); err != nil {
		return nil, err
	}
	if raw.Status == "error" {
		return nil, &APIError{StatusCode: http.StatusOK, Message: raw.Error}
	}
	return raw.Logs, nil
}

// ConfigItem is one key of the bot configuration.
type ConfigItem struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// GetConfig fetches the bot configuration as key-sorted items.
// A payload without a config object is an application failure.
func (c *Client) GetConfig(ctx context.Context) ([]ConfigItem, error) {
	var raw rawConfig
	if err := c.doGet(ctx, pathConfig, nil, &raw); err != nil {
		return nil, err
	}
	if raw.Status == "error" || raw.Config == nil {
		msg := raw.Error
		if msg == "" {
			msg = "response has no config"
		}
		return nil, &APIError{StatusCode: http.StatusOK, Message: msg}
	}

	items := make([]ConfigItem, 0, len(raw.Config))
	for k, v := range raw.Config {
		items = append(items, ConfigItem{Key: k, Value: configValue(v)})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })
	return items, nil
}

func configValue(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(v))
}

// GetGuilds fetches guild summaries. Accepts a bare array or {guilds:[...]}.
func (c *Client) GetGuilds(ctx context.Context) ([]Guild, error) {
	var guilds []Guild
	if err := c.getList(ctx, pathGuilds, "guilds", &guilds); err != nil {
		return nil, err
	}
	return guilds, nil
}

// GetReactionRoles fetches reaction-role rules. Accepts a bare array or {reaction_roles:[...]}.
func (c *Client) GetReactionRoles(ctx context.Context) ([]ReactionRole, error) {
	var rules []ReactionRole
	if err := c.getList(ctx, pathReactionRoles, "reaction_roles", &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// AddReactionRole creates a reaction-role rule.
func (c *Client) AddReactionRole(ctx context.Context, req AddReactionRoleRequest) (*ActionResult, error) {
	return c.doPost(ctx, pathReactionRoleAdd, req)
}

// RemoveReactionRole deletes the rule for (message id, emoji).
func (c *Client) RemoveReactionRole(ctx context.Context, req RemoveReactionRoleRequest) (*ActionResult, error) {
	return c.doPost(ctx, pathReactionRoleRemove, req)
}

// ControlBot sends a control action.
func (c *Client) ControlBot(ctx context.Context, action ControlAction) (*ActionResult, error) {
	return c.doPost(ctx, pathControlBot, map[string]string{"action": string(action)})
}

// SendAnnouncement posts a message to a channel through the bot.
func (c *Client) SendAnnouncement(ctx context.Context, channelID, message string) (*ActionResult, error) {
	return c.doPost(ctx, pathSendAnnouncement, map[string]string{
		"channel_id": channelID,
		"message":    message,
	})
}

// SimulateLog asks the bot to emit a log line.
func (c *Client) SimulateLog(ctx context.Context, level, message string) (*ActionResult, error) {
	return c.doPost(ctx, pathSimulateLog, map[string]string{
		"level":   level,
		"message": message,
	})
}

// getList decodes either a bare JSON array or an object holding the array under key.
func (c *Client) getList(ctx context.Context, path, key string, dest any) error {
	var raw json.RawMessage
	if err := c.doGet(ctx, path, nil, &raw); err != nil {
		return err
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, dest); err != nil {
			return &TransportError{Op: "decode " + path, Err: err}
		}
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return &TransportError{Op: "decode " + path, Err: err}
	}
	var env envelope
	_ = json.Unmarshal(trimmed, &env)
	if env.Status == "error" {
		return &APIError{StatusCode: http.StatusOK, Message: env.errorText()}
	}
	list, ok := obj[key]
	if !ok || string(list) == "null" {
		msg := env.errorText()
		if msg == "" {
			msg = "response has no " + key
		}
		return &APIError{StatusCode: http.StatusOK, Message: msg}
	}
	if err := json.Unmarshal(list, dest); err != nil {
		return &TransportError{Op: "decode " + path, Err: err}
	}
	return nil
}

func (c *Client) doGet(ctx context.Context, path string, query url.Values, dest any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	body, status, err := c.do(req)
	if err != nil {
		return err
	}
	if status/100 != 2 {
		return newAPIError(status, body)
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return &TransportError{Op: "decode " + path, Err: err}
	}
	return nil
}

func (c *Client) doPost(ctx context.Context, path string, payload any) (*ActionResult, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	body, status, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if status/100 != 2 {
		return nil, newAPIError(status, body)
	}

	var result ActionResult
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, &TransportError{Op: "decode " + path, Err: err}
		}
	} else {
		result.Success = true
	}
	if !result.Success {
		return &result, &APIError{StatusCode: status, Message: result.FailureText()}
	}
	return &result, nil
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("bot api request failed",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Error(err),
		)
		return nil, 0, &TransportError{Op: req.Method + " " + req.URL.Path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, &TransportError{Op: "read " + req.URL.Path, Err: err}
	}

	c.logger.Debug("bot api request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)
	return body, resp.StatusCode, nil
}

package botapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ControlAction is a one-shot bot control command.
type ControlAction string

const (
	ActionRestart    ControlAction = "restart"
	ActionReloadCogs ControlAction = "reload_cogs"
	ActionUpdateGit  ControlAction = "update_git"
)

// ControlActions lists the actions accepted by ControlBot, in panel order.
var ControlActions = []ControlAction{ActionRestart, ActionReloadCogs, ActionUpdateGit}

// ParseControlAction validates a raw action name.
func ParseControlAction(s string) (ControlAction, error) {
	a := ControlAction(strings.ToLower(strings.TrimSpace(s)))
	for _, valid := range ControlActions {
		if a == valid {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown control action %q", s)
}

// Label returns the operator-facing name of the action.
func (a ControlAction) Label() string {
	switch a {
	case ActionRestart:
		return "Restart Bot"
	case ActionReloadCogs:
		return "Reload Cogs"
	case ActionUpdateGit:
		return "Update from Git"
	default:
		return string(a)
	}
}

// ---- tolerant scalar types ----

// FlexString decodes any JSON scalar into a string. null decodes to "".
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	// Numbers, booleans and nested values keep their JSON text.
	*f = FlexString(data)
	return nil
}

func (f FlexString) String() string { return string(f) }

// FlexInt decodes a JSON number or numeric string into an int64.
// Valid is false when the field was absent, null or unparseable.
type FlexInt struct {
	Value int64
	Valid bool
}

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*f = FlexInt{}
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*f = FlexInt{Value: i, Valid: true}
		return nil
	}
	if fl, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(fl) && !math.IsInf(fl, 0) {
		*f = FlexInt{Value: int64(math.Round(fl)), Valid: true}
	}
	return nil
}

func (f FlexInt) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(f.Value, 10)), nil
}

// ---- bot info ----

// BotInfo is the payload of GET /api/bot_info.
type BotInfo struct {
	Status            string     `json:"status"`
	Uptime            FlexString `json:"uptime"`
	LatencyMS         FlexString `json:"latency_ms"`
	UserCount         FlexInt    `json:"user_count"`
	GuildCount        FlexInt    `json:"guild_count"`
	CommandsUsedToday FlexInt    `json:"commands_used_today"`
	Error             string     `json:"error,omitempty"`
}

// ---- command stats ----

// CommandStat is one command usage counter.
type CommandStat struct {
	CommandName string `json:"command_name"`
	UsageCount  int64  `json:"usage_count"`
}

// CommandStats is the normalised payload of GET /api/command_stats.
type CommandStats struct {
	Stats      []CommandStat
	TotalToday FlexInt // server-reported total, when present
}

type rawCommandStat struct {
	CommandName FlexString `json:"command_name"`
	UsageCount  FlexInt    `json:"usage_count"`
	Count       FlexInt    `json:"count"`
}

type rawCommandStats struct {
	Status        string           `json:"status"`
	Error         string           `json:"error"`
	CommandStats  []rawCommandStat `json:"command_stats"`
	CommandCounts []rawCommandStat `json:"command_counts"`
	TotalToday    FlexInt          `json:"total_commands_today"`
}

func (r rawCommandStats) normalize() CommandStats {
	src := r.CommandStats
	if src == nil {
		src = r.CommandCounts
	}
	out := CommandStats{Stats: make([]CommandStat, 0, len(src)), TotalToday: r.TotalToday}
	for _, s := range src {
		n := s.UsageCount
		if !n.Valid {
			n = s.Count
		}
		count := n.Value
		if count < 0 {
			count = 0
		}
		out.Stats = append(out.Stats, CommandStat{CommandName: string(s.CommandName), UsageCount: count})
	}
	return out
}

// ---- logs ----

// LogObject is a log entry the backend already split into fields.
type LogObject struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Source    string `json:"source"`
	Message   string `json:"message"`
}

// RawLog is one element of the logs array: either a plain line or an object.
type RawLog struct {
	Line   string
	Object *LogObject
}

func (r *RawLog) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*r = RawLog{}
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	switch data[0] {
	case '"':
		return json.Unmarshal(data, &r.Line)
	case '{':
		var fields map[string]FlexString
		if err := json.Unmarshal(data, &fields); err != nil {
			return fmt.Errorf("log object: %w", err)
		}
		obj := &LogObject{
			Timestamp: firstOf(fields, "timestamp", "time", "ts"),
			Level:     firstOf(fields, "level", "levelname"),
			Source:    firstOf(fields, "source", "logger", "name"),
			Message:   firstOf(fields, "message", "msg"),
		}
		r.Object = obj
		return nil
	default:
		// Numbers, arrays: keep their JSON text as a line.
		r.Line = string(data)
		return nil
	}
}

func firstOf(m map[string]FlexString, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != "" {
			return string(v)
		}
	}
	return ""
}

type rawLogs struct {
	Status string   `json:"status"`
	Error  string   `json:"error"`
	Logs   []RawLog `json:"logs"`
}

// ---- config ----

type rawConfig struct {
	Status string                     `json:"status"`
	Error  string                     `json:"error"`
	Config map[string]json.RawMessage `json:"config"`
}

// ---- guilds ----

// Guild is one guild the bot is a member of.
type Guild struct {
	ID           FlexString `json:"id"`
	Name         string     `json:"name"`
	MemberCount  FlexInt    `json:"member_count"`
	ChannelCount FlexInt    `json:"channel_count"`
	OwnerName    string     `json:"owner_name"`
	OwnerID      FlexString `json:"owner_id"`
	IconURL      string     `json:"icon_url,omitempty"`
}

// ---- reaction roles ----

// ReactionRole binds an emoji on a message to a role.
type ReactionRole struct {
	GuildID   FlexString `json:"guild_id"`
	ChannelID FlexString `json:"channel_id"`
	MessageID FlexString `json:"message_id"`
	Emoji     string     `json:"emoji"`
	RoleID    FlexString `json:"role_id"`
}

// AddReactionRoleRequest is the body of POST /api/reaction_roles/add.
type AddReactionRoleRequest struct {
	GuildID   string `json:"guild_id"`
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
	RoleID    string `json:"role_id"`
}

// RemoveReactionRoleRequest is the body of POST /api/reaction_roles/remove.
type RemoveReactionRoleRequest struct {
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
}

// ---- mutations ----

// ActionResult is the common reply of every mutating endpoint.
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Text returns the most informative message of the result.
func (r ActionResult) Text() string {
	if r.Message != "" {
		return r.Message
	}
	return r.Error
}

// FailureText returns the reason of a failed result, preferring the error
// field over the message.
func (r ActionResult) FailureText() string {
	if r.Error != "" {
		return r.Error
	}
	return r.Message
}

// envelope picks the error fields out of any JSON object reply.
type envelope struct {
	Status  string          `json:"status"`
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error"`
}

func (e envelope) errorText() string {
	if len(e.Error) == 0 || string(e.Error) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Error, &s); err == nil {
		return s
	}
	return string(e.Error)
}

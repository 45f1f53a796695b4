package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult holds the result of config validation.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// Tabs the dashboard knows about; "all" starts every poller.
var validTabs = map[string]bool{
	"dashboard":      true,
	"logs":           true,
	"guilds":         true,
	"reaction_roles": true,
	"config":         true,
	"all":            true,
}

// Validate checks the config for invalid values.
func (c *Config) Validate() ValidationResult {
	var errors []ValidationError

	errors = append(errors, validateBotAPI(&c.BotAPI)...)
	errors = append(errors, validateDashboard(&c.Dashboard)...)
	errors = append(errors, validatePoll(&c.Poll)...)
	errors = append(errors, validateLogs(&c.Logs)...)

	if c.Stats.TopCommands < 1 {
		errors = append(errors, ValidationError{
			Field:   "stats.top_commands",
			Message: "must be at least 1",
		})
	}

	errors = append(errors, validateToast(&c.Toast)...)

	return ValidationResult{
		Valid:  len(errors) == 0,
		Errors: errors,
	}
}

func validateBotAPI(b *BotAPIConfig) []ValidationError {
	var errors []ValidationError

	u, err := url.Parse(b.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		errors = append(errors, ValidationError{
			Field:   "bot_api.base_url",
			Message: fmt.Sprintf("must be an absolute http(s) URL, got %q", b.BaseURL),
		})
	}

	if b.Timeout < 1*time.Second {
		errors = append(errors, ValidationError{
			Field:   "bot_api.timeout",
			Message: "must be at least 1 second",
		})
	}

	return errors
}

func validateDashboard(d *DashboardConfig) []ValidationError {
	var errors []ValidationError

	if d.Enabled {
		if _, _, err := net.SplitHostPort(d.ListenAddr); err != nil {
			errors = append(errors, ValidationError{
				Field:   "dashboard.listen_addr",
				Message: fmt.Sprintf("must be host:port, got %q", d.ListenAddr),
			})
		}
	}

	if !validTabs[strings.ToLower(d.InitialTab)] {
		errors = append(errors, ValidationError{
			Field:   "dashboard.initial_tab",
			Message: fmt.Sprintf("unknown tab %q", d.InitialTab),
		})
	}

	return errors
}

func validatePoll(p *PollConfig) []ValidationError {
	var errors []ValidationError

	intervals := []struct {
		field string
		value time.Duration
	}{
		{"poll.status", p.Status},
		{"poll.stats", p.Stats},
		{"poll.logs", p.Logs},
		{"poll.guilds", p.Guilds},
		{"poll.reaction_roles", p.ReactionRoles},
	}
	for _, iv := range intervals {
		if iv.value < 1*time.Second {
			errors = append(errors, ValidationError{
				Field:   iv.field,
				Message: "must be at least 1 second",
			})
		}
	}

	return errors
}

func validateLogs(l *LogsConfig) []ValidationError {
	var errors []ValidationError

	if l.DisplayLimit < 1 {
		errors = append(errors, ValidationError{
			Field:   "logs.display_limit",
			Message: "must be at least 1",
		})
	}

	if l.HoldLimit < 0 {
		errors = append(errors, ValidationError{
			Field:   "logs.hold_limit",
			Message: "must not be negative",
		})
	}

	if strings.TrimSpace(l.ServerMarker) == "" {
		errors = append(errors, ValidationError{
			Field:   "logs.server_marker",
			Message: "must not be empty",
		})
	}

	if strings.TrimSpace(l.DownloadPrefix) == "" {
		errors = append(errors, ValidationError{
			Field:   "logs.download_prefix",
			Message: "must not be empty",
		})
	}

	switch l.TimestampLocation {
	case "", "Local", "local", "UTC", "utc":
	default:
		if _, err := time.LoadLocation(l.TimestampLocation); err != nil {
			errors = append(errors, ValidationError{
				Field:   "logs.timestamp_location",
				Message: fmt.Sprintf("unknown location %q", l.TimestampLocation),
			})
		}
	}

	return errors
}

func validateToast(t *ToastConfig) []ValidationError {
	var errors []ValidationError

	if t.Visible < 100*time.Millisecond {
		errors = append(errors, ValidationError{
			Field:   "toast.visible",
			Message: "must be at least 100ms",
		})
	}

	if t.ClearDelay < 0 {
		errors = append(errors, ValidationError{
			Field:   "toast.clear_delay",
			Message: "must be non-negative",
		})
	}

	return errors
}

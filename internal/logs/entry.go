// Package logs turns raw bot log lines into structured entries and keeps the
// log viewer state: held entries, dedup, clear/since handling, filtering,
// the rendered window and downloads.
package logs

import (
	"fmt"
	"strings"
)

// Well-known levels. Structured lines may carry any other upper-cased level.
const (
	LevelInfo    = "INFO"
	LevelWarn    = "WARN"
	LevelError   = "ERROR"
	LevelRaw     = "RAW"
	LevelUnknown = "UNKNOWN"
)

// NotAvailable is the placeholder for a missing timestamp.
const NotAvailable = "N/A"

// Entry is one normalised log record.
type Entry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Source    string `json:"source"`
	Message   string `json:"message"`
}

type entryKey struct {
	timestamp, level, message string
}

func (e Entry) key() entryKey {
	return entryKey{e.Timestamp, e.Level, e.Message}
}

// Line formats the entry as "[LEVEL] timestamp [source] message".
func (e Entry) Line() string {
	return fmt.Sprintf("[%s] %s [%s] %s", e.Level, e.Timestamp, e.Source, e.Message)
}

// Class returns the style class for the entry's level.
func (e Entry) Class() string {
	return LevelClass(e.Level)
}

// LevelClass maps a level to its style class; unknown levels get none.
func LevelClass(level string) string {
	switch strings.ToUpper(level) {
	case LevelError, "CRITICAL", "FATAL":
		return "log-error"
	case LevelWarn, "WARNING":
		return "log-warn"
	case LevelInfo:
		return "log-info"
	default:
		return ""
	}
}

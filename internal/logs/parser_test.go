package logs

import (
	"testing"
	"time"

	"botdash/clients/botapi"
)

func TestStructuredRule(t *testing.T) {
	p := NewParser("werkzeug")

	e := p.ParseLine("[2024-03-01 12:00:00,123] [ warning ] [ cogs.music ]   queue empty  ")

	want := Entry{
		Timestamp: "2024-03-01 12:00:00,123",
		Level:     "WARNING",
		Source:    "cogs.music",
		Message:   "queue empty",
	}
	if e != want {
		t.Errorf("expected %+v, got %+v", want, e)
	}
}

func TestStructuredRule_MultilineMessage(t *testing.T) {
	p := NewParser("werkzeug")

	e := p.ParseLine("[2024-03-01 12:00:00] [ERROR] [bot] Traceback:\n  line 1\n")

	if e.Level != LevelError || e.Message != "Traceback:\n  line 1" {
		t.Errorf("unexpected entry %+v", e)
	}
}

func TestServerLogRule(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		ts    string
		level string
	}{
		{
			name:  "access line",
			raw:   `127.0.0.1 - - [01/Mar/2024 12:00:00] "GET /status HTTP/1.1" 200 - werkzeug`,
			ts:    "01/Mar/2024 12:00:00",
			level: LevelInfo,
		},
		{
			name:  "structured with marker source",
			raw:   `[2024-03-01 12:00:00] [WARNING] [Werkzeug] slow request`,
			ts:    "2024-03-01 12:00:00",
			level: "WARNING",
		},
		{
			name:  "loose brackets",
			raw:   `WERKZEUG [2024-03-01 12:00:00] [error] crashed`,
			ts:    "2024-03-01 12:00:00",
			level: LevelError,
		},
		{
			name:  "no brackets",
			raw:   `werkzeug started`,
			ts:    NotAvailable,
			level: LevelInfo,
		},
	}

	p := NewParser("werkzeug")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := p.ParseLine(tt.raw)
			if e.Source != "werkzeug" {
				t.Errorf("expected source werkzeug, got %q", e.Source)
			}
			if e.Timestamp != tt.ts {
				t.Errorf("expected timestamp %q, got %q", tt.ts, e.Timestamp)
			}
			if e.Level != tt.level {
				t.Errorf("expected level %q, got %q", tt.level, e.Level)
			}
		})
	}
}

func TestServerLogRule_WinsOverStructured(t *testing.T) {
	p := NewParser("werkzeug")

	e := p.ParseLine("[2024-03-01 12:00:00] [INFO] [bot] forwarded werkzeug line")

	if e.Source != "werkzeug" {
		t.Errorf("marker lines must always be tagged werkzeug, got %q", e.Source)
	}
}

func TestFallbackRule(t *testing.T) {
	p := NewParser("werkzeug")

	for _, raw := range []string{"  plain text line  ", "[only one] bracket", ""} {
		e := p.ParseLine(raw)
		if e.Timestamp != NotAvailable || e.Level != LevelUnknown || e.Source != LevelUnknown {
			t.Errorf("%q: unexpected entry %+v", raw, e)
		}
	}
	if e := p.ParseLine("  plain text line  "); e.Message != "plain text line" {
		t.Errorf("expected trimmed message, got %q", e.Message)
	}
}

func TestParser_RuleOrder(t *testing.T) {
	p := NewParser("gunicorn")
	got := p.Rules()
	want := []string{"server:gunicorn", "structured", "fallback"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("rule %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestNewParserWithRules_AppendsFallback(t *testing.T) {
	p := NewParserWithRules(StructuredRule{})
	if e := p.ParseLine("werkzeug noise"); e.Source != LevelUnknown {
		t.Errorf("expected fallback without a server rule, got %+v", e)
	}
}

func TestParseRecord_Object(t *testing.T) {
	p := NewParser("werkzeug")

	e := p.ParseRecord(botapi.RawLog{Object: &botapi.LogObject{
		Timestamp: "2024-03-01 12:00:00",
		Level:     " warn ",
		Source:    "bot",
		Message:   " hi ",
	}})
	if e.Level != LevelWarn || e.Message != "hi" {
		t.Errorf("unexpected entry %+v", e)
	}

	e = p.ParseRecord(botapi.RawLog{Object: &botapi.LogObject{Message: "bare"}})
	if e.Level != LevelRaw || e.Timestamp != NotAvailable || e.Source != LevelUnknown {
		t.Errorf("unexpected defaults %+v", e)
	}
}

func TestParseTimestamp(t *testing.T) {
	loc := time.FixedZone("KST", 9*3600)

	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-03-01 12:00:00", time.Date(2024, 3, 1, 12, 0, 0, 0, loc), true},
		{"2024-03-01 12:00:00,250", time.Date(2024, 3, 1, 12, 0, 0, 250e6, loc), true},
		{"2024-03-01 12:00:00.5", time.Date(2024, 3, 1, 12, 0, 0, 500e6, loc), true},
		{"2024-03-01T12:00:00", time.Date(2024, 3, 1, 12, 0, 0, 0, loc), true},
		{"2024-03-01T03:00:00Z", time.Date(2024, 3, 1, 3, 0, 0, 0, time.UTC), true},
		{"01/Mar/2024 12:00:00", time.Date(2024, 3, 1, 12, 0, 0, 0, loc), true},
		{"1709262000", time.Unix(1709262000, 0), true},
		{"N/A", time.Time{}, false},
		{"yesterday", time.Time{}, false},
		{"", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseTimestamp(tt.in, loc)
			if ok != tt.ok {
				t.Fatalf("expected ok=%v, got %v", tt.ok, ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestLevelClass(t *testing.T) {
	tests := map[string]string{
		"ERROR":   "log-error",
		"warn":    "log-warn",
		"WARNING": "log-warn",
		"INFO":    "log-info",
		"DEBUG":   "",
		"UNKNOWN": "",
	}
	for level, want := range tests {
		if got := LevelClass(level); got != want {
			t.Errorf("LevelClass(%q) = %q, want %q", level, got, want)
		}
	}
}

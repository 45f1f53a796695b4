package logs

import (
	"regexp"
	"strings"

	"botdash/clients/botapi"
)

// Rule recognises one line format.
type Rule interface {
	Name() string
	Match(raw string) (Entry, bool)
}

// Parser applies its rules in order; the first match wins.
type Parser struct {
	rules []Rule
}

// NewParser returns the standard rule chain: server-log marker, structured
// "[ts] [level] [source] message", then the catch-all fallback.
func NewParser(marker string) *Parser {
	return &Parser{rules: []Rule{
		NewServerLogRule(marker),
		StructuredRule{},
		FallbackRule{},
	}}
}

// NewParserWithRules builds a parser from a custom rule list. A FallbackRule
// is appended so Parse always yields an entry.
func NewParserWithRules(rules ...Rule) *Parser {
	return &Parser{rules: append(append([]Rule(nil), rules...), FallbackRule{})}
}

// Rules returns the rule names in evaluation order.
func (p *Parser) Rules() []string {
	names := make([]string, len(p.rules))
	for i, r := range p.rules {
		names[i] = r.Name()
	}
	return names
}

// ParseLine turns one raw line into an Entry.
func (p *Parser) ParseLine(raw string) Entry {
	for _, r := range p.rules {
		if e, ok := r.Match(raw); ok {
			return e
		}
	}
	return fallback(raw)
}

// ParseRecord normalises one element of the backend logs array. Objects map
// field by field; a missing level becomes RAW.
func (p *Parser) ParseRecord(r botapi.RawLog) Entry {
	if r.Object == nil {
		return p.ParseLine(r.Line)
	}
	o := r.Object
	e := Entry{
		Timestamp: strings.TrimSpace(o.Timestamp),
		Level:     strings.ToUpper(strings.TrimSpace(o.Level)),
		Source:    strings.TrimSpace(o.Source),
		Message:   strings.TrimSpace(o.Message),
	}
	if e.Timestamp == "" {
		e.Timestamp = NotAvailable
	}
	if e.Level == "" {
		e.Level = LevelRaw
	}
	if e.Source == "" {
		e.Source = LevelUnknown
	}
	return e
}

// ---------------------------------------------------------------------------
// Structured rule
// ---------------------------------------------------------------------------

var structuredRe = regexp.MustCompile(`(?s)^\s*\[([^\]]*)\]\s*\[([^\]]*)\]\s*\[([^\]]*)\]\s*(.*)$`)

// StructuredRule matches "[timestamp] [level] [source] message".
type StructuredRule struct{}

func (StructuredRule) Name() string { return "structured" }

func (StructuredRule) Match(raw string) (Entry, bool) {
	m := structuredRe.FindStringSubmatch(raw)
	if m == nil {
		return Entry{}, false
	}
	return Entry{
		Timestamp: strings.TrimSpace(m[1]),
		Level:     strings.ToUpper(strings.TrimSpace(m[2])),
		Source:    strings.TrimSpace(m[3]),
		Message:   strings.TrimSpace(m[4]),
	}, true
}

// ---------------------------------------------------------------------------
// Server-log rule
// ---------------------------------------------------------------------------

var bracketRe = regexp.MustCompile(`\[([^\]]*)\]`)

// ServerLogRule tags lines emitted by the bot's embedded web server.
// Timestamp and level are picked loosely from bracketed groups; level
// defaults to INFO.
type ServerLogRule struct {
	marker string
}

func NewServerLogRule(marker string) ServerLogRule {
	return ServerLogRule{marker: strings.ToLower(strings.TrimSpace(marker))}
}

func (r ServerLogRule) Name() string { return "server:" + r.marker }

func (r ServerLogRule) Match(raw string) (Entry, bool) {
	if r.marker == "" || !strings.Contains(strings.ToLower(raw), r.marker) {
		return Entry{}, false
	}

	e := Entry{
		Timestamp: NotAvailable,
		Level:     LevelInfo,
		Source:    r.marker,
		Message:   strings.TrimSpace(raw),
	}

	if m := structuredRe.FindStringSubmatch(raw); m != nil {
		e.Timestamp = strings.TrimSpace(m[1])
		if lvl := strings.ToUpper(strings.TrimSpace(m[2])); lvl != "" {
			e.Level = lvl
		}
		e.Message = strings.TrimSpace(m[4])
		return e, true
	}

	tsFound := false
	for _, g := range bracketRe.FindAllStringSubmatch(raw, -1) {
		v := strings.TrimSpace(g[1])
		if v == "" {
			continue
		}
		if lvl, ok := knownLevel(v); ok {
			e.Level = lvl
			continue
		}
		if !tsFound {
			e.Timestamp = v
			tsFound = true
		}
	}
	return e, true
}

func knownLevel(s string) (string, bool) {
	switch u := strings.ToUpper(s); u {
	case LevelInfo, LevelWarn, LevelError, "WARNING", "DEBUG", "CRITICAL":
		return u, true
	}
	return "", false
}

// ---------------------------------------------------------------------------
// Fallback rule
// ---------------------------------------------------------------------------

// FallbackRule matches everything.
type FallbackRule struct{}

func (FallbackRule) Name() string { return "fallback" }

func (FallbackRule) Match(raw string) (Entry, bool) { return fallback(raw), true }

func fallback(raw string) Entry {
	return Entry{
		Timestamp: NotAvailable,
		Level:     LevelUnknown,
		Source:    LevelUnknown,
		Message:   strings.TrimSpace(raw),
	}
}

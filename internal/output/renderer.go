package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"botdash/internal/app"
	"botdash/internal/logs"

	"github.com/charmbracelet/lipgloss"
)

// Renderer writes dashboard data to an output stream.
type Renderer interface {
	Log(entry logs.Entry) error
	Status(v app.StatusView) error
	Stats(v app.StatsView) error
	Config(v app.ConfigView) error
	Guilds(v app.GuildView) error
	ReactionRoles(v app.ReactionRolesView) error
	Result(label, message string) error
}

// New returns the renderer for format ("text" or "json") writing to w.
// A nil w means stdout.
func New(format string, w io.Writer) (Renderer, error) {
	if w == nil {
		w = os.Stdout
	}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		return NewTextRenderer(w), nil
	case "json":
		return NewJSONRenderer(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want text or json)", format)
	}
}

// ---------------------------------------------------------------------------
// Text Renderer (colorized terminal output)
// ---------------------------------------------------------------------------

type styles struct {
	info, debug, warn, err, fatal lipgloss.Style
	source, label, muted          lipgloss.Style
	online, offline, bar          lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		info:  r.NewStyle().Foreground(lipgloss.Color("245")), // gray
		debug: r.NewStyle().Foreground(lipgloss.Color("245")).Faint(true),
		warn:  r.NewStyle().Foreground(lipgloss.Color("220")),            // yellow
		err:   r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true), // red bold
		fatal: r.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("196")).
			Bold(true), // white on red
		source:  r.NewStyle().Foreground(lipgloss.Color("39")).Faint(true), // cyan
		label:   r.NewStyle().Bold(true),
		muted:   r.NewStyle().Faint(true),
		online:  r.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		offline: r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		bar:     r.NewStyle().Foreground(lipgloss.Color("44")),
	}
}

const barWidth = 30

// TextRenderer prints dashboard data with severity-based colors. Colors are
// dropped when w is not a terminal.
type TextRenderer struct {
	w io.Writer
	s styles
}

func NewTextRenderer(w io.Writer) *TextRenderer {
	return &TextRenderer{w: w, s: newStyles(lipgloss.NewRenderer(w))}
}

func (r *TextRenderer) Log(entry logs.Entry) error {
	tag := r.levelTag(entry.Level)
	src := r.s.source.Render("[" + entry.Source + "]")

	_, err := fmt.Fprintf(r.w, "%s %s %s %s\n", entry.Timestamp, tag, src, entry.Message)
	return err
}

func (r *TextRenderer) levelTag(level string) string {
	padded := fmt.Sprintf("%-5s", level)
	switch strings.ToUpper(level) {
	case "DEBUG":
		return r.s.debug.Render(padded)
	case logs.LevelWarn, "WARNING":
		return r.s.warn.Render(padded)
	case logs.LevelError:
		return r.s.err.Render(padded)
	case "CRITICAL", "FATAL":
		return r.s.fatal.Render(padded)
	default:
		return r.s.info.Render(padded)
	}
}

func (r *TextRenderer) Status(v app.StatusView) error {
	indicator := r.s.offline
	if v.IndicatorClass == "online" {
		indicator = r.s.online
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", r.s.label.Render("Status:        "), indicator.Render(v.Indicator))
	fmt.Fprintf(&b, "%s %s\n", r.s.label.Render("Uptime:        "), v.Uptime)
	fmt.Fprintf(&b, "%s %s\n", r.s.label.Render("Latency:       "), v.Latency)
	fmt.Fprintf(&b, "%s %s\n", r.s.label.Render("Users:         "), v.Users)
	fmt.Fprintf(&b, "%s %s\n", r.s.label.Render("Guilds:        "), v.Guilds)
	fmt.Fprintf(&b, "%s %s\n", r.s.label.Render("Commands today:"), v.CommandsToday)
	if v.Error != "" {
		fmt.Fprintf(&b, "%s\n", r.s.err.Render(v.Error))
	}
	_, err := io.WriteString(r.w, b.String())
	return err
}

func (r *TextRenderer) Stats(v app.StatsView) error {
	var b strings.Builder
	switch {
	case v.Error != "":
		b.WriteString(r.s.err.Render(v.Error) + "\n")
	case v.Empty:
		b.WriteString(r.s.muted.Render("No commands used yet.") + "\n")
	default:
		fmt.Fprintf(&b, "%s %d (%s)\n", r.s.label.Render("Total commands:"), v.Total, v.TotalSource)

		var peak int64
		width := 0
		for i, n := range v.Chart.Data {
			if n > peak {
				peak = n
			}
			if l := len(v.Chart.Labels[i]); l > width {
				width = l
			}
		}
		for i, label := range v.Chart.Labels {
			n := v.Chart.Data[i]
			bar := 0
			if peak > 0 {
				bar = int(n * barWidth / peak)
			}
			fmt.Fprintf(&b, "  %-*s %s %d\n", width, label, r.s.bar.Render(strings.Repeat("█", bar)), n)
		}

		b.WriteString(r.s.label.Render("Top commands:") + "\n")
		for _, c := range v.Top {
			fmt.Fprintf(&b, "  %d. %s: %d\n", c.Rank, c.Name, c.Count)
		}
	}
	_, err := io.WriteString(r.w, b.String())
	return err
}

func (r *TextRenderer) Config(v app.ConfigView) error {
	if msg, ok := r.placeholder(v.Error, v.Placeholder); ok {
		_, err := io.WriteString(r.w, msg)
		return err
	}
	var b strings.Builder
	for _, item := range v.Items {
		fmt.Fprintf(&b, "%s = %s\n", r.s.label.Render(item.Key), item.Value)
	}
	_, err := io.WriteString(r.w, b.String())
	return err
}

func (r *TextRenderer) Guilds(v app.GuildView) error {
	if msg, ok := r.placeholder(v.Error, v.Placeholder); ok {
		_, err := io.WriteString(r.w, msg)
		return err
	}
	var b strings.Builder
	for _, g := range v.Guilds {
		created := app.NotAvailable
		if !g.CreatedAt.IsZero() {
			created = g.CreatedAt.Format("2006-01-02")
		}
		fmt.Fprintf(&b, "%s %s\n", r.s.label.Render(g.Name), r.s.muted.Render("("+g.ID+")"))
		fmt.Fprintf(&b, "  members: %s  channels: %s  owner: %s (%s)  created: %s\n",
			g.MemberCount, g.ChannelCount, g.OwnerName, g.OwnerID, created)
	}
	_, err := io.WriteString(r.w, b.String())
	return err
}

func (r *TextRenderer) ReactionRoles(v app.ReactionRolesView) error {
	if msg, ok := r.placeholder(v.Error, v.Placeholder); ok {
		_, err := io.WriteString(r.w, msg)
		return err
	}
	var b strings.Builder
	for _, rule := range v.Rules {
		fmt.Fprintf(&b, "%s %s -> role %s  %s\n",
			rule.MessageID, rule.Emoji, rule.RoleID,
			r.s.muted.Render("guild "+rule.GuildID+" channel "+rule.ChannelID))
	}
	_, err := io.WriteString(r.w, b.String())
	return err
}

func (r *TextRenderer) Result(label, message string) error {
	line := r.s.online.Render("✓ " + label)
	if message != "" {
		line += " " + message
	}
	_, err := fmt.Fprintln(r.w, line)
	return err
}

func (r *TextRenderer) placeholder(errText, placeholder string) (string, bool) {
	switch {
	case errText != "":
		return r.s.err.Render(errText) + "\n", true
	case placeholder != "":
		return r.s.muted.Render(placeholder) + "\n", true
	}
	return "", false
}

// ---------------------------------------------------------------------------
// JSON Renderer (structured output for piping)
// ---------------------------------------------------------------------------

// JSONRenderer prints each value as a single JSON object per line.
type JSONRenderer struct {
	enc *json.Encoder
}

func NewJSONRenderer(w io.Writer) *JSONRenderer {
	return &JSONRenderer{enc: json.NewEncoder(w)}
}

func (r *JSONRenderer) Log(entry logs.Entry) error                  { return r.enc.Encode(entry) }
func (r *JSONRenderer) Status(v app.StatusView) error               { return r.enc.Encode(v) }
func (r *JSONRenderer) Stats(v app.StatsView) error                 { return r.enc.Encode(v) }
func (r *JSONRenderer) Config(v app.ConfigView) error               { return r.enc.Encode(v) }
func (r *JSONRenderer) Guilds(v app.GuildView) error                { return r.enc.Encode(v) }
func (r *JSONRenderer) ReactionRoles(v app.ReactionRolesView) error { return r.enc.Encode(v) }

func (r *JSONRenderer) Result(label, message string) error {
	return r.enc.Encode(map[string]any{
		"success": true,
		"action":  label,
		"message": message,
	})
}

// Package visualizer renders the war room's event stream in a terminal.
package visualizer

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/rtai-hli/gtc-hackathon/pkg/core"
)

const clockLayout = "15:04:05"

// highlightKeys are the metadata keys shown under an event, in display order.
var highlightKeys = []string{core.KeyConfidence, core.KeyTool, core.KeyPriority, core.KeySeverity}

var labels = map[core.EventType]string{
	core.EventThinking:    "THINKING",
	core.EventAction:      "ACTION",
	core.EventObservation: "OBSERVE",
	core.EventTheory:      "THEORY",
	core.EventChallenge:   "CHALLENGE",
	core.EventDecision:    "DECISION",
}

// Label returns the upper-case heading for an event type.
func Label(t core.EventType) string {
	if l, ok := labels[t]; ok {
		return l
	}
	return "EVENT"
}

type theme struct {
	agents   map[string]lipgloss.Style
	fallback lipgloss.Style
	content  lipgloss.Style
	meta     lipgloss.Style
	title    lipgloss.Style
	rule     lipgloss.Style
}

func newTheme(r *lipgloss.Renderer) theme {
	magenta := lipgloss.Color("#ff71ce")
	blue := lipgloss.Color("#01cdfe")
	yellow := lipgloss.Color("#ffd166")
	mint := lipgloss.Color("#05ffa1")
	muted := lipgloss.Color("#9ca3d8")

	return theme{
		agents: map[string]lipgloss.Style{
			"Commander":              r.NewStyle().Foreground(magenta).Bold(true),
			"System Investigator":    r.NewStyle().Foreground(blue).Bold(true),
			"Code Detective":         r.NewStyle().Foreground(yellow).Bold(true),
			"Root Cause Synthesizer": r.NewStyle().Foreground(mint).Bold(true),
		},
		fallback: r.NewStyle().Bold(true),
		content:  r.NewStyle().PaddingLeft(2),
		meta:     r.NewStyle().Foreground(muted).PaddingLeft(2),
		title:    r.NewStyle().Foreground(mint).Bold(true),
		rule:     r.NewStyle().Foreground(muted),
	}
}

func (t theme) agent(name string) lipgloss.Style {
	if s, ok := t.agents[name]; ok {
		return s
	}
	return t.fallback
}

// Visualizer is a core.Listener that prints each event as it arrives and
// keeps the history for the closing summary.
type Visualizer struct {
	out    io.Writer
	simple bool
	theme  theme

	mu     sync.Mutex
	events []core.Event
}

// Option configures a Visualizer.
type Option func(*Visualizer)

// WithSimple selects the one-line-per-event layout.
func WithSimple(simple bool) Option {
	return func(v *Visualizer) {
		v.simple = simple
	}
}

// New creates a visualizer writing to out. Colors follow the capabilities of
// out, so a pipe or buffer gets plain text.
func New(out io.Writer, opts ...Option) *Visualizer {
	v := &Visualizer{
		out:   out,
		theme: newTheme(lipgloss.NewRenderer(out)),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// OnEvent implements core.Listener.
func (v *Visualizer) OnEvent(_ context.Context, ev core.Event) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.events = append(v.events, ev)

	var text string
	if v.simple {
		text = v.line(ev)
	} else {
		text = v.block(ev)
	}
	_, err := io.WriteString(v.out, text)
	return err
}

// Events returns a copy of everything seen so far.
func (v *Visualizer) Events() []core.Event {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]core.Event(nil), v.events...)
}

func (v *Visualizer) line(ev core.Event) string {
	return fmt.Sprintf("%s %s [%s] %s\n",
		ev.Timestamp.Format(clockLayout), core.Icon(ev.Type), ev.Agent, ev.Content)
}

func (v *Visualizer) block(ev core.Event) string {
	var b strings.Builder
	header := fmt.Sprintf("[%s] %s [%s] %s",
		ev.Timestamp.Format(clockLayout), core.Icon(ev.Type), ev.Agent, Label(ev.Type))
	b.WriteString(v.theme.agent(ev.Agent).Render(header))
	b.WriteString("\n")
	b.WriteString(v.theme.content.Render(ev.Content))
	b.WriteString("\n")
	if hl := Highlights(ev); hl != "" {
		b.WriteString(v.theme.meta.Render("(" + hl + ")"))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

// Highlights formats the metadata keys worth showing inline, e.g.
// "confidence=0.85, severity=high". It is empty when none are present.
func Highlights(ev core.Event) string {
	md := ev.Metadata()
	var parts []string
	for _, key := range highlightKeys {
		val, ok := md[key]
		if !ok {
			continue
		}
		if list, isList := val.([]string); isList {
			val = strings.Join(list, " > ")
		}
		parts = append(parts, fmt.Sprintf("%s=%v", key, val))
	}
	return strings.Join(parts, ", ")
}

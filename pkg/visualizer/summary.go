package visualizer

import (
	"fmt"
	"io"
	"strings"

	"github.com/rtai-hli/gtc-hackathon/pkg/core"
)

// AgentActivity counts one agent's events per type.
type AgentActivity struct {
	Agent  string
	Counts map[core.EventType]int
	// Order lists the types in first-seen order.
	Order []core.EventType
}

// Summary groups a run's events by agent and lists its decisions.
type Summary struct {
	Agents    []AgentActivity
	Decisions []core.Event
	Total     int
}

// Summarize builds a Summary. Agents appear in the order they first spoke.
func Summarize(events []core.Event) Summary {
	s := Summary{Total: len(events)}
	index := map[string]int{}
	for _, ev := range events {
		i, ok := index[ev.Agent]
		if !ok {
			i = len(s.Agents)
			index[ev.Agent] = i
			s.Agents = append(s.Agents, AgentActivity{Agent: ev.Agent, Counts: map[core.EventType]int{}})
		}
		a := &s.Agents[i]
		if a.Counts[ev.Type] == 0 {
			a.Order = append(a.Order, ev.Type)
		}
		a.Counts[ev.Type]++
		if ev.Type == core.EventDecision {
			s.Decisions = append(s.Decisions, ev)
		}
	}
	return s
}

// Summary summarizes everything the visualizer has seen.
func (v *Visualizer) Summary() Summary {
	return Summarize(v.Events())
}

// PrintSummary writes the closing summary to the visualizer's output.
func (v *Visualizer) PrintSummary() error {
	_, err := io.WriteString(v.out, v.RenderSummary())
	return err
}

// RenderSummary formats the per-agent counts and the decision timeline.
func (v *Visualizer) RenderSummary() string {
	s := v.Summary()
	rule := v.theme.rule.Render(strings.Repeat("=", 80))

	var b strings.Builder
	b.WriteString("\n" + rule + "\n")
	b.WriteString(v.theme.title.Render("WAR ROOM SUMMARY") + "\n")
	b.WriteString(rule + "\n\n")

	for _, a := range s.Agents {
		b.WriteString(v.theme.agent(a.Agent).Render(a.Agent+":") + "\n")
		for _, t := range a.Order {
			fmt.Fprintf(&b, "  - %s: %d\n", t, a.Counts[t])
		}
		b.WriteString("\n")
	}

	b.WriteString(v.theme.title.Render("TIMELINE:") + "\n")
	b.WriteString(v.theme.rule.Render(strings.Repeat("-", 80)) + "\n")
	for _, ev := range s.Decisions {
		fmt.Fprintf(&b, "  %s | %s: %s\n", ev.Timestamp.Format(clockLayout), ev.Agent, ev.Content)
	}
	b.WriteString("\n")
	return b.String()
}

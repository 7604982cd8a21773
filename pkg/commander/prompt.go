package commander

import (
	"fmt"
	"strings"

	"github.com/rtai-hli/gtc-hackathon/pkg/core"
)

// SystemContext is the system message for root cause reasoning.
const SystemContext = `You are a senior SRE and incident commander with deep expertise in:
- Distributed systems debugging
- Performance analysis
- Root cause analysis
- Production incident response

Analyze incidents systematically and provide actionable root cause determinations.`

// BuildPrompt renders the root cause question for an incident.
func BuildPrompt(inc Incident, priority []string, tasks []*core.Task, theories []*core.Theory) string {
	var b strings.Builder
	b.WriteString("You are an incident commander analyzing a production incident.\n\n")
	b.WriteString("INCIDENT DETAILS:\n")
	fmt.Fprintf(&b, "- ID: %s\n", orUnknown(inc.ID))
	fmt.Fprintf(&b, "- Symptom: %s\n", orUnknown(inc.Symptom))
	fmt.Fprintf(&b, "- Severity: %s\n", orUnknown(inc.Severity))
	fmt.Fprintf(&b, "- Service: %s\n", orUnknown(inc.Service))
	fmt.Fprintf(&b, "- Impact: %s\n", orUnknown(inc.Impact))
	if len(inc.AffectedEndpoints) > 0 {
		fmt.Fprintf(&b, "- Affected endpoints: %s\n", strings.Join(inc.AffectedEndpoints, ", "))
	}

	b.WriteString("\nINVESTIGATION AREAS EXAMINED:\n")
	b.WriteString(strings.Join(priority, ", "))
	b.WriteString("\n")

	var evidence []string
	for _, t := range tasks {
		if t.Evidence != "" {
			evidence = append(evidence, fmt.Sprintf("- %s (%s): %s", t.Area, t.AssignedTo, t.Evidence))
		}
	}
	if len(evidence) > 0 {
		b.WriteString("\nEVIDENCE COLLECTED:\n")
		b.WriteString(strings.Join(evidence, "\n"))
		b.WriteString("\n")
	}

	if len(theories) > 0 {
		b.WriteString("\nTHEORIES FROM INVESTIGATORS:\n")
		for _, th := range theories {
			fmt.Fprintf(&b, "- [%s, confidence %.2f] %s\n", th.Source, th.Confidence, th.Text)
			for _, ch := range th.Challenges {
				fmt.Fprintf(&b, "  challenged by %s: %s\n", ch.Agent, ch.Text)
			}
		}
	}

	b.WriteString("\nBased on the incident symptoms and investigation areas, determine the most likely root cause.\n")
	b.WriteString("Provide your analysis and the root cause determination.\n")
	return b.String()
}

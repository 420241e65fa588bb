package incident

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/incident-cli/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

type RenderOptions struct {
	Now time.Time
	// Sections limits a report to the given steps. Empty renders every
	// section after analysis.
	Sections []domain.Step
}

func (o RenderOptions) wants(step domain.Step) bool {
	if len(o.Sections) == 0 {
		return true
	}
	for _, s := range o.Sections {
		if s == step {
			return true
		}
	}
	return false
}

func renderReport(record domain.StatusRecord, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render(fmt.Sprintf("Incident %s", record.IncidentID)),
		s.header.Render(fmt.Sprintf("status: %s", statusLabel(record.Status))),
	}

	if !record.IsComplete() {
		lines = append(lines, s.faint.Render("Analysis is still running; results appear once it completes."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	if opts.wants(domain.StepRisk) {
		lines = append(lines, s.section.Render(renderRisk(record, s)))
	}
	if opts.wants(domain.StepDispatch) {
		lines = append(lines, s.section.Render(renderDispatch(record, s)))
	}
	if opts.wants(domain.StepSummary) {
		lines = append(lines, s.section.Render(renderSummary(record, opts.Now, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderEvent(ev domain.Event, now time.Time, s styles) string {
	stamp := ""
	if !now.IsZero() {
		stamp = s.faint.Render(now.Format("15:04:05")) + " "
	}

	switch ev.Kind {
	case domain.EventAgentPhase:
		phase, err := ev.Phase()
		if err != nil {
			return stamp + s.warning.Render("unreadable agent_phase event")
		}
		statusStyle := s.running
		if phase.Status == domain.StatusComplete {
			statusStyle = s.complete
		}
		line := stamp + s.phase.Render("["+strings.ToUpper(phase.Phase)+"]") + " " + statusStyle.Render(phase.Status)
		if phase.Message != "" {
			line += " " + s.detail.Render(phase.Message)
		}
		return line

	case domain.EventContextUpdate:
		ctx, err := ev.Context()
		if err != nil {
			return stamp + s.warning.Render("unreadable context_update event")
		}
		return stamp + s.label.Render("historical data:") + " " +
			s.detail.Render(fmt.Sprintf("cases found %d, patterns identified %d", ctx.CasesFound, ctx.Patterns))

	case domain.EventNetworkUpdate:
		network, err := ev.Network()
		if err != nil {
			return stamp + s.warning.Render("unreadable network_update event")
		}
		return stamp + s.label.Render("network:") + " " +
			s.detail.Render(fmt.Sprintf("connected entities %d", network.Connections))

	default:
		return stamp + s.label.Render(string(ev.Kind)+":") + " " + s.faint.Render(compactJSON(ev.Payload))
	}
}

func renderRisk(record domain.StatusRecord, s styles) string {
	risk := record.RiskAssessment
	score := float64(risk.Score)

	parts := []string{
		s.title.Render("Risk Assessment"),
		s.label.Render("score: ") + s.score(score).Render(formatScore(score)),
		s.label.Render("classification: ") + s.classification(classificationLabel(risk.Classification)).Render(classificationLabel(risk.Classification)),
	}

	if len(risk.Factors) == 0 {
		parts = append(parts, s.faint.Render("no contributing factors reported"))
	}
	for _, factor := range risk.Factors {
		parts = append(parts, s.detail.Render("  - "+factor))
	}

	pattern := record.PatternAnalysis
	parts = append(parts,
		s.label.Render("linked cases: ")+s.detail.Render(fmt.Sprintf("%d", pattern.LinkedCases)),
		s.label.Render("network size: ")+s.detail.Render(fmt.Sprintf("%d", pattern.NetworkSize)),
	)

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderDispatch(record domain.StatusRecord, s styles) string {
	agencies := record.AlertDispatch.Agencies
	parts := []string{s.title.Render("Alert Dispatch")}

	if len(agencies) == 0 {
		parts = append(parts, s.faint.Render("no agencies alerted"))
		return lipgloss.JoinVertical(lipgloss.Left, parts...)
	}

	for _, agency := range agencies {
		line := lipgloss.JoinHorizontal(
			lipgloss.Top,
			s.detail.Render(fmt.Sprintf("%-28s", agency.Name)),
			" ",
			deliveryMark("SMS", agency.SMSSent, s),
			"  ",
			deliveryMark("Email", agency.EmailSent, s),
		)
		parts = append(parts, line)
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderSummary(record domain.StatusRecord, now time.Time, s styles) string {
	level := classificationLabel(record.RiskAssessment.Classification)

	return lipgloss.JoinVertical(lipgloss.Left,
		s.title.Render("Impact Summary"),
		s.label.Render("processing time: ")+s.detail.Render(formatProcessingTime(record, now)),
		s.label.Render("cases searched: ")+s.detail.Render(fmt.Sprintf("%d", record.PatternAnalysis.CasesSearched)),
		s.label.Render("victims identified: ")+s.detail.Render(fmt.Sprintf("%d", record.PatternAnalysis.VictimsIdentified)),
		s.label.Render("threat level: ")+s.classification(level).Render(level),
		s.label.Render("agencies alerted: ")+s.detail.Render(fmt.Sprintf("%d", len(record.AlertDispatch.Agencies))),
	)
}

func renderSession(record domain.SessionRecord, active bool, ttl time.Duration, now time.Time, s styles) string {
	if !active {
		return s.faint.Render("No active session.")
	}

	expiresIn := ttl - now.Sub(record.CreatedAt)
	if expiresIn < 0 {
		expiresIn = 0
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		s.title.Render("Active session"),
		s.label.Render("incident: ")+s.detail.Render(string(record.IncidentID)),
		s.label.Render("step: ")+s.detail.Render(stepLabel(record.Step)),
		s.label.Render("saved: ")+s.detail.Render(record.CreatedAt.Local().Format("15:04:05 on 02 Jan")),
		s.label.Render("expires in: ")+s.detail.Render(expiresIn.Truncate(time.Second).String()),
	)
}

func deliveryMark(channel string, sent bool, s styles) string {
	if sent {
		return s.delivered.Render(channel + " sent")
	}
	return s.pending.Render(channel + " pending")
}

// formatProcessingTime falls back to now for a missing bound, the way the
// summary screen treats an unfinished job.
func formatProcessingTime(record domain.StatusRecord, now time.Time) string {
	if d := record.ProcessingTime(); d > 0 {
		return fmt.Sprintf("%ds", int(math.Round(d.Seconds())))
	}
	if record.CreatedAt.IsZero() || now.IsZero() || now.Before(record.CreatedAt.Time) {
		return "0s"
	}
	return fmt.Sprintf("%ds", int(math.Round(now.Sub(record.CreatedAt.Time).Seconds())))
}

func formatScore(score float64) string {
	if score == math.Trunc(score) {
		return fmt.Sprintf("%.0f", score)
	}
	return fmt.Sprintf("%.1f", score)
}

func classificationLabel(classification string) string {
	if classification == "" {
		return "UNKNOWN"
	}
	return classification
}

func statusLabel(status string) string {
	if status == "" {
		return "unknown"
	}
	return status
}

func stepLabel(step domain.Step) string {
	switch step {
	case domain.StepInput:
		return "input (screen1)"
	case domain.StepAnalysis:
		return "analysis (screen2)"
	case domain.StepRisk:
		return "risk assessment (screen3)"
	case domain.StepDispatch:
		return "alert dispatch (screen4)"
	case domain.StepSummary:
		return "impact summary (screen5)"
	default:
		return string(step)
	}
}

func compactJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	var out bytes.Buffer
	if err := json.Compact(&out, raw); err != nil {
		return string(raw)
	}
	return out.String()
}

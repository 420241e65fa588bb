package incident

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title     lipgloss.Style
	header    lipgloss.Style
	section   lipgloss.Style
	label     lipgloss.Style
	detail    lipgloss.Style
	faint     lipgloss.Style
	phase     lipgloss.Style
	running   lipgloss.Style
	complete  lipgloss.Style
	critical  lipgloss.Style
	priority  lipgloss.Style
	monitor   lipgloss.Style
	unknown   lipgloss.Style
	delivered lipgloss.Style
	pending   lipgloss.Style
	warning   lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:     lipgloss.NewStyle().Bold(true),
		header:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		section:   lipgloss.NewStyle().MarginTop(1),
		label:     lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		detail:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		faint:     lipgloss.NewStyle().Faint(true),
		phase:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		running:   lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
		complete:  lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
		critical:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		priority:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("208")),
		monitor:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("178")),
		unknown:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245")),
		delivered: lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
		pending:   lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		warning:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
	}
}

func (s styles) classification(level string) lipgloss.Style {
	switch level {
	case "CRITICAL":
		return s.critical
	case "PRIORITY":
		return s.priority
	case "MONITOR":
		return s.monitor
	default:
		return s.unknown
	}
}

func (s styles) score(score float64) lipgloss.Style {
	switch {
	case score >= 80:
		return s.critical
	case score >= 50:
		return s.priority
	default:
		return s.monitor
	}
}

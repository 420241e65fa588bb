package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/bnema/incident-cli/internal/domain"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type submitDoneMsg struct {
	submission domain.Submission
	err        error
}

// submitProgressModel spins while the indicator is submitted and leaves the
// new incident id on screen once the API has accepted it.
type submitProgressModel struct {
	spinner    spinner.Model
	indicator  domain.Indicator
	submit     tea.Cmd
	submission domain.Submission
	err        error
	done       bool
	accepted   lipgloss.Style
}

func newSubmitProgressModel(indicator domain.Indicator, submit tea.Cmd) submitProgressModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return submitProgressModel{
		spinner:   s,
		indicator: indicator,
		submit:    submit,
		accepted:  lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
	}
}

func (m submitProgressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.submit)
}

func (m submitProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case submitDoneMsg:
		m.done = true
		m.submission = msg.submission
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m submitProgressModel) View() string {
	if !m.done {
		return fmt.Sprintf("%s Submitting %s indicator...", m.spinner.View(), indicatorLabel(m.indicator.Type))
	}
	if m.err != nil {
		return ""
	}
	return m.accepted.Render("✓ incident "+string(m.submission.IncidentID)+" opened") + "\n"
}

func indicatorLabel(t domain.IndicatorType) string {
	switch t {
	case domain.IndicatorTransactionID:
		return "transaction id"
	case "":
		return "an"
	default:
		return string(t)
	}
}

// runSubmitProgress renders progress on output while submit runs.
func runSubmitProgress(ctx context.Context, output io.Writer, indicator domain.Indicator, submit func(context.Context) (domain.Submission, error)) (domain.Submission, error) {
	submitCmd := func() tea.Msg {
		submission, err := submit(ctx)
		return submitDoneMsg{submission: submission, err: err}
	}

	p := tea.NewProgram(
		newSubmitProgressModel(indicator, submitCmd),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return domain.Submission{}, err
	}

	result, ok := finalModel.(submitProgressModel)
	if !ok {
		return domain.Submission{}, fmt.Errorf("unexpected final submit model type %T", finalModel)
	}

	return result.submission, result.err
}

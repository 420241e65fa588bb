package incident

import (
	"errors"
	"io"
	"time"

	"github.com/bnema/incident-cli/internal/domain"
	tea "github.com/charmbracelet/bubbletea"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

type renderReadyMsg struct{}

type model struct {
	record domain.StatusRecord
	opts   RenderOptions
	styles styles
	output string
}

func newModel(record domain.StatusRecord, opts RenderOptions) model {
	return model{
		record: record,
		opts:   opts,
		styles: newStyles(),
	}
}

func (m model) Init() tea.Cmd {
	return func() tea.Msg {
		return renderReadyMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case renderReadyMsg:
		m.output = renderReport(m.record, m.opts, m.styles)
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m model) View() string {
	return m.output
}

// Render produces the full incident report for a status record.
func Render(record domain.StatusRecord, opts RenderOptions) (string, error) {
	p := tea.NewProgram(
		newModel(record, opts),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}

	rendered, ok := finalModel.(model)
	if !ok {
		return "", ErrUnexpectedRenderModel
	}

	return rendered.View(), nil
}

func RenderSession(record domain.SessionRecord, active bool, opts SessionOptions) string {
	return renderSession(record, active, opts.TTL, opts.Now, newStyles())
}

type SessionOptions struct {
	Now time.Time
	TTL time.Duration
}

package incident

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bnema/incident-cli/internal/application"
	"github.com/bnema/incident-cli/internal/domain"
)

// TerminalView prints workflow steps as they happen. It is safe for use from
// the channel's dispatch goroutine.
type TerminalView struct {
	mu     sync.Mutex
	out    io.Writer
	now    func() time.Time
	styles styles
}

var _ application.View = (*TerminalView)(nil)

func NewTerminalView(out io.Writer, now func() time.Time) *TerminalView {
	if now == nil {
		now = time.Now
	}
	return &TerminalView{out: out, now: now, styles: newStyles()}
}

func (v *TerminalView) Tracking(id domain.IncidentID, mode application.Mode) {
	how := "live updates"
	if mode == application.ModePoll {
		how = "status polling (live updates unavailable)"
	}
	v.println(v.styles.title.Render("Analyzing incident "+string(id)) + " " + v.styles.header.Render("via "+how))
}

func (v *TerminalView) AnalysisEvent(ev domain.Event) {
	v.println(renderEvent(ev, v.now(), v.styles))
}

func (v *TerminalView) Risk(record domain.StatusRecord) {
	v.println(v.styles.section.Render(renderRisk(record, v.styles)))
}

func (v *TerminalView) Dispatch(record domain.StatusRecord) {
	v.println(v.styles.section.Render(renderDispatch(record, v.styles)))
}

func (v *TerminalView) Summary(record domain.StatusRecord) {
	v.println(v.styles.section.Render(renderSummary(record, v.now(), v.styles)))
}

func (v *TerminalView) println(line string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, _ = fmt.Fprintln(v.out, line)
}

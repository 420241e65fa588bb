package application

import (
	"context"
	"fmt"
	"time"

	"github.com/bnema/incident-cli/internal/domain"
	"github.com/bnema/incident-cli/internal/log"
	"github.com/bnema/incident-cli/internal/ports"
	"github.com/rs/zerolog"
)

const (
	DefaultTransitionDelay   = 2 * time.Second
	DefaultRiskDelay         = 3 * time.Second
	DefaultSummaryClearDelay = 5 * time.Second
)

// View renders the workflow steps.
type View interface {
	Tracking(id domain.IncidentID, mode Mode)
	AnalysisEvent(ev domain.Event)
	Risk(record domain.StatusRecord)
	Dispatch(record domain.StatusRecord)
	Summary(record domain.StatusRecord)
}

type WorkflowDelays struct {
	Transition   time.Duration
	Risk         time.Duration
	Dispatch     time.Duration
	SummaryClear time.Duration
}

func DefaultWorkflowDelays() WorkflowDelays {
	return WorkflowDelays{
		Transition:   DefaultTransitionDelay,
		Risk:         DefaultRiskDelay,
		SummaryClear: DefaultSummaryClearDelay,
	}
}

// Workflow drives an incident from analysis to summary, keeping the session
// step in sync with what is shown.
type Workflow struct {
	sessions    *SessionService
	coordinator *UpdateCoordinator
	fetcher     ports.StatusFetcher
	delays      WorkflowDelays
	logger      zerolog.Logger
}

func NewWorkflow(sessions *SessionService, coordinator *UpdateCoordinator, fetcher ports.StatusFetcher, delays WorkflowDelays, logger zerolog.Logger) *Workflow {
	return &Workflow{
		sessions:    sessions,
		coordinator: coordinator,
		fetcher:     fetcher,
		delays:      delays,
		logger:      logger,
	}
}

// Run walks id through every step starting at analysis.
func (w *Workflow) Run(ctx context.Context, id domain.IncidentID, view View) error {
	if id == "" {
		return domain.ErrIncidentIDRequired
	}
	if err := w.sessions.Save(ctx, id, domain.StepAnalysis); err != nil {
		return err
	}
	return w.runFrom(ctx, id, domain.StepAnalysis, view)
}

// Resume continues the stored session at its saved step. It returns
// domain.ErrNoActiveSession when there is nothing to resume.
func (w *Workflow) Resume(ctx context.Context, view View) (domain.IncidentID, error) {
	record, err := w.sessions.Resume(ctx)
	if err != nil {
		return "", err
	}

	step := record.Step
	if step == domain.StepInput {
		step = domain.StepAnalysis
	}

	w.logger.Info().
		Str(log.FieldIncidentID, string(record.IncidentID)).
		Str(log.FieldStep, string(step)).
		Msg("resuming session")

	return record.IncidentID, w.runFrom(ctx, record.IncidentID, step, view)
}

func (w *Workflow) runFrom(ctx context.Context, id domain.IncidentID, step domain.Step, view View) error {
	for {
		var err error
		switch step {
		case domain.StepAnalysis:
			err = w.analyze(ctx, id, view)
		case domain.StepRisk:
			err = w.showStatus(ctx, id, view.Risk, w.delays.Risk)
		case domain.StepDispatch:
			err = w.showStatus(ctx, id, view.Dispatch, w.delays.Dispatch)
		case domain.StepSummary:
			if err := w.showStatus(ctx, id, view.Summary, w.delays.SummaryClear); err != nil {
				return err
			}
			return w.sessions.Clear(ctx)
		default:
			return fmt.Errorf("run workflow: unknown step %q", step)
		}
		if err != nil {
			return err
		}

		next, ok := step.Next()
		if !ok {
			return nil
		}
		if _, err := w.sessions.Advance(ctx, next); err != nil {
			return err
		}
		w.logger.Debug().
			Str(log.FieldIncidentID, string(id)).
			Str(log.FieldStep, string(next)).
			Msg("workflow advanced")
		step = next
	}
}

func (w *Workflow) analyze(ctx context.Context, id domain.IncidentID, view View) error {
	done := make(chan Outcome, 1)
	failed := make(chan error, 1)

	mode, err := w.coordinator.Track(ctx, id, Handlers{
		OnEvent: view.AnalysisEvent,
		OnTerminal: func(outcome Outcome) {
			done <- outcome
		},
		OnError: func(err error) {
			failed <- err
		},
	})
	if err != nil {
		return err
	}
	defer w.coordinator.Stop()

	view.Tracking(id, mode)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-failed:
		return fmt.Errorf("track incident: %w", err)
	case <-done:
	}

	return sleepContext(ctx, w.delays.Transition)
}

func (w *Workflow) showStatus(ctx context.Context, id domain.IncidentID, render func(domain.StatusRecord), wait time.Duration) error {
	record, err := w.fetcher.FetchStatus(ctx, id)
	if err != nil {
		return fmt.Errorf("fetch incident status: %w", err)
	}
	render(record)
	return sleepContext(ctx, wait)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

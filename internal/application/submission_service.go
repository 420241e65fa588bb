package application

import (
	"context"
	"fmt"

	"github.com/bnema/incident-cli/internal/domain"
	"github.com/bnema/incident-cli/internal/log"
	"github.com/bnema/incident-cli/internal/ports"
	"github.com/rs/zerolog"
)

type SubmissionService struct {
	submitter ports.IncidentSubmitter
	sessions  *SessionService
	logger    zerolog.Logger
}

func NewSubmissionService(submitter ports.IncidentSubmitter, sessions *SessionService, logger zerolog.Logger) *SubmissionService {
	return &SubmissionService{submitter: submitter, sessions: sessions, logger: logger}
}

// Submit validates the indicator, starts an incident job and records the
// session at the analysis step. Failures are returned as is and never retried.
func (s *SubmissionService) Submit(ctx context.Context, indicator domain.Indicator) (domain.Submission, error) {
	if err := indicator.Validate(); err != nil {
		return domain.Submission{}, err
	}
	indicator.Source = indicator.SourceOrDefault()

	submission, err := s.submitter.SubmitIncident(ctx, indicator)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("submit incident: %w", err)
	}
	if submission.IncidentID == "" {
		return domain.Submission{}, fmt.Errorf("submit incident: %w", domain.ErrIncidentIDRequired)
	}

	if err := s.sessions.Save(ctx, submission.IncidentID, domain.StepAnalysis); err != nil {
		return submission, err
	}

	s.logger.Info().
		Str(log.FieldIncidentID, string(submission.IncidentID)).
		Str("indicator_type", string(indicator.Type)).
		Str("status", submission.Status).
		Msg("incident submitted")

	return submission, nil
}

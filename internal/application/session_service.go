package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/incident-cli/internal/domain"
	"github.com/bnema/incident-cli/internal/log"
	"github.com/bnema/incident-cli/internal/ports"
	"github.com/rs/zerolog"
)

// SessionService keeps the single in-progress workflow record of a client and
// expires it once it is older than the TTL.
type SessionService struct {
	repo   ports.SessionRepository
	clock  ports.Clock
	ttl    time.Duration
	logger zerolog.Logger
}

func NewSessionService(repo ports.SessionRepository, clock ports.Clock, ttl time.Duration, logger zerolog.Logger) *SessionService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if ttl <= 0 {
		ttl = domain.DefaultSessionTTL
	}

	return &SessionService{repo: repo, clock: clock, ttl: ttl, logger: logger}
}

func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Save overwrites the stored record with id at step, stamped with the current
// time.
func (s *SessionService) Save(ctx context.Context, id domain.IncidentID, step domain.Step) error {
	_, err := s.save(ctx, id, step)
	return err
}

// save stamps at millisecond precision, the resolution of the stored layout,
// and returns the record exactly as persisted.
func (s *SessionService) save(ctx context.Context, id domain.IncidentID, step domain.Step) (domain.SessionRecord, error) {
	if id == "" {
		return domain.SessionRecord{}, domain.ErrIncidentIDRequired
	}
	if !step.Valid() {
		return domain.SessionRecord{}, fmt.Errorf("save session: unknown step %q", step)
	}

	record := domain.SessionRecord{
		IncidentID: id,
		Step:       step,
		CreatedAt:  time.UnixMilli(s.clock.Now().UnixMilli()).UTC(),
	}
	if err := s.repo.Save(ctx, record); err != nil {
		return domain.SessionRecord{}, fmt.Errorf("save session: %w", err)
	}

	s.logger.Debug().
		Str(log.FieldIncidentID, string(id)).
		Str(log.FieldStep, string(step)).
		Msg("session saved")

	return record, nil
}

// Read returns the stored record when one exists and has not expired. An
// expired or unreadable record is deleted as a side effect.
func (s *SessionService) Read(ctx context.Context) (domain.SessionRecord, bool, error) {
	record, err := s.repo.Load(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNoActiveSession) {
			return domain.SessionRecord{}, false, nil
		}
		if errors.Is(err, domain.ErrCorruptSession) {
			s.logger.Warn().Err(err).Msg("discarding unreadable session")
			if err := s.repo.Delete(ctx); err != nil {
				return domain.SessionRecord{}, false, fmt.Errorf("evict corrupt session: %w", err)
			}
			return domain.SessionRecord{}, false, nil
		}
		return domain.SessionRecord{}, false, fmt.Errorf("load session: %w", err)
	}

	if record.Expired(s.clock.Now(), s.ttl) {
		s.logger.Info().
			Str(log.FieldIncidentID, string(record.IncidentID)).
			Time("created_at", record.CreatedAt).
			Msg("session expired")
		if err := s.repo.Delete(ctx); err != nil {
			return domain.SessionRecord{}, false, fmt.Errorf("evict expired session: %w", err)
		}
		return domain.SessionRecord{}, false, nil
	}

	return record, true, nil
}

func (s *SessionService) Clear(ctx context.Context) error {
	if err := s.repo.Delete(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *SessionService) IsActive(ctx context.Context) (bool, error) {
	_, ok, err := s.Read(ctx)
	return ok, err
}

// Resume returns the live record or domain.ErrNoActiveSession, in which case
// the caller starts over at the input step.
func (s *SessionService) Resume(ctx context.Context) (domain.SessionRecord, error) {
	record, ok, err := s.Read(ctx)
	if err != nil {
		return domain.SessionRecord{}, err
	}
	if !ok {
		return domain.SessionRecord{}, domain.ErrNoActiveSession
	}
	return record, nil
}

// Advance moves the live record to step. Saving restamps the record, so every
// step transition extends the session.
func (s *SessionService) Advance(ctx context.Context, step domain.Step) (domain.SessionRecord, error) {
	record, err := s.Resume(ctx)
	if err != nil {
		return domain.SessionRecord{}, err
	}
	return s.save(ctx, record.IncidentID, step)
}

package ports

import (
	"context"

	"github.com/bnema/incident-cli/internal/domain"
)

// SessionRepository persists the single session record of a client context.
// Load returns domain.ErrNoActiveSession when nothing is stored.
type SessionRepository interface {
	Load(ctx context.Context) (domain.SessionRecord, error)
	Save(ctx context.Context, record domain.SessionRecord) error
	Delete(ctx context.Context) error
}

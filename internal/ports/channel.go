package ports

import (
	"context"

	"github.com/bnema/incident-cli/internal/domain"
)

// ChannelConn is one open push transport. ReadFrame blocks until a frame
// arrives or the transport closes, in which case it returns an error.
type ChannelConn interface {
	ReadFrame() ([]byte, error)
	Close() error
}

type ChannelDialer interface {
	Dial(ctx context.Context, id domain.IncidentID) (ChannelConn, error)
}

// Package session holds the persisted layout shared by the session
// repositories.
package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bnema/incident-cli/internal/domain"
)

// Key is the storage key of the single session record.
const Key = "trafficking_alert_session"

type recordSchema struct {
	IncidentID    string `json:"incident_id"`
	CurrentScreen string `json:"current_screen"`
	Timestamp     int64  `json:"timestamp"`
}

// Encode renders record as {incident_id, current_screen, timestamp(ms)}.
func Encode(record domain.SessionRecord) ([]byte, error) {
	data, err := json.Marshal(recordSchema{
		IncidentID:    string(record.IncidentID),
		CurrentScreen: string(record.Step),
		Timestamp:     record.CreatedAt.UnixMilli(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode session record: %w", err)
	}
	return data, nil
}

func Decode(data []byte) (domain.SessionRecord, error) {
	var schema recordSchema
	if err := json.Unmarshal(data, &schema); err != nil {
		return domain.SessionRecord{}, fmt.Errorf("%w: %v", domain.ErrCorruptSession, err)
	}
	if schema.IncidentID == "" {
		return domain.SessionRecord{}, fmt.Errorf("%w: missing incident_id", domain.ErrCorruptSession)
	}
	if !domain.Step(schema.CurrentScreen).Valid() {
		return domain.SessionRecord{}, fmt.Errorf("%w: unknown current_screen %q", domain.ErrCorruptSession, schema.CurrentScreen)
	}

	return domain.SessionRecord{
		IncidentID: domain.IncidentID(schema.IncidentID),
		Step:       domain.Step(schema.CurrentScreen),
		CreatedAt:  time.UnixMilli(schema.Timestamp).UTC(),
	}, nil
}

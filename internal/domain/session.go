package domain

import "time"

const DefaultSessionTTL = time.Hour

type SessionRecord struct {
	IncidentID IncidentID
	Step       Step
	CreatedAt  time.Time
}

// Expired reports whether the record is older than ttl at now. A record exactly
// ttl old is still live.
func (r SessionRecord) Expired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return now.Sub(r.CreatedAt) > ttl
}

package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bnema/incident-cli/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniRedis(t *testing.T, cfg Config) (*miniredis.Miniredis, *Repository) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, NewRepository(client, cfg, zerolog.Nop())
}

func sampleRecord() domain.SessionRecord {
	return domain.SessionRecord{
		IncidentID: "incident-123",
		Step:       domain.StepRisk,
		CreatedAt:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestRepositoryRoundTrip(t *testing.T) {
	mr, repo := setupMiniRedis(t, Config{Prefix: "incident:"})
	ctx := context.Background()

	_, err := repo.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrNoActiveSession)

	require.NoError(t, repo.Save(ctx, sampleRecord()))

	raw, err := mr.Get("incident:trafficking_alert_session")
	require.NoError(t, err)
	assert.JSONEq(t, `{"incident_id":"incident-123","current_screen":"screen3","timestamp":1772355600000}`, raw)

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleRecord(), got)

	require.NoError(t, repo.Delete(ctx))
	require.NoError(t, repo.Delete(ctx))
	assert.False(t, mr.Exists("incident:trafficking_alert_session"))
}

func TestRepositorySetsKeyExpiry(t *testing.T) {
	mr, repo := setupMiniRedis(t, Config{Expiry: time.Hour})
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, sampleRecord()))
	assert.Equal(t, time.Hour, mr.TTL("trafficking_alert_session"))

	mr.FastForward(time.Hour + time.Second)
	_, err := repo.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrNoActiveSession)
}

func TestRepositoryReportsCorruptValue(t *testing.T) {
	mr, repo := setupMiniRedis(t, Config{})
	require.NoError(t, mr.Set("trafficking_alert_session", "{"))

	_, err := repo.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrCorruptSession)
}

func TestRepositorySurfacesConnectionErrors(t *testing.T) {
	mr, repo := setupMiniRedis(t, Config{})
	mr.Close()

	_, err := repo.Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNoActiveSession)
	assert.Contains(t, err.Error(), "redis get session")
}

func TestDialPingsServer(t *testing.T) {
	mr := miniredis.RunT(t)

	repo, err := Dial(context.Background(), Config{Addr: mr.Addr()}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	_, err = Dial(context.Background(), Config{}, zerolog.Nop())
	assert.EqualError(t, err, "redis address is required")
}

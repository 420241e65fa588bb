package file

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bnema/incident-cli/internal/domain"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() domain.SessionRecord {
	return domain.SessionRecord{
		IncidentID: "incident-123",
		Step:       domain.StepAnalysis,
		CreatedAt:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestRepositoryRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "session.json")
	config := viper.New()
	config.Set(PathKey, path)

	repo, err := NewRepository(config)
	require.NoError(t, err)
	assert.Equal(t, path, repo.Path())

	_, err = repo.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoActiveSession)

	require.NoError(t, repo.Save(context.Background(), sampleRecord()))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sampleRecord(), got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"trafficking_alert_session":{"incident_id":"incident-123","current_screen":"screen2","timestamp":1772355600000}}`, string(data))
}

func TestRepositorySaveOverwrites(t *testing.T) {
	t.Parallel()

	repo, err := NewRepositoryAt(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)

	require.NoError(t, repo.Save(context.Background(), sampleRecord()))
	next := sampleRecord()
	next.IncidentID = "incident-456"
	next.Step = domain.StepSummary
	require.NoError(t, repo.Save(context.Background(), next))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, next, got)
}

func TestRepositoryDeleteIsIdempotentAndKeepsOtherKeys(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"theme":"dark"}`), 0o600))

	repo, err := NewRepositoryAt(path)
	require.NoError(t, err)

	require.NoError(t, repo.Save(context.Background(), sampleRecord()))
	require.NoError(t, repo.Delete(context.Background()))
	require.NoError(t, repo.Delete(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"theme":"dark"}`, string(data))

	_, err = repo.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoActiveSession)
}

func TestRepositoryDeleteRemovesEmptyFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.json")
	repo, err := NewRepositoryAt(path)
	require.NoError(t, err)

	require.NoError(t, repo.Save(context.Background(), sampleRecord()))
	require.NoError(t, repo.Delete(context.Background()))

	_, err = os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRepositoryReportsCorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	repo, err := NewRepositoryAt(path)
	require.NoError(t, err)

	_, err = repo.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrCorruptSession)

	require.NoError(t, repo.Delete(context.Background()))
	_, err = repo.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoActiveSession)
}

func TestRepositoryConcurrentSaves(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.json")
	first, err := NewRepositoryAt(path)
	require.NoError(t, err)
	second, err := NewRepositoryAt(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		repo := first
		if i%2 == 1 {
			repo = second
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.Save(context.Background(), sampleRecord()))
		}()
	}
	wg.Wait()

	got, err := first.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sampleRecord(), got)
}

func TestRepositoryHonoursCancelledContext(t *testing.T) {
	t.Parallel()

	repo, err := NewRepositoryAt(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, repo.Save(ctx, sampleRecord()), context.Canceled)
	_, err = repo.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, repo.Delete(ctx), context.Canceled)
}

// Package redisstore stores the session record in Redis so several terminals or
// hosts can resume the same workflow.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/incident-cli/internal/adapters/session"
	"github.com/bnema/incident-cli/internal/domain"
	"github.com/bnema/incident-cli/internal/ports"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type Config struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces the session key, e.g. "incident:".
	Prefix string
	// Expiry, when positive, is set on the key so Redis drops stale records
	// even if no client reads them.
	Expiry time.Duration
}

type Repository struct {
	client redis.UniversalClient
	key    string
	expiry time.Duration
	logger zerolog.Logger
}

var _ ports.SessionRepository = (*Repository)(nil)

// Dial connects to Redis and verifies the connection.
func Dial(ctx context.Context, cfg Config, logger zerolog.Logger) (*Repository, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Debug().Str("addr", cfg.Addr).Int("db", cfg.DB).Msg("connected to redis session store")

	return NewRepository(client, cfg, logger), nil
}

func NewRepository(client redis.UniversalClient, cfg Config, logger zerolog.Logger) *Repository {
	return &Repository{
		client: client,
		key:    cfg.Prefix + session.Key,
		expiry: cfg.Expiry,
		logger: logger,
	}
}

func (r *Repository) Load(ctx context.Context) (domain.SessionRecord, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.SessionRecord{}, domain.ErrNoActiveSession
	}
	if err != nil {
		return domain.SessionRecord{}, fmt.Errorf("redis get session: %w", err)
	}
	return session.Decode(data)
}

func (r *Repository) Save(ctx context.Context, record domain.SessionRecord) error {
	data, err := session.Encode(record)
	if err != nil {
		return err
	}

	expiry := r.expiry
	if expiry < 0 {
		expiry = 0
	}
	if err := r.client.Set(ctx, r.key, data, expiry).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	return r.client.Close()
}

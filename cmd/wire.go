package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/bnema/incident-cli/internal/adapters/api/rest"
	"github.com/bnema/incident-cli/internal/adapters/channel/websocket"
	incidentrender "github.com/bnema/incident-cli/internal/adapters/render/incident"
	filesession "github.com/bnema/incident-cli/internal/adapters/session/file"
	"github.com/bnema/incident-cli/internal/adapters/session/redisstore"
	"github.com/bnema/incident-cli/internal/application"
	"github.com/bnema/incident-cli/internal/domain"
	"github.com/bnema/incident-cli/internal/log"
	"github.com/bnema/incident-cli/internal/metrics"
	"github.com/bnema/incident-cli/internal/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const redisDialTimeout = 5 * time.Second

type app struct {
	settings settings

	api         ports.IncidentAPI
	sessions    *application.SessionService
	submissions *application.SubmissionService
	workflow    *application.Workflow

	registry       *prometheus.Registry
	reportRenderer func(domain.StatusRecord, incidentrender.RenderOptions) (string, error)
	logger         zerolog.Logger
	now            func() time.Time
	close          func() error
}

func wireApp() (*app, error) {
	configPath, err := defaultConfigPath()
	if err != nil {
		return nil, err
	}

	cfg := newConfig(configPath)
	s, err := loadSettings(cfg, configPath)
	if err != nil {
		return nil, err
	}

	logger := log.Configure(log.Config{Level: s.LogLevel, Output: os.Stderr, Pretty: s.LogPretty})

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	api := rest.Client{
		BaseURL:        s.APIBaseURL,
		HTTPClient:     http.DefaultClient,
		RequestTimeout: s.APITimeout,
		Logger:         log.WithComponent("api"),
	}

	repo, closeRepo, err := wireSessionRepository(cfg, s)
	if err != nil {
		return nil, err
	}

	clock := ports.SystemClock{}
	sessions := application.NewSessionService(repo, clock, s.SessionTTL, log.WithComponent("session"))

	dialer := websocket.Dialer{
		URL:              s.ChannelURL,
		HandshakeTimeout: s.ChannelHandshakeTimeout,
		Logger:           log.WithComponent("channel"),
	}
	newChannel := func() *application.ChannelConnection {
		return application.NewChannelConnection(dialer, application.ChannelOptions{
			Policy:    s.reconnectPolicy(),
			Scheduler: clock,
			Logger:    log.WithComponent("channel"),
			Metrics:   collector,
		})
	}
	newPoller := func() *application.Poller {
		return application.NewPoller(clock, log.WithComponent("poller"), collector)
	}

	coordinatorCfg := application.DefaultCoordinatorConfig()
	coordinatorCfg.PollInterval = s.PollInterval
	coordinatorCfg.PollMaxFailures = s.PollMaxFailures
	coordinator := application.NewUpdateCoordinator(newChannel, newPoller, api, coordinatorCfg, log.WithComponent("coordinator"), collector)

	return &app{
		settings:       s,
		api:            api,
		sessions:       sessions,
		submissions:    application.NewSubmissionService(api, sessions, log.WithComponent("submission")),
		workflow:       application.NewWorkflow(sessions, coordinator, api, s.workflowDelays(), log.WithComponent("workflow")),
		registry:       registry,
		reportRenderer: incidentrender.Render,
		logger:         logger,
		now:            time.Now,
		close:          closeRepo,
	}, nil
}

func wireSessionRepository(cfg *viper.Viper, s settings) (ports.SessionRepository, func() error, error) {
	if s.SessionBackend == sessionBackendRedis {
		ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
		defer cancel()

		repo, err := redisstore.Dial(ctx, redisstore.Config{
			Addr:     s.SessionRedisAddr,
			Password: s.SessionRedisPassword,
			DB:       s.SessionRedisDB,
			Prefix:   s.SessionRedisPrefix,
			Expiry:   s.SessionTTL,
		}, log.WithComponent("session"))
		if err != nil {
			return nil, nil, fmt.Errorf("wire redis session repository: %w", err)
		}
		return repo, repo.Close, nil
	}

	repo, err := filesession.NewRepository(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("wire session repository: %w", err)
	}
	return repo, func() error { return nil }, nil
}

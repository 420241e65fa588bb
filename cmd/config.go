package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	filesession "github.com/bnema/incident-cli/internal/adapters/session/file"
	"github.com/bnema/incident-cli/internal/application"
	"github.com/bnema/incident-cli/internal/domain"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	configDirName  = ".incident"
	configFileName = "config.toml"
	envPrefix      = "INCIDENT"

	sessionBackendFile  = "file"
	sessionBackendRedis = "redis"
)

// settings is the resolved configuration: defaults, then config.toml, then
// INCIDENT_* environment variables.
type settings struct {
	APIBaseURL string
	APITimeout time.Duration

	ChannelURL              string
	ChannelHandshakeTimeout time.Duration
	ReconnectMaxAttempts    int
	ReconnectBaseDelay      time.Duration
	ReconnectMaxDelay       time.Duration

	PollInterval    time.Duration
	PollMaxFailures int

	SessionBackend       string
	SessionPath          string
	SessionTTL           time.Duration
	SessionRedisAddr     string
	SessionRedisPassword string
	SessionRedisDB       int
	SessionRedisPrefix   string

	TransitionDelay   time.Duration
	RiskDelay         time.Duration
	DispatchDelay     time.Duration
	SummaryClearDelay time.Duration

	LogLevel  string
	LogPretty bool

	configPath string
}

// configFile is the on-disk layout written by `config init`.
type configFile struct {
	API      apiSection      `toml:"api"`
	Channel  channelSection  `toml:"channel"`
	Poll     pollSection     `toml:"poll"`
	Session  sessionSection  `toml:"session"`
	Workflow workflowSection `toml:"workflow"`
	Log      logSection      `toml:"log"`
}

type apiSection struct {
	BaseURL string `toml:"base_url"`
	Timeout string `toml:"timeout"`
}

type channelSection struct {
	URL                  string `toml:"url"`
	HandshakeTimeout     string `toml:"handshake_timeout"`
	MaxReconnectAttempts int    `toml:"max_reconnect_attempts"`
	ReconnectBaseDelay   string `toml:"reconnect_base_delay"`
	ReconnectMaxDelay    string `toml:"reconnect_max_delay"`
}

type pollSection struct {
	Interval    string `toml:"interval"`
	MaxFailures int    `toml:"max_failures"`
}

type sessionSection struct {
	Backend string       `toml:"backend"`
	Path    string       `toml:"path,omitempty"`
	TTL     string       `toml:"ttl"`
	Redis   redisSection `toml:"redis"`
}

type redisSection struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password,omitempty"`
	DB       int    `toml:"db"`
	Prefix   string `toml:"prefix"`
}

type workflowSection struct {
	TransitionDelay   string `toml:"transition_delay"`
	RiskDelay         string `toml:"risk_delay"`
	DispatchDelay     string `toml:"dispatch_delay"`
	SummaryClearDelay string `toml:"summary_clear_delay"`
}

type logSection struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
}

func defaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(homeDir, configDirName, configFileName), nil
}

func newConfig(path string) *viper.Viper {
	cfg := viper.New()
	cfg.SetConfigFile(path)
	cfg.SetConfigType("toml")
	cfg.SetEnvPrefix(envPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()

	reconnect := application.DefaultReconnectPolicy()
	delays := application.DefaultWorkflowDelays()

	cfg.SetDefault("api.base_url", "https://api.example.com/prod")
	cfg.SetDefault("api.timeout", 30*time.Second)
	cfg.SetDefault("channel.url", "wss://ws.example.com/prod")
	cfg.SetDefault("channel.handshake_timeout", 10*time.Second)
	cfg.SetDefault("channel.max_reconnect_attempts", reconnect.MaxAttempts)
	cfg.SetDefault("channel.reconnect_base_delay", reconnect.BaseDelay)
	cfg.SetDefault("channel.reconnect_max_delay", reconnect.MaxDelay)
	cfg.SetDefault("poll.interval", application.DefaultPollInterval)
	cfg.SetDefault("poll.max_failures", 0)
	cfg.SetDefault("session.backend", sessionBackendFile)
	cfg.SetDefault(filesession.PathKey, "")
	cfg.SetDefault("session.ttl", domain.DefaultSessionTTL)
	cfg.SetDefault("session.redis.addr", "127.0.0.1:6379")
	cfg.SetDefault("session.redis.password", "")
	cfg.SetDefault("session.redis.db", 0)
	cfg.SetDefault("session.redis.prefix", "incident:")
	cfg.SetDefault("workflow.transition_delay", delays.Transition)
	cfg.SetDefault("workflow.risk_delay", delays.Risk)
	cfg.SetDefault("workflow.dispatch_delay", delays.Dispatch)
	cfg.SetDefault("workflow.summary_clear_delay", delays.SummaryClear)
	cfg.SetDefault("log.level", "warn")
	cfg.SetDefault("log.pretty", false)

	return cfg
}

// loadSettings reads path if it exists. A missing file leaves the defaults.
func loadSettings(cfg *viper.Viper, path string) (settings, error) {
	if err := cfg.ReadInConfig(); err != nil && !isMissingConfig(err) {
		return settings{}, fmt.Errorf("read config %s: %w", path, err)
	}

	s := settings{
		APIBaseURL:              cfg.GetString("api.base_url"),
		APITimeout:              cfg.GetDuration("api.timeout"),
		ChannelURL:              cfg.GetString("channel.url"),
		ChannelHandshakeTimeout: cfg.GetDuration("channel.handshake_timeout"),
		ReconnectMaxAttempts:    cfg.GetInt("channel.max_reconnect_attempts"),
		ReconnectBaseDelay:      cfg.GetDuration("channel.reconnect_base_delay"),
		ReconnectMaxDelay:       cfg.GetDuration("channel.reconnect_max_delay"),
		PollInterval:            cfg.GetDuration("poll.interval"),
		PollMaxFailures:         cfg.GetInt("poll.max_failures"),
		SessionBackend:          strings.ToLower(cfg.GetString("session.backend")),
		SessionPath:             cfg.GetString(filesession.PathKey),
		SessionTTL:              cfg.GetDuration("session.ttl"),
		SessionRedisAddr:        cfg.GetString("session.redis.addr"),
		SessionRedisPassword:    cfg.GetString("session.redis.password"),
		SessionRedisDB:          cfg.GetInt("session.redis.db"),
		SessionRedisPrefix:      cfg.GetString("session.redis.prefix"),
		TransitionDelay:         cfg.GetDuration("workflow.transition_delay"),
		RiskDelay:               cfg.GetDuration("workflow.risk_delay"),
		DispatchDelay:           cfg.GetDuration("workflow.dispatch_delay"),
		SummaryClearDelay:       cfg.GetDuration("workflow.summary_clear_delay"),
		LogLevel:                cfg.GetString("log.level"),
		LogPretty:               cfg.GetBool("log.pretty"),
		configPath:              path,
	}

	switch s.SessionBackend {
	case sessionBackendFile, sessionBackendRedis:
	default:
		return settings{}, fmt.Errorf("unknown session backend %q (want %q or %q)", s.SessionBackend, sessionBackendFile, sessionBackendRedis)
	}

	return s, nil
}

func isMissingConfig(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}

func (s settings) reconnectPolicy() application.ReconnectPolicy {
	return application.ReconnectPolicy{
		MaxAttempts: s.ReconnectMaxAttempts,
		BaseDelay:   s.ReconnectBaseDelay,
		MaxDelay:    s.ReconnectMaxDelay,
	}
}

func (s settings) workflowDelays() application.WorkflowDelays {
	return application.WorkflowDelays{
		Transition:   s.TransitionDelay,
		Risk:         s.RiskDelay,
		Dispatch:     s.DispatchDelay,
		SummaryClear: s.SummaryClearDelay,
	}
}

func (s settings) file() configFile {
	return configFile{
		API: apiSection{BaseURL: s.APIBaseURL, Timeout: s.APITimeout.String()},
		Channel: channelSection{
			URL:                  s.ChannelURL,
			HandshakeTimeout:     s.ChannelHandshakeTimeout.String(),
			MaxReconnectAttempts: s.ReconnectMaxAttempts,
			ReconnectBaseDelay:   s.ReconnectBaseDelay.String(),
			ReconnectMaxDelay:    s.ReconnectMaxDelay.String(),
		},
		Poll: pollSection{Interval: s.PollInterval.String(), MaxFailures: s.PollMaxFailures},
		Session: sessionSection{
			Backend: s.SessionBackend,
			Path:    s.SessionPath,
			TTL:     s.SessionTTL.String(),
			Redis: redisSection{
				Addr:     s.SessionRedisAddr,
				Password: s.SessionRedisPassword,
				DB:       s.SessionRedisDB,
				Prefix:   s.SessionRedisPrefix,
			},
		},
		Workflow: workflowSection{
			TransitionDelay:   s.TransitionDelay.String(),
			RiskDelay:         s.RiskDelay.String(),
			DispatchDelay:     s.DispatchDelay.String(),
			SummaryClearDelay: s.SummaryClearDelay.String(),
		},
		Log: logSection{Level: s.LogLevel, Pretty: s.LogPretty},
	}
}

func marshalConfig(file configFile) ([]byte, error) {
	data, err := toml.Marshal(file)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

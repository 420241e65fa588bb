package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bnema/incident-cli/internal/domain"
	"github.com/bnema/incident-cli/internal/log"
	"github.com/bnema/incident-cli/internal/metrics"
	"github.com/bnema/incident-cli/internal/ports"
	"github.com/rs/zerolog"
)

var ErrTrackingStopped = errors.New("tracking stopped")

type Mode string

const (
	ModeIdle Mode = "idle"
	ModePush Mode = "push"
	ModePoll Mode = "poll"
)

// Outcome is delivered once per Track call. Event is set on the push path,
// Status on the poll path.
type Outcome struct {
	Mode   Mode
	Event  domain.Event
	Status domain.StatusRecord
}

// Handlers receive tracking callbacks. OnEvent is only called on the push
// path: once tracking has fallen back to polling, only OnTerminal fires.
// OnError reports that tracking was abandoned: the open push channel ran out
// of reconnect attempts (domain.ErrReconnectExhausted), or polling hit
// CoordinatorConfig.PollMaxFailures.
type Handlers struct {
	OnEvent    func(domain.Event)
	OnTerminal func(Outcome)
	OnError    func(error)
}

// TerminalRule picks the push event that ends tracking.
type TerminalRule struct {
	Kind  domain.EventKind
	Match func(domain.Event) bool
}

func DefaultTerminalRule() TerminalRule {
	return TerminalRule{
		Kind: domain.EventAgentPhase,
		Match: func(ev domain.Event) bool {
			phase, err := ev.Phase()
			return err == nil && phase.Phase == "observe" && phase.Status == domain.StatusComplete
		},
	}
}

func (r TerminalRule) matches(ev domain.Event) bool {
	return ev.Kind == r.Kind && (r.Match == nil || r.Match(ev))
}

type CoordinatorConfig struct {
	PollInterval     time.Duration
	PollMaxFailures  int
	Terminal         TerminalRule
	IsTerminalStatus func(domain.StatusRecord) bool
	// ForwardKinds are passed to Handlers.OnEvent along with the terminal kind.
	ForwardKinds []domain.EventKind
}

func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		PollInterval:     DefaultPollInterval,
		Terminal:         DefaultTerminalRule(),
		IsTerminalStatus: domain.StatusRecord.IsComplete,
		ForwardKinds:     []domain.EventKind{domain.EventAgentPhase, domain.EventContextUpdate, domain.EventNetworkUpdate},
	}
}

type ChannelFactory func() *ChannelConnection

type PollerFactory func() *Poller

// UpdateCoordinator tracks one incident at a time, preferring the push
// channel and falling back to polling when the channel cannot be opened.
type UpdateCoordinator struct {
	newChannel ChannelFactory
	newPoller  PollerFactory
	fetcher    ports.StatusFetcher
	cfg        CoordinatorConfig
	logger     zerolog.Logger
	metrics    *metrics.Collector

	deliver gate

	mu         sync.Mutex
	mode       Mode
	channel    *ChannelConnection
	poller     *Poller
	terminated bool
}

func NewUpdateCoordinator(newChannel ChannelFactory, newPoller PollerFactory, fetcher ports.StatusFetcher, cfg CoordinatorConfig, logger zerolog.Logger, collector *metrics.Collector) *UpdateCoordinator {
	defaults := DefaultCoordinatorConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaults.PollInterval
	}
	if cfg.Terminal.Kind == "" {
		cfg.Terminal = defaults.Terminal
	}
	if cfg.IsTerminalStatus == nil {
		cfg.IsTerminalStatus = defaults.IsTerminalStatus
	}
	if len(cfg.ForwardKinds) == 0 {
		cfg.ForwardKinds = defaults.ForwardKinds
	}

	return &UpdateCoordinator{
		newChannel: newChannel,
		newPoller:  newPoller,
		fetcher:    fetcher,
		cfg:        cfg,
		logger:     logger,
		metrics:    collector,
		mode:       ModeIdle,
	}
}

func (c *UpdateCoordinator) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Track starts tracking id and reports which path is active. Once Track has
// fallen back to polling it never retries the push path for this call. A
// previous Track is stopped first so its connection is released before the
// new one opens.
func (c *UpdateCoordinator) Track(ctx context.Context, id domain.IncidentID, handlers Handlers) (Mode, error) {
	if id == "" {
		return ModeIdle, domain.ErrIncidentIDRequired
	}

	c.Stop()

	channel := c.newChannel()

	c.mu.Lock()
	gen := c.deliver.advance()
	c.channel = channel
	c.terminated = false
	c.mu.Unlock()

	for _, kind := range c.forwardKinds() {
		channel.On(kind, func(ev domain.Event) {
			c.handleEvent(gen, handlers, ev)
		})
	}
	channel.OnGiveUp(func(err error) {
		c.channelGaveUp(gen, handlers, channel, err)
	})

	logger := c.logger.With().Str(log.FieldIncidentID, string(id)).Logger()

	connectErr := channel.Connect(ctx, id)

	c.mu.Lock()
	if c.deliver.current() != gen {
		c.mu.Unlock()
		channel.Disconnect()
		return ModeIdle, ErrTrackingStopped
	}

	if connectErr == nil {
		c.mode = ModePush
		c.mu.Unlock()
		logger.Info().Str(log.FieldMode, string(ModePush)).Msg("tracking incident")
		return ModePush, nil
	}

	if err := ctx.Err(); err != nil {
		c.channel = nil
		c.deliver.advance()
		c.mu.Unlock()
		channel.Disconnect()
		return ModeIdle, fmt.Errorf("track incident: %w", err)
	}

	poller := c.newPoller()
	c.channel = nil
	c.poller = poller
	c.mode = ModePoll
	c.mu.Unlock()

	// The push path is abandoned for this Track call, including the
	// background reconnects the failed dial scheduled.
	channel.Disconnect()
	c.metrics.RecordFallback()
	logger.Info().Err(connectErr).Str(log.FieldMode, string(ModePoll)).Msg("push channel unavailable, polling status")

	err := poller.Start(id, PollSpec{
		Fetch:       c.fetcher.FetchStatus,
		Interval:    c.cfg.PollInterval,
		IsTerminal:  c.cfg.IsTerminalStatus,
		MaxFailures: c.cfg.PollMaxFailures,
		OnTerminal: func(record domain.StatusRecord) {
			c.finish(gen, handlers, Outcome{Mode: ModePoll, Status: record})
		},
		OnGiveUp: func(err error) {
			logger.Error().Err(err).Msg("polling abandoned")
			c.fail(gen, handlers, err)
		},
	})
	if err != nil {
		c.Stop()
		return ModeIdle, fmt.Errorf("start poller: %w", err)
	}

	return ModePoll, nil
}

// Stop tears down whichever path is active. No handler starts after it
// returns. It is safe to call more than once.
func (c *UpdateCoordinator) Stop() {
	c.mu.Lock()
	c.deliver.advance()
	channel, poller := c.channel, c.poller
	c.channel, c.poller = nil, nil
	c.mode = ModeIdle
	c.mu.Unlock()

	c.deliver.settle()

	if channel != nil {
		channel.Disconnect()
	}
	if poller != nil {
		poller.Cancel()
	}
}

func (c *UpdateCoordinator) forwardKinds() []domain.EventKind {
	kinds := append([]domain.EventKind(nil), c.cfg.ForwardKinds...)
	for _, kind := range kinds {
		if kind == c.cfg.Terminal.Kind {
			return kinds
		}
	}
	return append(kinds, c.cfg.Terminal.Kind)
}

func (c *UpdateCoordinator) handleEvent(gen uint64, handlers Handlers, ev domain.Event) {
	c.mu.Lock()
	done := c.terminated
	c.mu.Unlock()
	if done {
		return
	}

	if handlers.OnEvent != nil {
		c.deliver.deliver(gen, func() { handlers.OnEvent(ev) })
	}

	if c.cfg.Terminal.matches(ev) {
		c.finish(gen, handlers, Outcome{Mode: ModePush, Event: ev})
	}
}

// finish delivers the terminal outcome at most once per Track call and then
// releases the active path.
func (c *UpdateCoordinator) finish(gen uint64, handlers Handlers, outcome Outcome) {
	c.mu.Lock()
	if c.deliver.current() != gen || c.terminated {
		c.mu.Unlock()
		return
	}
	c.terminated = true
	c.mu.Unlock()

	if handlers.OnTerminal != nil {
		c.deliver.deliver(gen, func() { handlers.OnTerminal(outcome) })
	}

	c.mu.Lock()
	if c.deliver.current() != gen {
		c.mu.Unlock()
		return
	}
	channel, poller := c.channel, c.poller
	c.channel, c.poller = nil, nil
	c.mode = ModeIdle
	c.mu.Unlock()

	if channel != nil {
		channel.Disconnect()
	}
	if poller != nil {
		poller.Cancel()
	}
}

// channelGaveUp surfaces an exhausted push channel. A give-up during the
// initial connect is ignored here because Track falls back to polling.
func (c *UpdateCoordinator) channelGaveUp(gen uint64, handlers Handlers, channel *ChannelConnection, err error) {
	c.mu.Lock()
	active := c.deliver.current() == gen && c.mode == ModePush && c.channel == channel
	c.mu.Unlock()
	if !active {
		return
	}

	c.logger.Error().Err(err).Str(log.FieldMode, string(ModePush)).Msg("push channel lost")
	c.fail(gen, handlers, err)
}

func (c *UpdateCoordinator) fail(gen uint64, handlers Handlers, err error) {
	c.mu.Lock()
	if c.deliver.current() != gen || c.terminated {
		c.mu.Unlock()
		return
	}
	c.terminated = true
	channel := c.channel
	c.channel, c.poller = nil, nil
	c.mode = ModeIdle
	c.mu.Unlock()

	if handlers.OnError != nil {
		c.deliver.deliver(gen, func() { handlers.OnError(err) })
	}
	if channel != nil {
		channel.Disconnect()
	}
}

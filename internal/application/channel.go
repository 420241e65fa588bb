package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bnema/incident-cli/internal/domain"
	"github.com/bnema/incident-cli/internal/log"
	"github.com/bnema/incident-cli/internal/metrics"
	"github.com/bnema/incident-cli/internal/ports"
	"github.com/rs/zerolog"
)

const defaultReconnectDialTimeout = 15 * time.Second

// ErrChannelClosed is returned by Connect when the connection was disconnected
// or replaced while the dial was in flight.
var ErrChannelClosed = errors.New("channel closed")

type Listener func(domain.Event)

type ChannelOptions struct {
	Policy      ReconnectPolicy
	Scheduler   ports.Scheduler
	Logger      zerolog.Logger
	Metrics     *metrics.Collector
	DialTimeout time.Duration
}

// ChannelConnection owns one push connection to an incident and reconnects it
// with capped exponential backoff. The listener table belongs to the
// connection, so every transport it opens dispatches to the same listeners.
type ChannelConnection struct {
	dialer      ports.ChannelDialer
	scheduler   ports.Scheduler
	policy      ReconnectPolicy
	dialTimeout time.Duration
	logger      zerolog.Logger
	metrics     *metrics.Collector

	listenersMu sync.RWMutex
	listeners   map[domain.EventKind][]Listener
	onGiveUp    func(error)

	dispatch gate

	mu         sync.Mutex
	machine    connMachine
	incidentID domain.IncidentID
	conn       ports.ChannelConn
	timer      ports.Timer
}

func NewChannelConnection(dialer ports.ChannelDialer, opts ChannelOptions) *ChannelConnection {
	if opts.Scheduler == nil {
		opts.Scheduler = ports.SystemClock{}
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultReconnectDialTimeout
	}
	if opts.Policy == (ReconnectPolicy{}) {
		opts.Policy = DefaultReconnectPolicy()
	}

	return &ChannelConnection{
		dialer:      dialer,
		scheduler:   opts.Scheduler,
		policy:      opts.Policy.withDefaults(),
		dialTimeout: opts.DialTimeout,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		listeners:   map[domain.EventKind][]Listener{},
	}
}

// On registers listener for kind. Listeners of a kind run in registration
// order for every matching event.
func (c *ChannelConnection) On(kind domain.EventKind, listener Listener) {
	if listener == nil {
		return
	}

	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.listeners[kind] = append(c.listeners[kind], listener)
}

// OnGiveUp registers fn to receive domain.ErrReconnectExhausted when the
// reconnect attempts run out. A later registration replaces an earlier one.
func (c *ChannelConnection) OnGiveUp(fn func(error)) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.onGiveUp = fn
}

func (c *ChannelConnection) State() (domain.ConnState, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.State, c.machine.Attempt
}

// Connect opens a transport for id and returns once it is open. A failed
// first dial returns a *domain.TransportError but still counts as a close, so
// the connection keeps retrying in the background until Disconnect.
func (c *ChannelConnection) Connect(ctx context.Context, id domain.IncidentID) error {
	if id == "" {
		return domain.ErrIncidentIDRequired
	}

	c.mu.Lock()
	old := c.releaseLocked()
	gen := c.dispatch.advance()
	c.incidentID = id
	c.machine.Attempt = 0
	c.applyLocked(connInput{kind: inputDial})
	c.mu.Unlock()

	c.dispatch.settle()
	closeQuietly(old)

	return c.dial(ctx, gen)
}

// Disconnect closes the transport and suppresses any reconnect the closure
// would otherwise trigger. It is safe to call more than once.
func (c *ChannelConnection) Disconnect() {
	c.mu.Lock()
	conn := c.releaseLocked()
	c.dispatch.advance()
	if c.machine.State != domain.ConnIdle || conn != nil {
		c.applyLocked(connInput{kind: inputDisconnect})
	}
	c.mu.Unlock()

	c.dispatch.settle()
	closeQuietly(conn)
}

func (c *ChannelConnection) dial(ctx context.Context, gen uint64) error {
	c.mu.Lock()
	id := c.incidentID
	c.mu.Unlock()

	conn, err := c.dialer.Dial(ctx, id)

	c.mu.Lock()
	if c.dispatch.current() != gen {
		c.mu.Unlock()
		closeQuietly(conn)
		if err != nil {
			return &domain.TransportError{IncidentID: id, Err: err}
		}
		return ErrChannelClosed
	}

	if err != nil {
		gaveUp := c.applyLocked(connInput{kind: inputClose, reason: domain.CloseReasonDialFailed})
		c.mu.Unlock()
		if gaveUp {
			c.notifyGiveUp(gen)
		}
		return &domain.TransportError{IncidentID: id, Err: err}
	}

	c.conn = conn
	c.applyLocked(connInput{kind: inputOpen})
	c.mu.Unlock()

	go c.readLoop(conn, gen)

	return nil
}

func (c *ChannelConnection) readLoop(conn ports.ChannelConn, gen uint64) {
	for {
		data, err := conn.ReadFrame()
		if err != nil {
			c.handleClose(conn, gen, err)
			return
		}

		ev, ok := domain.ParseFrame(data)
		if !ok {
			c.metrics.RecordDroppedFrame()
			c.logger.Debug().Int("bytes", len(data)).Msg("dropping malformed frame")
			continue
		}

		c.metrics.RecordEvent(ev.Kind)
		c.dispatch.deliver(gen, func() {
			for _, listener := range c.listenersFor(ev.Kind) {
				listener(ev)
			}
		})
	}
}

func (c *ChannelConnection) listenersFor(kind domain.EventKind) []Listener {
	c.listenersMu.RLock()
	defer c.listenersMu.RUnlock()

	listeners := c.listeners[kind]
	return listeners[:len(listeners):len(listeners)]
}

func (c *ChannelConnection) handleClose(conn ports.ChannelConn, gen uint64, cause error) {
	c.mu.Lock()
	if c.dispatch.current() != gen {
		c.mu.Unlock()
		return
	}

	c.logger.Info().Err(cause).Msg("channel closed")
	if c.conn == conn {
		c.conn = nil
	}
	gaveUp := c.applyLocked(connInput{kind: inputClose, reason: domain.CloseReasonTransport})
	c.mu.Unlock()

	closeQuietly(conn)
	if gaveUp {
		c.notifyGiveUp(gen)
	}
}

func (c *ChannelConnection) notifyGiveUp(gen uint64) {
	c.listenersMu.RLock()
	fn := c.onGiveUp
	c.listenersMu.RUnlock()
	if fn == nil {
		return
	}

	c.dispatch.deliver(gen, func() { fn(domain.ErrReconnectExhausted) })
}

func (c *ChannelConnection) reconnect(gen uint64) {
	c.mu.Lock()
	if c.dispatch.current() != gen || c.machine.State != domain.ConnReconnecting {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.applyLocked(connInput{kind: inputDial})
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.dialTimeout)
	defer cancel()

	if err := c.dial(ctx, gen); err != nil && !errors.Is(err, ErrChannelClosed) {
		c.logger.Debug().Err(err).Msg("reconnect attempt failed")
	}
}

// applyLocked feeds in to the state machine and reports whether it gave up.
func (c *ChannelConnection) applyLocked(in connInput) bool {
	prev := c.machine
	next, action := advance(prev, in, c.policy)
	c.machine = next

	if prev.State != next.State {
		c.logger.Debug().
			Str(log.FieldIncidentID, string(c.incidentID)).
			Stringer(log.FieldOldState, prev.State).
			Stringer(log.FieldNewState, next.State).
			Str(log.FieldReason, string(next.Reason)).
			Msg("channel state changed")
		c.metrics.SetChannelState(next.State)
	}

	switch action.kind {
	case actionScheduleReconnect:
		c.metrics.RecordReconnect()
		c.logger.Info().
			Str(log.FieldIncidentID, string(c.incidentID)).
			Int(log.FieldAttempt, next.Attempt).
			Dur(log.FieldDelay, action.delay).
			Msg("scheduling reconnect")
		c.scheduleLocked(action.delay)
	case actionGiveUp:
		c.metrics.RecordGiveUp()
		c.logger.Warn().
			Err(domain.ErrReconnectExhausted).
			Str(log.FieldIncidentID, string(c.incidentID)).
			Int(log.FieldAttempt, next.Attempt).
			Msg("giving up on channel")
		return true
	}

	return false
}

func (c *ChannelConnection) scheduleLocked(delay time.Duration) {
	if c.timer != nil {
		c.timer.Stop()
	}

	gen := c.dispatch.current()
	c.timer = c.scheduler.AfterFunc(delay, func() {
		c.reconnect(gen)
	})
}

// releaseLocked stops the pending reconnect and detaches the live transport.
func (c *ChannelConnection) releaseLocked() ports.ChannelConn {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}

	conn := c.conn
	c.conn = nil
	return conn
}

func closeQuietly(conn ports.ChannelConn) {
	if conn == nil {
		return
	}
	_ = conn.Close()
}

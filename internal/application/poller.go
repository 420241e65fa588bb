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

const DefaultPollInterval = 2 * time.Second

var (
	ErrPollerStarted = errors.New("poller already started")
	errPollSpec      = errors.New("poll spec requires fetch, is-terminal and on-terminal")
)

type FetchFunc func(ctx context.Context, id domain.IncidentID) (domain.StatusRecord, error)

type PollSpec struct {
	Fetch      FetchFunc
	Interval   time.Duration
	IsTerminal func(domain.StatusRecord) bool
	OnTerminal func(domain.StatusRecord)

	// MaxFailures stops polling after that many consecutive fetch errors and
	// reports domain.ErrPollFailuresExceeded to OnGiveUp. Zero retries forever.
	MaxFailures int
	OnGiveUp    func(error)
}

// Poller issues status fetches on a fixed-delay schedule until the result is
// terminal or the poller is cancelled. A Poller is single use.
type Poller struct {
	scheduler ports.Scheduler
	logger    zerolog.Logger
	metrics   *metrics.Collector

	deliver gate

	mu          sync.Mutex
	started     bool
	cancelled   bool
	timer       ports.Timer
	cancelFetch context.CancelFunc
	failures    int
}

func NewPoller(scheduler ports.Scheduler, logger zerolog.Logger, collector *metrics.Collector) *Poller {
	if scheduler == nil {
		scheduler = ports.SystemClock{}
	}

	return &Poller{scheduler: scheduler, logger: logger, metrics: collector}
}

func (p *Poller) Start(id domain.IncidentID, spec PollSpec) error {
	if id == "" {
		return domain.ErrIncidentIDRequired
	}
	if spec.Fetch == nil || spec.IsTerminal == nil || spec.OnTerminal == nil {
		return errPollSpec
	}
	if spec.Interval <= 0 {
		spec.Interval = DefaultPollInterval
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancelled {
		return nil
	}
	if p.started {
		return ErrPollerStarted
	}
	p.started = true

	p.logger.Debug().
		Str(log.FieldIncidentID, string(id)).
		Dur("interval", spec.Interval).
		Msg("polling started")
	p.scheduleLocked(p.deliver.current(), id, spec)

	return nil
}

// Cancel stops the schedule and aborts an in-flight fetch. No callback runs
// after it returns.
func (p *Poller) Cancel() {
	p.mu.Lock()
	p.cancelled = true
	p.deliver.advance()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	if p.cancelFetch != nil {
		p.cancelFetch()
		p.cancelFetch = nil
	}
	p.mu.Unlock()

	p.deliver.settle()
}

func (p *Poller) scheduleLocked(gen uint64, id domain.IncidentID, spec PollSpec) {
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = p.scheduler.AfterFunc(spec.Interval, func() {
		p.tick(gen, id, spec)
	})
}

func (p *Poller) tick(gen uint64, id domain.IncidentID, spec PollSpec) {
	p.mu.Lock()
	if p.deliver.current() != gen {
		p.mu.Unlock()
		return
	}
	p.timer = nil
	ctx, cancel := context.WithCancel(context.Background())
	p.cancelFetch = cancel
	p.mu.Unlock()

	record, err := spec.Fetch(ctx, id)
	cancel()
	p.metrics.RecordPollFetch(err)

	p.mu.Lock()
	if p.deliver.current() != gen {
		p.mu.Unlock()
		return
	}
	p.cancelFetch = nil

	if err != nil {
		p.failures++
		p.logger.Warn().
			Err(err).
			Str(log.FieldIncidentID, string(id)).
			Int("consecutive_failures", p.failures).
			Msg("status poll failed")

		if spec.MaxFailures > 0 && p.failures >= spec.MaxFailures {
			failures := p.failures
			p.mu.Unlock()
			if spec.OnGiveUp != nil {
				giveUp := fmt.Errorf("%w: %d in a row: %w", domain.ErrPollFailuresExceeded, failures, err)
				p.deliver.deliver(gen, func() { spec.OnGiveUp(giveUp) })
			}
			return
		}

		p.scheduleLocked(gen, id, spec)
		p.mu.Unlock()
		return
	}

	p.failures = 0
	if spec.IsTerminal(record) {
		p.mu.Unlock()
		p.logger.Debug().Str(log.FieldIncidentID, string(id)).Str("status", record.Status).Msg("polling reached terminal status")
		p.deliver.deliver(gen, func() { spec.OnTerminal(record) })
		return
	}

	p.scheduleLocked(gen, id, spec)
	p.mu.Unlock()
}

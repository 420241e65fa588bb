// Package metrics exposes Prometheus instruments for the update delivery path:
// channel reconnects and dropped frames, poll fetches and errors, and how often
// tracking fell back from push to polling.
package metrics

import (
	"github.com/bnema/incident-cli/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "incident"

type Collector struct {
	reconnects     prometheus.Counter
	givenUp        prometheus.Counter
	framesDropped  prometheus.Counter
	eventsReceived *prometheus.CounterVec
	channelState   prometheus.Gauge
	pollFetches    prometheus.Counter
	pollErrors     prometheus.Counter
	fallbacks      prometheus.Counter
}

// NewCollector registers the instruments on reg. A nil reg uses a private
// registry so several collectors can coexist in tests.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Collector{
		reconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_reconnects_total",
			Help:      "Reconnect attempts scheduled after the push channel closed",
		}),
		givenUp: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_given_up_total",
			Help:      "Times the push channel exhausted its reconnect attempts",
		}),
		framesDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_frames_dropped_total",
			Help:      "Inbound frames dropped because they were not valid {type, payload} objects",
		}),
		eventsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_events_total",
			Help:      "Events dispatched from the push channel by kind",
		}, []string{"kind"}),
		channelState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "channel_state",
			Help:      "Current push channel state (0 idle, 1 connecting, 2 open, 3 closed, 4 reconnecting, 5 given up)",
		}),
		pollFetches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_fetches_total",
			Help:      "Status fetches issued by the poller",
		}),
		pollErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_errors_total",
			Help:      "Status fetches that failed while polling",
		}),
		fallbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracking_fallbacks_total",
			Help:      "Tracking sessions that fell back from push to polling",
		}),
	}
}

// Nil-receiver safe so components can run without metrics.

func (c *Collector) RecordReconnect() {
	if c == nil {
		return
	}
	c.reconnects.Inc()
}

func (c *Collector) RecordGiveUp() {
	if c == nil {
		return
	}
	c.givenUp.Inc()
}

func (c *Collector) RecordDroppedFrame() {
	if c == nil {
		return
	}
	c.framesDropped.Inc()
}

func (c *Collector) RecordEvent(kind domain.EventKind) {
	if c == nil {
		return
	}
	c.eventsReceived.WithLabelValues(string(kind)).Inc()
}

func (c *Collector) SetChannelState(state domain.ConnState) {
	if c == nil {
		return
	}
	c.channelState.Set(float64(state))
}

func (c *Collector) RecordPollFetch(err error) {
	if c == nil {
		return
	}
	c.pollFetches.Inc()
	if err != nil {
		c.pollErrors.Inc()
	}
}

func (c *Collector) RecordFallback() {
	if c == nil {
		return
	}
	c.fallbacks.Inc()
}

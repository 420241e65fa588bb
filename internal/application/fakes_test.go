package application

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/bnema/incident-cli/internal/domain"
	"github.com/bnema/incident-cli/internal/ports"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeScheduler records scheduled callbacks and runs them only when a test
// fires them.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	delay   time.Duration
	fn      func()
	mu      sync.Mutex
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	wasPending := !t.stopped && !t.fired
	t.stopped = true
	return wasPending
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) ports.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{delay: d, fn: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, 0, len(s.timers))
	for _, t := range s.timers {
		out = append(out, t.delay)
	}
	return out
}

func (s *fakeScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		t.mu.Lock()
		if !t.stopped && !t.fired {
			n++
		}
		t.mu.Unlock()
	}
	return n
}

// FireNext runs the oldest pending callback on the calling goroutine and
// reports whether there was one.
func (s *fakeScheduler) FireNext() bool {
	s.mu.Lock()
	var next *fakeTimer
	for _, t := range s.timers {
		t.mu.Lock()
		if !t.stopped && !t.fired {
			t.fired = true
			next = t
		}
		t.mu.Unlock()
		if next != nil {
			break
		}
	}
	s.mu.Unlock()

	if next == nil {
		return false
	}
	next.fn()
	return true
}

var errDialRefused = errors.New("connection refused")

type fakeConn struct {
	frames    chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{frames: make(chan []byte, 16), closed: make(chan struct{})}
}

func (c *fakeConn) ReadFrame() ([]byte, error) {
	select {
	case frame := <-c.frames:
		return frame, nil
	case <-c.closed:
		return nil, io.EOF
	}
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) Send(frame string) {
	c.frames <- []byte(frame)
}

// Drop simulates the server closing the socket.
func (c *fakeConn) Drop() {
	_ = c.Close()
}

func (c *fakeConn) IsClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// fakeDialer hands out scripted results in order. Once the script is
// exhausted every dial fails.
type fakeDialer struct {
	mu      sync.Mutex
	results []dialResult
	dials   []domain.IncidentID
	conns   []*fakeConn
}

type dialResult struct {
	conn *fakeConn
	err  error
}

func (d *fakeDialer) Succeed() *fakeConn {
	conn := newFakeConn()
	d.mu.Lock()
	d.results = append(d.results, dialResult{conn: conn})
	d.mu.Unlock()
	return conn
}

func (d *fakeDialer) Fail(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := 0; i < n; i++ {
		d.results = append(d.results, dialResult{err: errDialRefused})
	}
}

func (d *fakeDialer) Dial(ctx context.Context, id domain.IncidentID) (ports.ChannelConn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials = append(d.dials, id)

	if len(d.results) == 0 {
		return nil, errDialRefused
	}
	next := d.results[0]
	d.results = d.results[1:]
	if next.err != nil {
		return nil, next.err
	}
	d.conns = append(d.conns, next.conn)
	return next.conn, nil
}

func (d *fakeDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.dials)
}

// inMemorySessionRepo stores the record the way the persistent adapters do.
type inMemorySessionRepo struct {
	mu      sync.Mutex
	record  *domain.SessionRecord
	deletes int
}

func (r *inMemorySessionRepo) Load(context.Context) (domain.SessionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.record == nil {
		return domain.SessionRecord{}, domain.ErrNoActiveSession
	}
	return *r.record, nil
}

func (r *inMemorySessionRepo) Save(_ context.Context, record domain.SessionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record = &record
	return nil
}

func (r *inMemorySessionRepo) Delete(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record = nil
	r.deletes++
	return nil
}

func phaseFrame(phase, status string) string {
	return `{"type":"agent_phase","payload":{"phase":"` + phase + `","status":"` + status + `"}}`
}

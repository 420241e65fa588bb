package application

import (
	"time"

	"github.com/bnema/incident-cli/internal/domain"
)

const (
	DefaultMaxReconnectAttempts = 5
	DefaultReconnectBaseDelay   = time.Second
	DefaultReconnectMaxDelay    = 30 * time.Second
)

type ReconnectPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		MaxAttempts: DefaultMaxReconnectAttempts,
		BaseDelay:   DefaultReconnectBaseDelay,
		MaxDelay:    DefaultReconnectMaxDelay,
	}
}

func (p ReconnectPolicy) withDefaults() ReconnectPolicy {
	if p.MaxAttempts < 0 {
		p.MaxAttempts = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultReconnectBaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultReconnectMaxDelay
	}
	return p
}

// Delay returns min(BaseDelay * 2^attempt, MaxDelay).
func (p ReconnectPolicy) Delay(attempt int) time.Duration {
	p = p.withDefaults()
	delay := p.BaseDelay
	for i := 0; i < attempt; i++ {
		if delay > p.MaxDelay/2 {
			return p.MaxDelay
		}
		delay *= 2
	}
	return min(delay, p.MaxDelay)
}

type connInputKind int

const (
	inputDial connInputKind = iota
	inputOpen
	inputClose
	inputDisconnect
)

type connInput struct {
	kind   connInputKind
	reason domain.CloseReason
}

type connActionKind int

const (
	actionNone connActionKind = iota
	actionScheduleReconnect
	actionGiveUp
)

type connAction struct {
	kind  connActionKind
	delay time.Duration
}

type connMachine struct {
	State   domain.ConnState
	Attempt int
	Reason  domain.CloseReason
}

// advance is the only place connection state changes.
func advance(m connMachine, in connInput, policy ReconnectPolicy) (connMachine, connAction) {
	policy = policy.withDefaults()

	switch in.kind {
	case inputDial:
		m.State = domain.ConnConnecting
		m.Reason = domain.CloseReasonNone
		return m, connAction{}

	case inputOpen:
		return connMachine{State: domain.ConnOpen}, connAction{}

	case inputDisconnect:
		m.State = domain.ConnClosed
		m.Reason = domain.CloseReasonDisconnected
		return m, connAction{}

	case inputClose:
		switch m.State {
		case domain.ConnConnecting, domain.ConnOpen:
		default:
			// Closes after a deliberate disconnect or give-up are not failures.
			return m, connAction{}
		}

		m.Reason = in.reason
		if m.Attempt >= policy.MaxAttempts {
			m.State = domain.ConnGivenUp
			return m, connAction{kind: actionGiveUp}
		}

		m.Attempt++
		m.State = domain.ConnReconnecting
		return m, connAction{kind: actionScheduleReconnect, delay: policy.Delay(m.Attempt)}
	}

	return m, connAction{}
}

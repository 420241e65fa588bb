package application

import (
	"testing"
	"time"

	"github.com/bnema/incident-cli/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestReconnectPolicyDelaySequence(t *testing.T) {
	t.Parallel()

	policy := DefaultReconnectPolicy()
	for n := 1; n <= 8; n++ {
		want := min(time.Second*time.Duration(1<<n), 30*time.Second)
		assert.Equal(t, want, policy.Delay(n), "attempt %d", n)
	}
}

func TestReconnectPolicyDelayDoesNotOverflow(t *testing.T) {
	t.Parallel()

	policy := ReconnectPolicy{MaxAttempts: 100, BaseDelay: time.Second, MaxDelay: time.Hour}
	assert.Equal(t, time.Hour, policy.Delay(200))
	assert.Equal(t, time.Second, policy.Delay(0))
}

func TestAdvanceSchedulesUntilMaxAttemptsThenGivesUp(t *testing.T) {
	t.Parallel()

	policy := DefaultReconnectPolicy()
	m, _ := advance(connMachine{}, connInput{kind: inputDial}, policy)
	assert.Equal(t, domain.ConnConnecting, m.State)

	var delays []time.Duration
	for i := 0; i < policy.MaxAttempts; i++ {
		var action connAction
		m, action = advance(m, connInput{kind: inputClose, reason: domain.CloseReasonTransport}, policy)
		assert.Equal(t, actionScheduleReconnect, action.kind)
		assert.Equal(t, domain.ConnReconnecting, m.State)
		delays = append(delays, action.delay)

		m, _ = advance(m, connInput{kind: inputDial}, policy)
	}

	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second, 30 * time.Second}, delays)

	m, action := advance(m, connInput{kind: inputClose, reason: domain.CloseReasonDialFailed}, policy)
	assert.Equal(t, actionGiveUp, action.kind)
	assert.Equal(t, domain.ConnGivenUp, m.State)
	assert.Equal(t, domain.CloseReasonDialFailed, m.Reason)

	_, action = advance(m, connInput{kind: inputClose, reason: domain.CloseReasonTransport}, policy)
	assert.Equal(t, actionNone, action.kind)
}

func TestAdvanceOpenResetsAttempts(t *testing.T) {
	t.Parallel()

	policy := DefaultReconnectPolicy()
	m := connMachine{State: domain.ConnConnecting, Attempt: 3}

	m, action := advance(m, connInput{kind: inputOpen}, policy)
	assert.Equal(t, actionNone, action.kind)
	assert.Equal(t, connMachine{State: domain.ConnOpen}, m)

	m, action = advance(m, connInput{kind: inputClose, reason: domain.CloseReasonTransport}, policy)
	assert.Equal(t, 1, m.Attempt)
	assert.Equal(t, 2*time.Second, action.delay)
}

func TestAdvanceIgnoresCloseAfterDisconnect(t *testing.T) {
	t.Parallel()

	policy := DefaultReconnectPolicy()
	m, _ := advance(connMachine{State: domain.ConnOpen}, connInput{kind: inputDisconnect}, policy)
	assert.Equal(t, domain.ConnClosed, m.State)
	assert.Equal(t, domain.CloseReasonDisconnected, m.Reason)

	m, action := advance(m, connInput{kind: inputClose, reason: domain.CloseReasonTransport}, policy)
	assert.Equal(t, actionNone, action.kind)
	assert.Equal(t, domain.ConnClosed, m.State)
}

func TestAdvanceZeroMaxAttemptsGivesUpOnFirstClose(t *testing.T) {
	t.Parallel()

	policy := ReconnectPolicy{MaxAttempts: 0, BaseDelay: time.Second, MaxDelay: time.Minute}
	m, action := advance(connMachine{State: domain.ConnOpen}, connInput{kind: inputClose, reason: domain.CloseReasonTransport}, policy)
	assert.Equal(t, actionGiveUp, action.kind)
	assert.Equal(t, domain.ConnGivenUp, m.State)
}

package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidIndicator     = errors.New("invalid indicator")
	ErrNoActiveSession      = errors.New("no active session")
	ErrCorruptSession       = errors.New("corrupt session record")
	ErrReconnectExhausted   = errors.New("reconnect attempts exhausted")
	ErrPollFailuresExceeded = errors.New("too many consecutive status fetch failures")
	ErrIncidentIDRequired   = errors.New("incident id is required")
)

// TransportError reports that the push channel could not be opened.
type TransportError struct {
	IncidentID IncidentID
	Err        error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("open channel for incident %s: %v", e.IncidentID, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// APIError carries the HTTP status of a failed REST call.
type APIError struct {
	Op         string
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s: api error: %d", e.Op, e.StatusCode)
	if e.Status != "" {
		msg = fmt.Sprintf("%s: api error: %s", e.Op, e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

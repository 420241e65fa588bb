package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EventKind selects the listener table entry for a frame. Matching is exact and
// case-sensitive.
type EventKind string

const (
	EventAgentPhase    EventKind = "agent_phase"
	EventContextUpdate EventKind = "context_update"
	EventNetworkUpdate EventKind = "network_update"
)

var errEmptyPayload = errors.New("event payload is empty")

type Event struct {
	Kind    EventKind
	Payload json.RawMessage
}

type PhasePayload struct {
	Phase     string          `json:"phase"`
	Status    string          `json:"status"`
	Message   string          `json:"message"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

type ContextPayload struct {
	CasesFound int `json:"cases_found"`
	Patterns   int `json:"patterns"`
}

type NetworkPayload struct {
	Connections int `json:"connections"`
}

func (e Event) Phase() (PhasePayload, error) {
	var p PhasePayload
	return p, e.decode(EventAgentPhase, &p)
}

func (e Event) Context() (ContextPayload, error) {
	var p ContextPayload
	return p, e.decode(EventContextUpdate, &p)
}

func (e Event) Network() (NetworkPayload, error) {
	var p NetworkPayload
	return p, e.decode(EventNetworkUpdate, &p)
}

func (e Event) decode(want EventKind, into any) error {
	if e.Kind != want {
		return fmt.Errorf("decode %s payload from %s event", want, e.Kind)
	}
	if len(e.Payload) == 0 {
		return errEmptyPayload
	}
	if err := json.Unmarshal(e.Payload, into); err != nil {
		return fmt.Errorf("decode %s payload: %w", want, err)
	}
	return nil
}

type frame struct {
	Type    *string         `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ParseFrame decodes a `{type, payload}` wire frame. It reports false for
// anything that is not a JSON object with a string type.
func ParseFrame(data []byte) (Event, bool) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Event{}, false
	}
	if f.Type == nil || *f.Type == "" {
		return Event{}, false
	}

	return Event{Kind: EventKind(*f.Type), Payload: f.Payload}, true
}

package log

// Canonical field names for structured logging.
const (
	FieldComponent  = "component"
	FieldIncidentID = "incident_id"
	FieldStep       = "step"
	FieldEventKind  = "event_kind"
	FieldAttempt    = "attempt"
	FieldDelay      = "delay"
	FieldOldState   = "old_state"
	FieldNewState   = "new_state"
	FieldReason     = "reason"
	FieldMode       = "mode"
	FieldRequestID  = "request_id"
	FieldURL        = "url"
)

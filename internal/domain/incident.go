package domain

import "time"

type IncidentID string

type Step string

const (
	StepInput    Step = "screen1"
	StepAnalysis Step = "screen2"
	StepRisk     Step = "screen3"
	StepDispatch Step = "screen4"
	StepSummary  Step = "screen5"
)

var stepOrder = []Step{StepInput, StepAnalysis, StepRisk, StepDispatch, StepSummary}

func (s Step) Valid() bool {
	for _, step := range stepOrder {
		if s == step {
			return true
		}
	}
	return false
}

// Next returns the step that follows s, or false when s is the last step.
func (s Step) Next() (Step, bool) {
	for i, step := range stepOrder {
		if step == s && i+1 < len(stepOrder) {
			return stepOrder[i+1], true
		}
	}
	return "", false
}

const StatusComplete = "complete"

type Submission struct {
	IncidentID IncidentID `json:"incident_id"`
	Status     string     `json:"status"`
}

type StatusRecord struct {
	IncidentID      IncidentID      `json:"incident_id"`
	Status          string          `json:"status"`
	CreatedAt       Timestamp       `json:"created_at"`
	CompletedAt     Timestamp       `json:"completed_at"`
	RiskAssessment  RiskAssessment  `json:"risk_assessment"`
	PatternAnalysis PatternAnalysis `json:"pattern_analysis"`
	AlertDispatch   AlertDispatch   `json:"alert_dispatch"`
}

func (r StatusRecord) IsComplete() bool {
	return r.Status == StatusComplete
}

// ProcessingTime is zero when either bound is unknown.
func (r StatusRecord) ProcessingTime() time.Duration {
	if r.CreatedAt.IsZero() || r.CompletedAt.IsZero() || r.CompletedAt.Before(r.CreatedAt.Time) {
		return 0
	}
	return r.CompletedAt.Sub(r.CreatedAt.Time)
}

type RiskAssessment struct {
	Score          Number   `json:"score"`
	Classification string   `json:"classification"`
	Factors        []string `json:"factors"`
}

type PatternAnalysis struct {
	LinkedCases       Count `json:"linked_cases"`
	NetworkSize       Count `json:"network_size"`
	CasesSearched     Count `json:"cases_searched"`
	VictimsIdentified Count `json:"victims_identified"`
}

type AlertDispatch struct {
	Agencies []Agency `json:"agencies"`
}

type Agency struct {
	Name      string `json:"name"`
	SMSSent   bool   `json:"sms_sent"`
	EmailSent bool   `json:"email_sent"`
}

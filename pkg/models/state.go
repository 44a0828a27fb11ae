package models

import "time"

// SchemaVersion is the current version of the persisted state blob.
const SchemaVersion = 1

// QuotaState is the serializable request-budget ledger state.
// Invariants: RequestsToday <= daily quota, RequestsThisMonth <=
// monthly limit, SportsUpdatedToday holds at most one entry per sport
// per calendar day.
type QuotaState struct {
	DayKey             string   `json:"day_key"`   // e.g. "2026-08-29"
	MonthKey           string   `json:"month_key"` // e.g. "2026-08"
	RequestsToday      int      `json:"requests_today"`
	RequestsThisMonth  int      `json:"requests_this_month"`
	SportsUpdatedToday []string `json:"sports_updated_today"`
}

// GovernorMode is the emergency brake mode derived from the vendor's
// remaining-request telemetry.
type GovernorMode string

const (
	ModeNormal    GovernorMode = "normal"
	ModeEmergency GovernorMode = "emergency"
	ModeCritical  GovernorMode = "critical"
)

// EmergencyState is the serializable emergency governor state.
type EmergencyState struct {
	RemainingRequests int          `json:"remaining_requests"`
	UsedRequests      int          `json:"used_requests"`
	Mode              GovernorMode `json:"mode"`
	LastTransitionAt  time.Time    `json:"last_transition_at"`
	NextAllowedAt     time.Time    `json:"next_allowed_at"`
	CanMakeRequest    bool         `json:"can_make_request"`
}

// PersistedState is the single versioned blob loaded at startup and
// written after every state-mutating operation. A missing or
// unparsable blob is treated as fresh state, never as a fatal error.
type PersistedState struct {
	Quota         QuotaState     `json:"quota"`
	Emergency     EmergencyState `json:"emergency"`
	SchemaVersion int            `json:"schema_version"`
}

// FreshState returns an empty state blob at the current schema version.
func FreshState() *PersistedState {
	return &PersistedState{
		Emergency:     EmergencyState{Mode: ModeNormal, CanMakeRequest: true},
		SchemaVersion: SchemaVersion,
	}
}

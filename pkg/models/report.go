package models

import "time"

// OpCode classifies the outcome of an operator-visible operation.
type OpCode string

const (
	CodeOK             OpCode = "OK"
	CodeQuotaExhausted OpCode = "QUOTA_EXHAUSTED"
	CodeAlreadyUpdated OpCode = "ALREADY_UPDATED_TODAY"
	CodeUnauthorized   OpCode = "UNAUTHORIZED"
	CodeBusy           OpCode = "BUSY"
)

// RefreshReport is the decision-grade output of one refresh: the
// normalized matches plus the derived best prices and signals. It is
// what gets handed to the presentation layer.
type RefreshReport struct {
	SportKey      string                 `json:"sport_key"`
	FetchedAt     time.Time              `json:"fetched_at"`
	FromCache     bool                   `json:"from_cache"`
	Matches       []NormalizedMatch      `json:"matches"`
	Best          []BestOdds             `json:"best"`
	Opportunities []ArbitrageOpportunity `json:"opportunities"`
	NearMisses    []NearMiss             `json:"near_misses"`
	Dropped       int                    `json:"dropped"`
}

// SportStatus is one catalog entry's runtime view for the status
// snapshot.
type SportStatus struct {
	Key          string     `json:"key"`
	DisplayName  string     `json:"display_name"`
	Priority     int        `json:"priority"`
	Enabled      bool       `json:"enabled"`
	UpdatedToday bool       `json:"updated_today"`
	FailedToday  bool       `json:"failed_today"`
	NextAttempt  *time.Time `json:"next_attempt,omitempty"`
}

// QuotaStatus is the quota portion of the status snapshot.
type QuotaStatus struct {
	QuotaState
	DailyQuota     int `json:"daily_quota"`
	MonthlyLimit   int `json:"monthly_limit"`
	RemainingToday int `json:"remaining_today"`
}

// StatusSnapshot is a read-only view of the core's state, served by
// the operator interface. Readers never mutate through it.
type StatusSnapshot struct {
	Quota          QuotaStatus    `json:"quota"`
	Emergency      EmergencyState `json:"emergency"`
	Sports         []SportStatus  `json:"sports"`
	Halted         bool           `json:"halted"`
	InFlight       bool           `json:"in_flight"`
	DroppedMatches int64          `json:"dropped_matches"`
	GeneratedAt    time.Time      `json:"generated_at"`
}

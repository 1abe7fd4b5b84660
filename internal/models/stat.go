package models

import (
	"time"
)

// StatRecord is one monthly comment count. A nil Reference is the
// platform-wide total; otherwise it holds the author's user id.
type StatRecord struct {
	ID        int64     `json:"id" db:"id"`
	Month     int       `json:"month" db:"month"`
	Year      int       `json:"year" db:"year"`
	Count     int64     `json:"count" db:"count"`
	Reference *string   `json:"reference" db:"reference"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// StatFilter narrows a statistics listing
type StatFilter struct {
	Year      int     `form:"year"`
	Month     int     `form:"month"`
	Reference *string `form:"reference"`
	Global    bool    `form:"global"`
	Limit     int     `form:"limit"`
}

// RollupStatus represents the status of a rollup run
type RollupStatus string

const (
	RollupStatusRunning   RollupStatus = "running"
	RollupStatusCompleted RollupStatus = "completed"
	RollupStatusPartial   RollupStatus = "partial"
	RollupStatusFailed    RollupStatus = "failed"
)

// RollupRun records one execution of the monthly aggregation
type RollupRun struct {
	ID          string       `json:"run_id" db:"id"`
	Year        int          `json:"year" db:"year"`
	Month       int          `json:"month" db:"month"`
	WindowStart time.Time    `json:"window_start" db:"window_start"`
	WindowEnd   time.Time    `json:"window_end" db:"window_end"`
	Status      RollupStatus `json:"status" db:"status"`
	Tasks       int          `json:"tasks" db:"tasks"`
	Succeeded   int          `json:"succeeded" db:"succeeded"`
	Failed      int          `json:"failed" db:"failed"`
	DurationMs  int64        `json:"duration_ms,omitempty" db:"duration_ms"`
	StartedAt   time.Time    `json:"started_at" db:"started_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty" db:"completed_at"`
}

// RollupOutcome is the result of a single per-user (or global) task
type RollupOutcome struct {
	Reference *string `json:"reference"`
	Count     int64   `json:"count"`
	Error     string  `json:"error,omitempty"`
}

// Failed reports whether the task failed.
func (o RollupOutcome) Failed() bool {
	return o.Error != ""
}

// RollupReport is a finished run with every task outcome
type RollupReport struct {
	Run      RollupRun       `json:"run"`
	Outcomes []RollupOutcome `json:"outcomes"`
}

// RollupRequest asks for an on-demand run
type RollupRequest struct {
	Year  int `json:"year" validate:"required,min=2000,max=9999"`
	Month int `json:"month" validate:"required,min=1,max=12"`
}

// SchedulerSnapshot describes the monthly rollup scheduler
type SchedulerSnapshot struct {
	Enabled bool       `json:"enabled"`
	Running bool       `json:"running"`
	NextRun *time.Time `json:"next_run,omitempty"`
	LastRun *RollupRun `json:"last_run,omitempty"`
}

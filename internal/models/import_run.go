package models

import (
	"time"
)

// ImportRunStatus represents the status of a server-side import run
type ImportRunStatus string

const (
	ImportRunPending    ImportRunStatus = "pending"
	ImportRunProcessing ImportRunStatus = "processing"
	ImportRunCompleted  ImportRunStatus = "completed"
	ImportRunFailed     ImportRunStatus = "failed"
	ImportRunCancelled  ImportRunStatus = "cancelled"
)

// Finished reports whether the run reached a terminal status
func (s ImportRunStatus) Finished() bool {
	return s == ImportRunCompleted || s == ImportRunFailed || s == ImportRunCancelled
}

// ImportRun is a CSV upload processed by the backend
type ImportRun struct {
	ID             string          `json:"run_id" db:"id"`
	SellerID       string          `json:"seller_id" db:"seller_id"`
	Status         ImportRunStatus `json:"status" db:"status"`
	IdempotencyKey string          `json:"idempotency_key,omitempty" db:"idempotency_key"`
	FileName       string          `json:"file_name" db:"file_name"`
	FilePath       string          `json:"-" db:"file_path"`
	TotalRows      int             `json:"total_rows" db:"total_rows"`
	SkippedLines   int             `json:"skipped_lines" db:"skipped_lines"`
	SuccessCount   int             `json:"success_count" db:"success_count"`
	FailedCount    int             `json:"failed_count" db:"failed_count"`
	DurationMs     int64           `json:"duration_ms,omitempty" db:"duration_ms"`
	Message        string          `json:"message,omitempty" db:"message"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	StartedAt      *time.Time      `json:"started_at,omitempty" db:"started_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
}

// ImportRunResponse is the API response for run status
type ImportRunResponse struct {
	ImportRun
	Errors      []RowError `json:"errors,omitempty"`
	ErrorReport string     `json:"error_report_url,omitempty"`
}

// ImportRequest represents an import run request
type ImportRequest struct {
	SellerID       string `json:"seller_id" form:"seller_id"`
	FileName       string `json:"-"`
	IdempotencyKey string `json:"-"` // From header
}

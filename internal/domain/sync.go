package domain

const (
	SyncRunning             = "running"
	SyncCompleted           = "completed"
	SyncCompletedWithErrors = "completed_with_errors"
	SyncFailed              = "failed"
)

// SyncRun is one fetch, transform and store pass. Closed rows are never rewritten.
type SyncRun struct {
	ID              int64   `db:"id" json:"id"`
	SyncType        string  `db:"sync_type" json:"sync_type"`
	Strategy        string  `db:"strategy" json:"strategy"`
	Status          string  `db:"status" json:"status"`
	Processed       int     `db:"products_processed" json:"products_processed"`
	Added           int     `db:"products_added" json:"products_added"`
	Updated         int     `db:"products_updated" json:"products_updated"`
	Errors          int     `db:"error_count" json:"errors"`
	ErrorSummary    string  `db:"error_summary" json:"error_summary,omitempty"`
	Filters         string  `db:"filters" json:"filters,omitempty"`
	StartTime       string  `db:"start_time" json:"start_time"`
	EndTime         string  `db:"end_time" json:"end_time,omitempty"`
	DurationSeconds float64 `db:"duration_seconds" json:"duration_seconds"`
}

func (r SyncRun) Closed() bool { return r.Status != SyncRunning }

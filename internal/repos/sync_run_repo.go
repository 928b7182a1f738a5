package repos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"b2bcatalog/internal/domain"
)

const syncRunCols = `
    id, sync_type, strategy, status, products_processed, products_added, products_updated,
    error_count, error_summary, filters, start_time, COALESCE(end_time,'') AS end_time, duration_seconds`

type SyncRunRepo struct{ db *sqlx.DB }

func NewSyncRunRepo(db *sqlx.DB) *SyncRunRepo { return &SyncRunRepo{db: db} }

// Open records a run in the running state and returns its id.
func (r *SyncRunRepo) Open(ctx context.Context, syncType, strategy, filters string, start time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_runs(sync_type, strategy, status, filters, start_time)
		VALUES (?, ?, 'running', ?, ?)`, syncType, strategy, filters, stamp(start))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Close writes the terminal state. Only a running row can be closed, so a
// closed run is never rewritten.
func (r *SyncRunRepo) Close(ctx context.Context, run domain.SyncRun) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sync_runs SET
		  status = ?, products_processed = ?, products_added = ?, products_updated = ?,
		  error_count = ?, error_summary = ?, end_time = ?, duration_seconds = ?
		WHERE id = ? AND status = 'running'`,
		run.Status, run.Processed, run.Added, run.Updated,
		run.Errors, run.ErrorSummary, run.EndTime, run.DurationSeconds, run.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *SyncRunRepo) Get(ctx context.Context, id int64) (domain.SyncRun, error) {
	var run domain.SyncRun
	err := r.db.GetContext(ctx, &run, `SELECT`+syncRunCols+` FROM sync_runs WHERE id = ?`, id)
	return run, notFound(err)
}

func (r *SyncRunRepo) Latest(ctx context.Context, limit int) ([]domain.SyncRun, error) {
	if limit <= 0 {
		limit = 10
	}
	out := []domain.SyncRun{}
	err := r.db.SelectContext(ctx, &out, `SELECT`+syncRunCols+` FROM sync_runs ORDER BY start_time DESC, id DESC LIMIT ?`, limit)
	return out, err
}

// FailRunning closes every run still marked running, as left behind by a
// process that died mid-sync.
func (r *SyncRunRepo) FailRunning(ctx context.Context, reason string, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sync_runs SET
		  status = 'failed', error_summary = ?, end_time = ?,
		  duration_seconds = MAX(0, (julianday(?) - julianday(start_time)) * 86400.0)
		WHERE status = 'running'`, reason, stamp(now), stamp(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

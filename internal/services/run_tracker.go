package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"b2bcatalog/internal/domain"
	applog "b2bcatalog/internal/log"
	"b2bcatalog/internal/metrics"
	"b2bcatalog/internal/repos"
)

const maxSummaryErrors = 10

var ErrRunClosed = errors.New("sync run already closed")

// Tally accumulates the counts of one run.
type Tally struct {
	Processed int
	Added     int
	Updated   int
	errCount  int
	errs      []string
}

// Fail counts one per-record or per-page error. Only the first few
// messages are kept for the summary.
func (t *Tally) Fail(err error) {
	t.errCount++
	if len(t.errs) < maxSummaryErrors {
		t.errs = append(t.errs, err.Error())
	}
}

func (t *Tally) Errors() int { return t.errCount }

// Run is an open sync run. Finish must be called exactly once.
type Run struct {
	ID       int64
	SyncType string
	Strategy string
	Start    time.Time
	closed   atomic.Bool
}

type RunTracker struct {
	Runs *repos.SyncRunRepo
	Now  func() time.Time
}

func NewRunTracker(runs *repos.SyncRunRepo) *RunTracker {
	return &RunTracker{Runs: runs, Now: time.Now}
}

// Start records a running row before any supplier call is made.
func (t *RunTracker) Start(ctx context.Context, syncType, strategy string, filters any) (*Run, error) {
	f := ""
	if filters != nil {
		b, err := json.Marshal(filters)
		if err != nil {
			return nil, err
		}
		f = string(b)
	}
	start := t.Now()
	id, err := t.Runs.Open(ctx, syncType, strategy, f, start)
	if err != nil {
		return nil, fmt.Errorf("open sync run: %w", err)
	}
	applog.Info(nil, "sync.run.start", map[string]any{"run_id": id, "strategy": strategy, "filters": f})
	return &Run{ID: id, SyncType: syncType, Strategy: strategy, Start: start}, nil
}

// Finish closes run with a terminal status derived from runErr and the
// tally: failed when runErr is set, completed_with_errors when anything was
// skipped, completed otherwise.
func (t *RunTracker) Finish(ctx context.Context, run *Run, tally Tally, runErr error) (domain.SyncRun, error) {
	if !run.closed.CompareAndSwap(false, true) {
		return domain.SyncRun{}, ErrRunClosed
	}
	end := t.Now()
	if end.Before(run.Start) {
		end = run.Start
	}
	status := domain.SyncCompleted
	switch {
	case runErr != nil:
		status = domain.SyncFailed
	case tally.errCount > 0:
		status = domain.SyncCompletedWithErrors
	}
	errCount := tally.errCount
	if runErr != nil {
		errCount++
	}
	out := domain.SyncRun{
		ID:              run.ID,
		SyncType:        run.SyncType,
		Strategy:        run.Strategy,
		Status:          status,
		Processed:       tally.Processed,
		Added:           tally.Added,
		Updated:         tally.Updated,
		Errors:          errCount,
		ErrorSummary:    summarize(runErr, tally),
		StartTime:       run.Start.UTC().Format(domain.TimeLayout),
		EndTime:         end.UTC().Format(domain.TimeLayout),
		DurationSeconds: end.Sub(run.Start).Seconds(),
	}
	if err := t.Runs.Close(ctx, out); err != nil {
		applog.Error(nil, "sync.run.close", err, map[string]any{"run_id": run.ID})
		return out, fmt.Errorf("close sync run %d: %w", run.ID, err)
	}
	metrics.RecordSync(run.Strategy, status, out.Added, out.Updated, out.Errors, end.Sub(run.Start), end)

	fields := map[string]any{
		"run_id": run.ID, "status": status, "processed": out.Processed, "added": out.Added,
		"updated": out.Updated, "errors": out.Errors, "duration_s": out.DurationSeconds,
	}
	if runErr != nil {
		applog.Error(nil, "sync.run.finish", runErr, fields)
	} else {
		applog.Info(nil, "sync.run.finish", fields)
	}
	return out, nil
}

// RecoverInterrupted fails runs left running by a previous process.
func (t *RunTracker) RecoverInterrupted(ctx context.Context) (int64, error) {
	n, err := t.Runs.FailRunning(ctx, "interrupted: process stopped before the run finished", t.Now())
	if err == nil && n > 0 {
		applog.Warn(nil, "sync.run.recover", nil, map[string]any{"closed": n})
	}
	return n, err
}

func (t *RunTracker) History(ctx context.Context, limit int) ([]domain.SyncRun, error) {
	return t.Runs.Latest(ctx, limit)
}

func (t *RunTracker) Get(ctx context.Context, id int64) (domain.SyncRun, error) {
	return t.Runs.Get(ctx, id)
}

func summarize(runErr error, tally Tally) string {
	var parts []string
	if runErr != nil {
		parts = append(parts, runErr.Error())
	}
	parts = append(parts, tally.errs...)
	if extra := tally.errCount - len(tally.errs); extra > 0 {
		parts = append(parts, fmt.Sprintf("and %d more", extra))
	}
	return strings.Join(parts, "; ")
}

// Package jobs runs background work stored in the jobs table.
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/garnizeh/clipmarket/internal/models"
)

const (
	StatusQueued  = "queued"
	StatusRunning = "running"
	StatusRetry   = "retry"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Queue persists jobs. FetchNext must claim the job it returns so that no
// other worker receives it.
type Queue interface {
	Enqueue(ctx context.Context, j *models.BackgroundJob) (int64, error)
	FetchNext(ctx context.Context) (*models.BackgroundJob, error)
	UpdateJob(ctx context.Context, j *models.BackgroundJob) error
	MoveToDeadLetter(ctx context.Context, j *models.BackgroundJob) error
}

// Handler processes one job.
type Handler func(ctx context.Context, j *models.BackgroundJob) error

// ErrPermanent marks a failure that retrying cannot fix. Handlers wrap it to
// send a job straight to the dead letter table.
var ErrPermanent = errors.New("permanent job failure")

// BackoffDuration returns exponential backoff duration for attempt n
func BackoffDuration(attempt int) time.Duration {
	if attempt <= 0 {
		return time.Second
	}
	if attempt > 9 {
		return 5 * time.Minute
	}
	// 2^attempt seconds, capped
	return min(time.Duration(1<<uint(attempt))*time.Second, 5*time.Minute)
}

package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/garnizeh/clipmarket/internal/metrics"
	"github.com/garnizeh/clipmarket/internal/models"
)

type WorkerPool struct {
	queue       Queue
	handlers    map[string]Handler
	logger      *slog.Logger
	workerCount int
	idle        time.Duration
	backoff     func(attempt int) time.Duration
	stop        chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

type Option func(*WorkerPool)

// WithPollInterval sets how long an idle worker waits before polling again.
func WithPollInterval(d time.Duration) Option {
	return func(p *WorkerPool) { p.idle = d }
}

// WithBackoff replaces BackoffDuration.
func WithBackoff(fn func(attempt int) time.Duration) Option {
	return func(p *WorkerPool) { p.backoff = fn }
}

func NewWorkerPool(queue Queue, handlers map[string]Handler, logger *slog.Logger, workerCount int, opts ...Option) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &WorkerPool{
		queue:       queue,
		handlers:    handlers,
		logger:      logger,
		workerCount: workerCount,
		idle:        500 * time.Millisecond,
		backoff:     BackoffDuration,
		stop:        make(chan struct{}),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Start launches the worker goroutines
func (p *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop signals workers to stop and waits for them. It is safe to call more
// than once.
func (p *WorkerPool) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	p.wg.Wait()
}

// wait pauses for d and reports false when the pool is shutting down.
func (p *WorkerPool) wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-p.stop:
		return false
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop:
			p.logger.Info("worker stopping", slog.Int("id", id))
			return
		case <-ctx.Done():
			p.logger.Info("context canceled, worker exiting", slog.Int("id", id))
			return
		default:
		}

		job, err := p.queue.FetchNext(ctx)
		if err != nil {
			if ctx.Err() == nil {
				p.logger.Error("fetch job", slog.Any("err", err))
			}
			if !p.wait(ctx, time.Second) {
				return
			}
			continue
		}
		if job == nil {
			if !p.wait(ctx, p.idle) {
				return
			}
			continue
		}

		p.process(ctx, job)
	}
}

func (p *WorkerPool) process(ctx context.Context, job *models.BackgroundJob) {
	log := p.logger.With(slog.Int64("job_id", job.ID), slog.String("type", job.Type))

	h, ok := p.handlers[job.Type]
	if !ok {
		job.Status = StatusFailed
		job.LastError = "no handler"
		p.deadLetter(ctx, log, job)
		return
	}

	err := p.run(ctx, h, job)
	if err == nil {
		job.Status = StatusDone
		if upErr := p.queue.UpdateJob(ctx, job); upErr != nil {
			log.Error("mark job done", slog.Any("err", upErr))
		}
		metrics.JobProcessed(job.Type, StatusDone)
		return
	}

	job.Attempts++
	job.LastError = err.Error()
	if errors.Is(err, ErrPermanent) || job.Attempts >= job.MaxAttempts {
		job.Status = StatusFailed
		p.deadLetter(ctx, log, job)
		return
	}

	// schedule retry with backoff
	t := time.Now().Add(p.backoff(job.Attempts))
	job.NextTryAt = &t
	job.Status = StatusRetry
	if upErr := p.queue.UpdateJob(ctx, job); upErr != nil {
		log.Error("update job for retry", slog.Any("err", upErr))
	}
	log.Warn("job failed, will retry", slog.Int("attempts", job.Attempts), slog.Any("err", err))
	metrics.JobProcessed(job.Type, StatusRetry)
}

// run calls h and turns a panic into an error so one bad job cannot take the
// worker down.
func (p *WorkerPool) run(ctx context.Context, h Handler, job *models.BackgroundJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, job)
}

func (p *WorkerPool) deadLetter(ctx context.Context, log *slog.Logger, job *models.BackgroundJob) {
	if err := p.queue.MoveToDeadLetter(ctx, job); err != nil {
		log.Error("move to dead letter", slog.Any("err", err))
	}
	log.Error("job given up", slog.Int("attempts", job.Attempts), slog.String("last_error", job.LastError))
	metrics.JobProcessed(job.Type, StatusFailed)
}

// Enqueue convenience helper that creates a job and persists it
func (p *WorkerPool) Enqueue(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (int64, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	j := &models.BackgroundJob{Type: typ, Payload: b, Priority: priority, MaxAttempts: maxAttempts, ScheduledAt: time.Now()}
	return p.queue.Enqueue(ctx, j)
}

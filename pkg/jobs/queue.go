package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const maxBackoff = time.Minute

var (
	// ErrQueueFull is returned by TryEnqueue when the buffer has no room.
	ErrQueueFull = errors.New("jobs: queue full")
	// ErrQueueClosed is returned once Stop has been called, or before Start.
	ErrQueueClosed = errors.New("jobs: queue not accepting work")
)

// Job is one unit of background work.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job. A non-nil error schedules a retry.
type Handler func(context.Context, Job) error

// QueueConfig configures the worker pool.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
	// OnGiveUp is called once per job that exhausted its retries or was
	// still pending when Stop ran out of time.
	OnGiveUp func(Job, error)
}

// Queue runs jobs on a fixed set of goroutines. A worker retries its own job
// with exponential backoff, so retries never jump ahead of newer work. Stop
// closes intake and drains what is already buffered.
type Queue struct {
	name    string
	handler Handler
	cfg     QueueConfig
	log     *zap.SugaredLogger

	jobs chan Job
	wg   sync.WaitGroup

	mu      sync.RWMutex
	open    bool
	stopped bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewQueue builds a queue; workers only run after Start.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Queue{
		name:    name,
		handler: handler,
		cfg:     cfg,
		log:     cfg.Logger.Sugar().With("queue", name),
		jobs:    make(chan Job, cfg.BufferSize),
	}
}

// Start launches the workers. Later calls are ignored.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.open || q.stopped {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	q.open = true
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.run()
	}
	q.log.Infow("queue started", "workers", q.cfg.Workers)
}

// Stop refuses new jobs and waits for buffered ones to finish. When ctx
// expires first, in-flight handlers and backoff waits are cancelled and the
// remaining jobs are handed to OnGiveUp.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.open {
		q.mu.Unlock()
		return nil
	}
	q.open = false
	q.stopped = true
	close(q.jobs)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = fmt.Errorf("queue %s drain: %w", q.name, ctx.Err())
		q.cancel()
		<-done
	}
	q.cancel()
	q.log.Infow("queue stopped", "error", err)
	return err
}

// Enqueue waits for buffer space until ctx is done.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	return q.push(ctx, job, true)
}

// TryEnqueue adds a job only if the buffer has room right now.
func (q *Queue) TryEnqueue(job Job) error {
	return q.push(context.Background(), job, false)
}

func (q *Queue) push(ctx context.Context, job Job, wait bool) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.open {
		return ErrQueueClosed
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}
	if !wait {
		select {
		case q.jobs <- job:
			return nil
		default:
			return ErrQueueFull
		}
	}
	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) run() {
	defer q.wg.Done()
	for job := range q.jobs {
		q.process(job)
	}
}

func (q *Queue) process(job Job) {
	for {
		if q.ctx.Err() != nil {
			q.giveUp(job, q.ctx.Err())
			return
		}
		err := q.handler(q.ctx, job)
		if err == nil {
			return
		}
		job.Attempt++
		if job.Attempt > q.cfg.MaxRetries {
			q.log.Errorw("job exceeded retries", "job_id", job.ID, "type", job.Type, "error", err)
			q.giveUp(job, err)
			return
		}
		delay := q.backoff(job.Attempt)
		q.log.Warnw("job failed, retrying", "job_id", job.ID, "type", job.Type, "attempt", job.Attempt, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-q.ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}
}

func (q *Queue) giveUp(job Job, err error) {
	if q.cfg.OnGiveUp != nil {
		q.cfg.OnGiveUp(job, err)
	}
}

func (q *Queue) backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := q.cfg.RetryDelay << uint(attempt-1)
	if delay <= 0 || delay > maxBackoff {
		return maxBackoff
	}
	return delay
}

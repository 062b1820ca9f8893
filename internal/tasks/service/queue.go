package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/railzwaylabs/partnerops/internal/config"
	"github.com/railzwaylabs/partnerops/internal/observability"
	"github.com/railzwaylabs/partnerops/internal/tasks/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Cfg     config.Config
	Repo    domain.Repository
	Metrics *observability.Metrics `optional:"true"`
}

// Queue runs side effects on a fixed pool of workers fed by a bounded channel.
// Enqueue never waits for capacity; a full queue is reported and recorded as
// a failure instead.
type Queue struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    domain.Repository
	metrics *observability.Metrics

	workers     int
	maxAttempts int
	backoff     time.Duration

	mu       sync.RWMutex
	handlers map[string]domain.Handler
	queue    chan domain.Task
	started  bool
	stopped  bool

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewQueue(p Params) *Queue {
	metrics := p.Metrics
	if metrics == nil {
		metrics = observability.NewNopMetrics()
	}

	workers := p.Cfg.Tasks.Workers
	if workers <= 0 {
		workers = 1
	}
	size := p.Cfg.Tasks.QueueSize
	if size <= 0 {
		size = 1
	}
	attempts := p.Cfg.Tasks.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	return &Queue{
		db:          p.DB,
		log:         p.Log.Named("tasks.queue"),
		repo:        p.Repo,
		metrics:     metrics,
		workers:     workers,
		maxAttempts: attempts,
		backoff:     p.Cfg.Tasks.Backoff,
		handlers:    make(map[string]domain.Handler),
		queue:       make(chan domain.Task, size),
	}
}

// Register binds a handler to a task type. Registering twice replaces the
// previous handler.
func (q *Queue) Register(taskType string, h domain.Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[taskType] = h
}

func (q *Queue) Enqueue(ctx context.Context, taskType string, payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", errors.Join(domain.ErrInvalidPayload, err)
	}
	task := domain.Task{
		ID:      ulid.Make().String(),
		Type:    taskType,
		Payload: raw,
	}

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.stopped {
		return "", domain.ErrQueueStopped
	}
	if _, ok := q.handlers[taskType]; !ok {
		return "", domain.ErrUnknownTaskType
	}

	select {
	case q.queue <- task:
		q.log.Debug("task enqueued", zap.String("task_id", task.ID), zap.String("task_type", task.Type))
		return task.ID, nil
	default:
		q.recordFailure(ctx, task, domain.ErrQueueFull)
		return task.ID, domain.ErrQueueFull
	}
}

// Start launches the workers. They outlive ctx and stop only through Stop.
func (q *Queue) Start(context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return nil
	}
	q.started = true

	runCtx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(runCtx)
	}
	q.log.Info("task queue started", zap.Int("workers", q.workers), zap.Int("capacity", cap(q.queue)))
	return nil
}

// Stop refuses new work and drains what is already queued. If ctx expires
// first, in-flight handlers are cancelled.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return nil
	}
	q.stopped = true
	close(q.queue)
	cancel := q.cancel
	q.mu.Unlock()

	if cancel == nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		cancel()
		q.log.Info("task queue drained")
		return nil
	case <-ctx.Done():
		cancel()
		<-done
		q.log.Warn("task queue stopped before drain completed")
		return ctx.Err()
	}
}

func (q *Queue) ListFailures(ctx context.Context, taskType string, limit int) ([]domain.Failure, error) {
	return q.repo.ListFailures(ctx, q.db, taskType, limit)
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for task := range q.queue {
		q.process(ctx, task)
	}
}

func (q *Queue) process(ctx context.Context, task domain.Task) {
	q.mu.RLock()
	h := q.handlers[task.Type]
	q.mu.RUnlock()

	log := q.log.With(zap.String("task_id", task.ID), zap.String("task_type", task.Type))

	for attempt := 1; attempt <= q.maxAttempts; attempt++ {
		task.Attempt = attempt
		err := q.run(ctx, h, task)
		if err == nil {
			log.Debug("task completed", zap.Int("attempt", attempt))
			return
		}

		q.recordFailure(ctx, task, err)
		if attempt == q.maxAttempts || errors.Is(err, domain.ErrPermanent) {
			log.Error("task abandoned", zap.Int("attempt", attempt), zap.Error(err))
			return
		}

		wait := q.backoff * time.Duration(attempt)
		log.Warn("task failed, retrying", zap.Int("attempt", attempt), zap.Duration("backoff", wait), zap.Error(err))
		if wait <= 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (q *Queue) run(ctx context.Context, h domain.Handler, task domain.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return h(ctx, task)
}

func (q *Queue) recordFailure(ctx context.Context, task domain.Task, cause error) {
	q.metrics.TaskFailures.WithLabelValues(task.Type).Inc()

	failure := &domain.Failure{
		ID:       ulid.Make().String(),
		TaskID:   task.ID,
		TaskType: task.Type,
		Payload:  datatypes.JSON(task.Payload),
		Error:    cause.Error(),
		Attempt:  task.Attempt,
		FailedAt: time.Now().UTC(),
	}
	if err := q.repo.InsertFailure(context.WithoutCancel(ctx), q.db, failure); err != nil {
		q.log.Error("failed to record task failure",
			zap.String("task_id", task.ID),
			zap.String("task_type", task.Type),
			zap.NamedError("cause", cause),
			zap.Error(err))
	}
}

var (
	_ domain.Enqueuer   = (*Queue)(nil)
	_ domain.FailureLog = (*Queue)(nil)
)

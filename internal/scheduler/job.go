package scheduler

import (
	"time"

	"go.uber.org/zap"
)

type jobRun struct {
	name      string
	startedAt time.Time
	processed int
	failed    int
}

func (r *jobRun) AddProcessed(n int) {
	r.processed += n
}

func (s *Scheduler) startJob(name string) *jobRun {
	run := &jobRun{name: name, startedAt: time.Now()}
	s.log.Info("scheduler job started", zap.String("job", name))
	return run
}

func (s *Scheduler) finishJob(run *jobRun) {
	s.log.Info("scheduler job finished",
		zap.String("job", run.name),
		zap.Int("processed", run.processed),
		zap.Int("failed", run.failed),
		zap.Duration("elapsed", time.Since(run.startedAt)),
	)
}

func (s *Scheduler) logJobError(run *jobRun, err error, fields ...zap.Field) {
	run.failed++
	fields = append([]zap.Field{zap.String("job", run.name), zap.Error(err)}, fields...)
	s.log.Error("scheduler job failed", fields...)
}

package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/railzwaylabs/partnerops/internal/config"
	"github.com/railzwaylabs/partnerops/internal/tasks/domain"
	"github.com/railzwaylabs/partnerops/internal/tasks/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestQueue(t *testing.T, tasks config.TaskConfig) (*Queue, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Failure{}))

	q := NewQueue(Params{
		DB:   db,
		Log:  zap.NewNop(),
		Cfg:  config.Config{Tasks: tasks},
		Repo: repository.Provide(),
	})
	return q, db
}

func stop(t *testing.T, q *Queue) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, q.Stop(ctx))
}

func failures(t *testing.T, db *gorm.DB) []domain.Failure {
	t.Helper()
	var items []domain.Failure
	require.NoError(t, db.Order("attempt ASC").Find(&items).Error)
	return items
}

func TestQueueRunsTask(t *testing.T) {
	q, db := newTestQueue(t, config.TaskConfig{Workers: 2, QueueSize: 4, MaxAttempts: 3})

	got := make(chan domain.SubscribePayload, 1)
	q.Register(domain.TypeSubscribe, func(ctx context.Context, task domain.Task) error {
		var payload domain.SubscribePayload
		if err := task.Decode(&payload); err != nil {
			return err
		}
		got <- payload
		return nil
	})
	require.NoError(t, q.Start(context.Background()))

	id, err := q.Enqueue(context.Background(), domain.TypeSubscribe, domain.SubscribePayload{Email: "ana@example.com"})
	require.NoError(t, err)
	assert.Len(t, id, 26)

	select {
	case payload := <-got:
		assert.Equal(t, "ana@example.com", payload.Email)
	case <-time.After(5 * time.Second):
		t.Fatal("task was not executed")
	}

	stop(t, q)
	assert.Empty(t, failures(t, db))
}

func TestQueueRetriesAndRecordsFailures(t *testing.T) {
	q, db := newTestQueue(t, config.TaskConfig{Workers: 1, QueueSize: 4, MaxAttempts: 3})

	var attempts atomic.Int32
	q.Register(domain.TypeCreateAffiliate, func(ctx context.Context, task domain.Task) error {
		if attempts.Add(1) < 3 {
			return errors.New("upstream unavailable")
		}
		return nil
	})
	require.NoError(t, q.Start(context.Background()))

	taskID, err := q.Enqueue(context.Background(), domain.TypeCreateAffiliate, domain.CreateAffiliatePayload{Email: "a@b.c"})
	require.NoError(t, err)
	stop(t, q)

	assert.Equal(t, int32(3), attempts.Load())
	items := failures(t, db)
	require.Len(t, items, 2)
	assert.Equal(t, taskID, items[0].TaskID)
	assert.Equal(t, 1, items[0].Attempt)
	assert.Equal(t, 2, items[1].Attempt)
	assert.Equal(t, "upstream unavailable", items[1].Error)
	assert.JSONEq(t, `{"email":"a@b.c","first_name":"","last_name":"","source":""}`, string(items[0].Payload))

	listed, err := q.ListFailures(context.Background(), domain.TypeCreateAffiliate, 10)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestQueueGivesUpAfterMaxAttempts(t *testing.T) {
	q, db := newTestQueue(t, config.TaskConfig{Workers: 1, QueueSize: 4, MaxAttempts: 2})

	var attempts atomic.Int32
	q.Register(domain.TypeSubscribe, func(ctx context.Context, task domain.Task) error {
		attempts.Add(1)
		return errors.New("always failing")
	})
	require.NoError(t, q.Start(context.Background()))

	_, err := q.Enqueue(context.Background(), domain.TypeSubscribe, domain.SubscribePayload{Email: "a@b.c"})
	require.NoError(t, err)
	stop(t, q)

	assert.Equal(t, int32(2), attempts.Load())
	assert.Len(t, failures(t, db), 2)
}

func TestQueueDoesNotRetryPermanentFailures(t *testing.T) {
	q, db := newTestQueue(t, config.TaskConfig{Workers: 1, QueueSize: 4, MaxAttempts: 5})

	var attempts atomic.Int32
	q.Register(domain.TypeSubscribe, func(ctx context.Context, task domain.Task) error {
		attempts.Add(1)
		return domain.Permanent(errors.New("bad address"))
	})
	require.NoError(t, q.Start(context.Background()))

	_, err := q.Enqueue(context.Background(), domain.TypeSubscribe, domain.SubscribePayload{})
	require.NoError(t, err)
	stop(t, q)

	assert.Equal(t, int32(1), attempts.Load())
	assert.Len(t, failures(t, db), 1)
}

func TestQueueRecoversPanics(t *testing.T) {
	q, db := newTestQueue(t, config.TaskConfig{Workers: 1, QueueSize: 4, MaxAttempts: 1})

	q.Register(domain.TypeSubscribe, func(ctx context.Context, task domain.Task) error {
		panic("nil map")
	})
	require.NoError(t, q.Start(context.Background()))

	_, err := q.Enqueue(context.Background(), domain.TypeSubscribe, domain.SubscribePayload{})
	require.NoError(t, err)
	stop(t, q)

	items := failures(t, db)
	require.Len(t, items, 1)
	assert.Contains(t, items[0].Error, "nil map")
}

func TestEnqueueNeverBlocks(t *testing.T) {
	q, db := newTestQueue(t, config.TaskConfig{Workers: 1, QueueSize: 1, MaxAttempts: 1})
	q.Register(domain.TypeSubscribe, func(ctx context.Context, task domain.Task) error { return nil })

	// Workers are not started, so the buffer fills up.
	_, err := q.Enqueue(context.Background(), domain.TypeSubscribe, domain.SubscribePayload{Email: "first@example.com"})
	require.NoError(t, err)

	id, err := q.Enqueue(context.Background(), domain.TypeSubscribe, domain.SubscribePayload{Email: "second@example.com"})
	require.ErrorIs(t, err, domain.ErrQueueFull)

	items := failures(t, db)
	require.Len(t, items, 1)
	assert.Equal(t, id, items[0].TaskID)
	assert.Equal(t, 0, items[0].Attempt)
	assert.Equal(t, domain.ErrQueueFull.Error(), items[0].Error)
}

func TestEnqueueRejects(t *testing.T) {
	q, _ := newTestQueue(t, config.TaskConfig{Workers: 1, QueueSize: 1, MaxAttempts: 1})
	q.Register(domain.TypeSubscribe, func(ctx context.Context, task domain.Task) error { return nil })

	_, err := q.Enqueue(context.Background(), "unknown.type", nil)
	assert.ErrorIs(t, err, domain.ErrUnknownTaskType)

	_, err = q.Enqueue(context.Background(), domain.TypeSubscribe, make(chan int))
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)

	require.NoError(t, q.Start(context.Background()))
	stop(t, q)

	_, err = q.Enqueue(context.Background(), domain.TypeSubscribe, domain.SubscribePayload{})
	assert.ErrorIs(t, err, domain.ErrQueueStopped)
}

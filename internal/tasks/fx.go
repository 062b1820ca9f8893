package tasks

import (
	"github.com/railzwaylabs/partnerops/internal/tasks/domain"
	"github.com/railzwaylabs/partnerops/internal/tasks/handlers"
	"github.com/railzwaylabs/partnerops/internal/tasks/repository"
	"github.com/railzwaylabs/partnerops/internal/tasks/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tasks",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewQueue),
	fx.Provide(func(q *service.Queue) domain.Enqueuer { return q }),
	fx.Provide(func(q *service.Queue) domain.FailureLog { return q }),
	fx.Invoke(handlers.Register),
	fx.Invoke(func(lc fx.Lifecycle, q *service.Queue) {
		lc.Append(fx.Hook{OnStart: q.Start, OnStop: q.Stop})
	}),
)

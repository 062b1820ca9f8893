package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/railzwaylabs/partnerops/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("observability",
	fx.Provide(NewLogger),
	fx.Provide(NewRegistry),
	fx.Provide(NewMetrics),
	fx.Invoke(registerLoggerSync),
)

// NewLogger builds the process logger. Development environments get the
// human readable console encoder.
func NewLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		log *zap.Logger
		err error
	)
	if cfg.Environment == "production" {
		log, err = zap.NewProduction()
	} else {
		log, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	return log.With(zap.String("app", cfg.AppName)), nil
}

// NewRegistry holds the application collectors. Go runtime, process and
// database pool metrics stay in the default registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

func registerLoggerSync(lc fx.Lifecycle, log *zap.Logger) {
	lc.Append(fx.StopHook(func() {
		_ = log.Sync()
	}))
}

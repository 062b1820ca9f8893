package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	authdomain "github.com/railzwaylabs/partnerops/internal/auth/domain"
	"github.com/railzwaylabs/partnerops/internal/config"
	earningsdomain "github.com/railzwaylabs/partnerops/internal/earnings/domain"
	"github.com/railzwaylabs/partnerops/internal/observability"
	partnerdomain "github.com/railzwaylabs/partnerops/internal/partner/domain"
	paymentdomain "github.com/railzwaylabs/partnerops/internal/payment/domain"
	taskdomain "github.com/railzwaylabs/partnerops/internal/tasks/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("server",
	fx.Provide(NewServer),
	fx.Invoke(registerHTTPServer),
)

type ServerParams struct {
	fx.In

	Cfg         config.Config
	Log         *zap.Logger
	DB          *gorm.DB
	Registry    *prometheus.Registry
	Metrics     *observability.Metrics `optional:"true"`
	PartnerSvc  partnerdomain.Service
	EarningsSvc earningsdomain.Service
	AuthSvc     authdomain.Service
	PaymentSvc  paymentdomain.Service
	Failures    taskdomain.FailureLog `optional:"true"`
}

type Server struct {
	cfg      config.Config
	log      *zap.Logger
	db       *gorm.DB
	registry *prometheus.Registry
	metrics  *observability.Metrics

	partnerSvc  partnerdomain.Service
	earningsSvc earningsdomain.Service
	authSvc     authdomain.Service
	paymentSvc  paymentdomain.Service
	failures    taskdomain.FailureLog

	engine *gin.Engine
}

func NewServer(p ServerParams) *Server {
	metrics := p.Metrics
	if metrics == nil {
		metrics = observability.NewNopMetrics()
	}
	if p.Cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:         p.Cfg,
		log:         p.Log.Named("http.server"),
		db:          p.DB,
		registry:    p.Registry,
		metrics:     metrics,
		partnerSvc:  p.PartnerSvc,
		earningsSvc: p.EarningsSvc,
		authSvc:     p.AuthSvc,
		paymentSvc:  p.PaymentSvc,
		failures:    p.Failures,
	}
	s.engine = s.routes()
	return s
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.RequestLogger(), s.RequestMetrics())

	r.GET("/healthz", s.Healthz)
	r.GET("/metrics", s.MetricsHandler())

	r.POST("/webhooks/stripe", s.StripeWebhook)

	api := r.Group("/api")
	api.POST("/applications", s.SubmitApplication)

	admin := api.Group("/admin")
	admin.POST("/login", s.Login)
	admin.POST("/logout", s.Logout)

	protected := admin.Group("", s.AdminRequired())
	protected.GET("/applications", s.ListApplications)
	protected.GET("/applications/:id", s.GetApplication)
	protected.POST("/applications/:id/approve", s.ApproveApplication)
	protected.POST("/applications/:id/reject", s.RejectApplication)
	protected.GET("/partners", s.ListPartners)
	protected.GET("/partners/:id", s.GetPartner)
	protected.PUT("/partners/:id/affiliate", s.LinkAffiliate)
	protected.GET("/partners/:id/statement", s.PartnerStatement)
	protected.POST("/earnings/sync", s.SyncEarnings)
	protected.GET("/earnings", s.ListEarnings)
	protected.GET("/task-failures", s.ListTaskFailures)

	if s.cfg.StaticDir != "" {
		r.Static("/admin", s.cfg.StaticDir)
	}
	r.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})

	return r
}

func registerHTTPServer(lc fx.Lifecycle, s *Server, cfg config.Config, log *zap.Logger) {
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", httpServer.Addr)
			if err != nil {
				return err
			}
			log.Info("http server listening", zap.String("addr", httpServer.Addr))
			go func() {
				if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return httpServer.Shutdown(ctx)
		},
	})
}

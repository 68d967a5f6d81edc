// Package server wires the HTTP surface: gin engine, middleware stack, and
// the /v1 route handlers.
package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	activitydomain "github.com/stackspendlabs/stackspend/internal/activity/domain"
	clientdomain "github.com/stackspendlabs/stackspend/internal/client/domain"
	"github.com/stackspendlabs/stackspend/internal/config"
	dealdomain "github.com/stackspendlabs/stackspend/internal/lifetimedeal/domain"
	projectdomain "github.com/stackspendlabs/stackspend/internal/project/domain"
	reportdomain "github.com/stackspendlabs/stackspend/internal/report/domain"
	subscriptiondomain "github.com/stackspendlabs/stackspend/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Server struct {
	engine *gin.Engine
	log    *zap.Logger
	cfg    config.Config

	db    *gorm.DB
	redis *redis.Client

	clientSvc       clientdomain.Service
	projectSvc      projectdomain.Service
	subscriptionSvc subscriptiondomain.Service
	dealSvc         dealdomain.Service
	activitySvc     activitydomain.Service
	reportSvc       reportdomain.Service
}

type ServerParam struct {
	fx.In

	Engine *gin.Engine
	Log    *zap.Logger
	Config config.Config
	DB     *gorm.DB
	Redis  *redis.Client

	ClientSvc       clientdomain.Service
	ProjectSvc      projectdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	DealSvc         dealdomain.Service
	ActivitySvc     activitydomain.Service
	ReportSvc       reportdomain.Service
}

func NewEngine(log *zap.Logger, reg *prometheus.Registry) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestID())
	engine.Use(AccessLog(log.Named("http")))
	engine.Use(HTTPMetrics(reg))
	return engine
}

func NewServer(p ServerParam) *Server {
	return &Server{
		engine:          p.Engine,
		log:             p.Log.Named("server"),
		cfg:             p.Config,
		db:              p.DB,
		redis:           p.Redis,
		clientSvc:       p.ClientSvc,
		projectSvc:      p.ProjectSvc,
		subscriptionSvc: p.SubscriptionSvc,
		dealSvc:         p.DealSvc,
		activitySvc:     p.ActivitySvc,
		reportSvc:       p.ReportSvc,
	}
}

func (s *Server) RegisterAPIRoutes(reg *prometheus.Registry) {
	s.registerHealthRoutes(reg)

	v1 := s.engine.Group("/v1")
	v1.Use(OrgContext())

	clients := v1.Group("/clients")
	clients.POST("", s.CreateClient)
	clients.GET("", s.ListClients)
	clients.GET("/:id", s.GetClient)
	clients.PATCH("/:id", s.UpdateClient)
	clients.DELETE("/:id", s.DeleteClient)

	projects := v1.Group("/projects")
	projects.POST("", s.CreateProject)
	projects.GET("", s.ListProjects)
	projects.GET("/:id", s.GetProject)
	projects.PATCH("/:id", s.UpdateProject)
	projects.DELETE("/:id", s.DeleteProject)

	subscriptions := v1.Group("/subscriptions")
	subscriptions.POST("", s.CreateSubscription)
	subscriptions.GET("", s.ListSubscriptions)
	subscriptions.GET("/:id", s.GetSubscription)
	subscriptions.PATCH("/:id", s.UpdateSubscription)
	subscriptions.DELETE("/:id", s.DeleteSubscription)
	subscriptions.POST("/:id/pause", s.PauseSubscription)
	subscriptions.POST("/:id/resume", s.ResumeSubscription)
	subscriptions.POST("/:id/cancel", s.CancelSubscription)

	deals := v1.Group("/lifetime-deals")
	deals.POST("", s.CreateLifetimeDeal)
	deals.GET("", s.ListLifetimeDeals)
	deals.GET("/:id", s.GetLifetimeDeal)
	deals.PATCH("/:id", s.UpdateLifetimeDeal)
	deals.DELETE("/:id", s.DeleteLifetimeDeal)

	v1.GET("/activity", s.ListActivity)

	reports := v1.Group("/reports")
	reports.GET("/summary", s.GetSpendSummary)
	reports.GET("/renewals", s.GetUpcomingRenewals)
	reports.GET("/categories", s.GetCategoryBreakdown)
}

func RunHTTP(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:    s.cfg.HTTP.Addr,
		Handler: s.engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			s.log.Info("starting http server", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

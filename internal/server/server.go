package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ifuryst/herald/internal/config"
	"github.com/ifuryst/herald/internal/models"
	"github.com/ifuryst/herald/internal/service"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// HistoryLister lists recorded pipeline runs and unresolved errors.
type HistoryLister interface {
	RecentRuns(ctx context.Context, limit int) ([]models.PipelineRun, error)
	RecentErrors(ctx context.Context, limit int) ([]models.ErrorLog, error)
}

type Server struct {
	Config *config.Config
	DB     *gorm.DB
	Router *gin.Engine
	Logger *zap.Logger
	Server *http.Server

	// Services
	PublishingService *service.PublishingService
	MonitoringService *service.MonitoringService
	AuthService       *service.AuthService
	Scheduler         *service.Scheduler
	RetentionWorker   *service.RetentionWorker

	runner  service.Runner
	history HistoryLister
}

func NewServer(cfg *config.Config, logger *zap.Logger, sentryEnabled bool) (*Server, error) {
	// Set gin mode
	gin.SetMode(cfg.Server.Mode)

	// Initialize database
	db, err := service.NewDatabase(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize services
	monitoringService := service.NewMonitoringService(db, logger.Named("monitoring"), sentryEnabled)
	publishingService := service.NewPublishingService(cfg, db, logger, monitoringService)
	authService := service.NewAuthService(logger.Named("auth"), cfg.Scheduler.Secret)
	scheduler := service.NewScheduler(&cfg.Scheduler, logger.Named("scheduler"), publishingService)
	retentionWorker := service.NewRetentionWorker(monitoringService, logger.Named("retention"),
		cfg.Monitoring.CleanupIntervalDuration(), cfg.Monitoring.RetentionDays)

	srv := &Server{
		Config:            cfg,
		DB:                db,
		Router:            gin.New(),
		Logger:            logger,
		PublishingService: publishingService,
		MonitoringService: monitoringService,
		AuthService:       authService,
		Scheduler:         scheduler,
		RetentionWorker:   retentionWorker,
		runner:            publishingService,
		history:           publishingService,
	}

	// Setup middleware and routes
	srv.setupMiddleware()
	srv.setupRoutes()

	// Built here so Shutdown never races Start for the field.
	srv.Server = newHTTPServer(&cfg.Server, srv.Router)

	if cfg.Scheduler.Secret == "" {
		logger.Warn("scheduler.secret is empty, every trigger call will be rejected")
	}

	return srv, nil
}

func newHTTPServer(cfg *config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: handler,
	}
}

func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.Router.Use(gin.Recovery())

	// Logger middleware
	s.Router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	// CORS middleware
	s.Router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, "+service.SchedulerSecretHeader)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})
}

func (s *Server) setupRoutes() {
	// Health check
	s.Router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
		})
	})

	requireSecret := s.AuthService.SchedulerSecretMiddleware()

	// Path kept for existing cron jobs
	s.Router.POST("/publish-scheduled", requireSecret, s.handlePublishScheduled)

	// API routes
	api := s.Router.Group("/api/v1", requireSecret)
	{
		api.POST("/scheduler/publish", s.handlePublishScheduled)
		api.GET("/runs", s.handleGetRuns)
		api.GET("/errors", s.handleGetErrors)
	}
}

func (s *Server) handlePublishScheduled(c *gin.Context) {
	// A caller hanging up must not abandon claimed items mid-publish.
	ctx := context.WithoutCancel(c.Request.Context())

	summary := s.runner.Run(ctx, "http")
	c.JSON(http.StatusOK, summary)
}

// listLimit reads ?limit=N. It writes the 400 itself and reports false on
// a bad value.
func listLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultListLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return 0, false
	}
	return min(n, maxListLimit), true
}

func (s *Server) handleGetRuns(c *gin.Context) {
	limit, ok := listLimit(c)
	if !ok {
		return
	}

	runs, err := s.history.RecentRuns(c.Request.Context(), limit)
	if err != nil {
		s.Logger.Error("Failed to get recent runs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get runs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleGetErrors(c *gin.Context) {
	limit, ok := listLimit(c)
	if !ok {
		return
	}

	errs, err := s.history.RecentErrors(c.Request.Context(), limit)
	if err != nil {
		s.Logger.Error("Failed to get recent errors", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get errors"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"errors": errs})
}

func (s *Server) Start(ctx context.Context) error {
	// Start background workers
	if err := s.Scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	s.RetentionWorker.Start(ctx)

	s.Logger.Info("Starting HTTP server", zap.String("addr", s.Server.Addr))

	if s.Config.Server.CertFile != "" && s.Config.Server.KeyFile != "" {
		return s.Server.ListenAndServeTLS(s.Config.Server.CertFile, s.Config.Server.KeyFile)
	}

	return s.Server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	// Stop background workers first
	s.Scheduler.Stop()
	s.RetentionWorker.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.Server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	// Engagement triggers outlive their run; give them the remaining time.
	_ = s.PublishingService.Shutdown(shutdownCtx)

	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/edupay-dashboard/api/swagger"
	"github.com/noah-isme/edupay-dashboard/internal/gateway"
	"github.com/noah-isme/edupay-dashboard/internal/handler"
	internalmiddleware "github.com/noah-isme/edupay-dashboard/internal/middleware"
	"github.com/noah-isme/edupay-dashboard/internal/service"
	"github.com/noah-isme/edupay-dashboard/internal/session"
	"github.com/noah-isme/edupay-dashboard/pkg/cache"
	"github.com/noah-isme/edupay-dashboard/pkg/config"
	"github.com/noah-isme/edupay-dashboard/pkg/jobs"
	"github.com/noah-isme/edupay-dashboard/pkg/logger"
	corsmiddleware "github.com/noah-isme/edupay-dashboard/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/edupay-dashboard/pkg/middleware/requestid"
	"github.com/noah-isme/edupay-dashboard/pkg/storage"
)

const (
	sweepInterval   = time.Minute
	cleanupInterval = time.Hour
	shutdownTimeout = 15 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()
	readiness := map[string]handler.ReadinessCheck{}

	store, redisClient, err := newSessionStore(ctx, cfg)
	if err != nil {
		logr.Fatal("failed to init session store", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
		readiness["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	sess := session.New(store, logr.Named("session"))
	sess.Subscribe(func(evt session.Event) {
		metrics.RecordSessionEvent(string(evt.Type), string(evt.Reason))
	})
	if err := sess.Init(ctx); err != nil {
		logr.Warn("could not restore session", zap.Error(err))
	}

	gw := gateway.New(gateway.Options{
		BaseURL:        cfg.Gateway.BaseURL,
		Timeout:        cfg.Gateway.Timeout,
		Tokens:         sess,
		OnUnauthorized: sess.HandleUnauthorized,
		Observer:       metrics,
		Logger:         logr.Named("gateway"),
	})

	dispatcher := service.NewQueueDispatcher(jobs.QueueConfig{
		Workers:    cfg.Views.FetchWorkers,
		BufferSize: cfg.Views.FetchBuffer,
		Logger:     logr.Named("fetch"),
	})
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	registry := service.NewViewRegistry(gw, dispatcher, metrics, service.ViewRegistryConfig{
		IdleTTL:         cfg.Views.IdleTTL,
		SuggestionLimit: cfg.Suggestions.Limit,
	}, logr.Named("views"))
	sess.Subscribe(registry.HandleSessionEvent)
	go registry.Run(ctx, sweepInterval)
	defer registry.CloseAll()

	validate := validator.New()
	authSvc := service.NewAuthService(gw, sess, validate, logr.Named("auth"))
	schoolSvc := service.NewSchoolViewService(gw, logr.Named("schools"))
	orderSuggestions := service.NewSuggestionLoader(gw, service.OrderIDs, cfg.Suggestions.Limit, logr.Named("suggestions"))
	schoolSuggestions := service.NewSuggestionLoader(gw, service.SchoolIDs, cfg.Suggestions.Limit, logr.Named("suggestions"))
	sess.Subscribe(orderSuggestions.HandleSessionEvent)
	sess.Subscribe(schoolSuggestions.HandleSessionEvent)

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		exportSvc, err = newExportService(cfg, metrics, logr)
		if err != nil {
			logr.Fatal("failed to init exports", zap.Error(err))
		}
		go runExportCleanup(ctx, exportSvc, logr)
	}

	readiness["gateway"] = func(context.Context) error {
		if cfg.Gateway.BaseURL == "" {
			return errors.New("gateway base url not configured")
		}
		return nil
	}

	authHandler := handler.NewAuthHandler(authSvc)
	var viewHandler *handler.ViewHandler
	var exportHandler *handler.ExportHandler
	if exportSvc != nil {
		viewHandler = handler.NewViewHandler(registry, exportSvc, validate, 0)
		exportHandler = handler.NewExportHandler(exportSvc)
	} else {
		viewHandler = handler.NewViewHandler(registry, nil, validate, 0)
		exportHandler = handler.NewExportHandler(nil)
	}
	lookupHandler := handler.NewLookupHandler(gw, orderSuggestions, logr.Named("lookup"))
	schoolHandler := handler.NewSchoolHandler(schoolSvc, schoolSuggestions)
	seedHandler := handler.NewSeedHandler(gw)
	metricsHandler := handler.NewMetricsHandler(metrics, readiness)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/register", authHandler.Register)
	api.GET("/exports/download", exportHandler.Download)

	guarded := api.Group("")
	guarded.Use(internalmiddleware.RequireSession(sess, cfg.Session.LoginURL))
	guarded.POST("/auth/logout", authHandler.Logout)
	guarded.GET("/auth/session", authHandler.Session)

	guarded.POST("/views", viewHandler.Mount)
	guarded.GET("/views/:id", viewHandler.Get)
	guarded.POST("/views/:id/actions", viewHandler.Action)
	guarded.POST("/views/:id/retry", viewHandler.Retry)
	guarded.DELETE("/views/:id", viewHandler.Unmount)
	guarded.GET("/views/:id/suggestions", viewHandler.Suggestions)
	guarded.GET("/views/:id/export", viewHandler.Export)

	guarded.GET("/lookup", lookupHandler.Lookup)
	guarded.GET("/lookup/suggestions", lookupHandler.Suggestions)
	guarded.GET("/schools/transactions", schoolHandler.Transactions)
	guarded.GET("/schools/suggestions", schoolHandler.Suggestions)
	guarded.POST("/transactions/dummy-data", seedHandler.DummyData)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "gateway", cfg.Gateway.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}

func newSessionStore(ctx context.Context, cfg *config.Config) (session.Store, *redis.Client, error) {
	switch cfg.Session.Store {
	case config.SessionStoreRedis:
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return session.NewRedisStore(client, cfg.Session.RedisKey), client, nil
	case config.SessionStoreFile, "":
		store, err := session.NewFileStore(cfg.Session.Dir)
		return store, nil, err
	default:
		return nil, nil, fmt.Errorf("unknown session store %q", cfg.Session.Store)
	}
}

func newExportService(cfg *config.Config, metrics *service.MetricsService, logr *zap.Logger) (*service.ExportService, error) {
	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir, 0o640)
	if err != nil {
		return nil, err
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	return service.NewExportService(files, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.ResultTTL,
	}, metrics, logr.Named("exports"), nil, nil), nil
}

func runExportCleanup(ctx context.Context, exports *service.ExportService, logr *zap.Logger) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := exports.Cleanup(0)
			if err != nil {
				logr.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(removed) > 0 {
				logr.Info("removed expired exports", zap.Int("count", len(removed)))
			}
		}
	}
}

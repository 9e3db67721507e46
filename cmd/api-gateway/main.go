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

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/vozsegura-api/api/swagger"
	"github.com/noah-isme/vozsegura-api/internal/handler"
	"github.com/noah-isme/vozsegura-api/internal/middleware"
	"github.com/noah-isme/vozsegura-api/internal/repository"
	"github.com/noah-isme/vozsegura-api/internal/router"
	"github.com/noah-isme/vozsegura-api/internal/service"
	"github.com/noah-isme/vozsegura-api/pkg/cache"
	"github.com/noah-isme/vozsegura-api/pkg/config"
	"github.com/noah-isme/vozsegura-api/pkg/database"
	"github.com/noah-isme/vozsegura-api/pkg/events"
	"github.com/noah-isme/vozsegura-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/vozsegura-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/vozsegura-api/pkg/middleware/requestid"
	"github.com/noah-isme/vozsegura-api/pkg/storage"
)

// @title VozSegura API
// @version 1.0.0
// @description Incident reporting portal backend
// @BasePath /api
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

type cacheBackend interface {
	service.CacheRepository
	Close() error
}

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

	db, err := database.NewPostgres(context.Background(), cfg.Database, logr)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(context.Background(), db, logr); err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
	}

	metricsSvc := service.NewMetricsService()

	backend := openCache(cfg, logr)
	var cacheRepo service.CacheRepository
	if backend != nil {
		cacheRepo = backend
		defer backend.Close() //nolint:errcheck
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Catalog.CacheTTL, logr)

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Events.Enabled {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange, logr)
		if err != nil {
			logr.Warn("event broker unavailable, events disabled", zap.Error(err))
		} else {
			publisher = amqpPublisher
		}
	}

	eventSvc := service.NewEventService(publisher, metricsSvc, logr, service.EventServiceConfig{
		Workers:    cfg.Events.Workers,
		MaxRetries: cfg.Events.MaxRetries,
		RetryDelay: cfg.Events.RetryDelay,
	})
	eventCtx, stopEvents := context.WithCancel(context.Background())
	eventSvc.Start(eventCtx)

	files, err := storage.NewLocalStorage(cfg.Attachments.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare attachment storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Attachments.SignedURLSecret, cfg.Attachments.SignedURLTTL)

	validate := service.NewValidator()

	usuarioRepo := repository.NewUsuarioRepository(db)
	adminRepo := repository.NewAdministradorRepository(db)
	denunciaRepo := repository.NewDenunciaRepository(db)
	catalogoRepo := repository.NewCatalogoRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	authSvc := service.NewAuthService(usuarioRepo, adminRepo, auditRepo, metricsSvc, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	denunciaSvc := service.NewDenunciaService(
		denunciaRepo,
		catalogoRepo,
		files,
		service.NewExportService(nil, nil, logr),
		cacheSvc,
		eventSvc,
		metricsSvc,
		auditRepo,
		validate,
		logr,
		service.DenunciaConfig{
			StrictTransitions: cfg.Reports.StrictTransitions,
			MaxListLimit:      cfg.Reports.MaxListLimit,
			StatsCacheTTL:     cfg.Reports.StatsCacheTTL,
			Location:          cfg.Reports.Location,
		},
	)
	attachmentSvc := service.NewAttachmentService(denunciaRepo, files, signer, auditRepo, logr, service.AttachmentServiceConfig{
		MaxFileSize:  cfg.Attachments.MaxFileSizeBytes,
		AllowedMIMEs: cfg.Attachments.AllowedMIMEs,
		APIPrefix:    cfg.APIPrefix,
	})
	catalogoSvc := service.NewCatalogoService(catalogoRepo, cacheSvc, auditRepo, validate, logr, cfg.Catalog.CacheTTL)
	usuarioSvc := service.NewUsuarioService(usuarioRepo, auditRepo, validate, logr)

	r := gin.New()
	r.MaxMultipartMemory = cfg.Attachments.MaxFileSizeBytes
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr,
		http.MethodPost+" "+cfg.APIPrefix+"/denuncias",
		http.MethodGet+" "+cfg.APIPrefix+"/denuncias/consultar/:codigo",
		http.MethodGet+" "+cfg.APIPrefix+"/archivos/descargar/:token",
	))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins, cfg.CORS.MaxAge))
	r.Use(middleware.Metrics(metricsSvc, "/metrics", "/health"))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Audit())

	router.Register(r, cfg.APIPrefix, router.Deps{
		Auth:          authSvc,
		AuthHandler:   handler.NewAuthHandler(authSvc),
		Denuncias:     handler.NewDenunciaHandler(denunciaSvc, attachmentSvc),
		Archivos:      handler.NewArchivoHandler(attachmentSvc),
		Catalogo:      handler.NewCatalogoHandler(catalogoSvc),
		Usuarios:      handler.NewUsuarioHandler(usuarioSvc),
		Observability: handler.NewMetricsHandler(metricsSvc, db, cacheSvc),
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
	eventSvc.Stop(ctx)
	stopEvents()
}

// openCache returns the configured cache backend, or nil when caching is off.
// An unreachable remote backend falls back to the in-process cache.
func openCache(cfg *config.Config, logr *zap.Logger) cacheBackend {
	switch cfg.Cache.Driver {
	case "none":
		return nil
	case "redis":
		client, err := cache.NewRedis(context.Background(), cfg.Redis)
		if err == nil {
			return repository.NewCacheRepository(client, logr)
		}
		logr.Warn("redis unavailable, using local cache", zap.Error(err))
	case "memcached":
		client, err := cache.NewMemcache(cfg.Cache.MemcachedAddr)
		if err == nil {
			return repository.NewMemcacheRepository(client)
		}
		logr.Warn("memcached unavailable, using local cache", zap.Error(err))
	}
	return repository.NewLocalCacheRepository(cache.NewLocal(cfg.Cache.LocalMaxItems))
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/somashare-api/api/swagger"
	"github.com/noah-isme/somashare-api/internal/handler"
	"github.com/noah-isme/somashare-api/internal/middleware"
	"github.com/noah-isme/somashare-api/internal/repository"
	"github.com/noah-isme/somashare-api/internal/service"
	"github.com/noah-isme/somashare-api/internal/viewstate"
	"github.com/noah-isme/somashare-api/pkg/cache"
	"github.com/noah-isme/somashare-api/pkg/changefeed"
	"github.com/noah-isme/somashare-api/pkg/config"
	"github.com/noah-isme/somashare-api/pkg/database"
	"github.com/noah-isme/somashare-api/pkg/docstore"
	"github.com/noah-isme/somashare-api/pkg/events"
	"github.com/noah-isme/somashare-api/pkg/jobs"
	"github.com/noah-isme/somashare-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/somashare-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/somashare-api/pkg/middleware/requestid"
	"github.com/noah-isme/somashare-api/pkg/storage"
)

// @title SomaShare API
// @version 1.0.0
// @description Past exam paper sharing for university students.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	var redisClient *redis.Client
	if cfg.Cache.Enabled || cfg.ChangeFeed.Driver == config.DriverRedis {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close()
	}

	metrics := service.NewMetricsService()

	var feed changefeed.Feed = changefeed.NewMemory(cfg.ChangeFeed.Buffer)
	if cfg.ChangeFeed.Driver == config.DriverRedis {
		feed = changefeed.NewRedis(redisClient, cfg.ChangeFeed.Prefix, cfg.ChangeFeed.Buffer)
	}
	feed = metrics.TrackFeed(feed)

	docs, closeDocs, err := openDocStore(ctx, cfg, logr)
	if err != nil {
		return err
	}
	defer closeDocs()

	blobs, files, err := openBlobStore(ctx, cfg)
	if err != nil {
		return err
	}

	dispatcher, stopEvents := startActivityEvents(ctx, cfg, logr)
	defer stopEvents()

	deps := buildServices(cfg, logr, db, redisClient, feed, docs, blobs, dispatcher, metrics)

	r := newRouter(cfg, logr, deps, files, metrics)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openDocStore(ctx context.Context, cfg *config.Config, logr *zap.Logger) (docstore.Store, func(), error) {
	if cfg.DocStore.Driver != config.DriverMongo {
		return docstore.NewMemory(), func() {}, nil
	}
	mongo, err := docstore.ConnectMongo(ctx, cfg.DocStore.MongoURI, cfg.DocStore.MongoDatabase, cfg.DocStore.Timeout, logr)
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	return mongo, func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongo.Close(closeCtx); err != nil {
			logr.Warn("mongo close failed", zap.Error(err))
		}
	}, nil
}

// openBlobStore returns the configured store. files is set only for the
// filesystem driver, whose blobs are served by this process.
func openBlobStore(ctx context.Context, cfg *config.Config) (storage.BlobStore, *storage.FileStorage, error) {
	if cfg.Storage.Driver == config.StorageMinio {
		store, err := storage.NewMinioStorage(ctx, cfg.Minio)
		if err != nil {
			return nil, nil, fmt.Errorf("connect minio: %w", err)
		}
		return store, nil, nil
	}
	signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)
	baseURL := cfg.PublicBaseURL + cfg.APIPrefix + "/files"
	files, err := storage.NewFileStorage(cfg.Storage.Dir, baseURL, signer)
	if err != nil {
		return nil, nil, fmt.Errorf("open file storage: %w", err)
	}
	return files, files, nil
}

func startActivityEvents(ctx context.Context, cfg *config.Config, logr *zap.Logger) (service.ActivityDispatcher, func()) {
	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) == 0 {
		return nil, func() {}
	}
	publisher := events.NewKafkaPublisher(cfg.Kafka)
	dispatcher := events.NewDispatcher(publisher, jobs.QueueConfig{
		Workers:    cfg.Kafka.Workers,
		MaxRetries: cfg.Kafka.Retries,
		RetryDelay: time.Second,
		Logger:     logr.Named("activity_events"),
	})
	dispatcher.Start(ctx)
	return dispatcher, func() {
		dispatcher.Stop()
		if err := publisher.Close(); err != nil {
			logr.Warn("kafka writer close failed", zap.Error(err))
		}
	}
}

type services struct {
	auth         *service.AuthService
	users        *service.UserService
	units        *service.UnitService
	favorites    *service.FavoriteService
	papers       *service.PaperService
	activity     *service.ActivityService
	uploads      *service.UploadService
	verification *service.VerificationService
	enrollments  *service.EnrollmentService
	exports      *service.ExportService
}

func buildServices(cfg *config.Config, logr *zap.Logger, db *sqlx.DB, redisClient *redis.Client, feed changefeed.Feed, docs docstore.Store, blobs storage.BlobStore, dispatcher service.ActivityDispatcher, metrics *service.MetricsService) services {
	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	unitRepo := repository.NewUnitRepository(db)
	paperRepo := repository.NewPaperRepository(db)
	ratingRepo := repository.NewRatingRepository(db)
	favoriteRepo := repository.NewFavoriteRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	resourceRepo := repository.NewResourceRepository(docs)
	verificationRepo := repository.NewVerificationRepository(docs)

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, "somashare", logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.UnitTTL, logr, cfg.Cache.Enabled && cacheRepo != nil)

	favorites := service.NewFavoriteService(favoriteRepo, unitRepo, feed, logr)
	units := service.NewUnitService(unitRepo, favorites, cacheSvc, feed, validate, logr, service.UnitServiceConfig{CacheTTL: cfg.Cache.UnitTTL})
	activity := service.NewActivityService(service.ActivityDeps{
		Activity:   activityRepo,
		Papers:     paperRepo,
		Ratings:    ratingRepo,
		Users:      userRepo,
		Resources:  resourceRepo,
		Blobs:      blobs,
		Dispatcher: dispatcher,
		Feed:       feed,
		Metrics:    metrics,
		Validator:  validate,
		Logger:     logr,
	})

	return services{
		auth:      service.NewAuthService(userRepo, service.AuthConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer, Audience: cfg.JWT.Audience}),
		users:     service.NewUserService(userRepo, blobs, feed, metrics, validate, logr, service.UserServiceConfig{MaxPhotoBytes: cfg.Storage.MaxPhotoBytes}),
		units:     units,
		favorites: favorites,
		papers:    service.NewPaperService(paperRepo, ratingRepo, feed, logr),
		activity:  activity,
		uploads: service.NewUploadService(service.UploadDeps{
			Blobs:      blobs,
			Units:      units,
			Papers:     paperRepo,
			Users:      userRepo,
			Resources:  resourceRepo,
			Dispatcher: dispatcher,
			Feed:       feed,
			Metrics:    metrics,
			Validator:  validate,
			Logger:     logr,
			Config:     service.UploadConfig{MaxFileBytes: cfg.Storage.MaxFileSizeBytes, AllowedMIMEs: cfg.Storage.AllowedMIMEs},
		}),
		verification: service.NewVerificationService(verificationRepo, userRepo, feed, validate, logr, service.VerificationConfig{
			CodeTTL:     cfg.Verification.CodeTTL,
			ExposeCode:  cfg.Verification.ExposeCode,
			MaxAttempts: cfg.Verification.MaxAttempts,
		}),
		enrollments: service.NewEnrollmentService(enrollmentRepo, unitRepo, feed, validate, logr),
		exports:     service.NewExportService(activity, logr, nil, nil),
	}
}

func newRouter(cfg *config.Config, logr *zap.Logger, svc services, files *storage.FileStorage, metrics *service.MetricsService) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	screens := viewstate.NewFactory(viewstate.Deps{
		Profiles:  svc.users,
		Units:     svc.units,
		Papers:    svc.papers,
		Favorites: svc.favorites,
		Activity:  svc.activity,
		Uploads:   svc.uploads,
		Logger:    logr.Named("screens"),
	})

	h := handler.Handlers{
		Auth:        handler.NewAuthHandler(svc.users),
		Users:       handler.NewUserHandler(svc.users, svc.activity, svc.exports, svc.verification),
		Units:       handler.NewUnitHandler(svc.units, svc.favorites, svc.papers),
		Papers:      handler.NewPaperHandler(svc.papers, svc.activity, svc.uploads),
		Enrollments: handler.NewEnrollmentHandler(svc.enrollments),
		Screens: handler.NewScreenHandler(screens, metrics, handler.ScreenConfig{
			AllowedOrigins:  cfg.CORS.AllowedOrigins,
			WriteTimeout:    cfg.WebSocket.WriteTimeout,
			PingInterval:    cfg.WebSocket.PingInterval,
			MaxMessageBytes: cfg.WebSocket.MaxFrameSize,
		}, logr.Named("ws")),
		Metrics: metricsHandler,
	}
	if files != nil {
		h.Files = handler.NewFileHandler(files)
	}

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), h, middleware.Auth(svc.auth))
	return r
}

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"slidecast/artifact"
	"slidecast/config"
	"slidecast/constant"
	"slidecast/handler"
	"slidecast/repository"
	"slidecast/service"
)

func RunHttp(cfg *config.Config) {
	ctx, cancel := signal.NotifyContext(setupLogger(cfg), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Bool("isProduction", cfg.App.Environment == constant.EnvironmentProduction.String()).Send()
	if cfg.App.Environment == constant.EnvironmentProduction.String() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := os.MkdirAll(cfg.Upload.Dir, 0o755); err != nil {
		zerolog.Ctx(ctx).Fatal().Err(err).Msg("failed to create upload dir")
	}

	repo, err := buildRepository(cfg)
	if err != nil {
		zerolog.Ctx(ctx).Fatal().Err(err).Msg("failed to build job repository")
	}

	launcher, err := buildLauncher(ctx, cfg)
	if err != nil {
		zerolog.Ctx(ctx).Fatal().Err(err).Msg("failed to build worker launcher")
	}

	store := buildArtifactStore(cfg)
	svc := service.NewService(repo, launcher)
	resolver := artifact.NewResolver(repo, store)

	r := gin.Default()
	r.Use(loggerContext(ctx))
	addHealth(r)
	handler.NewHandler(svc, resolver, cfg.Upload.Dir, cfg.Upload.MaxSize).Register(r)

	srv := http.Server{
		Handler:           r,
		Addr:              fmt.Sprintf(":%s", cfg.Server.HttpPort),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("start http server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
		}
	}()

	<-ctx.Done()
	zerolog.Ctx(ctx).Info().Msg("shutting down server")
	if err := srv.Shutdown(ctx); err != nil {
		zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
	}

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("server shutdown")
}

func buildRepository(cfg *config.Config) (repository.JobRepository, error) {
	switch cfg.Storage.Backend {
	case config.StorageBackendPostgres:
		return repository.NewRepo(cfg.DB)
	case config.StorageBackendRedis:
		return repository.NewRedisRepo(cfg.Redis), nil
	case config.StorageBackendMemory:
		return repository.NewMemoryRepo(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func buildLauncher(ctx context.Context, cfg *config.Config) (service.WorkerLauncher, error) {
	switch cfg.Worker.Launcher {
	case config.LauncherRabbitMQ:
		conn, err := config.NewRabbitMQConn(ctx, cfg.Queue)
		if err != nil {
			return nil, err
		}
		return service.NewQueueLauncher(conn, cfg.Queue.Kind, cfg.CallbackURL()), nil
	case config.LauncherExec:
		return &service.ExecLauncher{
			Command:     cfg.Worker.Command,
			Script:      cfg.Worker.Script,
			CallbackURL: cfg.CallbackURL(),
		}, nil
	default:
		return nil, fmt.Errorf("unknown worker launcher %q", cfg.Worker.Launcher)
	}
}

func buildArtifactStore(cfg *config.Config) artifact.Store {
	if cfg.Artifacts.Backend == config.ArtifactBackendMinIO {
		return artifact.NewMinIOStore(cfg.ObjectStore, cfg.MinIOBucket)
	}
	return artifact.NewLocalStore(cfg.Artifacts.Root)
}

// loggerContext makes the process logger reachable from request contexts so
// handlers can log through zerolog.Ctx.
func loggerContext(ctx context.Context) gin.HandlerFunc {
	logger := zerolog.Ctx(ctx)
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context()))
		c.Next()
	}
}

func addHealth(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})
}

func setupLogger(cfg *config.Config) context.Context {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.App.Environment == constant.EnvironmentDevelop.String() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// Log to standard output
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(context.Background())

	return ctx
}

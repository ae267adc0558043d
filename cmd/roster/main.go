package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/clubroster/roster/cmd/roster/cli"
	"github.com/clubroster/roster/internal/app"
	"github.com/clubroster/roster/internal/auth"
	"github.com/clubroster/roster/internal/observability"
	"github.com/clubroster/roster/internal/platform/cache"
	"github.com/clubroster/roster/internal/platform/db"
	"github.com/clubroster/roster/internal/platform/ratelimit"
	"github.com/clubroster/roster/internal/players"
	"github.com/clubroster/roster/internal/rbac"
	"github.com/clubroster/roster/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.LoadEnvFiles(".env"); err != nil {
		slog.Default().Error("load env file", slog.Any("error", err))
		os.Exit(1)
	}
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		os.Exit(runJobs(ctx, cfg, os.Args[2:]))
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func runJobs(ctx context.Context, cfg *app.Config, args []string) int {
	jobsCLI, err := cli.NewJobsCLI(app.AsynqRedisOpt(cfg))
	if err != nil {
		slog.Default().Error("init jobs cli", slog.Any("error", err))
		return 1
	}
	defer func() { _ = jobsCLI.Close() }()
	return jobsCLI.Run(ctx, args, cli.RunOptions{})
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, db.PoolConfig{
		DSN:      cfg.PGDSN,
		MaxConns: cfg.PGMaxConns,
		MinConns: cfg.PGMinConns,
	})
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.PGAutoMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	metrics := observability.NewMetrics()

	limiterCfg := ratelimit.Config{Limit: cfg.AuthRateLimit, Window: cfg.AuthRateWindow}
	var (
		limiter    ratelimit.Limiter
		memLimiter *ratelimit.MemoryLimiter
	)
	redisClient, err := cache.New(ctx, cache.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logger.Warn("redis unavailable, auth rate limiting is per-process", slog.Any("error", err))
		memLimiter = ratelimit.NewMemoryLimiter(limiterCfg)
		limiter = memLimiter
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		limiter = ratelimit.NewRedisLimiter(redisClient, limiterCfg)
	}

	users := auth.NewUserRepository(pool)
	credentials, err := auth.NewCredentialStore(users, cfg.BcryptCost)
	if err != nil {
		return err
	}
	issuer, err := auth.NewTokenIssuer(auth.TokenConfig{
		AccessSecret:  []byte(cfg.JWTSecret),
		RefreshSecret: []byte(cfg.RefreshTokenSecret),
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
		Issuer:        "roster",
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	service := auth.NewService(auth.ServiceParams{
		Credentials: credentials,
		Tokens:      issuer,
		Registry:    auth.NewRegistry(auth.NewTokenRepository(pool)),
		Users:       users,
		Events:      metrics,
		Logger:      logger,
	})
	authenticator := auth.NewAuthenticator(issuer, logger)
	authLimiter := ratelimit.Middleware(ratelimit.MiddlewareConfig{
		Limiter:           limiter,
		Logger:            logger,
		RetryAfterSeconds: ratelimit.RetryAfter(limiterCfg),
		OnDenied:          metrics.RateLimited,
	})
	authHandler := auth.NewHandler(logger, service, authenticator, authLimiter, auth.CookieConfig{
		Secure: cfg.IsProduction(),
	})

	roles := rbac.Middleware{Principal: auth.RoleFromRequest, Logger: logger}
	playersHandler := players.NewHandler(logger, players.NewService(players.NewRepository(pool)), roles)

	inspector := asynq.NewInspector(app.AsynqRedisOpt(cfg))
	defer func() { _ = inspector.Close() }()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Authenticator:  authenticator,
		AuthHandler:    authHandler,
		PlayersHandler: playersHandler,
		JobHandler:     jobs.NewHandler(inspector, logger),
		RBACMiddleware: roles,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	if memLimiter != nil {
		g.Go(func() error {
			return memLimiter.RunPruner(gctx, time.Minute)
		})
	}
	g.Go(func() error {
		logger.Info("server starting", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("server shutting down")
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

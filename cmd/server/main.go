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

	"registro/internal/application"
	"registro/internal/auth"
	"registro/internal/catalog"
	"registro/internal/documents"
	"registro/internal/moodle"
	"registro/internal/platform/config"
	"registro/internal/platform/database"
	"registro/internal/platform/httpserver"
	"registro/internal/platform/logger"
	"registro/internal/platform/metrics"
	"registro/internal/platform/middleware"
	"registro/internal/platform/redis"
	"registro/internal/prefill"
	"registro/internal/provision"
	"registro/internal/signup"
	httptransport "registro/internal/transport/http"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal feature packages.
func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Production())
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}
	log.Info("database ready")

	rdb, err := redis.New(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if rdb == nil {
		log.Warn("REDIS_URL not set, rate limiting disabled")
	} else {
		defer func() { _ = rdb.Close() }()
	}
	var limiter *middleware.RedisLimiter
	if rdb != nil {
		limiter = middleware.NewRedisLimiter(rdb.Client)
	}

	catalogs := catalog.NewCache(catalog.NewPostgresStore(db))
	if err := catalogs.Refresh(ctx); err != nil {
		return err
	}
	log.Info("catalogs loaded")

	docs, err := documents.NewStore(cfg.UploadsDir)
	if err != nil {
		return err
	}

	m := metrics.New()

	worker := provision.NewWorker(log, 0)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		_ = worker.Run(ctx)
	}()

	lms := moodle.New(cfg.MoodleBaseURL, cfg.MoodleToken)

	authSvc := auth.NewService(auth.NewPostgresUserStore(db), auth.NewPostgresSessionStore(db), cfg.SessionTTL)
	authHandler := auth.NewHandler(authSvc, log, limiter, cfg.CookieName(), cfg.Production())

	signupSvc := signup.NewService(log, signup.NewPostgresStore(db), docs, catalogs, m)
	signupHandler := signup.NewHandler(log, signupSvc, m, limiter)

	prefillClient := prefill.New(cfg.PrefillBaseURL, cfg.PrefillUser, cfg.PrefillPassword)
	prefillHandler := prefill.NewHandler(log, prefillClient, m, limiter)

	reviewSvc := application.NewService(log, application.NewPostgresStore(db), lms, worker, m)
	reviewHandler := application.NewHandler(log, reviewSvc, authHandler.RequireAdmin)

	moodleHandler := moodle.NewHandler(log, lms, authHandler.RequireAdmin)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:       log,
		DB:           db,
		Redis:        rdb,
		Auth:         authHandler,
		Signup:       signupHandler,
		Prefill:      prefillHandler,
		Applications: reviewHandler,
		Moodle:       moodleHandler,
		UploadsDir:   cfg.UploadsDir,
	})

	srv := httpserver.New(cfg.Addr, router)
	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	// The worker loop exits with the signal context; wait for the task in
	// flight to finish.
	<-workerDone
	worker.Wait()

	log.Info("bye")
	return nil
}

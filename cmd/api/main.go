package main

import (
	"context"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"chapel-liturgy/internal/adapters/httpapi"
	"chapel-liturgy/internal/adapters/repo"
	"chapel-liturgy/internal/bootstrap"
	"chapel-liturgy/internal/infra/config"
	"chapel-liturgy/internal/infra/db"
	httpinfra "chapel-liturgy/internal/infra/http"
	logpkg "chapel-liturgy/internal/infra/log"
	"chapel-liturgy/internal/infra/metrics"
	"chapel-liturgy/internal/usecase/feasts"
	"chapel-liturgy/internal/usecase/services"
	"chapel-liturgy/internal/usecase/serviceweeks"
	"chapel-liturgy/internal/usecase/templates"
)

func main() {
	cfg := config.Load()
	logger := logpkg.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MigrateOnStart {
		if err := db.Migrate(cfg.PGDSN); err != nil {
			logger.Fatal().Err(err).Msg("api: миграции не применены")
		}
	}
	pool, err := db.Connect(ctx, cfg.PGDSN, int32(cfg.Generation.Concurrency)+db.DefaultMaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: нет подключения к БД")
	}
	defer pool.Close()

	rt, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: не удалось собрать зависимости")
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Error().Err(err).Msg("api: ошибка закрытия соединений")
		}
	}()

	store := repo.NewPostgres(pool)
	matcher := feasts.NewMatcher(rt.Calendar, store, rt.Conv)
	templateService := templates.NewService(store, store, logpkg.Component(logger, "templates"))
	generator := serviceweeks.NewGenerator(rt.Calendar, store, store, rt.Conv, logpkg.Component(logger, "generator"), cfg.Generation.Concurrency)
	weekService := serviceweeks.NewService(store, store, store, generator, rt.Events, logpkg.Component(logger, "serviceweeks"))
	serviceManager := services.NewService(store, store, logpkg.Component(logger, "services"))

	api := httpapi.New(httpapi.Deps{
		Calendar:  matcher,
		Admin:     rt.Calendar,
		Templates: templateService,
		Weeks:     weekService,
		Services:  serviceManager,
		Tenants:   store,
		Conv:      rt.Conv,
	}, httpapi.WithLogger(logpkg.Component(logger, "httpapi")))

	srv := httpinfra.NewServer(logpkg.Component(logger, "http"))
	api.Mount(srv.Router, func(r chi.Router) {
		r.Use(httpinfra.AdminTokenMiddleware(cfg.AdminToken))
	})

	metrics.StartServer(ctx, logpkg.Component(logger, "metrics"), cfg.Metrics.Addr)
	go func() {
		if err := srv.Start(":" + strconv.Itoa(cfg.Port)); err != nil {
			logger.Error().Err(err).Msg("api: сервер остановлен")
			stop()
		}
	}()
	<-ctx.Done()
	logger.Info().Msg("api: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

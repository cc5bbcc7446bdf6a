package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"chapel-liturgy/internal/bootstrap"
	"chapel-liturgy/internal/infra/config"
	logpkg "chapel-liturgy/internal/infra/log"
	"chapel-liturgy/internal/infra/metrics"
)

// Прогревает кэш календаря за текущий и следующий год. С PREWARM_CRON остаётся работать по расписанию.
func main() {
	cfg := config.Load()
	logger := logpkg.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("prewarm: не удалось собрать зависимости")
	}
	defer func() { _ = rt.Close() }()

	if err := rt.Calendar.Prewarm(ctx); err != nil {
		logger.Error().Err(err).Msg("prewarm: кэш прогрет не полностью")
		if cfg.Prewarm.Cron == "" {
			_ = rt.Close()
			os.Exit(1)
		}
	}
	if cfg.Prewarm.Cron == "" {
		return
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)
	metrics.StartServer(ctx, logpkg.Component(logger, "metrics"), cfg.Metrics.Addr)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Prewarm.Cron, func() {
		if err := rt.Calendar.Prewarm(ctx); err != nil {
			logger.Error().Err(err).Msg("prewarm: плановый прогрев не удался")
		}
	}); err != nil {
		logger.Fatal().Err(err).Str("cron", cfg.Prewarm.Cron).Msg("prewarm: некорректное расписание")
	}
	scheduler.Start()
	logger.Info().Str("cron", cfg.Prewarm.Cron).Msg("prewarm: расписание запущено")
	<-ctx.Done()
	<-scheduler.Stop().Done()
	logger.Info().Msg("prewarm: остановка")
}

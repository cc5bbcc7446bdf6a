package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15, 30},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})

	CalendarCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "calendar_cache_lookups_total",
		Help: "Обращения к кэшу литургического календаря",
	}, []string{"result"})

	CalendarFetchErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "calendar_fetch_errors_total",
		Help: "Ошибки загрузки календаря у поставщика",
	})

	ServicesGenerated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "services_generated_total",
		Help: "Богослужения, созданные по шаблонам",
	})

	ServiceGenerationFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "service_generation_failures_total",
		Help: "Богослужения, которые не удалось сохранить при генерации",
	})

	TemplateEntriesSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "template_entries_skipped_total",
		Help: "Записи шаблона, пропущенные из-за некорректного времени",
	})

	TemplateRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "template_rejections_total",
		Help: "Отклонённые изменения шаблонов по правилам",
	}, []string{"rule"})

	GenerationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "service_week_generation_seconds",
		Help:    "Время генерации недели богослужений",
		Buckets: prometheus.DefBuckets,
	})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		NetworkRequestDuration,
		NetworkRequestTotal,
		CalendarCacheLookups,
		CalendarFetchErrors,
		ServicesGenerated,
		ServiceGenerationFailures,
		TemplateEntriesSkipped,
		TemplateRejections,
		GenerationSeconds,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
		case <-shutdownCtx.Done():
		}
		shutdownTimeout, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer timeoutCancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
		cancel()
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// ObserveCacheLookup учитывает попадание или промах кэша календаря.
func ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CalendarCacheLookups.WithLabelValues(result).Inc()
}

// IncTemplateRejection учитывает отклонённый шаблон.
func IncTemplateRejection(rule string) {
	TemplateRejections.WithLabelValues(rule).Inc()
}

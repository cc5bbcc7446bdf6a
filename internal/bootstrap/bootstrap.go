// Package bootstrap собирает общие для процессов зависимости: кэш, календарь и публикацию событий.
package bootstrap

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"chapel-liturgy/internal/adapters/litcal"
	"chapel-liturgy/internal/chapeltime"
	"chapel-liturgy/internal/domain"
	"chapel-liturgy/internal/infra/cache"
	"chapel-liturgy/internal/infra/config"
	logpkg "chapel-liturgy/internal/infra/log"
	"chapel-liturgy/internal/infra/queue"
	"chapel-liturgy/internal/usecase/calendar"
)

// Runtime — общие зависимости процесса.
type Runtime struct {
	Conv     *chapeltime.Converter
	Redis    *redis.Client
	Cache    domain.Cache
	Events   domain.EventPublisher
	Calendar *calendar.Source

	closers []func() error
}

// New создаёт зависимости по конфигу. Без REDIS_ADDR используется кэш в памяти процесса.
func New(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) (*Runtime, error) {
	conv, err := chapeltime.New(cfg.TZ)
	if err != nil {
		return nil, err
	}
	rt := &Runtime{Conv: conv}

	if cfg.Redis.Addr != "" {
		rt.Redis = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rt.Redis.Ping(ctx).Err(); err != nil {
			_ = rt.Redis.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, rt.Redis.Close)
		rt.Cache = cache.NewRedis(rt.Redis)
	} else {
		logger.Warn().Msg("bootstrap: REDIS_ADDR не задан, кэш календаря в памяти процесса")
		rt.Cache = cache.NewMemory(nil)
	}

	switch {
	case cfg.AMQP.URL != "":
		pub, err := queue.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, pub.Close)
		rt.Events = pub
	case rt.Redis != nil && cfg.Events.RedisKey != "":
		rt.Events = queue.NewRedisPublisher(rt.Redis, cfg.Events.RedisKey)
	default:
		rt.Events = queue.NopPublisher{}
	}

	provider := litcal.NewClient(litcal.Config{BaseURL: cfg.Calendar.BaseURL, Timeout: cfg.Calendar.Timeout})
	rt.Calendar = calendar.NewSource(provider, rt.Cache, conv,
		calendar.WithTTL(cfg.Calendar.CacheTTL),
		calendar.WithLogger(logpkg.Component(logger, "calendar")),
		calendar.WithEvents(rt.Events),
	)
	return rt, nil
}

// Close освобождает соединения в обратном порядке.
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	TZ     string `envconfig:"TZ" default:"Europe/Warsaw"`
	Port   int    `envconfig:"PORT" default:"8080"`

	PGDSN          string `envconfig:"PG_DSN"`
	AdminToken     string `envconfig:"ADMIN_TOKEN"`
	MigrateOnStart bool   `envconfig:"MIGRATE_ON_START" default:"false"`

	Redis struct {
		Addr     string `envconfig:"REDIS_ADDR"`
		Password string `envconfig:"REDIS_PASSWORD"`
		DB       int    `envconfig:"REDIS_DB" default:"0"`
	} `envconfig:""`

	Calendar struct {
		BaseURL  string        `envconfig:"CALENDAR_BASE_URL" default:"https://www.missalemeum.com/pl/api/v5/calendar"`
		Timeout  time.Duration `envconfig:"CALENDAR_TIMEOUT" default:"10s"`
		CacheTTL time.Duration `envconfig:"CALENDAR_CACHE_TTL" default:"2160h"`
	} `envconfig:""`

	AMQP struct {
		URL      string `envconfig:"AMQP_URL"`
		Exchange string `envconfig:"AMQP_EXCHANGE" default:"chapel.events"`
	} `envconfig:""`

	Events struct {
		RedisKey string `envconfig:"EVENTS_REDIS_KEY"`
	} `envconfig:""`

	Metrics struct {
		Addr string `envconfig:"METRICS_ADDR" default:":9090"`
	} `envconfig:""`

	Generation struct {
		Concurrency int `envconfig:"GENERATION_CONCURRENCY" default:"4"`
	} `envconfig:""`

	Prewarm struct {
		Cron string `envconfig:"PREWARM_CRON"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}

// Parse читает конфиг из окружения и возвращает ошибку вместо завершения процесса.
func Parse() (AppConfig, error) {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

package bootstrap

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"chapel-liturgy/internal/infra/cache"
	"chapel-liturgy/internal/infra/config"
	"chapel-liturgy/internal/infra/queue"
)

func TestNewFallsBackToInProcessDeps(t *testing.T) {
	var cfg config.AppConfig
	cfg.TZ = "Europe/Warsaw"
	cfg.Calendar.BaseURL = "http://127.0.0.1:0"

	rt, err := New(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	defer rt.Close()
	if _, ok := rt.Cache.(*cache.MemoryCache); !ok {
		t.Fatalf("без REDIS_ADDR ожидали кэш в памяти, получили %T", rt.Cache)
	}
	if _, ok := rt.Events.(queue.NopPublisher); !ok {
		t.Fatalf("без брокера ожидали NopPublisher, получили %T", rt.Events)
	}
	if rt.Calendar == nil || rt.Conv.Location().String() != "Europe/Warsaw" {
		t.Fatalf("календарь и часовой пояс должны быть собраны")
	}
}

func TestNewRejectsUnknownZone(t *testing.T) {
	var cfg config.AppConfig
	cfg.TZ = "Mars/Olympus"
	if _, err := New(context.Background(), cfg, zerolog.Nop()); err == nil {
		t.Fatalf("ожидали ошибку для неизвестного часового пояса")
	}
}

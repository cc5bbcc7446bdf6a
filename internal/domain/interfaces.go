package domain

import (
	"context"
	"time"
)

// CalendarProvider загружает литургический календарь за год у внешнего поставщика.
type CalendarProvider interface {
	FetchYear(ctx context.Context, year int) ([]RawFeast, error)
}

// Cache — хранилище ключ-значение с TTL и инвалидацией по тегам.
type Cache interface {
	// Get возвращает ErrCacheMiss, если ключа нет.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error
	InvalidateTag(ctx context.Context, tag string) error
}

// TenantRepo отдаёт часовни.
type TenantRepo interface {
	GetTenant(ctx context.Context, id string) (Tenant, error)
}

// ServiceRepo управляет богослужениями.
type ServiceRepo interface {
	CreateService(ctx context.Context, service Service) (Service, error)
	GetService(ctx context.Context, id string) (Service, error)
	// ListServices возвращает богослужения с from <= date < to в порядке хранения.
	ListServices(ctx context.Context, tenantID string, from, to time.Time) ([]Service, error)
	ListServicesByWeek(ctx context.Context, weekID string) ([]Service, error)
	DeleteService(ctx context.Context, id string) error
}

// TemplateRepo управляет шаблонами богослужений.
type TemplateRepo interface {
	// ListTemplates возвращает шаблоны часовни в порядке (created_at, id).
	ListTemplates(ctx context.Context, tenantID string) ([]ServiceTemplate, error)
	GetTemplate(ctx context.Context, id string) (ServiceTemplate, error)
	CreateTemplate(ctx context.Context, template ServiceTemplate) (ServiceTemplate, error)
	UpdateTemplate(ctx context.Context, template ServiceTemplate) (ServiceTemplate, error)
	DeleteTemplate(ctx context.Context, id string) error
	// InTenantTx выполняет fn в транзакции, сериализованной по часовне:
	// проверка конфликтов и запись шаблона не пересекаются с параллельными записями.
	InTenantTx(ctx context.Context, tenantID string, fn func(repo TemplateRepo) error) error
}

// ServiceWeekRepo управляет неделями расписания.
type ServiceWeekRepo interface {
	CreateServiceWeek(ctx context.Context, week ServiceWeek) (ServiceWeek, error)
	GetServiceWeek(ctx context.Context, id string) (ServiceWeek, error)
	ListServiceWeeks(ctx context.Context, tenantID string) ([]ServiceWeek, error)
	SetGeneratedCount(ctx context.Context, id string, count int) error
	DeleteServiceWeek(ctx context.Context, id string) error
}

// EventPublisher рассылает доменные события внешним потребителям (слою сайта).
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

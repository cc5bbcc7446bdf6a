package httpapi

import (
	"context"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"chapel-liturgy/internal/chapeltime"
	"chapel-liturgy/internal/domain"
	"chapel-liturgy/internal/usecase/feasts"
	"chapel-liturgy/internal/usecase/serviceweeks"
)

// CalendarReader сопоставляет праздники и богослужения часовни.
type CalendarReader interface {
	GetFeastsWithMasses(ctx context.Context, q feasts.Query) ([]domain.FeastWithMasses, error)
}

// CalendarAdmin управляет кэшем календаря.
type CalendarAdmin interface {
	Invalidate(ctx context.Context, year int) error
	Prewarm(ctx context.Context, years ...int) error
}

// TemplateService — операции над шаблонами часовни.
type TemplateService interface {
	List(ctx context.Context, tenantID string) ([]domain.ServiceTemplate, error)
	Create(ctx context.Context, candidate domain.ServiceTemplate) (domain.ServiceTemplate, error)
	Update(ctx context.Context, candidate domain.ServiceTemplate) (domain.ServiceTemplate, error)
	Delete(ctx context.Context, tenantID, id string) error
}

// WeekService — операции над неделями расписания.
type WeekService interface {
	List(ctx context.Context, tenantID string) ([]domain.ServiceWeek, error)
	Create(ctx context.Context, tenantID string, start domain.CivilDate) (domain.ServiceWeek, serviceweeks.Report, error)
	Delete(ctx context.Context, tenantID, id string) error
}

// ServiceManager — ручное управление богослужениями.
type ServiceManager interface {
	List(ctx context.Context, tenantID string, from, to time.Time) ([]domain.Service, error)
	Create(ctx context.Context, svc domain.Service) (domain.Service, error)
	Delete(ctx context.Context, tenantID, id string) error
}

// TenantStore регистрирует часовни.
type TenantStore interface {
	CreateTenant(ctx context.Context, tenant domain.Tenant) (domain.Tenant, error)
	GetTenant(ctx context.Context, id string) (domain.Tenant, error)
}

// Deps — зависимости обработчиков.
type Deps struct {
	Calendar  CalendarReader
	Admin     CalendarAdmin
	Templates TemplateService
	Weeks     WeekService
	Services  ServiceManager
	Tenants   TenantStore
	Conv      *chapeltime.Converter
}

// Handler обслуживает JSON API часовен.
type Handler struct {
	deps Deps
	log  zerolog.Logger
}

// Option настраивает Handler.
type Option func(*Handler)

// WithLogger задаёт логгер.
func WithLogger(log zerolog.Logger) Option {
	return func(h *Handler) { h.log = log }
}

// New создаёт обработчики API.
func New(deps Deps, opts ...Option) *Handler {
	h := &Handler{deps: deps, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Mount регистрирует маршруты API. admin оборачивает административные маршруты.
func (h *Handler) Mount(r chi.Router, admin func(chi.Router)) {
	r.Route("/api/v1/tenants/{tenantID}", func(r chi.Router) {
		r.Get("/calendar", h.getCalendar)

		r.Get("/templates", h.listTemplates)
		r.Post("/templates", h.createTemplate)
		r.Put("/templates/{id}", h.updateTemplate)
		r.Delete("/templates/{id}", h.deleteTemplate)

		r.Get("/service-weeks", h.listWeeks)
		r.Post("/service-weeks", h.createWeek)
		r.Delete("/service-weeks/{id}", h.deleteWeek)

		r.Get("/services", h.listServices)
		r.Post("/services", h.createService)
		r.Delete("/services/{id}", h.deleteService)
	})

	r.Route("/api/v1/admin", func(r chi.Router) {
		if admin != nil {
			admin(r)
		}
		r.Post("/tenants", h.createTenant)
		r.Post("/calendar/{year}/invalidate", h.invalidateYear)
		r.Post("/calendar/prewarm", h.prewarm)
	})
}

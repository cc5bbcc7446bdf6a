package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"chapel-liturgy/internal/domain"
	"chapel-liturgy/internal/infra/metrics"
)

// Postgres реализует репозитории на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.TenantRepo      = (*Postgres)(nil)
	_ domain.ServiceRepo     = (*Postgres)(nil)
	_ domain.TemplateRepo    = (*Postgres)(nil)
	_ domain.ServiceWeekRepo = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtxWithParent(ctx context.Context) (context.Context, context.CancelFunc) {
	return connCtx(ctx)
}

// connCtx ограничивает запрос пятью секундами, если у ctx нет своего дедлайна.
func connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

func execAffected(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func dateArg(d *domain.CivilDate) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Midnight(time.UTC)
	return &t
}

func civilPtr(t *time.Time) *domain.CivilDate {
	if t == nil {
		return nil
	}
	d := domain.CivilDateOf(*t)
	return &d
}

// CreateTenant регистрирует часовню.
func (p *Postgres) CreateTenant(ctx context.Context, tenant domain.Tenant) (domain.Tenant, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO tenants (id, name, slug)
VALUES ($1, $2, $3)
RETURNING created_at
`, tenant.ID, tenant.Name, tenant.Slug).Scan(&tenant.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "tenants_insert", "tenants", start, err)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return domain.Tenant{}, fmt.Errorf("%w: %s", domain.ErrConflict, pgErr.ConstraintName)
	}
	return tenant, err
}

// GetTenant реализует domain.TenantRepo.
func (p *Postgres) GetTenant(ctx context.Context, id string) (domain.Tenant, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	var tenant domain.Tenant
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT id, name, slug, created_at FROM tenants WHERE id=$1
`, id).Scan(&tenant.ID, &tenant.Name, &tenant.Slug, &tenant.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "tenants_get", "tenants", start, err)
	if err != nil {
		return domain.Tenant{}, notFound(err)
	}
	return tenant, nil
}

const serviceColumns = `id, tenant_id, date, category, mass_type, custom_title, notes, COALESCE(service_week_id, ''), created_at`

func scanService(row pgx.Row) (domain.Service, error) {
	var s domain.Service
	var category, massType string
	err := row.Scan(&s.ID, &s.TenantID, &s.Date, &category, &massType, &s.CustomTitle, &s.Notes, &s.ServiceWeekID, &s.CreatedAt)
	s.Category = domain.ServiceCategory(category)
	s.MassType = domain.MassType(massType)
	s.Date = s.Date.UTC()
	return s, err
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// CreateService реализует domain.ServiceRepo.
func (p *Postgres) CreateService(ctx context.Context, svc domain.Service) (domain.Service, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	saved, err := scanService(p.pool.QueryRow(ctx, `
INSERT INTO services (id, tenant_id, date, category, mass_type, custom_title, notes, service_week_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING `+serviceColumns,
		svc.ID, svc.TenantID, svc.Date.UTC(), string(svc.Category), string(svc.MassType), svc.CustomTitle, svc.Notes, nullable(svc.ServiceWeekID)))
	metrics.ObserveNetworkRequest("postgres", "services_insert", "services", start, err)
	if err != nil {
		return domain.Service{}, err
	}
	return saved, nil
}

// GetService реализует domain.ServiceRepo.
func (p *Postgres) GetService(ctx context.Context, id string) (domain.Service, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	svc, err := scanService(p.pool.QueryRow(ctx, `SELECT `+serviceColumns+` FROM services WHERE id=$1`, id))
	metrics.ObserveNetworkRequest("postgres", "services_get", "services", start, err)
	if err != nil {
		return domain.Service{}, notFound(err)
	}
	return svc, nil
}

// ListServices возвращает богослужения часовни в порядке вставки.
func (p *Postgres) ListServices(ctx context.Context, tenantID string, from, to time.Time) ([]domain.Service, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT `+serviceColumns+`
FROM services WHERE tenant_id=$1 AND date >= $2 AND date < $3
ORDER BY seq
`, tenantID, from.UTC(), to.UTC())
	metrics.ObserveNetworkRequest("postgres", "services_list", "services", start, err)
	if err != nil {
		return nil, err
	}
	return collectServices(rows)
}

// ListServicesByWeek возвращает богослужения, созданные неделей.
func (p *Postgres) ListServicesByWeek(ctx context.Context, weekID string) ([]domain.Service, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT `+serviceColumns+`
FROM services WHERE service_week_id=$1
ORDER BY seq
`, weekID)
	metrics.ObserveNetworkRequest("postgres", "services_list_by_week", "services", start, err)
	if err != nil {
		return nil, err
	}
	return collectServices(rows)
}

func collectServices(rows pgx.Rows) ([]domain.Service, error) {
	defer rows.Close()
	var out []domain.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	return out, rows.Err()
}

// DeleteService реализует domain.ServiceRepo.
func (p *Postgres) DeleteService(ctx context.Context, id string) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `DELETE FROM services WHERE id=$1`, id)
	metrics.ObserveNetworkRequest("postgres", "services_delete", "services", start, err)
	return execAffected(tag, err)
}

const weekColumns = `id, tenant_id, start_date, end_date, generated_count, created_at`

func scanWeek(row pgx.Row) (domain.ServiceWeek, error) {
	var (
		w          domain.ServiceWeek
		start, end time.Time
	)
	if err := row.Scan(&w.ID, &w.TenantID, &start, &end, &w.GeneratedCount, &w.CreatedAt); err != nil {
		return domain.ServiceWeek{}, err
	}
	w.Start, w.End = domain.CivilDateOf(start), domain.CivilDateOf(end)
	return w, nil
}

// CreateServiceWeek реализует domain.ServiceWeekRepo.
func (p *Postgres) CreateServiceWeek(ctx context.Context, w domain.ServiceWeek) (domain.ServiceWeek, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	saved, err := scanWeek(p.pool.QueryRow(ctx, `
INSERT INTO service_weeks (id, tenant_id, start_date, end_date, created_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+weekColumns,
		w.ID, w.TenantID, w.Start.Midnight(time.UTC), w.End.Midnight(time.UTC), w.CreatedAt))
	metrics.ObserveNetworkRequest("postgres", "service_weeks_insert", "service_weeks", start, err)
	return saved, err
}

// GetServiceWeek реализует domain.ServiceWeekRepo.
func (p *Postgres) GetServiceWeek(ctx context.Context, id string) (domain.ServiceWeek, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	w, err := scanWeek(p.pool.QueryRow(ctx, `SELECT `+weekColumns+` FROM service_weeks WHERE id=$1`, id))
	metrics.ObserveNetworkRequest("postgres", "service_weeks_get", "service_weeks", start, err)
	if err != nil {
		return domain.ServiceWeek{}, notFound(err)
	}
	return w, nil
}

// ListServiceWeeks реализует domain.ServiceWeekRepo.
func (p *Postgres) ListServiceWeeks(ctx context.Context, tenantID string) ([]domain.ServiceWeek, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT `+weekColumns+`
FROM service_weeks WHERE tenant_id=$1
ORDER BY start_date DESC, created_at DESC
`, tenantID)
	metrics.ObserveNetworkRequest("postgres", "service_weeks_list", "service_weeks", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.ServiceWeek
	for rows.Next() {
		w, err := scanWeek(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// SetGeneratedCount сохраняет число созданных неделей богослужений.
func (p *Postgres) SetGeneratedCount(ctx context.Context, id string, count int) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `UPDATE service_weeks SET generated_count=$2 WHERE id=$1`, id, count)
	metrics.ObserveNetworkRequest("postgres", "service_weeks_set_count", "service_weeks", start, err)
	return execAffected(tag, err)
}

// DeleteServiceWeek реализует domain.ServiceWeekRepo. Богослужения удаляет вызывающая сторона.
func (p *Postgres) DeleteServiceWeek(ctx context.Context, id string) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `DELETE FROM service_weeks WHERE id=$1`, id)
	metrics.ObserveNetworkRequest("postgres", "service_weeks_delete", "service_weeks", start, err)
	return execAffected(tag, err)
}

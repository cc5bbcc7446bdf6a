package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"chapel-liturgy/internal/domain"
	"chapel-liturgy/internal/infra/metrics"
)

// oneGenericIndex запрещает второй общий шаблон часовни.
const oneGenericIndex = "service_templates_one_generic_idx"

// querier общий для пула и транзакции.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// templateStore выполняет запросы к service_templates через пул или транзакцию.
type templateStore struct {
	q querier
}

var _ domain.TemplateRepo = templateStore{}

const templateColumns = `id, tenant_id, name, kind, period_start, period_end, days, created_at, updated_at`

func scanTemplate(row pgx.Row) (domain.ServiceTemplate, error) {
	var (
		t          domain.ServiceTemplate
		kind       string
		start, end *time.Time
		days       []byte
	)
	if err := row.Scan(&t.ID, &t.TenantID, &t.Name, &kind, &start, &end, &days, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return domain.ServiceTemplate{}, err
	}
	t.Kind = domain.TemplateKind(kind)
	t.PeriodStart, t.PeriodEnd = civilPtr(start), civilPtr(end)
	if len(days) > 0 {
		if err := json.Unmarshal(days, &t.Days); err != nil {
			return domain.ServiceTemplate{}, fmt.Errorf("шаблон %s: дни недели: %w", t.ID, err)
		}
	}
	return t, nil
}

func templateConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == oneGenericIndex {
		return fmt.Errorf("%w: %s", domain.ErrConflict, pgErr.ConstraintName)
	}
	return err
}

// ListTemplates реализует domain.TemplateRepo.
func (p *Postgres) ListTemplates(ctx context.Context, tenantID string) ([]domain.ServiceTemplate, error) {
	return templateStore{q: p.pool}.ListTemplates(ctx, tenantID)
}

// GetTemplate реализует domain.TemplateRepo.
func (p *Postgres) GetTemplate(ctx context.Context, id string) (domain.ServiceTemplate, error) {
	return templateStore{q: p.pool}.GetTemplate(ctx, id)
}

// CreateTemplate реализует domain.TemplateRepo.
func (p *Postgres) CreateTemplate(ctx context.Context, t domain.ServiceTemplate) (domain.ServiceTemplate, error) {
	return templateStore{q: p.pool}.CreateTemplate(ctx, t)
}

// UpdateTemplate реализует domain.TemplateRepo.
func (p *Postgres) UpdateTemplate(ctx context.Context, t domain.ServiceTemplate) (domain.ServiceTemplate, error) {
	return templateStore{q: p.pool}.UpdateTemplate(ctx, t)
}

// DeleteTemplate реализует domain.TemplateRepo.
func (p *Postgres) DeleteTemplate(ctx context.Context, id string) error {
	return templateStore{q: p.pool}.DeleteTemplate(ctx, id)
}

// InTenantTx открывает транзакцию и берёт advisory-блокировку часовни до её конца.
func (p *Postgres) InTenantTx(ctx context.Context, tenantID string, fn func(repo domain.TemplateRepo) error) error {
	return inTenantTx(ctx, p.pool, tenantID, fn)
}

func (s templateStore) InTenantTx(ctx context.Context, tenantID string, fn func(repo domain.TemplateRepo) error) error {
	if tx, ok := s.q.(pgx.Tx); ok {
		// Уже внутри транзакции: блокировка повторно входима для сессии.
		return lockTenant(ctx, tx, tenantID, func() error { return fn(s) })
	}
	b, ok := s.q.(beginner)
	if !ok {
		return errors.New("templates: querier не поддерживает транзакции")
	}
	return inTenantTx(ctx, b, tenantID, fn)
}

type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

func inTenantTx(ctx context.Context, b beginner, tenantID string, fn func(repo domain.TemplateRepo) error) error {
	ctx, cancel := connCtx(ctx)
	defer cancel()

	start := time.Now()
	tx, err := b.Begin(ctx)
	metrics.ObserveNetworkRequest("postgres", "templates_tx_begin", "service_templates", start, err)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockTenant(ctx, tx, tenantID, func() error { return fn(templateStore{q: tx}) }); err != nil {
		return err
	}

	start = time.Now()
	err = tx.Commit(ctx)
	metrics.ObserveNetworkRequest("postgres", "templates_tx_commit", "service_templates", start, err)
	return templateConflict(err)
}

func lockTenant(ctx context.Context, tx pgx.Tx, tenantID string, fn func() error) error {
	start := time.Now()
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, tenantID)
	metrics.ObserveNetworkRequest("postgres", "templates_lock", "service_templates", start, err)
	if err != nil {
		return fmt.Errorf("блокировка часовни %s: %w", tenantID, err)
	}
	return fn()
}

func (s templateStore) ListTemplates(ctx context.Context, tenantID string) ([]domain.ServiceTemplate, error) {
	ctx, cancel := connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := s.q.Query(ctx, `
SELECT `+templateColumns+`
FROM service_templates WHERE tenant_id=$1
ORDER BY created_at, id
`, tenantID)
	metrics.ObserveNetworkRequest("postgres", "templates_list", "service_templates", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.ServiceTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s templateStore) GetTemplate(ctx context.Context, id string) (domain.ServiceTemplate, error) {
	ctx, cancel := connCtx(ctx)
	defer cancel()

	start := time.Now()
	t, err := scanTemplate(s.q.QueryRow(ctx, `SELECT `+templateColumns+` FROM service_templates WHERE id=$1`, id))
	metrics.ObserveNetworkRequest("postgres", "templates_get", "service_templates", start, err)
	if err != nil {
		return domain.ServiceTemplate{}, notFound(err)
	}
	return t, nil
}

func (s templateStore) CreateTemplate(ctx context.Context, t domain.ServiceTemplate) (domain.ServiceTemplate, error) {
	days, err := json.Marshal(t.Days)
	if err != nil {
		return domain.ServiceTemplate{}, err
	}
	ctx, cancel := connCtx(ctx)
	defer cancel()

	start := time.Now()
	saved, err := scanTemplate(s.q.QueryRow(ctx, `
INSERT INTO service_templates (id, tenant_id, name, kind, period_start, period_end, days, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING `+templateColumns,
		t.ID, t.TenantID, t.Name, string(t.Kind), dateArg(t.PeriodStart), dateArg(t.PeriodEnd), days, t.CreatedAt, t.UpdatedAt))
	metrics.ObserveNetworkRequest("postgres", "templates_insert", "service_templates", start, err)
	if err != nil {
		return domain.ServiceTemplate{}, templateConflict(err)
	}
	return saved, nil
}

// UpdateTemplate не меняет часовню и дату создания.
func (s templateStore) UpdateTemplate(ctx context.Context, t domain.ServiceTemplate) (domain.ServiceTemplate, error) {
	days, err := json.Marshal(t.Days)
	if err != nil {
		return domain.ServiceTemplate{}, err
	}
	ctx, cancel := connCtx(ctx)
	defer cancel()

	start := time.Now()
	saved, err := scanTemplate(s.q.QueryRow(ctx, `
UPDATE service_templates
SET name=$2, kind=$3, period_start=$4, period_end=$5, days=$6, updated_at=$7
WHERE id=$1
RETURNING `+templateColumns,
		t.ID, t.Name, string(t.Kind), dateArg(t.PeriodStart), dateArg(t.PeriodEnd), days, t.UpdatedAt))
	metrics.ObserveNetworkRequest("postgres", "templates_update", "service_templates", start, err)
	if err != nil {
		return domain.ServiceTemplate{}, notFound(templateConflict(err))
	}
	return saved, nil
}

func (s templateStore) DeleteTemplate(ctx context.Context, id string) error {
	ctx, cancel := connCtx(ctx)
	defer cancel()

	start := time.Now()
	tag, err := s.q.Exec(ctx, `DELETE FROM service_templates WHERE id=$1`, id)
	metrics.ObserveNetworkRequest("postgres", "templates_delete", "service_templates", start, err)
	return execAffected(tag, err)
}

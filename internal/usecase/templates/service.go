package templates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"chapel-liturgy/internal/domain"
	"chapel-liturgy/internal/infra/metrics"
)

// Service управляет шаблонами богослужений часовни.
type Service struct {
	repo     domain.TemplateRepo
	tenants  domain.TenantRepo
	// pipeline строит проверки поверх репозитория текущей транзакции.
	pipeline func(domain.TemplateRepo) []Step
	log      zerolog.Logger
	now      func() time.Time
}

// NewService создаёт сервис шаблонов.
func NewService(repo domain.TemplateRepo, tenants domain.TenantRepo, log zerolog.Logger) *Service {
	return &Service{repo: repo, tenants: tenants, pipeline: Pipeline, log: log, now: time.Now}
}

// List возвращает шаблоны часовни.
func (s *Service) List(ctx context.Context, tenantID string) ([]domain.ServiceTemplate, error) {
	return s.repo.ListTemplates(ctx, tenantID)
}

// Create проверяет и сохраняет новый шаблон. Проверка конфликтов и запись
// идут в одной транзакции под блокировкой часовни.
func (s *Service) Create(ctx context.Context, candidate domain.ServiceTemplate) (domain.ServiceTemplate, error) {
	if _, err := s.tenants.GetTenant(ctx, candidate.TenantID); err != nil {
		return domain.ServiceTemplate{}, fmt.Errorf("получение часовни: %w", err)
	}
	candidate.ID = uuid.NewString()
	var saved domain.ServiceTemplate
	err := s.repo.InTenantTx(ctx, candidate.TenantID, func(repo domain.TemplateRepo) error {
		if err := s.validate(ctx, repo, &candidate); err != nil {
			return err
		}
		now := s.now().UTC()
		candidate.CreatedAt, candidate.UpdatedAt = now, now
		var err error
		saved, err = repo.CreateTemplate(ctx, candidate)
		if err != nil {
			return s.writeError("сохранение шаблона", candidate, err)
		}
		return nil
	})
	if err != nil {
		return domain.ServiceTemplate{}, err
	}
	return saved, nil
}

// Update проверяет и сохраняет изменённый шаблон. Часовню сменить нельзя.
func (s *Service) Update(ctx context.Context, candidate domain.ServiceTemplate) (domain.ServiceTemplate, error) {
	current, err := s.repo.GetTemplate(ctx, candidate.ID)
	if err != nil {
		return domain.ServiceTemplate{}, fmt.Errorf("получение шаблона: %w", err)
	}
	if current.TenantID != candidate.TenantID {
		return domain.ServiceTemplate{}, domain.ErrNotFound
	}
	candidate.CreatedAt = current.CreatedAt
	var saved domain.ServiceTemplate
	err = s.repo.InTenantTx(ctx, candidate.TenantID, func(repo domain.TemplateRepo) error {
		if err := s.validate(ctx, repo, &candidate); err != nil {
			return err
		}
		candidate.UpdatedAt = s.now().UTC()
		var err error
		saved, err = repo.UpdateTemplate(ctx, candidate)
		if err != nil {
			return s.writeError("обновление шаблона", candidate, err)
		}
		return nil
	})
	if err != nil {
		return domain.ServiceTemplate{}, err
	}
	return saved, nil
}

// Delete удаляет шаблон часовни. Уже созданные богослужения не затрагиваются.
func (s *Service) Delete(ctx context.Context, tenantID, id string) error {
	current, err := s.repo.GetTemplate(ctx, id)
	if err != nil {
		return fmt.Errorf("получение шаблона: %w", err)
	}
	if current.TenantID != tenantID {
		return domain.ErrNotFound
	}
	return s.repo.DeleteTemplate(ctx, id)
}

func (s *Service) validate(ctx context.Context, repo domain.TemplateRepo, candidate *domain.ServiceTemplate) error {
	err := Run(ctx, s.pipeline(repo), candidate)
	if verr, ok := AsValidationError(err); ok {
		s.rejected(candidate, verr)
	}
	return err
}

// writeError переводит нарушение уникального индекса общего шаблона в ошибку проверки.
func (s *Service) writeError(op string, candidate domain.ServiceTemplate, err error) error {
	if errors.Is(err, domain.ErrConflict) {
		verr := &ValidationError{
			Rule:    RuleDuplicateGeneric,
			Message: "Kaplica ma już szablon ogólny; dozwolony jest tylko jeden.",
		}
		s.rejected(&candidate, verr)
		return verr
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *Service) rejected(candidate *domain.ServiceTemplate, verr *ValidationError) {
	metrics.IncTemplateRejection(string(verr.Rule))
	s.log.Info().Str("tenant", candidate.TenantID).Str("rule", string(verr.Rule)).Msg("templates: шаблон отклонён")
}

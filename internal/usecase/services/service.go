package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"chapel-liturgy/internal/domain"
)

// ErrInvalidService — богослужение не прошло проверку полей.
var ErrInvalidService = errors.New("nieprawidłowe nabożeństwo")

// Service управляет богослужениями, добавленными вручную.
type Service struct {
	repo    domain.ServiceRepo
	tenants domain.TenantRepo
	log     zerolog.Logger
	now     func() time.Time
}

// NewService создаёт сервис богослужений.
func NewService(repo domain.ServiceRepo, tenants domain.TenantRepo, log zerolog.Logger) *Service {
	return &Service{repo: repo, tenants: tenants, log: log, now: time.Now}
}

// List возвращает богослужения часовни с from <= date < to.
func (s *Service) List(ctx context.Context, tenantID string, from, to time.Time) ([]domain.Service, error) {
	if !from.Before(to) {
		return nil, fmt.Errorf("%w: %s >= %s", domain.ErrInvalidRange, from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	return s.repo.ListServices(ctx, tenantID, from.UTC(), to.UTC())
}

// Create проверяет и сохраняет богослужение вне недельной генерации.
func (s *Service) Create(ctx context.Context, svc domain.Service) (domain.Service, error) {
	if _, err := s.tenants.GetTenant(ctx, svc.TenantID); err != nil {
		return domain.Service{}, fmt.Errorf("получение часовни: %w", err)
	}
	if err := normalize(&svc); err != nil {
		return domain.Service{}, err
	}
	svc.ID = uuid.NewString()
	svc.ServiceWeekID = ""
	svc.CreatedAt = s.now().UTC()
	saved, err := s.repo.CreateService(ctx, svc)
	if err != nil {
		return domain.Service{}, fmt.Errorf("сохранение богослужения: %w", err)
	}
	s.log.Info().Str("tenant", saved.TenantID).Str("service", saved.ID).Time("date", saved.Date).Msg("services: богослужение добавлено")
	return saved, nil
}

// Delete удаляет богослужение часовни.
func (s *Service) Delete(ctx context.Context, tenantID, id string) error {
	current, err := s.repo.GetService(ctx, id)
	if err != nil {
		return fmt.Errorf("получение богослужения: %w", err)
	}
	if current.TenantID != tenantID {
		return domain.ErrNotFound
	}
	return s.repo.DeleteService(ctx, id)
}

func normalize(svc *domain.Service) error {
	svc.CustomTitle = strings.TrimSpace(svc.CustomTitle)
	svc.Notes = strings.TrimSpace(svc.Notes)
	if svc.Date.IsZero() {
		return fmt.Errorf("%w: brak daty", ErrInvalidService)
	}
	svc.Date = svc.Date.UTC()
	if !svc.Category.Valid() {
		return fmt.Errorf("%w: nieznana kategoria %q", ErrInvalidService, svc.Category)
	}
	if svc.Category != domain.CategoryMass {
		svc.MassType = ""
		return nil
	}
	if !svc.MassType.Valid() {
		return fmt.Errorf("%w: nieznany rodzaj Mszy %q", ErrInvalidService, svc.MassType)
	}
	return nil
}

package serviceweeks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"chapel-liturgy/internal/domain"
)

// ErrWeekStart возвращается, если неделя начинается не с понедельника.
var ErrWeekStart = errors.New("неделя должна начинаться с понедельника")

// Service создаёт и удаляет недели расписания.
type Service struct {
	weeks     domain.ServiceWeekRepo
	services  domain.ServiceRepo
	tenants   domain.TenantRepo
	generator *Generator
	events    domain.EventPublisher
	log       zerolog.Logger
	now       func() time.Time
}

// NewService создаёт сервис недель.
func NewService(weeks domain.ServiceWeekRepo, services domain.ServiceRepo, tenants domain.TenantRepo, generator *Generator, events domain.EventPublisher, log zerolog.Logger) *Service {
	return &Service{weeks: weeks, services: services, tenants: tenants, generator: generator, events: events, log: log, now: time.Now}
}

// List возвращает недели часовни.
func (s *Service) List(ctx context.Context, tenantID string) ([]domain.ServiceWeek, error) {
	return s.weeks.ListServiceWeeks(ctx, tenantID)
}

// Create сохраняет неделю и синхронно генерирует её богослужения.
//
// Повторный вызов для той же недели создаст дубликаты: генерация не идемпотентна.
// Если календарь недоступен, неделя откатывается и возвращается ошибка.
func (s *Service) Create(ctx context.Context, tenantID string, start domain.CivilDate) (domain.ServiceWeek, Report, error) {
	if start.Weekday() != time.Monday {
		return domain.ServiceWeek{}, Report{}, fmt.Errorf("%w: %s", ErrWeekStart, start)
	}
	if _, err := s.tenants.GetTenant(ctx, tenantID); err != nil {
		return domain.ServiceWeek{}, Report{}, fmt.Errorf("получение часовни: %w", err)
	}
	week, err := s.weeks.CreateServiceWeek(ctx, domain.ServiceWeek{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Start:     start,
		End:       start.AddDays(6),
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return domain.ServiceWeek{}, Report{}, fmt.Errorf("сохранение недели: %w", err)
	}

	report, err := s.generator.Generate(ctx, week)
	if err != nil {
		if delErr := s.weeks.DeleteServiceWeek(ctx, week.ID); delErr != nil {
			s.log.Error().Err(delErr).Str("week", week.ID).Msg("serviceweeks: не удалось откатить неделю")
		}
		return domain.ServiceWeek{}, Report{}, fmt.Errorf("генерация недели %s: %w", start, err)
	}

	week.GeneratedCount = len(report.Created)
	if err := s.weeks.SetGeneratedCount(ctx, week.ID, week.GeneratedCount); err != nil {
		s.log.Warn().Err(err).Str("week", week.ID).Msg("serviceweeks: не удалось сохранить число богослужений")
	}
	s.log.Info().
		Str("tenant", tenantID).
		Str("week", week.ID).
		Str("start", start.String()).
		Int("created", len(report.Created)).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Msg("serviceweeks: неделя сгенерирована")
	s.publish(ctx, domain.EventServiceWeekGenerated, week)
	return week, report, nil
}

// Delete удаляет богослужения, созданные неделей, а затем саму неделю.
// Если часть богослужений удалить не удалось, неделя остаётся для повторной попытки.
func (s *Service) Delete(ctx context.Context, tenantID, id string) error {
	week, err := s.weeks.GetServiceWeek(ctx, id)
	if err != nil {
		return fmt.Errorf("получение недели: %w", err)
	}
	if week.TenantID != tenantID {
		return domain.ErrNotFound
	}
	generated, err := s.services.ListServicesByWeek(ctx, id)
	if err != nil {
		return fmt.Errorf("получение богослужений недели: %w", err)
	}
	var errs []error
	for _, svc := range generated {
		if err := s.services.DeleteService(ctx, svc.ID); err != nil {
			errs = append(errs, fmt.Errorf("богослужение %s: %w", svc.ID, err))
		}
	}
	if len(errs) > 0 {
		err := errors.Join(errs...)
		s.log.Error().Err(err).Str("week", id).Int("failed", len(errs)).Int("total", len(generated)).Msg("serviceweeks: неполное удаление")
		return fmt.Errorf("удаление богослужений недели: %w", err)
	}
	if err := s.weeks.DeleteServiceWeek(ctx, id); err != nil {
		return fmt.Errorf("удаление недели: %w", err)
	}
	s.publish(ctx, domain.EventServiceWeekDeleted, week)
	return nil
}

func (s *Service) publish(ctx context.Context, eventType domain.EventType, week domain.ServiceWeek) {
	if s.events == nil {
		return
	}
	event := domain.Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		TenantID:   week.TenantID,
		WeekID:     week.ID,
		OccurredAt: s.now().UTC(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("event", string(eventType)).Msg("serviceweeks: событие не отправлено")
	}
}

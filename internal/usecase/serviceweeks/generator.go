package serviceweeks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"chapel-liturgy/internal/chapeltime"
	"chapel-liturgy/internal/domain"
	"chapel-liturgy/internal/infra/metrics"
	"chapel-liturgy/internal/usecase/templates"
)

// FeastSource отдаёт праздники за диапазон.
type FeastSource interface {
	GetFeasts(ctx context.Context, start, end domain.CivilDate) ([]domain.Feast, error)
}

// Report описывает результат генерации недели.
type Report struct {
	Created []domain.Service
	Failed  int
	Skipped int
}

// Generator создаёт богослужения недели по шаблонам часовни.
type Generator struct {
	feasts      FeastSource
	templates   domain.TemplateRepo
	services    domain.ServiceRepo
	conv        *chapeltime.Converter
	log         zerolog.Logger
	concurrency int
	newID       func() string
}

// NewGenerator создаёт генератор. concurrency ограничивает параллельные записи.
func NewGenerator(feasts FeastSource, tpls domain.TemplateRepo, services domain.ServiceRepo, conv *chapeltime.Converter, log zerolog.Logger, concurrency int) *Generator {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Generator{feasts: feasts, templates: tpls, services: services, conv: conv, log: log, concurrency: concurrency, newID: uuid.NewString}
}

// Generate материализует богослужения недели. Ошибка календаря или чтения шаблонов
// возвращается; ошибка записи отдельного богослужения логируется и пропускается.
func (g *Generator) Generate(ctx context.Context, week domain.ServiceWeek) (Report, error) {
	start := time.Now()
	defer func() { metrics.GenerationSeconds.Observe(time.Since(start).Seconds()) }()

	feasts, err := g.feasts.GetFeasts(ctx, week.Start, week.End)
	if err != nil {
		return Report{}, fmt.Errorf("получение праздников недели: %w", err)
	}
	tpls, err := g.templates.ListTemplates(ctx, week.TenantID)
	if err != nil {
		return Report{}, fmt.Errorf("получение шаблонов: %w", err)
	}

	byWeekday := make(map[time.Weekday][]domain.Feast, 7)
	for _, feast := range feasts {
		wd := feast.Date.Weekday()
		byWeekday[wd] = append(byWeekday[wd], feast)
	}

	var report Report
	var planned []domain.Service
	for _, wd := range domain.OrderedWeekdays {
		for _, feast := range byWeekday[wd] {
			tpl, ok := templates.Resolve(feast.Date, tpls)
			if !ok {
				continue
			}
			for _, entry := range tpl.Days[wd] {
				svc, err := g.plan(week, feast.Date, entry)
				if err != nil {
					report.Skipped++
					metrics.TemplateEntriesSkipped.Inc()
					g.log.Warn().Err(err).
						Str("tenant", week.TenantID).
						Str("week", week.ID).
						Str("template", tpl.ID).
						Str("date", feast.Date.String()).
						Str("time", entry.Time).
						Msg("serviceweeks: запись шаблона пропущена")
					continue
				}
				planned = append(planned, svc)
			}
		}
	}

	created := make([]*domain.Service, len(planned))
	var mu sync.Mutex
	var eg errgroup.Group
	eg.SetLimit(g.concurrency)
	for i, svc := range planned {
		eg.Go(func() error {
			saved, err := g.services.CreateService(ctx, svc)
			if err != nil {
				metrics.ServiceGenerationFailures.Inc()
				g.log.Error().Err(err).
					Str("tenant", week.TenantID).
					Str("week", week.ID).
					Time("date", svc.Date).
					Str("category", string(svc.Category)).
					Msg("serviceweeks: не удалось создать богослужение")
				mu.Lock()
				report.Failed++
				mu.Unlock()
				return nil
			}
			metrics.ServicesGenerated.Inc()
			created[i] = &saved
			return nil
		})
	}
	_ = eg.Wait()

	for _, svc := range created {
		if svc != nil {
			report.Created = append(report.Created, *svc)
		}
	}
	sort.SliceStable(report.Created, func(i, j int) bool { return report.Created[i].Date.Before(report.Created[j].Date) })
	return report, nil
}

func (g *Generator) plan(week domain.ServiceWeek, day domain.CivilDate, entry domain.TemplateEntry) (domain.Service, error) {
	hour, minute, err := domain.ParseTimeOfDay(entry.Time)
	if err != nil {
		return domain.Service{}, err
	}
	at, err := g.conv.LocalDateTimeToUTC(day, hour, minute)
	if err != nil {
		return domain.Service{}, err
	}
	massType := entry.MassType
	if entry.Category != domain.CategoryMass {
		massType = ""
	}
	return domain.Service{
		ID:            g.newID(),
		TenantID:      week.TenantID,
		Date:          at,
		Category:      entry.Category,
		MassType:      massType,
		CustomTitle:   entry.CustomTitle,
		Notes:         entry.Notes,
		ServiceWeekID: week.ID,
	}, nil
}

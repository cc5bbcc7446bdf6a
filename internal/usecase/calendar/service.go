package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"chapel-liturgy/internal/chapeltime"
	"chapel-liturgy/internal/domain"
	"chapel-liturgy/internal/infra/metrics"
)

// DefaultTTL — срок жизни календаря года в кэше; календарь статичен.
const DefaultTTL = 90 * 24 * time.Hour

// CacheTag возвращает тег инвалидации календаря за год.
func CacheTag(year int) string {
	return "liturgical-calendar:" + strconv.Itoa(year)
}

func cacheKey(year int) string {
	return "liturgical-calendar:feasts:" + strconv.Itoa(year)
}

// Source отдаёт праздники за диапазон дат, кэшируя календарь по годам.
type Source struct {
	provider domain.CalendarProvider
	cache    domain.Cache
	conv     *chapeltime.Converter
	ttl      time.Duration
	log      zerolog.Logger
	now      func() time.Time
	events   domain.EventPublisher
	flight   singleflight.Group
}

// Option настраивает Source.
type Option func(*Source)

// WithTTL задаёт срок жизни кэша.
func WithTTL(ttl time.Duration) Option {
	return func(s *Source) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithLogger задаёт логгер.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Source) { s.log = log }
}

// WithClock подменяет текущее время (для прогрева и тестов).
func WithClock(now func() time.Time) Option {
	return func(s *Source) { s.now = now }
}

// WithEvents включает событие calendar.invalidated после сброса кэша.
func WithEvents(events domain.EventPublisher) Option {
	return func(s *Source) { s.events = events }
}

// NewSource создаёт источник календаря.
func NewSource(provider domain.CalendarProvider, cache domain.Cache, conv *chapeltime.Converter, opts ...Option) *Source {
	s := &Source{provider: provider, cache: cache, conv: conv, ttl: DefaultTTL, log: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetFeasts возвращает праздники из [start, end] включительно, отсортированные по дате.
func (s *Source) GetFeasts(ctx context.Context, start, end domain.CivilDate) ([]domain.Feast, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: %s > %s", domain.ErrInvalidRange, start, end)
	}
	years := make([]int, 0, end.Year-start.Year+1)
	for y := start.Year; y <= end.Year; y++ {
		years = append(years, y)
	}

	perYear := make([][]domain.Feast, len(years))
	g, gctx := errgroup.WithContext(ctx)
	for i, year := range years {
		g.Go(func() error {
			feasts, err := s.FetchYear(gctx, year)
			if err != nil {
				return err
			}
			perYear[i] = feasts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var result []domain.Feast
	for _, feasts := range perYear {
		for _, feast := range feasts {
			if feast.Date.Within(start, end) {
				result = append(result, feast)
			}
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

// FetchYear возвращает календарь года из кэша, а при промахе — у поставщика.
// Конкурентные промахи по одному году схлопываются в один запрос.
func (s *Source) FetchYear(ctx context.Context, year int) ([]domain.Feast, error) {
	if feasts, ok := s.lookup(ctx, year); ok {
		return feasts, nil
	}
	v, err, _ := s.flight.Do(cacheKey(year), func() (any, error) {
		if feasts, ok := s.lookup(ctx, year); ok {
			return feasts, nil
		}
		return s.load(ctx, year)
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Feast), nil
}

// Prewarm заполняет кэш за указанные годы; без аргументов — за текущий и следующий год.
func (s *Source) Prewarm(ctx context.Context, years ...int) error {
	if len(years) == 0 {
		current := s.conv.Today(s.now()).Year
		years = []int{current, current + 1}
	}
	var errs []error
	for _, year := range years {
		feasts, err := s.FetchYear(ctx, year)
		if err != nil {
			s.log.Error().Err(err).Int("year", year).Msg("calendar: прогрев не удался")
			errs = append(errs, fmt.Errorf("год %d: %w", year, err))
			continue
		}
		s.log.Info().Int("year", year).Int("feasts", len(feasts)).Msg("calendar: кэш прогрет")
	}
	return errors.Join(errs...)
}

// Invalidate сбрасывает кэш календаря за год.
func (s *Source) Invalidate(ctx context.Context, year int) error {
	if err := s.cache.InvalidateTag(ctx, CacheTag(year)); err != nil {
		return fmt.Errorf("инвалидация %s: %w", CacheTag(year), err)
	}
	s.log.Info().Int("year", year).Msg("calendar: кэш сброшен")
	if s.events != nil {
		event := domain.Event{
			ID:         uuid.NewString(),
			Type:       domain.EventCalendarInvalidated,
			Year:       year,
			OccurredAt: s.now().UTC(),
		}
		if err := s.events.Publish(ctx, event); err != nil {
			s.log.Warn().Err(err).Int("year", year).Msg("calendar: событие не отправлено")
		}
	}
	return nil
}

func (s *Source) lookup(ctx context.Context, year int) ([]domain.Feast, bool) {
	raw, err := s.cache.Get(ctx, cacheKey(year))
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			s.log.Warn().Err(err).Int("year", year).Msg("calendar: ошибка чтения кэша")
		}
		metrics.ObserveCacheLookup(false)
		return nil, false
	}
	var feasts []domain.Feast
	if err := json.Unmarshal(raw, &feasts); err != nil {
		s.log.Warn().Err(err).Int("year", year).Msg("calendar: повреждённая запись кэша")
		metrics.ObserveCacheLookup(false)
		return nil, false
	}
	metrics.ObserveCacheLookup(true)
	return feasts, true
}

func (s *Source) load(ctx context.Context, year int) ([]domain.Feast, error) {
	raw, err := s.provider.FetchYear(ctx, year)
	if err != nil {
		metrics.CalendarFetchErrors.Inc()
		return nil, fmt.Errorf("загрузка календаря %d: %w", year, err)
	}
	feasts, err := normalize(raw)
	if err != nil {
		metrics.CalendarFetchErrors.Inc()
		return nil, fmt.Errorf("разбор календаря %d: %w", year, err)
	}
	payload, err := json.Marshal(feasts)
	if err != nil {
		return nil, fmt.Errorf("marshal feasts: %w", err)
	}
	if err := s.cache.Set(ctx, cacheKey(year), payload, s.ttl, CacheTag(year)); err != nil {
		s.log.Warn().Err(err).Int("year", year).Msg("calendar: не удалось сохранить в кэш")
	}
	return feasts, nil
}

// normalize переводит записи поставщика в Feast. Используется только первый код цвета.
func normalize(raw []domain.RawFeast) ([]domain.Feast, error) {
	feasts := make([]domain.Feast, 0, len(raw))
	for _, item := range raw {
		date, err := domain.ParseCivilDate(item.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
		}
		if len(item.Colors) == 0 {
			return nil, fmt.Errorf("%w: %s без цвета", domain.ErrUnknownColor, item.ID)
		}
		color, err := domain.ParseVestmentColor(item.Colors[0])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", item.ID, err)
		}
		feasts = append(feasts, domain.Feast{
			Date:           date,
			Title:          item.Title,
			Rank:           item.Rank,
			Color:          color,
			Commemorations: item.Commemorations,
		})
	}
	return feasts, nil
}

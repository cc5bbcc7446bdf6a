package feasts

import (
	"context"
	"fmt"
	"time"

	"chapel-liturgy/internal/chapeltime"
	"chapel-liturgy/internal/domain"
)

// FeastSource отдаёт праздники за диапазон, отсортированные по дате.
type FeastSource interface {
	GetFeasts(ctx context.Context, start, end domain.CivilDate) ([]domain.Feast, error)
}

// Period — явный диапазон дат; учитывается, только если заданы обе границы.
type Period struct {
	Start *domain.CivilDate
	End   *domain.CivilDate
}

// Window — интервал выборки богослужений [From, To).
type Window struct {
	From time.Time
	To   time.Time
}

// Query описывает запрос календаря для часовни.
type Query struct {
	TenantID string
	Period   Period
	// ReferenceDate по умолчанию — текущий момент.
	ReferenceDate time.Time
	ServiceWindow *Window
}

// Matcher сопоставляет праздники и богослужения часовни по локальному дню.
type Matcher struct {
	feasts   FeastSource
	services domain.ServiceRepo
	conv     *chapeltime.Converter
	now      func() time.Time
}

// NewMatcher создаёт сервис.
func NewMatcher(feasts FeastSource, services domain.ServiceRepo, conv *chapeltime.Converter) *Matcher {
	return &Matcher{feasts: feasts, services: services, conv: conv, now: time.Now}
}

// SetClock подменяет источник текущего времени.
func (m *Matcher) SetClock(now func() time.Time) {
	if now != nil {
		m.now = now
	}
}

// GetFeastsWithMasses возвращает по одной записи на каждый праздник диапазона.
//
// С явным периодом праздники и богослужения берутся за один и тот же период.
// Иначе праздники берутся за весь год опорной даты, а богослужения — за узкое окно:
// переданное явно или от начала предыдущего до конца следующего месяца.
func (m *Matcher) GetFeastsWithMasses(ctx context.Context, q Query) ([]domain.FeastWithMasses, error) {
	feastStart, feastEnd, window := m.ranges(q)

	feasts, err := m.feasts.GetFeasts(ctx, feastStart, feastEnd)
	if err != nil {
		return nil, fmt.Errorf("получение праздников: %w", err)
	}
	services, err := m.services.ListServices(ctx, q.TenantID, window.From, window.To)
	if err != nil {
		return nil, fmt.Errorf("получение богослужений: %w", err)
	}

	days := make([]domain.CivilDate, len(services))
	for i, s := range services {
		days[i] = m.conv.UTCToLocalCivilDay(s.Date)
	}

	result := make([]domain.FeastWithMasses, 0, len(feasts))
	for _, feast := range feasts {
		matched := make([]domain.Service, 0)
		for i, day := range days {
			if day == feast.Date {
				matched = append(matched, services[i])
			}
		}
		result = append(result, domain.FeastWithMasses{Feast: feast, Masses: matched})
	}
	return result, nil
}

func (m *Matcher) ranges(q Query) (domain.CivilDate, domain.CivilDate, Window) {
	if q.Period.Start != nil && q.Period.End != nil {
		start, end := *q.Period.Start, *q.Period.End
		return start, end, m.dayWindow(start, end)
	}

	ref := q.ReferenceDate
	if ref.IsZero() {
		ref = m.now()
	}
	refDay := m.conv.UTCToLocalCivilDay(ref)
	feastStart := domain.NewCivilDate(refDay.Year, time.January, 1)
	feastEnd := domain.NewCivilDate(refDay.Year, time.December, 31)

	if q.ServiceWindow != nil {
		return feastStart, feastEnd, *q.ServiceWindow
	}
	from := domain.NewCivilDate(refDay.Year, refDay.Month-1, 1)
	// День 0 следующего-следующего месяца — последний день следующего месяца.
	to := domain.NewCivilDate(refDay.Year, refDay.Month+2, 0)
	return feastStart, feastEnd, m.dayWindow(from, to)
}

// dayWindow переводит локальные дни [start, end] в полуинтервал UTC.
func (m *Matcher) dayWindow(start, end domain.CivilDate) Window {
	loc := m.conv.Location()
	return Window{
		From: start.Midnight(loc).UTC(),
		To:   end.AddDays(1).Midnight(loc).UTC(),
	}
}

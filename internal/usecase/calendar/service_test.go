package calendar

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"chapel-liturgy/internal/chapeltime"
	"chapel-liturgy/internal/domain"
	"chapel-liturgy/internal/infra/cache"
)

type fakeProvider struct {
	mu    sync.Mutex
	calls map[int]int
	data  map[int][]domain.RawFeast
	err   error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{calls: map[int]int{}, data: map[int][]domain.RawFeast{}}
}

func (f *fakeProvider) FetchYear(_ context.Context, year int) ([]domain.RawFeast, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[year]++
	if f.err != nil {
		return nil, f.err
	}
	if data, ok := f.data[year]; ok {
		return data, nil
	}
	return fullYear(year), nil
}

func (f *fakeProvider) callsFor(year int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[year]
}

// fullYear отдаёт дни года в обратном порядке, чтобы проверить сортировку.
func fullYear(year int) []domain.RawFeast {
	var out []domain.RawFeast
	day := domain.NewCivilDate(year, time.December, 31)
	for day.Year == year {
		out = append(out, domain.RawFeast{ID: day.String(), Title: fmt.Sprintf("Feria %s", day), Rank: 4, Colors: []string{"g"}})
		day = day.AddDays(-1)
	}
	return out
}

func newSource(p domain.CalendarProvider) *Source {
	return NewSource(p, cache.NewMemory(nil), chapeltime.MustNew(chapeltime.DefaultZone))
}

func TestGetFeastsCacheHitSuppressesFetch(t *testing.T) {
	provider := newFakeProvider()
	src := newSource(provider)
	ctx := context.Background()
	start, end := domain.NewCivilDate(2024, 3, 1), domain.NewCivilDate(2024, 3, 31)
	for i := 0; i < 2; i++ {
		feasts, err := src.GetFeasts(ctx, start, end)
		if err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
		if len(feasts) != 31 {
			t.Fatalf("ожидали 31 день, получили %d", len(feasts))
		}
	}
	if got := provider.callsFor(2024); got != 1 {
		t.Fatalf("ожидали один запрос к поставщику, получили %d", got)
	}
}

func TestGetFeastsSortedAcrossYears(t *testing.T) {
	provider := newFakeProvider()
	src := newSource(provider)
	start, end := domain.NewCivilDate(2024, 12, 20), domain.NewCivilDate(2025, 1, 10)
	feasts, err := src.GetFeasts(context.Background(), start, end)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(feasts) != 22 {
		t.Fatalf("ожидали 22 дня, получили %d", len(feasts))
	}
	if feasts[0].Date != start || feasts[len(feasts)-1].Date != end {
		t.Fatalf("неверные границы: %v .. %v", feasts[0].Date, feasts[len(feasts)-1].Date)
	}
	for i := 1; i < len(feasts); i++ {
		if !feasts[i-1].Date.Before(feasts[i].Date) {
			t.Fatalf("нарушен порядок на позиции %d: %v >= %v", i, feasts[i-1].Date, feasts[i].Date)
		}
	}
	if provider.callsFor(2024) != 1 || provider.callsFor(2025) != 1 {
		t.Fatalf("ожидали по одному запросу на год")
	}
}

func TestGetFeastsSingleDayRange(t *testing.T) {
	src := newSource(newFakeProvider())
	for _, day := range []domain.CivilDate{
		domain.NewCivilDate(2024, 1, 1),
		domain.NewCivilDate(2024, 2, 29),
		domain.NewCivilDate(2024, 12, 31),
	} {
		feasts, err := src.GetFeasts(context.Background(), day, day)
		if err != nil {
			t.Fatalf("%s: не ожидали ошибку: %v", day, err)
		}
		if len(feasts) != 1 || feasts[0].Date != day {
			t.Fatalf("%s: ожидали ровно один день, получили %+v", day, feasts)
		}
	}
}

func TestGetFeastsMapsColorAndFailsOnUnknownCode(t *testing.T) {
	provider := newFakeProvider()
	provider.data[2024] = []domain.RawFeast{
		{ID: "2024-01-06", Title: "Objawienie Pańskie", Rank: 1, Colors: []string{"w", "r"}},
	}
	provider.data[2023] = []domain.RawFeast{
		{ID: "2023-12-17", Title: "III Niedziela Adwentu", Rank: 1, Colors: []string{"x"}},
	}
	src := newSource(provider)
	ctx := context.Background()

	feasts, err := src.GetFeasts(ctx, domain.NewCivilDate(2024, 1, 6), domain.NewCivilDate(2024, 1, 6))
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(feasts) != 1 || feasts[0].Color != domain.ColorWhite {
		t.Fatalf("ожидали белый цвет по первому коду: %+v", feasts)
	}

	_, err = src.GetFeasts(ctx, domain.NewCivilDate(2023, 12, 17), domain.NewCivilDate(2023, 12, 17))
	if !errors.Is(err, domain.ErrUnknownColor) {
		t.Fatalf("ожидали ErrUnknownColor, получили %v", err)
	}
}

func TestGetFeastsPropagatesUpstreamError(t *testing.T) {
	provider := newFakeProvider()
	provider.err = fmt.Errorf("%w: status 502", domain.ErrUpstream)
	src := newSource(provider)
	_, err := src.GetFeasts(context.Background(), domain.NewCivilDate(2024, 1, 1), domain.NewCivilDate(2024, 1, 7))
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("ожидали ErrUpstream, получили %v", err)
	}
}

func TestGetFeastsRejectsInvertedRange(t *testing.T) {
	src := newSource(newFakeProvider())
	_, err := src.GetFeasts(context.Background(), domain.NewCivilDate(2024, 2, 1), domain.NewCivilDate(2024, 1, 1))
	if !errors.Is(err, domain.ErrInvalidRange) {
		t.Fatalf("ожидали ErrInvalidRange, получили %v", err)
	}
}

func TestInvalidateForcesRefetch(t *testing.T) {
	provider := newFakeProvider()
	src := newSource(provider)
	ctx := context.Background()
	if _, err := src.FetchYear(ctx, 2024); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if err := src.Invalidate(ctx, 2024); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if _, err := src.FetchYear(ctx, 2024); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if got := provider.callsFor(2024); got != 2 {
		t.Fatalf("ожидали повторный запрос после инвалидации, получили %d", got)
	}
}

type recordingEvents struct {
	events []domain.Event
}

func (r *recordingEvents) Publish(_ context.Context, e domain.Event) error {
	r.events = append(r.events, e)
	return nil
}

func TestInvalidatePublishesEvent(t *testing.T) {
	events := &recordingEvents{}
	src := NewSource(newFakeProvider(), cache.NewMemory(nil), chapeltime.MustNew(chapeltime.DefaultZone), WithEvents(events))
	if err := src.Invalidate(context.Background(), 2025); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(events.events) != 1 {
		t.Fatalf("ожидали одно событие, получили %d", len(events.events))
	}
	if e := events.events[0]; e.Type != domain.EventCalendarInvalidated || e.Year != 2025 {
		t.Fatalf("неожиданное событие: %+v", e)
	}
}

func TestPrewarmDefaultsToCurrentAndNextYear(t *testing.T) {
	provider := newFakeProvider()
	now := func() time.Time { return time.Date(2024, 12, 31, 23, 30, 0, 0, time.UTC) }
	src := NewSource(provider, cache.NewMemory(nil), chapeltime.MustNew(chapeltime.DefaultZone), WithClock(now))
	if err := src.Prewarm(context.Background()); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	// 23:30 UTC 31 декабря — уже 2025 год в Варшаве.
	if provider.callsFor(2025) != 1 || provider.callsFor(2026) != 1 || provider.callsFor(2024) != 0 {
		t.Fatalf("неожиданные запросы: %v", provider.calls)
	}
	if _, err := src.FetchYear(context.Background(), 2025); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if provider.callsFor(2025) != 1 {
		t.Fatalf("после прогрева запрос к поставщику не нужен")
	}
}

func TestCacheTag(t *testing.T) {
	if CacheTag(2024) != "liturgical-calendar:2024" {
		t.Fatalf("CacheTag = %s", CacheTag(2024))
	}
}

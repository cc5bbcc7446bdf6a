package serviceweeks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"chapel-liturgy/internal/chapeltime"
	"chapel-liturgy/internal/domain"
)

type stubFeasts struct {
	err error
}

func (s stubFeasts) GetFeasts(_ context.Context, start, end domain.CivilDate) ([]domain.Feast, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []domain.Feast
	for d := start; !d.After(end); d = d.AddDays(1) {
		out = append(out, domain.Feast{Date: d, Title: "Feria", Rank: 4, Color: domain.ColorGreen})
	}
	return out, nil
}

type stubTemplates struct {
	items []domain.ServiceTemplate
}

func (s stubTemplates) ListTemplates(_ context.Context, tenantID string) ([]domain.ServiceTemplate, error) {
	var out []domain.ServiceTemplate
	for _, t := range s.items {
		if t.TenantID == tenantID {
			out = append(out, t)
		}
	}
	return out, nil
}
func (s stubTemplates) GetTemplate(context.Context, string) (domain.ServiceTemplate, error) {
	return domain.ServiceTemplate{}, domain.ErrNotFound
}
func (s stubTemplates) CreateTemplate(_ context.Context, t domain.ServiceTemplate) (domain.ServiceTemplate, error) {
	return t, nil
}
func (s stubTemplates) UpdateTemplate(_ context.Context, t domain.ServiceTemplate) (domain.ServiceTemplate, error) {
	return t, nil
}
func (s stubTemplates) DeleteTemplate(context.Context, string) error { return nil }
func (s stubTemplates) InTenantTx(_ context.Context, _ string, fn func(domain.TemplateRepo) error) error {
	return fn(s)
}

type memoryServices struct {
	mu         sync.Mutex
	items      []domain.Service
	failCreate func(domain.Service) bool
	failDelete func(string) bool
}

func (m *memoryServices) CreateService(_ context.Context, svc domain.Service) (domain.Service, error) {
	if m.failCreate != nil && m.failCreate(svc) {
		return domain.Service{}, errors.New("db down")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, svc)
	return svc, nil
}

func (m *memoryServices) GetService(_ context.Context, id string) (domain.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.items {
		if s.ID == id {
			return s, nil
		}
	}
	return domain.Service{}, domain.ErrNotFound
}

func (m *memoryServices) ListServices(_ context.Context, tenantID string, from, to time.Time) ([]domain.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Service
	for _, s := range m.items {
		if s.TenantID == tenantID && !s.Date.Before(from) && s.Date.Before(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memoryServices) ListServicesByWeek(_ context.Context, weekID string) ([]domain.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Service
	for _, s := range m.items {
		if s.ServiceWeekID == weekID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memoryServices) DeleteService(_ context.Context, id string) error {
	if m.failDelete != nil && m.failDelete(id) {
		return errors.New("db down")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memoryServices) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

type memoryWeeks struct {
	items map[string]domain.ServiceWeek
}

func (m *memoryWeeks) CreateServiceWeek(_ context.Context, w domain.ServiceWeek) (domain.ServiceWeek, error) {
	m.items[w.ID] = w
	return w, nil
}
func (m *memoryWeeks) GetServiceWeek(_ context.Context, id string) (domain.ServiceWeek, error) {
	w, ok := m.items[id]
	if !ok {
		return domain.ServiceWeek{}, domain.ErrNotFound
	}
	return w, nil
}
func (m *memoryWeeks) ListServiceWeeks(context.Context, string) ([]domain.ServiceWeek, error) {
	return nil, nil
}
func (m *memoryWeeks) SetGeneratedCount(_ context.Context, id string, count int) error {
	w := m.items[id]
	w.GeneratedCount = count
	m.items[id] = w
	return nil
}
func (m *memoryWeeks) DeleteServiceWeek(_ context.Context, id string) error {
	delete(m.items, id)
	return nil
}

type tenantsStub struct{}

func (tenantsStub) GetTenant(_ context.Context, id string) (domain.Tenant, error) {
	return domain.Tenant{ID: id}, nil
}

type recordingEvents struct {
	events []domain.Event
}

func (r *recordingEvents) Publish(_ context.Context, e domain.Event) error {
	r.events = append(r.events, e)
	return nil
}

type fixture struct {
	svc      *Service
	services *memoryServices
	weeks    *memoryWeeks
	events   *recordingEvents
}

func newFixture(feasts FeastSource, tpls []domain.ServiceTemplate) fixture {
	services := &memoryServices{}
	weeks := &memoryWeeks{items: map[string]domain.ServiceWeek{}}
	events := &recordingEvents{}
	gen := NewGenerator(feasts, stubTemplates{items: tpls}, services, chapeltime.MustNew(chapeltime.DefaultZone), zerolog.Nop(), 4)
	return fixture{
		svc:      NewService(weeks, services, tenantsStub{}, gen, events, zerolog.Nop()),
		services: services,
		weeks:    weeks,
		events:   events,
	}
}

func monday(y int, m time.Month, d int) domain.CivilDate {
	return domain.NewCivilDate(y, m, d)
}

func TestCreateWeekGeneratesSundaySungMass(t *testing.T) {
	generic := domain.ServiceTemplate{ID: "g", TenantID: "T", Kind: domain.TemplateGeneric, Days: domain.WeekEntries{
		time.Sunday: {{Category: domain.CategoryMass, MassType: domain.MassSung, Time: "10:00"}},
	}}
	f := newFixture(stubFeasts{}, []domain.ServiceTemplate{generic})

	week, report, err := f.svc.Create(context.Background(), "T", monday(2024, 1, 1))
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if week.End != domain.NewCivilDate(2024, 1, 7) {
		t.Fatalf("неделя должна заканчиваться 2024-01-07, получили %v", week.End)
	}
	if len(report.Created) != 1 {
		t.Fatalf("ожидали одно богослужение, получили %d", len(report.Created))
	}
	got := report.Created[0]
	if got.TenantID != "T" || got.Category != domain.CategoryMass || got.MassType != domain.MassSung {
		t.Fatalf("неожиданное богослужение: %+v", got)
	}
	if want := time.Date(2024, 1, 7, 9, 0, 0, 0, time.UTC); !got.Date.Equal(want) {
		t.Fatalf("ожидали %v, получили %v", want, got.Date)
	}
	if got.ServiceWeekID != week.ID {
		t.Fatalf("богослужение должно ссылаться на неделю")
	}
	if f.weeks.items[week.ID].GeneratedCount != 1 {
		t.Fatalf("ожидали сохранённое число богослужений")
	}
	if len(f.events.events) != 1 || f.events.events[0].Type != domain.EventServiceWeekGenerated {
		t.Fatalf("ожидали событие генерации, получили %+v", f.events.events)
	}
}

func TestCreateWeekPeriodTemplateOverridesGenericAcrossDST(t *testing.T) {
	start, end := domain.NewCivilDate(2024, 3, 25), domain.NewCivilDate(2024, 4, 7)
	generic := domain.ServiceTemplate{ID: "g", TenantID: "T", Kind: domain.TemplateGeneric, Days: domain.WeekEntries{
		time.Sunday: {{Category: domain.CategoryMass, MassType: domain.MassRead, Time: "08:00"}},
	}}
	easter := domain.ServiceTemplate{ID: "p", TenantID: "T", Kind: domain.TemplatePeriod, PeriodStart: &start, PeriodEnd: &end, Days: domain.WeekEntries{
		time.Thursday: {{Category: domain.CategoryMass, MassType: domain.MassSolemn, Time: "18:00"}},
		time.Sunday:   {{Category: domain.CategoryMass, MassType: domain.MassSolemn, Time: "10:00"}},
	}}
	f := newFixture(stubFeasts{}, []domain.ServiceTemplate{generic, easter})

	_, report, err := f.svc.Create(context.Background(), "T", monday(2024, 3, 25))
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(report.Created) != 2 {
		t.Fatalf("ожидали 2 богослужения, получили %d", len(report.Created))
	}
	// 28 марта ещё зимнее время, 31 марта уже летнее.
	if want := time.Date(2024, 3, 28, 17, 0, 0, 0, time.UTC); !report.Created[0].Date.Equal(want) {
		t.Fatalf("ожидали %v, получили %v", want, report.Created[0].Date)
	}
	if want := time.Date(2024, 3, 31, 8, 0, 0, 0, time.UTC); !report.Created[1].Date.Equal(want) {
		t.Fatalf("ожидали %v, получили %v", want, report.Created[1].Date)
	}
	if report.Created[1].MassType != domain.MassSolemn {
		t.Fatalf("шаблон периода должен иметь приоритет")
	}
}

func TestCreateWeekPartialFailureContinues(t *testing.T) {
	generic := domain.ServiceTemplate{ID: "g", TenantID: "T", Kind: domain.TemplateGeneric, Days: domain.WeekEntries{
		time.Sunday: {
			{Category: domain.CategoryMass, MassType: domain.MassRead, Time: "07:00"},
			{Category: domain.CategoryMass, MassType: domain.MassSung, Time: "10:00"},
			{Category: domain.CategoryVespers, Time: "17:00"},
		},
	}}
	f := newFixture(stubFeasts{}, []domain.ServiceTemplate{generic})
	f.services.failCreate = func(s domain.Service) bool { return s.MassType == domain.MassSung }

	_, report, err := f.svc.Create(context.Background(), "T", monday(2024, 1, 1))
	if err != nil {
		t.Fatalf("частичный сбой не должен возвращать ошибку: %v", err)
	}
	if len(report.Created) != 2 || report.Failed != 1 {
		t.Fatalf("ожидали 2 созданных и 1 сбой, получили %d и %d", len(report.Created), report.Failed)
	}
	if f.services.count() != 2 {
		t.Fatalf("ожидали 2 сохранённых богослужения, получили %d", f.services.count())
	}
}

func TestCreateWeekSkipsInvalidTime(t *testing.T) {
	generic := domain.ServiceTemplate{ID: "g", TenantID: "T", Kind: domain.TemplateGeneric, Days: domain.WeekEntries{
		time.Sunday: {
			{Category: domain.CategoryMass, MassType: domain.MassRead, Time: "7 rano"},
			{Category: domain.CategoryRosary, Time: "09:30", Notes: "przed Mszą"},
		},
	}}
	f := newFixture(stubFeasts{}, []domain.ServiceTemplate{generic})
	_, report, err := f.svc.Create(context.Background(), "T", monday(2024, 1, 1))
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if report.Skipped != 1 || len(report.Created) != 1 {
		t.Fatalf("ожидали 1 пропуск и 1 созданное, получили %d и %d", report.Skipped, len(report.Created))
	}
	if report.Created[0].Notes != "przed Mszą" || report.Created[0].MassType != "" {
		t.Fatalf("неожиданное богослужение: %+v", report.Created[0])
	}
}

func TestCreateWeekRollsBackOnCalendarFailure(t *testing.T) {
	f := newFixture(stubFeasts{err: domain.ErrUpstream}, nil)
	_, _, err := f.svc.Create(context.Background(), "T", monday(2024, 1, 1))
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("ожидали ErrUpstream, получили %v", err)
	}
	if len(f.weeks.items) != 0 {
		t.Fatalf("неделя должна быть откачена")
	}
}

func TestCreateWeekRequiresMonday(t *testing.T) {
	f := newFixture(stubFeasts{}, nil)
	_, _, err := f.svc.Create(context.Background(), "T", domain.NewCivilDate(2024, 1, 2))
	if !errors.Is(err, ErrWeekStart) {
		t.Fatalf("ожидали ErrWeekStart, получили %v", err)
	}
}

func TestDeleteWeekCascades(t *testing.T) {
	generic := domain.ServiceTemplate{ID: "g", TenantID: "T", Kind: domain.TemplateGeneric, Days: domain.WeekEntries{
		time.Sunday:   {{Category: domain.CategoryMass, MassType: domain.MassSung, Time: "10:00"}},
		time.Saturday: {{Category: domain.CategoryMass, MassType: domain.MassRead, Time: "08:00"}},
	}}
	f := newFixture(stubFeasts{}, []domain.ServiceTemplate{generic})
	ctx := context.Background()
	manual, _ := f.services.CreateService(ctx, domain.Service{ID: "manual", TenantID: "T", Date: time.Date(2024, 1, 3, 17, 0, 0, 0, time.UTC)})

	week, _, err := f.svc.Create(ctx, "T", monday(2024, 1, 1))
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if err := f.svc.Delete(ctx, "other", week.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("чужая часовня не может удалить неделю: %v", err)
	}
	if err := f.svc.Delete(ctx, "T", week.ID); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if f.services.count() != 1 || f.services.items[0].ID != manual.ID {
		t.Fatalf("должно остаться только ручное богослужение")
	}
	if _, ok := f.weeks.items[week.ID]; ok {
		t.Fatalf("неделя должна быть удалена")
	}
}

func TestDeleteWeekReportsPartialFailure(t *testing.T) {
	generic := domain.ServiceTemplate{ID: "g", TenantID: "T", Kind: domain.TemplateGeneric, Days: domain.WeekEntries{
		time.Sunday:   {{Category: domain.CategoryMass, MassType: domain.MassSung, Time: "10:00"}},
		time.Saturday: {{Category: domain.CategoryMass, MassType: domain.MassRead, Time: "08:00"}},
	}}
	f := newFixture(stubFeasts{}, []domain.ServiceTemplate{generic})
	ctx := context.Background()
	week, report, err := f.svc.Create(ctx, "T", monday(2024, 1, 1))
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	stuck := report.Created[0].ID
	f.services.failDelete = func(id string) bool { return id == stuck }

	if err := f.svc.Delete(ctx, "T", week.ID); err == nil {
		t.Fatalf("ожидали ошибку частичного удаления")
	}
	if f.services.count() != 1 {
		t.Fatalf("ожидали, что осталось одно богослужение, получили %d", f.services.count())
	}
	if _, ok := f.weeks.items[week.ID]; !ok {
		t.Fatalf("неделя должна остаться для повторной попытки")
	}
}

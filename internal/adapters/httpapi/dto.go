package httpapi

import (
	"fmt"
	"time"

	"chapel-liturgy/internal/chapeltime"
	"chapel-liturgy/internal/domain"
	"chapel-liturgy/internal/usecase/serviceweeks"
)

const localLayout = "2006-01-02 15:04"

type serviceDTO struct {
	ID            string                 `json:"id"`
	TenantID      string                 `json:"tenant_id"`
	Date          time.Time              `json:"date"`
	LocalTime     string                 `json:"local_time"`
	Category      domain.ServiceCategory `json:"category"`
	MassType      domain.MassType        `json:"mass_type,omitempty"`
	Title         string                 `json:"title"`
	CustomTitle   string                 `json:"custom_title,omitempty"`
	Notes         string                 `json:"notes,omitempty"`
	ServiceWeekID string                 `json:"service_week_id,omitempty"`
}

func toServiceDTO(conv *chapeltime.Converter, s domain.Service) serviceDTO {
	return serviceDTO{
		ID:            s.ID,
		TenantID:      s.TenantID,
		Date:          s.Date.UTC(),
		LocalTime:     conv.UTCToLocalString(s.Date, localLayout),
		Category:      s.Category,
		MassType:      s.MassType,
		Title:         s.Title(),
		CustomTitle:   s.CustomTitle,
		Notes:         s.Notes,
		ServiceWeekID: s.ServiceWeekID,
	}
}

func toServiceDTOs(conv *chapeltime.Converter, in []domain.Service) []serviceDTO {
	out := make([]serviceDTO, 0, len(in))
	for _, s := range in {
		out = append(out, toServiceDTO(conv, s))
	}
	return out
}

type feastDTO struct {
	domain.Feast
	Masses []serviceDTO `json:"masses"`
}

type calendarResponse struct {
	CalendarAvailable bool       `json:"calendar_available"`
	Days              []feastDTO `json:"days"`
}

type entryRequest struct {
	Category    domain.ServiceCategory `json:"category"`
	MassType    domain.MassType        `json:"mass_type"`
	Time        string                 `json:"time"`
	CustomTitle string                 `json:"custom_title"`
	Notes       string                 `json:"notes"`
}

type templateRequest struct {
	Name        string                    `json:"name"`
	Kind        domain.TemplateKind       `json:"kind"`
	PeriodStart *domain.CivilDate         `json:"period_start"`
	PeriodEnd   *domain.CivilDate         `json:"period_end"`
	Days        map[string][]entryRequest `json:"days"`
}

func (req templateRequest) toTemplate(tenantID, id string) (domain.ServiceTemplate, error) {
	days := make(domain.WeekEntries, len(req.Days))
	for key, entries := range req.Days {
		day, ok := domain.ParseWeekday(key)
		if !ok {
			return domain.ServiceTemplate{}, fmt.Errorf("nieznany dzień tygodnia %q", key)
		}
		for _, e := range entries {
			days[day] = append(days[day], domain.TemplateEntry(e))
		}
	}
	return domain.ServiceTemplate{
		ID:          id,
		TenantID:    tenantID,
		Name:        req.Name,
		Kind:        req.Kind,
		PeriodStart: req.PeriodStart,
		PeriodEnd:   req.PeriodEnd,
		Days:        days,
	}, nil
}

type templateDTO struct {
	ID          string              `json:"id"`
	TenantID    string              `json:"tenant_id"`
	Name        string              `json:"name"`
	Kind        domain.TemplateKind `json:"kind"`
	PeriodStart *domain.CivilDate   `json:"period_start,omitempty"`
	PeriodEnd   *domain.CivilDate   `json:"period_end,omitempty"`
	Days        domain.WeekEntries  `json:"days"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func toTemplateDTO(t domain.ServiceTemplate) templateDTO {
	days := t.Days
	if days == nil {
		days = domain.WeekEntries{}
	}
	return templateDTO{
		ID:          t.ID,
		TenantID:    t.TenantID,
		Name:        t.Name,
		Kind:        t.Kind,
		PeriodStart: t.PeriodStart,
		PeriodEnd:   t.PeriodEnd,
		Days:        days,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

type weekRequest struct {
	Start domain.CivilDate `json:"start"`
}

type weekDTO struct {
	ID             string           `json:"id"`
	TenantID       string           `json:"tenant_id"`
	Start          domain.CivilDate `json:"start"`
	End            domain.CivilDate `json:"end"`
	GeneratedCount int              `json:"generated_count"`
	CreatedAt      time.Time        `json:"created_at"`
}

func toWeekDTO(w domain.ServiceWeek) weekDTO {
	return weekDTO{ID: w.ID, TenantID: w.TenantID, Start: w.Start, End: w.End, GeneratedCount: w.GeneratedCount, CreatedAt: w.CreatedAt}
}

type weekResponse struct {
	Week     weekDTO      `json:"week"`
	Services []serviceDTO `json:"services"`
	Failed   int          `json:"failed"`
	Skipped  int          `json:"skipped"`
}

func toWeekResponse(conv *chapeltime.Converter, w domain.ServiceWeek, report serviceweeks.Report) weekResponse {
	return weekResponse{
		Week:     toWeekDTO(w),
		Services: toServiceDTOs(conv, report.Created),
		Failed:   report.Failed,
		Skipped:  report.Skipped,
	}
}

type serviceRequest struct {
	Date        time.Time              `json:"date"`
	Category    domain.ServiceCategory `json:"category"`
	MassType    domain.MassType        `json:"mass_type"`
	CustomTitle string                 `json:"custom_title"`
	Notes       string                 `json:"notes"`
}

type tenantRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

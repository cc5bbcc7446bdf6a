package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Tenant описывает часовню (миссию) со своим расписанием.
type Tenant struct {
	ID        string
	Name      string
	Slug      string
	CreatedAt time.Time
}

// Feast — литургический день из внешнего календаря. Никогда не сохраняется в БД.
type Feast struct {
	Date           CivilDate     `json:"date"`
	Title          string        `json:"title"`
	Rank           int           `json:"rank"`
	Color          VestmentColor `json:"color"`
	Commemorations []string      `json:"commemorations,omitempty"`
}

// RawFeast — запись календаря в формате поставщика.
type RawFeast struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Rank           int      `json:"rank"`
	Colors         []string `json:"colors"`
	Commemorations []string `json:"commemorations,omitempty"`
}

// Service — богослужение часовни в конкретный момент времени (UTC).
type Service struct {
	ID            string
	TenantID      string
	Date          time.Time
	Category      ServiceCategory
	MassType      MassType
	CustomTitle   string
	Notes         string
	ServiceWeekID string
	CreatedAt     time.Time
}

// Title возвращает отображаемое название богослужения.
func (s Service) Title() string {
	if s.CustomTitle != "" {
		return s.CustomTitle
	}
	if s.Category == CategoryMass {
		if title, ok := massTitles[s.MassType]; ok {
			return title
		}
	}
	return categoryTitles[s.Category]
}

// FeastWithMasses — праздник и богослужения того же локального дня для одной часовни.
type FeastWithMasses struct {
	Feast  Feast     `json:"feast"`
	Masses []Service `json:"masses"`
}

// TemplateKind различает общий шаблон и шаблон на период.
type TemplateKind string

const (
	TemplateGeneric TemplateKind = "generic"
	TemplatePeriod  TemplateKind = "period"
)

// TemplateEntry — одна запись шаблона: что и во сколько служится.
type TemplateEntry struct {
	Category    ServiceCategory `json:"category"`
	MassType    MassType        `json:"mass_type,omitempty"`
	Time        string          `json:"time"`
	CustomTitle string          `json:"custom_title,omitempty"`
	Notes       string          `json:"notes,omitempty"`
}

// WeekEntries хранит записи шаблона по дням недели.
type WeekEntries map[time.Weekday][]TemplateEntry

// ServiceTemplate — недельный шаблон богослужений часовни.
type ServiceTemplate struct {
	ID          string
	TenantID    string
	Name        string
	Kind        TemplateKind
	PeriodStart *CivilDate
	PeriodEnd   *CivilDate
	Days        WeekEntries
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsGeneric сообщает, что шаблон действует круглый год.
func (t ServiceTemplate) IsGeneric() bool {
	if t.Kind != "" {
		return t.Kind == TemplateGeneric
	}
	return t.PeriodStart == nil && t.PeriodEnd == nil
}

// HasEntries сообщает, есть ли записи на указанный день недели.
func (t ServiceTemplate) HasEntries(day time.Weekday) bool {
	return len(t.Days[day]) > 0
}

// Covers проверяет, что дата попадает в период шаблона (границы включительно).
func (t ServiceTemplate) Covers(date CivilDate) bool {
	if t.PeriodStart == nil || t.PeriodEnd == nil {
		return false
	}
	return date.Within(*t.PeriodStart, *t.PeriodEnd)
}

// ServiceWeek — запрос на материализацию одной недели богослужений.
type ServiceWeek struct {
	ID             string
	TenantID       string
	Start          CivilDate
	End            CivilDate
	GeneratedCount int
	CreatedAt      time.Time
}

var timeOfDayRegex = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):([0-5][0-9])$`)

// ParseTimeOfDay разбирает время HH:mm.
func ParseTimeOfDay(raw string) (hour, minute int, err error) {
	matches := timeOfDayRegex.FindStringSubmatch(strings.TrimSpace(raw))
	if len(matches) != 3 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, raw)
	}
	hour, _ = strconv.Atoi(matches[1])
	minute, _ = strconv.Atoi(matches[2])
	return hour, minute, nil
}

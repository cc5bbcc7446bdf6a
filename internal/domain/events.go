package domain

import "time"

// EventType описывает тип доменного события.
type EventType string

const (
	// EventServiceWeekGenerated — для недели созданы богослужения.
	EventServiceWeekGenerated EventType = "service_week.generated"
	// EventServiceWeekDeleted — неделя и её богослужения удалены.
	EventServiceWeekDeleted EventType = "service_week.deleted"
	// EventCalendarInvalidated — кэш календаря за год сброшен.
	EventCalendarInvalidated EventType = "calendar.invalidated"
)

// Event — сообщение для страниц, которые нужно перестроить.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	TenantID   string    `json:"tenant_id,omitempty"`
	WeekID     string    `json:"week_id,omitempty"`
	Year       int       `json:"year,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

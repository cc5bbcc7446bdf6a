package domain

import (
	"cmp"
	"fmt"
	"time"
)

const civilDateLayout = "2006-01-02"

// CivilDate — календарный день без времени и часового пояса.
type CivilDate struct {
	Year  int
	Month time.Month
	Day   int
}

// NewCivilDate нормализует поля так же, как time.Date (32 января → 1 февраля).
func NewCivilDate(year int, month time.Month, day int) CivilDate {
	return CivilDateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// CivilDateOf возвращает календарный день момента t в его собственной локации.
func CivilDateOf(t time.Time) CivilDate {
	y, m, d := t.Date()
	return CivilDate{Year: y, Month: m, Day: d}
}

// ParseCivilDate разбирает дату в формате yyyy-MM-dd.
func ParseCivilDate(raw string) (CivilDate, error) {
	t, err := time.Parse(civilDateLayout, raw)
	if err != nil {
		return CivilDate{}, fmt.Errorf("parse civil date %q: %w", raw, err)
	}
	return CivilDateOf(t), nil
}

// IsZero сообщает, что дата не задана.
func (d CivilDate) IsZero() bool {
	return d == CivilDate{}
}

// Midnight возвращает начало дня в указанной локации.
func (d CivilDate) Midnight(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// Weekday возвращает день недели.
func (d CivilDate) Weekday() time.Weekday {
	return d.Midnight(time.UTC).Weekday()
}

// AddDays сдвигает дату на n дней.
func (d CivilDate) AddDays(n int) CivilDate {
	return CivilDateOf(d.Midnight(time.UTC).AddDate(0, 0, n))
}

// Compare возвращает -1, 0 или 1.
func (d CivilDate) Compare(other CivilDate) int {
	switch {
	case d.Year != other.Year:
		return cmp.Compare(d.Year, other.Year)
	case d.Month != other.Month:
		return cmp.Compare(d.Month, other.Month)
	default:
		return cmp.Compare(d.Day, other.Day)
	}
}

// Before сообщает, что d строго раньше other.
func (d CivilDate) Before(other CivilDate) bool { return d.Compare(other) < 0 }

// After сообщает, что d строго позже other.
func (d CivilDate) After(other CivilDate) bool { return d.Compare(other) > 0 }

// Within проверяет принадлежность отрезку [start, end] включительно.
func (d CivilDate) Within(start, end CivilDate) bool {
	return !d.Before(start) && !d.After(end)
}

// String форматирует дату как yyyy-MM-dd.
func (d CivilDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MarshalText кодирует дату в JSON и текстовых форматах.
func (d CivilDate) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText разбирает дату yyyy-MM-dd.
func (d *CivilDate) UnmarshalText(data []byte) error {
	parsed, err := ParseCivilDate(string(data))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// OrderedWeekdays задаёт порядок обработки дней недели: с понедельника по воскресенье.
var OrderedWeekdays = []time.Weekday{
	time.Monday,
	time.Tuesday,
	time.Wednesday,
	time.Thursday,
	time.Friday,
	time.Saturday,
	time.Sunday,
}

// Package chapeltime переводит время между часовым поясом часовен и UTC.
package chapeltime

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/goodsign/monday"

	"chapel-liturgy/internal/domain"
)

// DefaultZone — единый часовой пояс всех часовен.
const DefaultZone = "Europe/Warsaw"

// Converter — чистые функции преобразования времени для одного часового пояса.
type Converter struct {
	loc    *time.Location
	locale monday.Locale
}

// New загружает часовой пояс по имени IANA.
func New(zone string) (*Converter, error) {
	if zone == "" {
		zone = DefaultZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("load location %q: %w", zone, err)
	}
	return &Converter{loc: loc, locale: monday.LocalePlPL}, nil
}

// MustNew — как New, но паникует при ошибке.
func MustNew(zone string) *Converter {
	c, err := New(zone)
	if err != nil {
		panic(err)
	}
	return c
}

// Location возвращает часовой пояс часовен.
func (c *Converter) Location() *time.Location {
	return c.loc
}

// LocalToUTC трактует поля как локальное время часовни.
//
// Несуществующее время при переходе на летнее время сдвигается вперёд на величину
// перехода (02:30 → 03:30). Неоднозначное время при переходе на зимнее
// разрешается в первое вхождение (летнее смещение).
func (c *Converter) LocalToUTC(year, month, day, hour, minute int) (time.Time, error) {
	if err := validate(year, month, day, hour, minute); err != nil {
		return time.Time{}, err
	}
	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, c.loc)
	_, offset := t.Zone()
	_, before := t.Add(-6 * time.Hour).Zone()
	if before > offset {
		earlier := t.Add(-time.Duration(before-offset) * time.Second)
		if sameWallClock(earlier, year, month, day, hour, minute) {
			t = earlier
		}
	}
	return t.UTC(), nil
}

// LocalDateTimeToUTC объединяет календарный день и время суток.
func (c *Converter) LocalDateTimeToUTC(date domain.CivilDate, hour, minute int) (time.Time, error) {
	return c.LocalToUTC(date.Year, int(date.Month), date.Day, hour, minute)
}

// UTCToLocalString форматирует момент в локальном времени с польскими названиями дней и месяцев.
func (c *Converter) UTCToLocalString(instant time.Time, layout string) string {
	return monday.Format(instant.In(c.loc), layout, c.locale)
}

// UTCToLocalCivilDay возвращает локальный календарный день момента.
func (c *Converter) UTCToLocalCivilDay(instant time.Time) domain.CivilDate {
	return domain.CivilDateOf(instant.In(c.loc))
}

// Today возвращает текущий локальный день.
func (c *Converter) Today(now time.Time) domain.CivilDate {
	return c.UTCToLocalCivilDay(now)
}

func validate(year, month, day, hour, minute int) error {
	if year < 1 || year > 9999 {
		return fmt.Errorf("%w: year %d", domain.ErrInvalidLocalTime, year)
	}
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: month %d", domain.ErrInvalidLocalTime, month)
	}
	if day < 1 || day > daysIn(year, time.Month(month)) {
		return fmt.Errorf("%w: day %d", domain.ErrInvalidLocalTime, day)
	}
	if hour < 0 || hour > 23 {
		return fmt.Errorf("%w: hour %d", domain.ErrInvalidLocalTime, hour)
	}
	if minute < 0 || minute > 59 {
		return fmt.Errorf("%w: minute %d", domain.ErrInvalidLocalTime, minute)
	}
	return nil
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func sameWallClock(t time.Time, year, month, day, hour, minute int) bool {
	y, m, d := t.Date()
	return y == year && int(m) == month && d == day && t.Hour() == hour && t.Minute() == minute
}

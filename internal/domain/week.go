package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

var weekdayNames = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

// ParseWeekday разбирает английское название дня недели без учёта регистра.
func ParseWeekday(raw string) (time.Weekday, bool) {
	day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(raw))]
	return day, ok
}

// MarshalJSON кодирует дни недели строковыми ключами ("monday", ...), пустые дни опускаются.
func (w WeekEntries) MarshalJSON() ([]byte, error) {
	out := make(map[string][]TemplateEntry, len(w))
	for day, entries := range w {
		if len(entries) == 0 {
			continue
		}
		out[strings.ToLower(day.String())] = entries
	}
	return json.Marshal(out)
}

func (w *WeekEntries) UnmarshalJSON(data []byte) error {
	var raw map[string][]TemplateEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed := make(WeekEntries, len(raw))
	for key, entries := range raw {
		day, ok := ParseWeekday(key)
		if !ok {
			return fmt.Errorf("unknown weekday %q", key)
		}
		if len(entries) == 0 {
			continue
		}
		parsed[day] = entries
	}
	*w = parsed
	return nil
}

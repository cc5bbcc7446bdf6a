package templates

import (
	"context"
	"fmt"
	"strings"

	"chapel-liturgy/internal/domain"
)

// Step — шаг конвейера перед записью шаблона. Может изменить кандидата
// или прервать запись ошибкой ValidationError.
type Step func(ctx context.Context, candidate *domain.ServiceTemplate) error

var polishWeekdays = map[string]string{
	"Monday":    "poniedziałek",
	"Tuesday":   "wtorek",
	"Wednesday": "środa",
	"Thursday":  "czwartek",
	"Friday":    "piątek",
	"Saturday":  "sobota",
	"Sunday":    "niedziela",
}

// Pipeline возвращает шаги в порядке применения.
func Pipeline(repo domain.TemplateRepo) []Step {
	return []Step{
		normalizeEntries,
		rejectGenericWithPeriod,
		requirePeriodPair,
		requirePeriodOrder,
		rejectConflicts(repo),
	}
}

// Run применяет шаги по порядку до первой ошибки.
func Run(ctx context.Context, steps []Step, candidate *domain.ServiceTemplate) error {
	for _, step := range steps {
		if err := step(ctx, candidate); err != nil {
			return err
		}
	}
	return nil
}

func normalizeEntries(_ context.Context, t *domain.ServiceTemplate) error {
	t.Name = strings.TrimSpace(t.Name)
	if t.Kind == "" {
		t.Kind = domain.TemplatePeriod
		if t.PeriodStart == nil && t.PeriodEnd == nil {
			t.Kind = domain.TemplateGeneric
		}
	}
	if t.Kind != domain.TemplateGeneric && t.Kind != domain.TemplatePeriod {
		return reject(RuleInvalidEntry, "Nieznany rodzaj szablonu %q.", t.Kind)
	}
	cleaned := make(domain.WeekEntries, len(t.Days))
	for day, entries := range t.Days {
		if len(entries) == 0 {
			continue
		}
		out := make([]domain.TemplateEntry, 0, len(entries))
		for i, e := range entries {
			e.Time = strings.TrimSpace(e.Time)
			e.Notes = strings.TrimSpace(e.Notes)
			e.CustomTitle = strings.TrimSpace(e.CustomTitle)
			dayName := polishWeekdays[day.String()]
			if !e.Category.Valid() {
				return reject(RuleInvalidEntry, "Nieznana kategoria nabożeństwa %q (%s, pozycja %d).", e.Category, dayName, i+1)
			}
			if e.Category == domain.CategoryMass {
				if e.MassType == "" {
					e.MassType = domain.MassRead
				}
				if !e.MassType.Valid() {
					return reject(RuleInvalidEntry, "Nieznany rodzaj Mszy św. %q (%s, pozycja %d).", e.MassType, dayName, i+1)
				}
			} else {
				e.MassType = ""
			}
			if _, _, err := domain.ParseTimeOfDay(e.Time); err != nil {
				return reject(RuleInvalidEntry, "Nieprawidłowa godzina %q (%s, pozycja %d), oczekiwano GG:MM.", e.Time, dayName, i+1)
			}
			out = append(out, e)
		}
		cleaned[day] = out
	}
	t.Days = cleaned
	return nil
}

func rejectGenericWithPeriod(_ context.Context, t *domain.ServiceTemplate) error {
	if t.Kind == domain.TemplateGeneric && (t.PeriodStart != nil || t.PeriodEnd != nil) {
		return reject(RuleGenericWithPeriod, "Szablon ogólny nie może mieć określonego okresu obowiązywania.")
	}
	return nil
}

func requirePeriodPair(_ context.Context, t *domain.ServiceTemplate) error {
	if (t.PeriodStart == nil) != (t.PeriodEnd == nil) {
		return reject(RulePeriodIncomplete, "Należy podać zarówno początek, jak i koniec okresu.")
	}
	if t.Kind == domain.TemplatePeriod && t.PeriodStart == nil {
		return reject(RulePeriodIncomplete, "Szablon okresowy wymaga podania początku i końca okresu.")
	}
	return nil
}

func requirePeriodOrder(_ context.Context, t *domain.ServiceTemplate) error {
	if t.PeriodStart != nil && t.PeriodEnd != nil && t.PeriodStart.After(*t.PeriodEnd) {
		return reject(RulePeriodInverted, "Początek okresu (%s) jest późniejszy niż jego koniec (%s).", t.PeriodStart, t.PeriodEnd)
	}
	return nil
}

func rejectConflicts(repo domain.TemplateRepo) Step {
	return func(ctx context.Context, t *domain.ServiceTemplate) error {
		existing, err := repo.ListTemplates(ctx, t.TenantID)
		if err != nil {
			return fmt.Errorf("получение шаблонов часовни: %w", err)
		}
		for _, other := range existing {
			if other.ID == t.ID {
				continue
			}
			if err := conflict(*t, other); err != nil {
				return err
			}
		}
		return nil
	}
}

// conflict проверяет пару шаблонов одной часовни. Два общих шаблона недопустимы
// всегда; два периодических конфликтуют только при общем непустом дне недели
// и пересечении периодов.
func conflict(candidate, other domain.ServiceTemplate) error {
	candGeneric, otherGeneric := candidate.IsGeneric(), other.IsGeneric()
	if candGeneric && otherGeneric {
		return reject(RuleDuplicateGeneric, "Kaplica ma już szablon ogólny %q; dozwolony jest tylko jeden.", displayName(other))
	}
	if candGeneric || otherGeneric {
		return nil
	}
	if other.PeriodStart == nil || other.PeriodEnd == nil {
		return nil
	}
	if !overlaps(*candidate.PeriodStart, *candidate.PeriodEnd, *other.PeriodStart, *other.PeriodEnd) {
		return nil
	}
	for _, day := range domain.OrderedWeekdays {
		if candidate.HasEntries(day) && other.HasEntries(day) {
			return reject(RuleOverlappingPeriod,
				"Szablon %q (%s – %s) ma już nabożeństwa w dniu: %s w nakładającym się okresie.",
				displayName(other), other.PeriodStart, other.PeriodEnd, polishWeekdays[day.String()])
		}
	}
	return nil
}

// overlaps — пересечение отрезков с включёнными границами.
func overlaps(aStart, aEnd, bStart, bEnd domain.CivilDate) bool {
	return !(aEnd.Before(bStart) || bEnd.Before(aStart))
}

func displayName(t domain.ServiceTemplate) string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}

package templates

import "chapel-liturgy/internal/domain"

// Resolve выбирает шаблон для дня.
//
// Сначала ищется первый шаблон на период, который покрывает дату и имеет записи на её
// день недели; иначе — общий шаблон с записями на этот день. Порядок перебора — порядок
// среза (репозиторий отдаёт по created_at, id). Пересечения исключает валидатор при записи.
func Resolve(date domain.CivilDate, templates []domain.ServiceTemplate) (domain.ServiceTemplate, bool) {
	weekday := date.Weekday()
	for _, tpl := range templates {
		if tpl.IsGeneric() {
			continue
		}
		if tpl.Covers(date) && tpl.HasEntries(weekday) {
			return tpl, true
		}
	}
	for _, tpl := range templates {
		if tpl.IsGeneric() && tpl.HasEntries(weekday) {
			return tpl, true
		}
	}
	return domain.ServiceTemplate{}, false
}

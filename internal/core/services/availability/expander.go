package availability

import (
	"github.com/suchimauz/delivery-date-availability/internal/core/domain"
	"github.com/suchimauz/delivery-date-availability/internal/core/json_types"
)

// Expand раскладывает правила по дням, пропуская редактируемое правило.
// Используется только в редакторе, чтобы подсветить уже занятые дни.
func Expand(dateRules []domain.DateRule, excludeIdentifier string) []json_types.Date {
	days := make([]json_types.Date, 0)
	for _, rule := range dateRules {
		if excludeIdentifier != "" && rule.Identifier == excludeIdentifier {
			continue
		}
		days = append(days, expandRule(rule)...)
	}
	return days
}

// Overlaps возвращает дни кандидата, которые уже заняты другими правилами.
// Пересечение не ошибка, редактор просто предупреждает человека.
func Overlaps(candidate domain.DateRule, dateRules []domain.DateRule) []json_types.Date {
	taken := make(map[string]struct{})
	for _, day := range Expand(dateRules, candidate.Identifier) {
		taken[day.String()] = struct{}{}
	}

	overlaps := make([]json_types.Date, 0)
	for _, day := range expandRule(candidate) {
		if _, ok := taken[day.String()]; ok {
			overlaps = append(overlaps, day)
		}
	}
	return overlaps
}

func expandRule(rule domain.DateRule) []json_types.Date {
	if rule.EndDate == nil {
		return []json_types.Date{rule.StartDate}
	}

	span := rule.StartDate.DaysUntil(*rule.EndDate)
	if span < 0 {
		return nil
	}

	days := make([]json_types.Date, 0, span+1)
	for i := 0; i <= span; i++ {
		days = append(days, rule.StartDate.AddDays(i))
	}
	return days
}

package availability

import (
	"github.com/suchimauz/delivery-date-availability/internal/core/domain"
)

// PickerDisabled собирает список недоступных дней для календаря покупателя:
// названия отключенных дней недели, отдельные даты и диапазоны
func PickerDisabled(ruleConfig domain.RuleConfig) []domain.PickerDisabled {
	disabled := make([]domain.PickerDisabled, 0, len(ruleConfig.DisabledDays)+len(ruleConfig.DisabledDates))

	for _, day := range ruleConfig.DisabledDays {
		if !day.Disabled {
			continue
		}
		disabled = append(disabled, domain.PickerDisabled{
			Kind:    domain.PickerDisabledWeekday,
			Weekday: day.Identifier,
		})
	}

	for _, rule := range ruleConfig.DisabledDates {
		start := rule.StartDate
		if rule.EndDate == nil {
			disabled = append(disabled, domain.PickerDisabled{
				Kind: domain.PickerDisabledDate,
				Date: &start,
			})
			continue
		}
		end := *rule.EndDate
		disabled = append(disabled, domain.PickerDisabled{
			Kind:  domain.PickerDisabledRange,
			Start: &start,
			End:   &end,
		})
	}

	return disabled
}

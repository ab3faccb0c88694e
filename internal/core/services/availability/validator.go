package availability

import (
	"github.com/suchimauz/delivery-date-availability/internal/core/domain"
	"github.com/suchimauz/delivery-date-availability/internal/core/json_types"
)

// Validate проверяет, можно ли выбрать день доставки при данном наборе правил
func Validate(date json_types.Date, ruleConfig domain.RuleConfig) bool {
	if isDayDisabled(date, ruleConfig.DisabledDays) {
		return false
	}
	return !isDateDisabled(date, ruleConfig.DisabledDates)
}

// ValidateString это то же самое для строки от покупателя.
// Неразборчивая дата считается недоступной.
func ValidateString(date string, ruleConfig domain.RuleConfig) bool {
	parsed, err := json_types.ParseDate(date)
	if err != nil {
		return false
	}
	return Validate(parsed, ruleConfig)
}

// Функция для проверки отключенного дня недели
func isDayDisabled(date json_types.Date, dayRules []domain.DayRule) bool {
	weekday := int(date.Weekday())
	for _, rule := range dayRules {
		if rule.Day == weekday && rule.Disabled {
			return true
		}
	}
	return false
}

// Функция для проверки вхождения даты в отключенные даты и диапазоны
func isDateDisabled(date json_types.Date, dateRules []domain.DateRule) bool {
	for _, rule := range dateRules {
		if rule.Covers(date) {
			return true
		}
	}
	return false
}

package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/suchimauz/delivery-date-availability/internal/core/json_types"
)

var (
	ErrInvalidRule      = errors.New("invalid rule")
	ErrInvalidDateRange = errors.New("end date is before start date")
)

// DayRule отключает (или явно включает) день недели, повторяется каждую неделю
type DayRule struct {
	Day        int    `json:"day"`
	Disabled   bool   `json:"disabled"`
	Identifier string `json:"identifier"`
}

func NewDayRule(weekday time.Weekday, disabled bool) DayRule {
	return DayRule{
		Day:        int(weekday),
		Disabled:   disabled,
		Identifier: weekday.String(),
	}
}

func (r DayRule) Weekday() time.Weekday {
	return time.Weekday(r.Day)
}

func (r DayRule) Validate() error {
	if r.Day < int(time.Sunday) || r.Day > int(time.Saturday) {
		return fmt.Errorf("%w: day %d out of range 0..6", ErrInvalidRule, r.Day)
	}
	if r.Identifier == "" {
		return fmt.Errorf("%w: empty day identifier", ErrInvalidRule)
	}
	return nil
}

// DateRule отключает один день (EndDate == nil) или диапазон дней включительно
type DateRule struct {
	StartDate  json_types.Date  `json:"startDate"`
	EndDate    *json_types.Date `json:"endDate,omitempty"`
	Identifier string           `json:"identifier"`
}

// NewDateRule собирает правило и выводит его идентификатор из дат.
// Диапазон, где конец раньше начала, отклоняется.
func NewDateRule(start json_types.Date, end *json_types.Date) (DateRule, error) {
	if start.IsZero() {
		return DateRule{}, fmt.Errorf("%w: missing start date", ErrInvalidRule)
	}
	if end != nil && end.Before(start) {
		return DateRule{}, fmt.Errorf("%w: %s - %s", ErrInvalidDateRange, start, *end)
	}

	return DateRule{
		StartDate:  start,
		EndDate:    end,
		Identifier: DateRuleIdentifier(start, end),
	}, nil
}

// DateRuleIdentifier: "10/01/2024" или "10/01/2024 - 12/01/2024"
func DateRuleIdentifier(start json_types.Date, end *json_types.Date) string {
	if end == nil {
		return start.Identifier()
	}
	return start.Identifier() + " - " + end.Identifier()
}

func (r DateRule) IsRange() bool {
	return r.EndDate != nil
}

// Covers проверяет попадание дня в правило. Пустой интервал не совпадает ни с чем.
func (r DateRule) Covers(date json_types.Date) bool {
	if r.EndDate == nil {
		return r.StartDate.Equal(date)
	}
	return !date.Before(r.StartDate) && !date.After(*r.EndDate)
}

func (r DateRule) Validate() error {
	if r.StartDate.IsZero() {
		return fmt.Errorf("%w: missing start date", ErrInvalidRule)
	}
	if r.EndDate != nil && r.EndDate.Before(r.StartDate) {
		return fmt.Errorf("%w: %s", ErrInvalidDateRange, r.Identifier)
	}
	if r.Identifier == "" {
		return fmt.Errorf("%w: empty date identifier", ErrInvalidRule)
	}
	return nil
}

// RuleConfig это полный набор правил одного магазина
type RuleConfig struct {
	DisabledDates []DateRule `json:"disabledDates"`
	DisabledDays  []DayRule  `json:"disabledDays"`
}

func EmptyRuleConfig() RuleConfig {
	return RuleConfig{
		DisabledDates: []DateRule{},
		DisabledDays:  []DayRule{},
	}
}

// Clone возвращает копию, которую можно менять без влияния на оригинал
func (c RuleConfig) Clone() RuleConfig {
	clone := EmptyRuleConfig()
	for _, r := range c.DisabledDates {
		if r.EndDate != nil {
			end := *r.EndDate
			r.EndDate = &end
		}
		clone.DisabledDates = append(clone.DisabledDates, r)
	}
	clone.DisabledDays = append(clone.DisabledDays, c.DisabledDays...)
	return clone
}

// Serialize это каноническая JSON сериализация: порядок полей фиксирован
// структурой, пустые списки пишутся как [], HTML не экранируется.
func (c RuleConfig) Serialize() (string, error) {
	normalized := c.Clone()

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(normalized); err != nil {
		return "", err
	}

	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// ParseRuleConfig разбирает сохраненное значение. Отсутствующие списки
// превращаются в пустые.
func ParseRuleConfig(value string) (RuleConfig, error) {
	var cfg RuleConfig
	if err := json.Unmarshal([]byte(value), &cfg); err != nil {
		return EmptyRuleConfig(), err
	}
	if cfg.DisabledDates == nil {
		cfg.DisabledDates = []DateRule{}
	}
	if cfg.DisabledDays == nil {
		cfg.DisabledDays = []DayRule{}
	}
	return cfg, nil
}

type RuleKind string

const (
	RuleKindDay  RuleKind = "day"
	RuleKindDate RuleKind = "date"
)

// Rule это правило с явным дискриминатором. Тег выставляется один раз на
// границе, где внешний ввод попадает в ядро.
type Rule struct {
	Kind RuleKind  `json:"kind"`
	Day  *DayRule  `json:"day,omitempty"`
	Date *DateRule `json:"date,omitempty"`
}

func DayRuleOf(r DayRule) Rule {
	return Rule{Kind: RuleKindDay, Day: &r}
}

func DateRuleOf(r DateRule) Rule {
	return Rule{Kind: RuleKindDate, Date: &r}
}

func (r Rule) Identifier() string {
	switch r.Kind {
	case RuleKindDay:
		if r.Day != nil {
			return r.Day.Identifier
		}
	case RuleKindDate:
		if r.Date != nil {
			return r.Date.Identifier
		}
	}
	return ""
}

func (r Rule) Validate() error {
	switch r.Kind {
	case RuleKindDay:
		if r.Day == nil {
			return fmt.Errorf("%w: day rule without payload", ErrInvalidRule)
		}
		return r.Day.Validate()
	case RuleKindDate:
		if r.Date == nil {
			return fmt.Errorf("%w: date rule without payload", ErrInvalidRule)
		}
		return r.Date.Validate()
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidRule, r.Kind)
	}
}

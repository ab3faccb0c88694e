package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/suchimauz/delivery-date-availability/internal/core/json_types"
)

// Clock это источник текущего времени, в тестах подменяется
type Clock func() time.Time

func StartCurrentDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// StartNextDay возвращает новую дату, где день увеличен на 1, время установлено на 00:00, а таймзона остается прежней.
func StartNextDay(t time.Time) time.Time {
	return StartCurrentDay(t.AddDate(0, 0, 1))
}

// Today это календарный день "сейчас" в таймзоне магазина
func Today(clock Clock, loc *time.Location) json_types.Date {
	if clock == nil {
		clock = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return json_types.DateOf(clock().In(loc))
}

// ParseWeekday принимает номер дня (0 = воскресенье) или английское название
func ParseWeekday(value string) (time.Weekday, error) {
	value = strings.TrimSpace(value)
	if n, err := strconv.Atoi(value); err == nil {
		if n < int(time.Sunday) || n > int(time.Saturday) {
			return 0, fmt.Errorf("day %d out of range 0..6", n)
		}
		return time.Weekday(n), nil
	}

	for day := time.Sunday; day <= time.Saturday; day++ {
		if strings.EqualFold(day.String(), value) {
			return day, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", value)
}

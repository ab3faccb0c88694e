package json_types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout           = "2006-01-02"
	DateIdentifierLayout = "02/01/2006"

	secondsPerDay = 24 * 60 * 60
)

// Date это календарный день без времени и таймзоны.
// Внутри всегда хранится полночь UTC, поэтому день недели и сравнения
// не зависят от локали сервера.
type Date struct {
	Date time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Date: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf берет календарный день из времени в его собственной таймзоне
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate парсит дату в формате YYYY-MM-DD, если не удается, то пробует
// дату со временем (RFC3339 или без таймзоны) и берет день так, как он записан
func ParseDate(str string) (Date, error) {
	str = strings.TrimSpace(str)

	parsedDate, err := time.Parse(DateLayout, str)
	if err != nil {
		parsedDate, err = time.Parse(time.RFC3339, str)
		if err != nil {
			parsedDate, err = time.Parse("2006-01-02T15:04:05", str)
			if err != nil {
				return Date{}, fmt.Errorf("failed to parse date %q: %w", str, err)
			}
		}
	}

	return DateOf(parsedDate), nil
}

func MustParseDate(str string) Date {
	d, err := ParseDate(str)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) IsZero() bool {
	return d.Date.IsZero()
}

// Weekday возвращает индекс дня недели, 0 = воскресенье
func (d Date) Weekday() time.Weekday {
	return d.Date.Weekday()
}

func (d Date) AddDays(days int) Date {
	return DateOf(d.Date.AddDate(0, 0, days))
}

func (d Date) Before(other Date) bool {
	return d.Date.Before(other.Date)
}

func (d Date) After(other Date) bool {
	return d.Date.After(other.Date)
}

func (d Date) Equal(other Date) bool {
	return d.Date.Equal(other.Date)
}

// DaysUntil это количество дней от d до other, отрицательное если other раньше
func (d Date) DaysUntil(other Date) int {
	// Sub ограничен пределом time.Duration (~292 года)
	return int((other.Date.Unix() - d.Date.Unix()) / secondsPerDay)
}

func (d Date) String() string {
	return d.Date.Format(DateLayout)
}

// Identifier это отображаемое представление даты в правилах (DD/MM/YYYY)
func (d Date) Identifier() string {
	return d.Date.Format(DateIdentifierLayout)
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("failed to parse date: %w", err)
	}

	parsedDate, err := ParseDate(str)
	if err != nil {
		return err
	}

	*d = parsedDate
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suchimauz/delivery-date-availability/internal/core/domain"
)

func TestPickerDisabled(t *testing.T) {
	cfg := domain.EmptyRuleConfig()
	cfg.DisabledDays = append(cfg.DisabledDays,
		domain.NewDayRule(time.Sunday, true),
		domain.NewDayRule(time.Monday, false),
	)
	cfg.DisabledDates = append(cfg.DisabledDates,
		dateRule(t, "2024-01-10", ""),
		dateRule(t, "2024-01-20", "2024-01-22"),
	)

	disabled := PickerDisabled(cfg)
	require.Len(t, disabled, 3)

	assert.Equal(t, domain.PickerDisabledWeekday, disabled[0].Kind)
	assert.Equal(t, "Sunday", disabled[0].Weekday)

	assert.Equal(t, domain.PickerDisabledDate, disabled[1].Kind)
	assert.Equal(t, "2024-01-10", disabled[1].Date.String())

	assert.Equal(t, domain.PickerDisabledRange, disabled[2].Kind)
	assert.Equal(t, "2024-01-20", disabled[2].Start.String())
	assert.Equal(t, "2024-01-22", disabled[2].End.String())
}

func TestPickerDisabled_EmptyConfig(t *testing.T) {
	disabled := PickerDisabled(domain.EmptyRuleConfig())
	assert.NotNil(t, disabled)
	assert.Empty(t, disabled)
}

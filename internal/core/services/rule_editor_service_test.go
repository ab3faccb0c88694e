package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suchimauz/delivery-date-availability/internal/adapters/out/logger"
	"github.com/suchimauz/delivery-date-availability/internal/core/domain"
	"github.com/suchimauz/delivery-date-availability/internal/core/json_types"
)

func newEditor(t *testing.T, store *memoryRulesStore, opts ...RuleEditorOption) *RuleEditorService {
	t.Helper()
	loader := NewRulesLoader(store, nil, nil, "delivery_date", "rules", logger.NewNopLogger())
	opts = append([]RuleEditorOption{WithClock(fixedClock("2024-01-01"))}, opts...)

	editor, err := NewRuleEditorService(loader, testConfig(), logger.NewNopLogger(), opts...)
	require.NoError(t, err)
	return editor
}

func dateRuleOf(t *testing.T, start, end string) domain.Rule {
	t.Helper()
	var endDate *json_types.Date
	if end != "" {
		parsed := json_types.MustParseDate(end)
		endDate = &parsed
	}
	rule, err := domain.NewDateRule(json_types.MustParseDate(start), endDate)
	require.NoError(t, err)
	return domain.DateRuleOf(rule)
}

func TestRuleEditorService_EditAndSave(t *testing.T) {
	store := newMemoryRulesStore()
	saved := 0
	editor := newEditor(t, store, WithSavedHook(func(ctx context.Context) { saved++ }))
	ctx := context.Background()

	state, err := editor.OpenEditor(ctx)
	require.NoError(t, err)
	assert.False(t, state.Dirty)

	state, err = editor.AddRule(ctx, state.SessionID, dateRuleOf(t, "2024-01-10", "2024-01-12"))
	require.NoError(t, err)
	assert.True(t, state.Dirty)
	assert.Empty(t, store.value("delivery_date", "rules"))

	state, err = editor.Save(ctx, state.SessionID)
	require.NoError(t, err)
	assert.False(t, state.Dirty)
	assert.Equal(t, 1, saved)
	assert.Contains(t, store.value("delivery_date", "rules"), `"identifier":"10/01/2024 - 12/01/2024"`)

	// новый редактор видит сохраненный снимок
	reopened, err := editor.OpenEditor(ctx)
	require.NoError(t, err)
	assert.Equal(t, state.Fingerprint, reopened.Fingerprint)
	assert.Len(t, reopened.Config.DisabledDates, 1)
}

func TestRuleEditorService_Reset(t *testing.T) {
	editor := newEditor(t, newMemoryRulesStore())
	ctx := context.Background()

	state, err := editor.OpenEditor(ctx)
	require.NoError(t, err)
	original := state.Fingerprint

	_, err = editor.ToggleDay(ctx, state.SessionID, time.Sunday)
	require.NoError(t, err)

	state, err = editor.Reset(ctx, state.SessionID)
	require.NoError(t, err)
	assert.False(t, state.Dirty)
	assert.Equal(t, original, state.Fingerprint)
	assert.Empty(t, state.Config.DisabledDays)
}

func TestRuleEditorService_ToggleDay(t *testing.T) {
	editor := newEditor(t, newMemoryRulesStore())
	ctx := context.Background()

	state, err := editor.OpenEditor(ctx)
	require.NoError(t, err)

	state, err = editor.ToggleDay(ctx, state.SessionID, time.Saturday)
	require.NoError(t, err)
	require.Len(t, state.Config.DisabledDays, 1)
	assert.True(t, state.Config.DisabledDays[0].Disabled)
	assert.Equal(t, "Saturday", state.Config.DisabledDays[0].Identifier)

	state, err = editor.ToggleDay(ctx, state.SessionID, time.Saturday)
	require.NoError(t, err)
	require.Len(t, state.Config.DisabledDays, 1)
	assert.False(t, state.Config.DisabledDays[0].Disabled)
}

func TestRuleEditorService_RejectsDateInPast(t *testing.T) {
	editor := newEditor(t, newMemoryRulesStore())
	ctx := context.Background()

	state, err := editor.OpenEditor(ctx)
	require.NoError(t, err)

	_, err = editor.AddRule(ctx, state.SessionID, dateRuleOf(t, "2023-12-31", ""))
	assert.ErrorIs(t, err, ErrDateInPast)

	_, err = editor.AddRule(ctx, state.SessionID, dateRuleOf(t, "2024-01-01", ""))
	assert.NoError(t, err)
}

func TestRuleEditorService_ReportsOverlaps(t *testing.T) {
	editor := newEditor(t, newMemoryRulesStore())
	ctx := context.Background()

	state, err := editor.OpenEditor(ctx)
	require.NoError(t, err)

	_, err = editor.AddRule(ctx, state.SessionID, dateRuleOf(t, "2024-02-01", "2024-02-05"))
	require.NoError(t, err)

	state, err = editor.AddRule(ctx, state.SessionID, dateRuleOf(t, "2024-02-04", "2024-02-08"))
	require.NoError(t, err)
	require.Len(t, state.Overlaps, 2)
	assert.Equal(t, "2024-02-04", state.Overlaps[0].String())
	assert.Equal(t, "2024-02-05", state.Overlaps[1].String())
	assert.Len(t, state.Config.DisabledDates, 2)
}

func TestRuleEditorService_ReplaceRule(t *testing.T) {
	editor := newEditor(t, newMemoryRulesStore())
	ctx := context.Background()

	state, err := editor.OpenEditor(ctx)
	require.NoError(t, err)

	_, err = editor.AddRule(ctx, state.SessionID, dateRuleOf(t, "2024-02-01", "2024-02-05"))
	require.NoError(t, err)

	state, err = editor.ReplaceRule(ctx, state.SessionID, "01/02/2024 - 05/02/2024", dateRuleOf(t, "2024-02-03", "2024-02-06"))
	require.NoError(t, err)
	assert.Empty(t, state.Overlaps)
	require.Len(t, state.Config.DisabledDates, 1)
	assert.Equal(t, "03/02/2024 - 06/02/2024", state.Config.DisabledDates[0].Identifier)
}

func TestRuleEditorService_BlockedDays(t *testing.T) {
	editor := newEditor(t, newMemoryRulesStore())
	ctx := context.Background()

	state, err := editor.OpenEditor(ctx)
	require.NoError(t, err)

	_, err = editor.AddRule(ctx, state.SessionID, dateRuleOf(t, "2024-02-01", "2024-02-02"))
	require.NoError(t, err)
	_, err = editor.AddRule(ctx, state.SessionID, dateRuleOf(t, "2024-03-01", ""))
	require.NoError(t, err)

	days, err := editor.BlockedDays(ctx, state.SessionID, "01/03/2024")
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "2024-02-01", days[0].String())
	assert.Equal(t, "2024-02-02", days[1].String())
}

func TestRuleEditorService_RemoveRule(t *testing.T) {
	editor := newEditor(t, newMemoryRulesStore())
	ctx := context.Background()

	state, err := editor.OpenEditor(ctx)
	require.NoError(t, err)

	_, err = editor.AddRule(ctx, state.SessionID, dateRuleOf(t, "2024-03-01", ""))
	require.NoError(t, err)

	state, err = editor.RemoveRule(ctx, state.SessionID, "01/03/2024")
	require.NoError(t, err)
	assert.Empty(t, state.Config.DisabledDates)
	assert.False(t, state.Dirty)
}

func TestRuleEditorService_SaveFailureKeepsWorkingCopy(t *testing.T) {
	store := newMemoryRulesStore()
	saved := 0
	editor := newEditor(t, store, WithSavedHook(func(ctx context.Context) { saved++ }))
	ctx := context.Background()

	state, err := editor.OpenEditor(ctx)
	require.NoError(t, err)
	_, err = editor.ToggleDay(ctx, state.SessionID, time.Monday)
	require.NoError(t, err)

	store.setErr = errors.New("write rejected")
	state, err = editor.Save(ctx, state.SessionID)
	require.Error(t, err)
	assert.True(t, state.Dirty)
	assert.Zero(t, saved)
}

func TestRuleEditorService_UnknownSession(t *testing.T) {
	editor := newEditor(t, newMemoryRulesStore())
	ctx := context.Background()

	_, err := editor.GetEditor(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)

	state, err := editor.OpenEditor(ctx)
	require.NoError(t, err)
	require.NoError(t, editor.CloseEditor(ctx, state.SessionID))

	_, err = editor.GetEditor(ctx, state.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, editor.CloseEditor(ctx, state.SessionID), ErrSessionNotFound)
}

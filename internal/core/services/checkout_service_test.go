package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suchimauz/delivery-date-availability/internal/adapters/out/logger"
	"github.com/suchimauz/delivery-date-availability/internal/core/domain"
)

type checkoutFixture struct {
	store      *memoryRulesStore
	selections *memorySelections
	editor     *RuleEditorService
	checkout   *CheckoutService
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	store := newMemoryRulesStore()
	selections := newMemorySelections()
	loader := NewRulesLoader(store, newMapCache(), nil, "delivery_date", "rules", logger.NewNopLogger())

	checkout, err := NewCheckoutService(context.Background(), loader, selections, testConfig(), logger.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(checkout.Close)

	editor, err := NewRuleEditorService(loader, testConfig(), logger.NewNopLogger(),
		WithClock(fixedClock("2024-01-01")),
		WithSavedHook(func(ctx context.Context) { checkout.RefreshSessions(ctx) }),
	)
	require.NoError(t, err)

	return &checkoutFixture{store: store, selections: selections, editor: editor, checkout: checkout}
}

func TestCheckoutService_StartRequiresFlowID(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.checkout.StartSession(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyFlowID)
}

func TestCheckoutService_SelectAndAdvance(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	state, err := f.checkout.StartSession(ctx, "checkout-1")
	require.NoError(t, err)
	assert.Equal(t, domain.GateStateAwaitingSelection, state.State)

	decision, err := f.checkout.Advance(ctx, state.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReasonSelectDeliveryDate, decision.Reason)

	_, err = f.checkout.SelectDate(ctx, state.SessionID, "2024-03-01")
	require.NoError(t, err)

	decision, err = f.checkout.Advance(ctx, state.SessionID)
	require.NoError(t, err)
	assert.True(t, decision.Allowed())
}

func TestCheckoutService_SaveRechecksOpenSessions(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	session, err := f.checkout.StartSession(ctx, "checkout-1")
	require.NoError(t, err)
	_, err = f.checkout.SelectDate(ctx, session.SessionID, "2024-03-01")
	require.NoError(t, err)

	editor, err := f.editor.OpenEditor(ctx)
	require.NoError(t, err)
	_, err = f.editor.AddRule(ctx, editor.SessionID, dateRuleOf(t, "2024-02-28", "2024-03-02"))
	require.NoError(t, err)
	_, err = f.editor.Save(ctx, editor.SessionID)
	require.NoError(t, err)

	state, err := f.checkout.GetSession(ctx, session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.GateStateInvalid, state.State)
	assert.Empty(t, state.Selection)

	decision, err := f.checkout.Advance(ctx, session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReasonSelectValidDeliveryDate, decision.Reason)

	_, persisted := f.selections.GetSelection(ctx, "checkout-1")
	assert.False(t, persisted)
}

func TestCheckoutService_RestoresSelectionForFlow(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	first, err := f.checkout.StartSession(ctx, "checkout-1")
	require.NoError(t, err)
	_, err = f.checkout.SelectDate(ctx, first.SessionID, "2024-03-05")
	require.NoError(t, err)
	require.NoError(t, f.checkout.EndSession(ctx, first.SessionID))

	second, err := f.checkout.StartSession(ctx, "checkout-1")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05", second.Selection)
	assert.Equal(t, domain.GateStateValid, second.State)
}

func TestCheckoutService_UnknownSession(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	_, err := f.checkout.GetSession(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = f.checkout.Advance(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.ErrorIs(t, f.checkout.EndSession(ctx, uuid.New()), ErrSessionNotFound)
}

func TestCheckoutService_EvictedSessionStopsPolling(t *testing.T) {
	store := newMemoryRulesStore()
	loader := NewRulesLoader(store, nil, nil, "delivery_date", "rules", logger.NewNopLogger())

	cfg := testConfig()
	cfg.Cache.SessionsSize = 1
	cfg.Rules.PollInterval = 2 * time.Millisecond

	checkout, err := NewCheckoutService(context.Background(), loader, newMemorySelections(), cfg, logger.NewNopLogger())
	require.NoError(t, err)

	_, err = checkout.StartSession(context.Background(), "checkout-1")
	require.NoError(t, err)
	_, err = checkout.StartSession(context.Background(), "checkout-2")
	require.NoError(t, err)

	checkout.Close()
	calls := store.calls()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls, store.calls())
}

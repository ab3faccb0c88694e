package checkout_session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/suchimauz/delivery-date-availability/internal/core/domain"
)

func TestForwardProgressGate_Decide(t *testing.T) {
	gate := NewForwardProgressGate()

	decision := gate.Decide()
	assert.False(t, decision.Allowed())
	assert.Equal(t, domain.ReasonSelectDeliveryDate, decision.Reason)
	assert.Equal(t, MessageSelectDeliveryDate, decision.Message)

	gate.Select(false)
	decision = gate.Decide()
	assert.False(t, decision.Allowed())
	assert.Equal(t, domain.ReasonSelectValidDeliveryDate, decision.Reason)
	assert.Equal(t, MessageSelectValidDeliveryDate, decision.Message)

	gate.Select(true)
	decision = gate.Decide()
	assert.True(t, decision.Allowed())
	assert.Empty(t, decision.Reason)
}

func TestForwardProgressGate_InvalidateOnlyLeavesValid(t *testing.T) {
	gate := NewForwardProgressGate()

	gate.Invalidate()
	assert.Equal(t, domain.GateStateAwaitingSelection, gate.State())

	gate.Select(true)
	gate.Invalidate()
	assert.Equal(t, domain.GateStateInvalid, gate.State())

	gate.Clear()
	assert.Equal(t, domain.GateStateAwaitingSelection, gate.State())
}

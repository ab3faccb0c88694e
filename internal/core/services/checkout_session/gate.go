package checkout_session

import (
	"github.com/suchimauz/delivery-date-availability/internal/core/domain"
)

const (
	MessageSelectDeliveryDate      = "Please select a delivery date."
	MessageSelectValidDeliveryDate = "Please select a valid delivery date."
)

// ForwardProgressGate решает, может ли покупатель перейти к следующему шагу.
// Не потокобезопасен, доступ сериализует Session.
type ForwardProgressGate struct {
	state domain.GateState
}

func NewForwardProgressGate() *ForwardProgressGate {
	return &ForwardProgressGate{state: domain.GateStateAwaitingSelection}
}

// Select фиксирует результат проверки выбранной даты
func (g *ForwardProgressGate) Select(valid bool) {
	if valid {
		g.state = domain.GateStateValid
		return
	}
	g.state = domain.GateStateInvalid
}

// Invalidate переводит Valid в Invalid после того, как сверка заблокировала дату
func (g *ForwardProgressGate) Invalidate() {
	if g.state == domain.GateStateValid {
		g.state = domain.GateStateInvalid
	}
}

func (g *ForwardProgressGate) Clear() {
	g.state = domain.GateStateAwaitingSelection
}

func (g *ForwardProgressGate) State() domain.GateState {
	return g.state
}

func (g *ForwardProgressGate) Decide() domain.Decision {
	switch g.state {
	case domain.GateStateValid:
		return domain.Decision{Behavior: domain.GateBehaviorAllow}
	case domain.GateStateInvalid:
		return domain.Decision{
			Behavior: domain.GateBehaviorBlock,
			Reason:   domain.ReasonSelectValidDeliveryDate,
			Message:  MessageSelectValidDeliveryDate,
		}
	default:
		return domain.Decision{
			Behavior: domain.GateBehaviorBlock,
			Reason:   domain.ReasonSelectDeliveryDate,
			Message:  MessageSelectDeliveryDate,
		}
	}
}

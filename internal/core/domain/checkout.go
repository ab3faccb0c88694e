package domain

import (
	"github.com/google/uuid"
	"github.com/suchimauz/delivery-date-availability/internal/core/json_types"
)

type GateState string

const (
	GateStateAwaitingSelection GateState = "awaiting_selection"
	GateStateValid             GateState = "valid"
	GateStateInvalid           GateState = "invalid"
)

type GateBehavior string

const (
	GateBehaviorAllow GateBehavior = "allow"
	GateBehaviorBlock GateBehavior = "block"
)

const (
	ReasonSelectDeliveryDate      = "select a delivery date"
	ReasonSelectValidDeliveryDate = "select a valid delivery date"
)

// Decision это ответ на попытку покупателя перейти к следующему шагу
type Decision struct {
	Behavior GateBehavior `json:"behavior"`
	Reason   string       `json:"reason,omitempty"`
	Message  string       `json:"message,omitempty"`
}

func (d Decision) Allowed() bool {
	return d.Behavior == GateBehaviorAllow
}

type PickerDisabledKind string

const (
	PickerDisabledWeekday PickerDisabledKind = "weekday"
	PickerDisabledDate    PickerDisabledKind = "date"
	PickerDisabledRange   PickerDisabledKind = "range"
)

// PickerDisabled это элемент списка недоступных дней для календаря покупателя
type PickerDisabled struct {
	Kind    PickerDisabledKind `json:"kind"`
	Weekday string             `json:"weekday,omitempty"`
	Date    *json_types.Date   `json:"date,omitempty"`
	Start   *json_types.Date   `json:"start,omitempty"`
	End     *json_types.Date   `json:"end,omitempty"`
}

type CheckoutState struct {
	SessionID uuid.UUID        `json:"sessionId"`
	FlowID    string           `json:"flowId"`
	Selection string           `json:"selection,omitempty"`
	State     GateState        `json:"state"`
	Decision  Decision         `json:"decision"`
	Disabled  []PickerDisabled `json:"disabled"`
}

// EditorState это рабочая копия правил в редакторе администратора.
// Overlaps заполняется после добавления диапазона, который задел уже занятые дни.
type EditorState struct {
	SessionID   uuid.UUID         `json:"sessionId"`
	Config      RuleConfig        `json:"config"`
	Dirty       bool              `json:"dirty"`
	Fingerprint string            `json:"fingerprint"`
	Overlaps    []json_types.Date `json:"overlaps,omitempty"`
}

package out

import "context"

// SelectionPort хранит атрибут с выбранной датой доставки, который
// сохраняется между шагами оформления заказа
type SelectionPort interface {
	GetSelection(ctx context.Context, flowID string) (string, bool)
	StoreSelection(ctx context.Context, flowID string, date string) error
	ClearSelection(ctx context.Context, flowID string) error
}

package out

import "context"

// RulesStorePort это внешнее хранилище ключ/значение, где лежит один снимок
// правил на магазин. Значение перезаписывается целиком.
type RulesStorePort interface {
	Get(ctx context.Context, namespace, key string) (value string, found bool, err error)
	Set(ctx context.Context, namespace, key, value string) error
}

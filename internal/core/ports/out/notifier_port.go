package out

import "context"

type RulesNotifierPort interface {
	NotifyRulesChanged(ctx context.Context, namespace, key, fingerprint string) error
}

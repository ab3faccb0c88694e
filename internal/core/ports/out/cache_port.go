package out

import (
	"context"

	"github.com/suchimauz/delivery-date-availability/internal/core/domain"
)

type CachePort interface {
	// Кэширование снимков правил
	GetRuleConfig(ctx context.Context, namespace, key string) (*domain.RuleConfig, bool)
	StoreRuleConfig(ctx context.Context, namespace, key string, ruleConfig domain.RuleConfig)
	InvalidateRuleConfigCache(ctx context.Context, namespace, key string)
	InvalidateAllRuleConfigCache(ctx context.Context)
}

package services

import (
	"context"
	"fmt"

	"github.com/suchimauz/delivery-date-availability/internal/core/domain"
	"github.com/suchimauz/delivery-date-availability/internal/core/ports/out"
	"github.com/suchimauz/delivery-date-availability/internal/core/services/rule_store"
)

// RulesLoader читает и пишет единственный снимок правил магазина.
// Ошибки чтения не выходят наружу: покупатель получает пустую конфигурацию.
type RulesLoader struct {
	store     out.RulesStorePort
	cachePort out.CachePort
	notifier  out.RulesNotifierPort
	namespace string
	key       string
	logger    out.LoggerPort
}

// NewRulesLoader, cachePort и notifier могут быть nil
func NewRulesLoader(
	store out.RulesStorePort,
	cachePort out.CachePort,
	notifier out.RulesNotifierPort,
	namespace string,
	key string,
	logger out.LoggerPort,
) *RulesLoader {
	return &RulesLoader{
		store:     store,
		cachePort: cachePort,
		notifier:  notifier,
		namespace: namespace,
		key:       key,
		logger: logger.WithModule("RulesLoader").WithFields(out.LogFields{
			"namespace": namespace,
			"key":       key,
		}),
	}
}

func (l *RulesLoader) FetchRules(ctx context.Context) domain.RuleConfig {
	// Проверяем кэш только если он подключен
	if l.cachePort != nil {
		if cached, ok := l.cachePort.GetRuleConfig(ctx, l.namespace, l.key); ok {
			l.logger.Debug("rules.fetch.cache.hit", nil)
			return cached.Clone()
		}
	}

	value, found, err := l.store.Get(ctx, l.namespace, l.key)
	if err != nil {
		l.logger.Error("rules.fetch.failed", out.LogFields{
			"error": err.Error(),
		})
		return domain.EmptyRuleConfig()
	}

	if !found || value == "" {
		l.logger.Debug("rules.fetch.not_found", nil)
		ruleConfig := domain.EmptyRuleConfig()
		l.remember(ctx, ruleConfig)
		return ruleConfig
	}

	ruleConfig, err := domain.ParseRuleConfig(value)
	if err != nil {
		l.logger.Warn("rules.fetch.malformed", out.LogFields{
			"error": err.Error(),
		})
		return domain.EmptyRuleConfig()
	}

	l.remember(ctx, ruleConfig)
	return ruleConfig
}

// SaveRules перезаписывает снимок целиком. Ошибка записи возвращается
// вызывающему, повторов нет.
func (l *RulesLoader) SaveRules(ctx context.Context, ruleConfig domain.RuleConfig) (string, error) {
	serialized, err := ruleConfig.Serialize()
	if err != nil {
		return "", fmt.Errorf("failed to serialize rules: %w", err)
	}

	if err := l.store.Set(ctx, l.namespace, l.key, serialized); err != nil {
		l.logger.Error("rules.save.failed", out.LogFields{
			"error": err.Error(),
		})
		return "", fmt.Errorf("failed to save rules: %w", err)
	}

	fingerprint := rule_store.FingerprintString(serialized)
	l.logger.Info("rules.save.completed", out.LogFields{
		"fingerprint": fingerprint,
		"dates":       len(ruleConfig.DisabledDates),
		"days":        len(ruleConfig.DisabledDays),
	})

	l.Invalidate(ctx)

	if l.notifier != nil {
		if err := l.notifier.NotifyRulesChanged(ctx, l.namespace, l.key, fingerprint); err != nil {
			l.logger.Error("rules.save.notify_failed", out.LogFields{
				"error": err.Error(),
			})
		}
	}

	return fingerprint, nil
}

func (l *RulesLoader) Invalidate(ctx context.Context) {
	if l.cachePort == nil {
		return
	}
	l.cachePort.InvalidateRuleConfigCache(ctx, l.namespace, l.key)
	l.logger.Debug("rules.cache.invalidated", nil)
}

func (l *RulesLoader) remember(ctx context.Context, ruleConfig domain.RuleConfig) {
	if l.cachePort == nil {
		return
	}
	l.cachePort.StoreRuleConfig(ctx, l.namespace, l.key, ruleConfig)
}

package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/suchimauz/delivery-date-availability/internal/config"
	"github.com/suchimauz/delivery-date-availability/internal/core/domain"
	"github.com/suchimauz/delivery-date-availability/internal/core/ports/out"
)

// Сколько разных снимков (namespace, key) держим одновременно
const ruleConfigCacheSize = 128

type ruleConfigEntry struct {
	ruleConfig domain.RuleConfig
	timestamp  time.Time
}

type CacheAdapter struct {
	ruleConfigCache *lru.Cache[string, *ruleConfigEntry]
	ttl             time.Duration
	now             func() time.Time
	mu              sync.RWMutex
	logger          out.LoggerPort
}

func NewCacheAdapter(cfg *config.Config, logger out.LoggerPort) (*CacheAdapter, error) {
	if !cfg.Cache.Enabled {
		logger.Info("cache.disabled", out.LogFields{
			"message": "Cache is disabled",
		})
		return nil, nil
	}

	ruleConfigCache, err := lru.New[string, *ruleConfigEntry](ruleConfigCacheSize)
	if err != nil {
		logger.Error("cache.rules.init.failed", out.LogFields{
			"error": err.Error(),
			"size":  ruleConfigCacheSize,
		})
		return nil, err
	}

	return &CacheAdapter{
		ruleConfigCache: ruleConfigCache,
		ttl:             cfg.Cache.SnapshotTTL,
		now:             time.Now,
		logger:          logger.WithModule("CacheAdapter"),
	}, nil
}

func cacheKey(namespace, key string) string {
	return fmt.Sprintf("%s/%s", namespace, key)
}

// Кэширование снимков правил

func (c *CacheAdapter) GetRuleConfig(ctx context.Context, namespace, key string) (*domain.RuleConfig, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.ruleConfigCache.Get(cacheKey(namespace, key))
	if !exists {
		c.logger.Debug("cache.rules.get.miss", out.LogFields{
			"namespace": namespace,
			"key":       key,
		})
		return nil, false
	}

	if c.ttl > 0 && c.now().Sub(entry.timestamp) > c.ttl {
		c.logger.Debug("cache.rules.get.expired", out.LogFields{
			"namespace": namespace,
			"key":       key,
			"cachedAt":  entry.timestamp,
		})
		return nil, false
	}

	ruleConfig := entry.ruleConfig.Clone()
	return &ruleConfig, true
}

func (c *CacheAdapter) StoreRuleConfig(ctx context.Context, namespace, key string, ruleConfig domain.RuleConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Debug("cache.rules.store", out.LogFields{
		"namespace": namespace,
		"key":       key,
		"dates":     len(ruleConfig.DisabledDates),
		"days":      len(ruleConfig.DisabledDays),
	})

	c.ruleConfigCache.Add(cacheKey(namespace, key), &ruleConfigEntry{
		ruleConfig: ruleConfig.Clone(),
		timestamp:  c.now(),
	})
}

func (c *CacheAdapter) InvalidateRuleConfigCache(ctx context.Context, namespace, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ruleConfigCache.Remove(cacheKey(namespace, key))
}

func (c *CacheAdapter) InvalidateAllRuleConfigCache(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ruleConfigCache.Purge()
}

package services

import (
	"context"
	"sync"
	"time"

	"github.com/suchimauz/delivery-date-availability/internal/config"
	"github.com/suchimauz/delivery-date-availability/internal/core/domain"
)

type memoryRulesStore struct {
	mu       sync.Mutex
	values   map[string]string
	getErr   error
	setErr   error
	getCalls int
}

func newMemoryRulesStore() *memoryRulesStore {
	return &memoryRulesStore{values: make(map[string]string)}
}

func (m *memoryRulesStore) Get(_ context.Context, namespace, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.values[namespace+"/"+key]
	return v, ok, nil
}

func (m *memoryRulesStore) Set(_ context.Context, namespace, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.values[namespace+"/"+key] = value
	return nil
}

func (m *memoryRulesStore) value(namespace, key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[namespace+"/"+key]
}

func (m *memoryRulesStore) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getCalls
}

type mapCache struct {
	mu     sync.Mutex
	values map[string]domain.RuleConfig
}

func newMapCache() *mapCache {
	return &mapCache{values: make(map[string]domain.RuleConfig)}
}

func (c *mapCache) GetRuleConfig(_ context.Context, namespace, key string) (*domain.RuleConfig, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[namespace+"/"+key]
	if !ok {
		return nil, false
	}
	return &v, true
}

func (c *mapCache) StoreRuleConfig(_ context.Context, namespace, key string, cfg domain.RuleConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[namespace+"/"+key] = cfg
}

func (c *mapCache) InvalidateRuleConfigCache(_ context.Context, namespace, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, namespace+"/"+key)
}

func (c *mapCache) InvalidateAllRuleConfigCache(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = make(map[string]domain.RuleConfig)
}

type notification struct {
	namespace   string
	key         string
	fingerprint string
}

type recordingNotifier struct {
	mu            sync.Mutex
	notifications []notification
	err           error
}

func (n *recordingNotifier) NotifyRulesChanged(_ context.Context, namespace, key, fingerprint string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, notification{namespace, key, fingerprint})
	return n.err
}

type memorySelections struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemorySelections() *memorySelections {
	return &memorySelections{values: make(map[string]string)}
}

func (m *memorySelections) GetSelection(_ context.Context, flowID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[flowID]
	return v, ok
}

func (m *memorySelections) StoreSelection(_ context.Context, flowID string, date string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[flowID] = date
	return nil
}

func (m *memorySelections) ClearSelection(_ context.Context, flowID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, flowID)
	return nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Timezone = "UTC"
	cfg.Rules.Namespace = "delivery_date"
	cfg.Rules.Key = "rules"
	cfg.Rules.PollInterval = time.Hour
	cfg.Cache.SessionsSize = 16
	return cfg
}

func fixedClock(date string) func() time.Time {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t.Add(10 * time.Hour) }
}

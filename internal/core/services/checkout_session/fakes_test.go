package checkout_session

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/suchimauz/delivery-date-availability/internal/core/domain"
)

type fakeFetcher struct {
	mu      sync.Mutex
	config  domain.RuleConfig
	calls   atomic.Int32
	release chan struct{}
	entered chan struct{}
}

func newFakeFetcher(cfg domain.RuleConfig) *fakeFetcher {
	return &fakeFetcher{config: cfg}
}

func (f *fakeFetcher) set(cfg domain.RuleConfig) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.config = cfg
}

// block заставляет следующие чтения ждать закрытия release,
// о входе в чтение сообщает entered
func (f *fakeFetcher) block() (release chan struct{}, entered chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.release = make(chan struct{})
	f.entered = make(chan struct{}, 1)
	return f.release, f.entered
}

func (f *fakeFetcher) FetchRules(ctx context.Context) domain.RuleConfig {
	f.calls.Add(1)

	f.mu.Lock()
	release, entered := f.release, f.entered
	cfg := f.config.Clone()
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if release != nil {
		<-release
	}
	return cfg
}

type fakeApplier struct {
	mu      sync.Mutex
	applied []domain.RuleConfig
}

func (a *fakeApplier) ApplySnapshot(_ context.Context, cfg domain.RuleConfig) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.applied = append(a.applied, cfg)
}

func (a *fakeApplier) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.applied)
}

type memorySelections struct {
	mu     sync.Mutex
	values map[string]string
	err    error
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
	if m.err != nil {
		return m.err
	}
	m.values[flowID] = date
	return nil
}

func (m *memorySelections) ClearSelection(_ context.Context, flowID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, flowID)
	return nil
}

package rule_store

import (
	"sync"

	"github.com/suchimauz/delivery-date-availability/internal/core/domain"
)

type DirtyListener func(dirty bool)

// RuleStore держит снимок правил, загруженный при открытии редактора,
// и рабочую копию, которую меняет администратор до явного сохранения
type RuleStore struct {
	mu          sync.Mutex
	baseline    domain.RuleConfig
	current     domain.RuleConfig
	lastDirty   bool
	nextID      int
	subscribers map[int]DirtyListener
}

func NewRuleStore(baseline domain.RuleConfig) *RuleStore {
	return &RuleStore{
		baseline:    baseline.Clone(),
		current:     baseline.Clone(),
		subscribers: make(map[int]DirtyListener),
	}
}

// AddRule добавляет правило или заменяет правило с тем же идентификатором.
// Старая запись убирается, новая встает в конец списка.
func (s *RuleStore) AddRule(rule domain.Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}

	s.mutate(func(cfg *domain.RuleConfig) {
		upsert(cfg, rule)
	})
	return nil
}

// ReplaceRule удаляет правило oldIdentifier и добавляет новое
func (s *RuleStore) ReplaceRule(oldIdentifier string, rule domain.Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}

	s.mutate(func(cfg *domain.RuleConfig) {
		cfg.DisabledDays = withoutDay(cfg.DisabledDays, oldIdentifier)
		cfg.DisabledDates = withoutDate(cfg.DisabledDates, oldIdentifier)
		upsert(cfg, rule)
	})
	return nil
}

// RemoveRule убирает записи с идентификатором из обоих списков
func (s *RuleStore) RemoveRule(identifier string) {
	s.mutate(func(cfg *domain.RuleConfig) {
		cfg.DisabledDays = withoutDay(cfg.DisabledDays, identifier)
		cfg.DisabledDates = withoutDate(cfg.DisabledDates, identifier)
	})
}

// DayRule возвращает правило дня недели из рабочей копии
func (s *RuleStore) DayRule(identifier string) (domain.DayRule, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, day := range s.current.DisabledDays {
		if day.Identifier == identifier {
			return day, true
		}
	}
	return domain.DayRule{}, false
}

func (s *RuleStore) Current() domain.RuleConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

func (s *RuleStore) Baseline() domain.RuleConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseline.Clone()
}

func (s *RuleStore) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Dirty(s.baseline, s.current)
}

func (s *RuleStore) Fingerprint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Fingerprint(s.current)
}

// Reset возвращает рабочую копию к последнему загруженному снимку
func (s *RuleStore) Reset() {
	s.mutate(func(cfg *domain.RuleConfig) {
		*cfg = s.baseline.Clone()
	})
}

// MarkSaved делает сохраненную конфигурацию новым снимком
func (s *RuleStore) MarkSaved(saved domain.RuleConfig) {
	s.mu.Lock()
	s.baseline = saved.Clone()
	s.current = saved.Clone()
	listeners, dirty, changed := s.dirtyChangedLocked()
	s.mu.Unlock()

	if changed {
		notify(listeners, dirty)
	}
}

// Subscribe подписывает на смену признака несохраненных изменений
func (s *RuleStore) Subscribe(listener DirtyListener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subscribers[id] = listener

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

func (s *RuleStore) mutate(fn func(cfg *domain.RuleConfig)) {
	s.mu.Lock()
	fn(&s.current)
	listeners, dirty, changed := s.dirtyChangedLocked()
	s.mu.Unlock()

	// подписчики вызываются без блокировки, чтобы они могли читать хранилище
	if changed {
		notify(listeners, dirty)
	}
}

func (s *RuleStore) dirtyChangedLocked() ([]DirtyListener, bool, bool) {
	dirty := Dirty(s.baseline, s.current)
	if dirty == s.lastDirty {
		return nil, dirty, false
	}
	s.lastDirty = dirty

	listeners := make([]DirtyListener, 0, len(s.subscribers))
	for _, listener := range s.subscribers {
		listeners = append(listeners, listener)
	}
	return listeners, dirty, true
}

func notify(listeners []DirtyListener, dirty bool) {
	for _, listener := range listeners {
		listener(dirty)
	}
}

func upsert(cfg *domain.RuleConfig, rule domain.Rule) {
	switch rule.Kind {
	case domain.RuleKindDay:
		cfg.DisabledDays = append(withoutDay(cfg.DisabledDays, rule.Day.Identifier), *rule.Day)
	case domain.RuleKindDate:
		date := *rule.Date
		if date.EndDate != nil {
			end := *date.EndDate
			date.EndDate = &end
		}
		cfg.DisabledDates = append(withoutDate(cfg.DisabledDates, date.Identifier), date)
	}
}

func withoutDay(days []domain.DayRule, identifier string) []domain.DayRule {
	filtered := make([]domain.DayRule, 0, len(days))
	for _, day := range days {
		if day.Identifier != identifier {
			filtered = append(filtered, day)
		}
	}
	return filtered
}

func withoutDate(dates []domain.DateRule, identifier string) []domain.DateRule {
	filtered := make([]domain.DateRule, 0, len(dates))
	for _, date := range dates {
		if date.Identifier != identifier {
			filtered = append(filtered, date)
		}
	}
	return filtered
}

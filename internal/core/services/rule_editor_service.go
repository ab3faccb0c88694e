package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/suchimauz/delivery-date-availability/internal/config"
	"github.com/suchimauz/delivery-date-availability/internal/core/domain"
	"github.com/suchimauz/delivery-date-availability/internal/core/json_types"
	"github.com/suchimauz/delivery-date-availability/internal/core/ports/out"
	"github.com/suchimauz/delivery-date-availability/internal/core/services/availability"
	"github.com/suchimauz/delivery-date-availability/internal/core/services/rule_store"
	"github.com/suchimauz/delivery-date-availability/internal/utils"
)

type editorSession struct {
	id          uuid.UUID
	store       *rule_store.RuleStore
	unsubscribe func()
}

type RuleEditorService struct {
	loader   *RulesLoader
	sessions *lru.Cache[uuid.UUID, *editorSession]
	clock    utils.Clock
	location *time.Location
	onSaved  []func(ctx context.Context)
	logger   out.LoggerPort
}

type RuleEditorOption func(*RuleEditorService)

// WithClock подменяет источник времени для проверки "дата в прошлом"
func WithClock(clock utils.Clock) RuleEditorOption {
	return func(s *RuleEditorService) {
		s.clock = clock
	}
}

// WithSavedHook вызывается после успешного сохранения правил
func WithSavedHook(hook func(ctx context.Context)) RuleEditorOption {
	return func(s *RuleEditorService) {
		s.onSaved = append(s.onSaved, hook)
	}
}

func NewRuleEditorService(
	loader *RulesLoader,
	cfg *config.Config,
	logger out.LoggerPort,
	opts ...RuleEditorOption,
) (*RuleEditorService, error) {
	s := &RuleEditorService{
		loader:   loader,
		clock:    time.Now,
		location: cfg.Location(),
		logger:   logger.WithModule("RuleEditorService"),
	}
	for _, opt := range opts {
		opt(s)
	}

	sessions, err := lru.NewWithEvict(cfg.Cache.SessionsSize, func(id uuid.UUID, session *editorSession) {
		session.unsubscribe()
		s.logger.Debug("editor.session.closed", out.LogFields{
			"sessionId": id,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create editor sessions cache: %w", err)
	}
	s.sessions = sessions

	return s, nil
}

func (s *RuleEditorService) OpenEditor(ctx context.Context) (domain.EditorState, error) {
	session := &editorSession{
		id:    uuid.New(),
		store: rule_store.NewRuleStore(s.loader.FetchRules(ctx)),
	}

	sessionLogger := s.logger.WithFields(out.LogFields{"sessionId": session.id})
	session.unsubscribe = session.store.Subscribe(func(dirty bool) {
		sessionLogger.Debug("editor.dirty.changed", out.LogFields{
			"dirty": dirty,
		})
	})

	s.sessions.Add(session.id, session)

	s.logger.Info("editor.session.opened", out.LogFields{
		"sessionId": session.id,
	})

	return s.state(session, nil), nil
}

func (s *RuleEditorService) GetEditor(ctx context.Context, sessionID uuid.UUID) (domain.EditorState, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.EditorState{}, err
	}
	return s.state(session, nil), nil
}

func (s *RuleEditorService) CloseEditor(ctx context.Context, sessionID uuid.UUID) error {
	if !s.sessions.Remove(sessionID) {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return nil
}

// AddRule добавляет правило в рабочую копию. Для диапазона возвращаются дни,
// которые уже заняты другими правилами, это предупреждение, а не ошибка.
func (s *RuleEditorService) AddRule(ctx context.Context, sessionID uuid.UUID, rule domain.Rule) (domain.EditorState, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.EditorState{}, err
	}
	if err := s.checkNotInPast(rule); err != nil {
		return domain.EditorState{}, err
	}

	overlaps := s.overlaps(session, rule, "")
	if err := session.store.AddRule(rule); err != nil {
		return domain.EditorState{}, err
	}

	s.logger.Debug("editor.rule.added", out.LogFields{
		"sessionId":  sessionID,
		"identifier": rule.Identifier(),
		"overlaps":   len(overlaps),
	})

	return s.state(session, overlaps), nil
}

func (s *RuleEditorService) ReplaceRule(ctx context.Context, sessionID uuid.UUID, oldIdentifier string, rule domain.Rule) (domain.EditorState, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.EditorState{}, err
	}
	if err := s.checkNotInPast(rule); err != nil {
		return domain.EditorState{}, err
	}

	overlaps := s.overlaps(session, rule, oldIdentifier)

	if err := session.store.ReplaceRule(oldIdentifier, rule); err != nil {
		return domain.EditorState{}, err
	}

	s.logger.Debug("editor.rule.replaced", out.LogFields{
		"sessionId":     sessionID,
		"oldIdentifier": oldIdentifier,
		"identifier":    rule.Identifier(),
	})

	return s.state(session, overlaps), nil
}

func (s *RuleEditorService) RemoveRule(ctx context.Context, sessionID uuid.UUID, identifier string) (domain.EditorState, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.EditorState{}, err
	}

	session.store.RemoveRule(identifier)

	s.logger.Debug("editor.rule.removed", out.LogFields{
		"sessionId":  sessionID,
		"identifier": identifier,
	})

	return s.state(session, nil), nil
}

// ToggleDay переключает день недели: отсутствующее правило считается включенным днем
func (s *RuleEditorService) ToggleDay(ctx context.Context, sessionID uuid.UUID, weekday time.Weekday) (domain.EditorState, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.EditorState{}, err
	}

	current, _ := session.store.DayRule(weekday.String())
	rule := domain.DayRuleOf(domain.NewDayRule(weekday, !current.Disabled))
	if err := session.store.AddRule(rule); err != nil {
		return domain.EditorState{}, err
	}

	return s.state(session, nil), nil
}

func (s *RuleEditorService) Save(ctx context.Context, sessionID uuid.UUID) (domain.EditorState, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.EditorState{}, err
	}

	current := session.store.Current()
	if _, err := s.loader.SaveRules(ctx, current); err != nil {
		return s.state(session, nil), err
	}
	session.store.MarkSaved(current)

	for _, hook := range s.onSaved {
		hook(ctx)
	}

	return s.state(session, nil), nil
}

func (s *RuleEditorService) Reset(ctx context.Context, sessionID uuid.UUID) (domain.EditorState, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.EditorState{}, err
	}

	session.store.Reset()
	return s.state(session, nil), nil
}

func (s *RuleEditorService) BlockedDays(ctx context.Context, sessionID uuid.UUID, excludeIdentifier string) ([]json_types.Date, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return availability.Expand(session.store.Current().DisabledDates, excludeIdentifier), nil
}

func (s *RuleEditorService) InvalidateRulesCache(ctx context.Context) {
	s.loader.Invalidate(ctx)
}

func (s *RuleEditorService) session(sessionID uuid.UUID) (*editorSession, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return session, nil
}

func (s *RuleEditorService) checkNotInPast(rule domain.Rule) error {
	if rule.Kind != domain.RuleKindDate || rule.Date == nil {
		return nil
	}

	today := utils.Today(s.clock, s.location)
	if rule.Date.StartDate.Before(today) {
		return fmt.Errorf("%w: %s < %s", ErrDateInPast, rule.Date.StartDate, today)
	}
	return nil
}

// overlaps сверяет новый диапазон с остальными правилами, replacing не учитывается
func (s *RuleEditorService) overlaps(session *editorSession, rule domain.Rule, replacing string) []json_types.Date {
	if rule.Kind != domain.RuleKindDate || rule.Date == nil {
		return nil
	}

	others := make([]domain.DateRule, 0)
	for _, dateRule := range session.store.Current().DisabledDates {
		if replacing == "" || dateRule.Identifier != replacing {
			others = append(others, dateRule)
		}
	}
	return availability.Overlaps(*rule.Date, others)
}

func (s *RuleEditorService) state(session *editorSession, overlaps []json_types.Date) domain.EditorState {
	return domain.EditorState{
		SessionID:   session.id,
		Config:      session.store.Current(),
		Dirty:       session.store.Dirty(),
		Fingerprint: session.store.Fingerprint(),
		Overlaps:    overlaps,
	}
}

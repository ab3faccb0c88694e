package checkout_session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/suchimauz/delivery-date-availability/internal/core/domain"
	"github.com/suchimauz/delivery-date-availability/internal/core/ports/out"
	"github.com/suchimauz/delivery-date-availability/internal/core/services/availability"
)

// Session это выбор даты доставки в одном оформлении заказа.
// Все изменения выбора, гейта и снимка правил идут под одной блокировкой,
// поэтому сверка в фоне и запросы покупателя не пересекаются.
type Session struct {
	id         uuid.UUID
	flowID     string
	selections out.SelectionPort
	logger     out.LoggerPort
	reconciler *Reconciler
	closed     atomic.Bool

	mu        sync.Mutex
	snapshot  domain.RuleConfig
	selection string
	gate      *ForwardProgressGate
}

func NewSession(
	flowID string,
	fetcher SnapshotFetcher,
	selections out.SelectionPort,
	pollInterval time.Duration,
	logger out.LoggerPort,
) *Session {
	id := uuid.New()
	s := &Session{
		id:         id,
		flowID:     flowID,
		selections: selections,
		snapshot:   domain.EmptyRuleConfig(),
		gate:       NewForwardProgressGate(),
		logger: logger.WithModule("CheckoutSession").WithFields(out.LogFields{
			"sessionId": id,
			"flowId":    flowID,
		}),
	}
	s.reconciler = NewReconciler(fetcher, s, pollInterval, s.logger)
	return s
}

func (s *Session) ID() uuid.UUID {
	return s.id
}

func (s *Session) FlowID() string {
	return s.flowID
}

// Start восстанавливает сохраненный выбор, проверяет его по свежим правилам
// и запускает периодическую сверку
func (s *Session) Start(ctx context.Context) {
	if s.selections != nil {
		if selection, ok := s.selections.GetSelection(ctx, s.flowID); ok {
			s.mu.Lock()
			s.selection = selection
			s.mu.Unlock()

			s.logger.Debug("checkout.selection.restored", out.LogFields{
				"selection": selection,
			})
		}
	}

	s.reconciler.Start(ctx)
}

// ApplySnapshot заменяет правила сессии и перепроверяет выбранную дату.
// Дата, которая стала недоступной, сбрасывается, гейт уходит в Invalid.
func (s *Session) ApplySnapshot(ctx context.Context, ruleConfig domain.RuleConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot = ruleConfig

	if s.selection == "" {
		return
	}

	if availability.ValidateString(s.selection, s.snapshot) {
		s.gate.Select(true)
		return
	}

	s.logger.Info("checkout.selection.invalidated", out.LogFields{
		"selection": s.selection,
	})

	s.selection = ""
	s.gate.Select(false)

	if s.selections != nil {
		if err := s.selections.ClearSelection(ctx, s.flowID); err != nil {
			s.logger.Error("checkout.selection.clear_failed", out.LogFields{
				"error": err.Error(),
			})
		}
	}
}

// SelectDate проверяет дату по текущему снимку и сохраняет ее в атрибут заказа.
// Некорректная строка не ошибка, гейт просто уходит в Invalid.
func (s *Session) SelectDate(ctx context.Context, date string) (domain.CheckoutState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selection = date
	valid := availability.ValidateString(date, s.snapshot)
	s.gate.Select(valid)

	s.logger.Debug("checkout.selection.changed", out.LogFields{
		"selection": date,
		"valid":     valid,
	})

	if s.selections != nil {
		if err := s.selections.StoreSelection(ctx, s.flowID, date); err != nil {
			s.logger.Error("checkout.selection.store_failed", out.LogFields{
				"error": err.Error(),
			})
			return s.stateLocked(), err
		}
	}

	return s.stateLocked(), nil
}

// Advance это решение для попытки перейти к следующему шагу оформления
func (s *Session) Advance() domain.Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	decision := s.gate.Decide()
	if !decision.Allowed() {
		s.logger.Debug("checkout.advance.blocked", out.LogFields{
			"reason": decision.Reason,
		})
	}
	return decision
}

func (s *Session) State() domain.CheckoutState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Recheck запускает внеочередную сверку, например после сохранения правил
func (s *Session) Recheck(ctx context.Context) bool {
	if s.closed.Load() {
		return false
	}
	return s.reconciler.Recheck(ctx)
}

// Close останавливает сверку. После возврата новых чтений правил не будет.
func (s *Session) Close() {
	s.closed.Store(true)
	s.reconciler.Stop()
}

func (s *Session) stateLocked() domain.CheckoutState {
	return domain.CheckoutState{
		SessionID: s.id,
		FlowID:    s.flowID,
		Selection: s.selection,
		State:     s.gate.State(),
		Decision:  s.gate.Decide(),
		Disabled:  availability.PickerDisabled(s.snapshot),
	}
}

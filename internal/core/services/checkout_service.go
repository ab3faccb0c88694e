package services

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/suchimauz/delivery-date-availability/internal/config"
	"github.com/suchimauz/delivery-date-availability/internal/core/domain"
	"github.com/suchimauz/delivery-date-availability/internal/core/ports/out"
	"github.com/suchimauz/delivery-date-availability/internal/core/services/checkout_session"
	"golang.org/x/sync/errgroup"
)

// Сколько сессий сверяется одновременно при RefreshSessions
const refreshConcurrency = 8

type CheckoutService struct {
	fetcher      checkout_session.SnapshotFetcher
	selections   out.SelectionPort
	pollInterval time.Duration
	sessions     *lru.Cache[uuid.UUID, *checkout_session.Session]
	logger       out.LoggerPort

	// контекст жизни сервиса, от него живут фоновые сверки сессий
	baseCtx context.Context
}

func NewCheckoutService(
	ctx context.Context,
	fetcher checkout_session.SnapshotFetcher,
	selections out.SelectionPort,
	cfg *config.Config,
	logger out.LoggerPort,
) (*CheckoutService, error) {
	s := &CheckoutService{
		fetcher:      fetcher,
		selections:   selections,
		pollInterval: cfg.Rules.PollInterval,
		logger:       logger.WithModule("CheckoutService"),
		baseCtx:      ctx,
	}

	// Вытесненная или удаленная сессия останавливает свою сверку
	sessions, err := lru.NewWithEvict(cfg.Cache.SessionsSize, func(id uuid.UUID, session *checkout_session.Session) {
		session.Close()
		s.logger.Debug("checkout.session.closed", out.LogFields{
			"sessionId": id,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout sessions cache: %w", err)
	}
	s.sessions = sessions

	return s, nil
}

func (s *CheckoutService) StartSession(ctx context.Context, flowID string) (domain.CheckoutState, error) {
	flowID = strings.TrimSpace(flowID)
	if flowID == "" {
		return domain.CheckoutState{}, ErrEmptyFlowID
	}

	session := checkout_session.NewSession(flowID, s.fetcher, s.selections, s.pollInterval, s.logger)
	session.Start(s.baseCtx)
	s.sessions.Add(session.ID(), session)

	s.logger.Info("checkout.session.started", out.LogFields{
		"sessionId": session.ID(),
		"flowId":    flowID,
	})

	return session.State(), nil
}

func (s *CheckoutService) GetSession(ctx context.Context, sessionID uuid.UUID) (domain.CheckoutState, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.CheckoutState{}, err
	}
	return session.State(), nil
}

func (s *CheckoutService) EndSession(ctx context.Context, sessionID uuid.UUID) error {
	if !s.sessions.Remove(sessionID) {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return nil
}

func (s *CheckoutService) SelectDate(ctx context.Context, sessionID uuid.UUID, date string) (domain.CheckoutState, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.CheckoutState{}, err
	}
	return session.SelectDate(ctx, date)
}

func (s *CheckoutService) Advance(ctx context.Context, sessionID uuid.UUID) (domain.Decision, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.Decision{}, err
	}
	return session.Advance(), nil
}

// RefreshSessions сверяет все открытые сессии, не дожидаясь тика
func (s *CheckoutService) RefreshSessions(ctx context.Context) int {
	var refreshed atomic.Int32

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(refreshConcurrency)

	for _, session := range s.sessions.Values() {
		session := session
		group.Go(func() error {
			if session.Recheck(groupCtx) {
				refreshed.Add(1)
			}
			return nil
		})
	}
	_ = group.Wait()

	s.logger.Info("checkout.sessions.refreshed", out.LogFields{
		"sessions":  s.sessions.Len(),
		"refreshed": refreshed.Load(),
	})

	return int(refreshed.Load())
}

// Close останавливает все сессии
func (s *CheckoutService) Close() {
	s.sessions.Purge()
}

func (s *CheckoutService) session(sessionID uuid.UUID) (*checkout_session.Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return session, nil
}

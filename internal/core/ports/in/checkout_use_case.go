package in

import (
	"context"

	"github.com/google/uuid"
	"github.com/suchimauz/delivery-date-availability/internal/core/domain"
)

type CheckoutUseCase interface {
	StartSession(ctx context.Context, flowID string) (domain.CheckoutState, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (domain.CheckoutState, error)
	EndSession(ctx context.Context, sessionID uuid.UUID) error

	SelectDate(ctx context.Context, sessionID uuid.UUID, date string) (domain.CheckoutState, error)

	// Решение для перехода к следующему шагу оформления
	Advance(ctx context.Context, sessionID uuid.UUID) (domain.Decision, error)

	// Внеочередная сверка всех открытых сессий, возвращает число сверенных
	RefreshSessions(ctx context.Context) int
}

package in

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/suchimauz/delivery-date-availability/internal/core/domain"
	"github.com/suchimauz/delivery-date-availability/internal/core/json_types"
)

type RuleEditorUseCase interface {
	// Открыть редактор: загружается текущий снимок правил
	OpenEditor(ctx context.Context) (domain.EditorState, error)
	GetEditor(ctx context.Context, sessionID uuid.UUID) (domain.EditorState, error)
	CloseEditor(ctx context.Context, sessionID uuid.UUID) error

	// Изменения рабочей копии, до Save в хранилище ничего не пишется
	AddRule(ctx context.Context, sessionID uuid.UUID, rule domain.Rule) (domain.EditorState, error)
	ReplaceRule(ctx context.Context, sessionID uuid.UUID, oldIdentifier string, rule domain.Rule) (domain.EditorState, error)
	RemoveRule(ctx context.Context, sessionID uuid.UUID, identifier string) (domain.EditorState, error)
	ToggleDay(ctx context.Context, sessionID uuid.UUID, weekday time.Weekday) (domain.EditorState, error)

	Save(ctx context.Context, sessionID uuid.UUID) (domain.EditorState, error)
	Reset(ctx context.Context, sessionID uuid.UUID) (domain.EditorState, error)

	// Дни, уже занятые правилами, кроме редактируемого
	BlockedDays(ctx context.Context, sessionID uuid.UUID, excludeIdentifier string) ([]json_types.Date, error)

	// Сброс кэша снимков после сохранения на другом инстансе
	InvalidateRulesCache(ctx context.Context)
}

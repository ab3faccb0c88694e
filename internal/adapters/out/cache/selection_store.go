package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/suchimauz/delivery-date-availability/internal/config"
	"github.com/suchimauz/delivery-date-availability/internal/core/ports/out"
)

// SelectionStore хранит атрибут выбранной даты по идентификатору оформления.
// Старые оформления вытесняются по LRU.
type SelectionStore struct {
	attributeKey string
	selections   *lru.Cache[string, string]
	logger       out.LoggerPort
}

func NewSelectionStore(cfg *config.Config, logger out.LoggerPort) (*SelectionStore, error) {
	selections, err := lru.New[string, string](cfg.Checkout.SelectionsSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create selections cache: %w", err)
	}

	return &SelectionStore{
		attributeKey: cfg.Checkout.AttributeKey,
		selections:   selections,
		logger:       logger.WithModule("SelectionStore"),
	}, nil
}

func (s *SelectionStore) key(flowID string) string {
	return fmt.Sprintf("%s:%s", flowID, s.attributeKey)
}

func (s *SelectionStore) GetSelection(ctx context.Context, flowID string) (string, bool) {
	return s.selections.Get(s.key(flowID))
}

func (s *SelectionStore) StoreSelection(ctx context.Context, flowID string, date string) error {
	s.selections.Add(s.key(flowID), date)
	s.logger.Debug("selection.stored", out.LogFields{
		"flowId":    flowID,
		"attribute": s.attributeKey,
		"value":     date,
	})
	return nil
}

func (s *SelectionStore) ClearSelection(ctx context.Context, flowID string) error {
	s.selections.Remove(s.key(flowID))
	return nil
}

package rabbitmq

import (
	"context"
	"fmt"
	"strings"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/suchimauz/delivery-date-availability/internal/config"
	"github.com/suchimauz/delivery-date-availability/internal/core/ports/out"
)

type RulesCacheInvalidator interface {
	InvalidateRulesCache(ctx context.Context)
}

type SessionsRefresher interface {
	RefreshSessions(ctx context.Context) int
}

type (
	CacheHitType         string
	CacheHitResourceType string
)

type CacheMessageRoutingKey struct {
	Source       string
	Receiver     string
	ResourceType CacheHitResourceType
	Key          string
	CacheHitType CacheHitType
}

const (
	CacheHitResourceTypeAll           CacheHitResourceType = "_all_"
	CacheHitResourceTypeDeliveryRules CacheHitResourceType = "deliveryrules"
)

const (
	CacheHitTypeStore      CacheHitType = "store"
	CacheHitTypeInvalidate CacheHitType = "invalidate"
)

// RulesChangedListener слушает события о сохранении правил на других инстансах:
// сбрасывает кэш снимков и сразу перепроверяет открытые оформления
type RulesChangedListener struct {
	conn        *amqp.Connection
	channel     *amqp.Channel
	invalidator RulesCacheInvalidator
	refresher   SessionsRefresher
	cfg         *config.Config
	logger      out.LoggerPort

	mu              sync.Mutex
	consumerCancels []chan struct{}
	consumerWg      sync.WaitGroup
	closed          bool
}

func NewRulesChangedListener(
	invalidator RulesCacheInvalidator,
	refresher SessionsRefresher,
	cfg *config.Config,
	logger out.LoggerPort,
) (*RulesChangedListener, error) {
	if !cfg.RabbitMQ.Enabled {
		logger.Info("rabbitmq.disabled", out.LogFields{
			"message": "RabbitMQ is disabled, listener will not be started",
		})
		return nil, nil
	}

	conn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		logger.Error("rabbitmq.connect.failed", out.LogFields{
			"error": err.Error(),
		})
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		logger.Error("rabbitmq.channel.failed", out.LogFields{
			"error": err.Error(),
		})
		return nil, err
	}

	return &RulesChangedListener{
		conn:        conn,
		channel:     channel,
		invalidator: invalidator,
		refresher:   refresher,
		cfg:         cfg,
		logger:      logger.WithModule("RulesChangedListener"),
	}, nil
}

func (l *RulesChangedListener) Start(ctx context.Context) error {
	if err := l.startRulesQueue(ctx); err != nil {
		return err
	}
	l.logger.Info("delivery_rules.queue.started", out.LogFields{
		"queue": l.cfg.RabbitMQ.Queue,
	})
	return nil
}

func (l *RulesChangedListener) Stop() error {
	if l == nil || l.channel == nil {
		return nil
	}

	l.mu.Lock()
	for _, cancel := range l.consumerCancels {
		close(cancel)
	}
	l.consumerCancels = nil
	l.mu.Unlock()

	l.consumerWg.Wait()
	l.closeConnection("listener stopped")
	return nil
}

func (l *RulesChangedListener) addConsumerCancel(cancel chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.consumerCancels = append(l.consumerCancels, cancel)
}

func (l *RulesChangedListener) closeConnection(reason string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true

	l.logger.Warn("rabbitmq.connection.closing", out.LogFields{
		"reason": reason,
	})

	if l.channel != nil {
		_ = l.channel.Close()
	}
	if l.conn != nil {
		_ = l.conn.Close()
	}
}

// Пример routingKey:
// admin.delivery-date-svc.deliveryrules.rules.invalidate
// admin.delivery-date-svc._all_.*.invalidate
// Тип попадания всегда последний, ключ забирает все сегменты между ними.
func parseCacheMessageRoutingKey(routingKey string) (CacheMessageRoutingKey, error) {
	parts := strings.Split(routingKey, ".")

	if len(parts) < 5 {
		return CacheMessageRoutingKey{}, fmt.Errorf("invalid routing key: %s", routingKey)
	}

	last := len(parts) - 1
	return CacheMessageRoutingKey{
		Source:       parts[0],
		Receiver:     parts[1],
		ResourceType: CacheHitResourceType(parts[2]),
		Key:          strings.Join(parts[3:last], "."),
		CacheHitType: CacheHitType(parts[last]),
	}, nil
}

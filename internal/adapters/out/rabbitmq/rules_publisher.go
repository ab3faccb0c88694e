package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/suchimauz/delivery-date-availability/internal/config"
	"github.com/suchimauz/delivery-date-availability/internal/core/ports/out"
)

const (
	receiver          = "delivery-date-svc"
	resourceType      = "deliveryrules"
	cacheHitType      = "invalidate"
	declareAttempts   = 3
	declareRetryDelay = 500 * time.Millisecond
)

type RulesChangedMessage struct {
	Namespace   string `json:"namespace"`
	Key         string `json:"key"`
	Fingerprint string `json:"fingerprint"`
}

// Channel это часть amqp.Channel, которой пользуется издатель
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RulesPublisher сообщает другим инстансам, что правила сохранены
type RulesPublisher struct {
	conn     *amqp.Connection
	channel  Channel
	exchange string
	source   string
	mu       sync.Mutex
	logger   out.LoggerPort
}

func NewRulesPublisher(cfg *config.Config, logger out.LoggerPort) (*RulesPublisher, error) {
	if !cfg.RabbitMQ.Enabled {
		logger.Info("rabbitmq.publisher.disabled", out.LogFields{
			"message": "RabbitMQ is disabled, rules changes will not be published",
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

	publisher, err := newRulesPublisher(channel, cfg, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	publisher.conn = conn
	return publisher, nil
}

func newRulesPublisher(channel Channel, cfg *config.Config, logger out.LoggerPort) (*RulesPublisher, error) {
	p := &RulesPublisher{
		channel:  channel,
		exchange: cfg.RabbitMQ.Exchange,
		source:   cfg.RabbitMQ.Source,
		logger:   logger.WithModule("RulesPublisher"),
	}

	var err error
	for attempts := 0; attempts < declareAttempts; attempts++ {
		err = channel.ExchangeDeclare(
			p.exchange, // имя обменника
			"topic",    // тип обменника
			true,       // durable
			false,      // auto-delete
			false,      // internal
			false,      // no-wait
			nil,        // аргументы
		)
		if err == nil {
			return p, nil
		}

		p.logger.Warn("rabbitmq.exchange_declare.retry", out.LogFields{
			"exchange": p.exchange,
			"attempt":  attempts + 1,
			"error":    err.Error(),
		})

		if attempts < declareAttempts-1 {
			time.Sleep(declareRetryDelay)
		}
	}

	return nil, fmt.Errorf("failed to declare exchange %s: %w", p.exchange, err)
}

// RoutingKey: source.receiver.deliveryrules.key.invalidate
func RoutingKey(source, key string) string {
	// точка в ключе сломает разбор на стороне слушателя
	key = strings.ReplaceAll(key, ".", "_")
	return strings.Join([]string{source, receiver, resourceType, key, cacheHitType}, ".")
}

func (p *RulesPublisher) NotifyRulesChanged(ctx context.Context, namespace, key, fingerprint string) error {
	body, err := json.Marshal(RulesChangedMessage{
		Namespace:   namespace,
		Key:         key,
		Fingerprint: fingerprint,
	})
	if err != nil {
		return err
	}

	routingKey := RoutingKey(p.source, key)

	// amqp.Channel не потокобезопасен для публикации
	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Transient,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish rules change: %w", err)
	}

	p.logger.Info("rabbitmq.rules_changed.published", out.LogFields{
		"routingKey":  routingKey,
		"fingerprint": fingerprint,
	})
	return nil
}

func (p *RulesPublisher) Close() error {
	if p == nil || p.channel == nil {
		return nil
	}

	if err := p.channel.Close(); err != nil {
		return err
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

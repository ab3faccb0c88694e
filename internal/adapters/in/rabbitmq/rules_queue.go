package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/suchimauz/delivery-date-availability/internal/core/ports/out"
)

const (
	setupAttempts     = 3
	setupRetryBackoff = 500 * time.Millisecond
	invalidateTimeout = 10 * time.Second
)

type RulesChangedMessage struct {
	Namespace   string `json:"namespace"`
	Key         string `json:"key"`
	Fingerprint string `json:"fingerprint"`
}

// withRetry повторяет шаг настройки до трех раз, после последней неудачи закрывает соединение
func (l *RulesChangedListener) withRetry(step string, fields out.LogFields, fn func() error) error {
	var err error
	for attempts := 0; attempts < setupAttempts; attempts++ {
		err = fn()
		if err == nil {
			l.logger.Info(fmt.Sprintf("rabbitmq.%s.success", step), fields)
			return nil
		}

		retryFields := out.LogFields{
			"attempt": attempts + 1,
			"error":   err.Error(),
		}
		for k, v := range fields {
			retryFields[k] = v
		}
		l.logger.Warn(fmt.Sprintf("rabbitmq.%s.retry", step), retryFields)

		if attempts < setupAttempts-1 {
			time.Sleep(setupRetryBackoff)
		}
	}

	l.closeConnection(fmt.Sprintf("%s failed: %s", step, err.Error()))
	return fmt.Errorf("%s failed: %w", step, err)
}

func (l *RulesChangedListener) startRulesQueue(ctx context.Context) error {
	// Проверяем контекст
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	l.logger.Info("rabbitmq.delivery_rules.setup_starting", nil)

	// Объявляем обменник, если его нет
	exchangeName := l.cfg.RabbitMQ.Exchange
	err := l.withRetry("exchange_declare", out.LogFields{"exchange": exchangeName}, func() error {
		return l.channel.ExchangeDeclare(
			exchangeName, // имя обменника
			"topic",      // тип обменника
			true,         // durable
			false,        // auto-delete
			false,        // internal
			false,        // no-wait
			nil,          // аргументы
		)
	})
	if err != nil {
		return err
	}

	// Пустое имя очереди: брокер выдаст уникальную, у каждого инстанса своя
	var queue amqp.Queue
	err = l.withRetry("queue_declare", out.LogFields{"queue": l.cfg.RabbitMQ.Queue}, func() error {
		var declareErr error
		queue, declareErr = l.channel.QueueDeclare(
			l.cfg.RabbitMQ.Queue,
			false,                      // durable
			true,                       // delete when unused
			l.cfg.RabbitMQ.Queue == "", // exclusive
			false,                      // no-wait
			nil,                        // arguments
		)
		return declareErr
	})
	if err != nil {
		return err
	}

	// Привязываем очередь к событиям о правилах и к общим событиям
	bindingKeys := []string{
		fmt.Sprintf("*.*.%s.*.*", CacheHitResourceTypeDeliveryRules),
		fmt.Sprintf("*.*.%s.*.*", CacheHitResourceTypeAll),
	}
	for _, bindingKey := range bindingKeys {
		bindingKey := bindingKey
		err = l.withRetry("queue_bind", out.LogFields{
			"queue":    queue.Name,
			"binding":  bindingKey,
			"exchange": exchangeName,
		}, func() error {
			return l.channel.QueueBind(
				queue.Name,   // имя очереди
				bindingKey,   // ключ привязки
				exchangeName, // имя обменника
				false,        // no-wait
				nil,          // аргументы
			)
		})
		if err != nil {
			return err
		}
	}

	// Настраиваем потребителя
	var msgs <-chan amqp.Delivery
	consumerID := fmt.Sprintf("consumer-%s-%d", queue.Name, time.Now().UnixNano())
	err = l.withRetry("consume", out.LogFields{"queue": queue.Name, "consumerID": consumerID}, func() error {
		var consumeErr error
		msgs, consumeErr = l.channel.Consume(
			queue.Name,
			consumerID, // уникальный ID
			false,      // auto-ack
			false,      // exclusive
			false,      // no-local
			false,      // no-wait
			nil,        // args
		)
		return consumeErr
	})
	if err != nil {
		return err
	}

	// Создаем канал отмены для консьюмера
	consumerCancel := make(chan struct{})
	l.addConsumerCancel(consumerCancel)

	l.consumerWg.Add(1)
	go func() {
		defer l.consumerWg.Done()
		l.consume(ctx, queue.Name, consumerID, msgs, consumerCancel)
	}()

	return nil
}

func (l *RulesChangedListener) consume(ctx context.Context, queueName, consumerID string, msgs <-chan amqp.Delivery, cancel <-chan struct{}) {
	fields := out.LogFields{
		"queue":      queueName,
		"consumerID": consumerID,
	}
	l.logger.Info("rabbitmq.consumer.started", fields)

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("rabbitmq.consumer.stopping_by_context", fields)
			return
		case <-cancel:
			l.logger.Info("rabbitmq.consumer.stopping_by_cancel", fields)
			return
		case msg, ok := <-msgs:
			if !ok {
				l.logger.Warn("rabbitmq.consumer.channel_closed", fields)
				l.closeConnection(fmt.Sprintf("consumer channel closed for queue %s", queueName))
				return
			}

			l.logger.Debug("rabbitmq.message.received", out.LogFields{
				"queue":      queueName,
				"routingKey": msg.RoutingKey,
				"messageId":  msg.MessageId,
			})

			// Подтверждаем получение сообщения только после успешной обработки
			if err := l.processRulesMessage(ctx, msg); err != nil {
				l.logger.Error("rabbitmq.process_message.failed", out.LogFields{
					"queue":      queueName,
					"routingKey": msg.RoutingKey,
					"error":      err.Error(),
				})

				// Отклоняем сообщение при ошибке, но не возвращаем в очередь
				if err := msg.Nack(false, false); err != nil {
					l.logger.Error("rabbitmq.message.nack_failed", out.LogFields{
						"error": err.Error(),
					})
				}
				continue
			}

			if err := msg.Ack(false); err != nil {
				l.logger.Error("rabbitmq.message.ack_failed", out.LogFields{
					"error": err.Error(),
				})
			}
		}
	}
}

func (l *RulesChangedListener) processRulesMessage(ctx context.Context, msg amqp.Delivery) error {
	routingKey, err := parseCacheMessageRoutingKey(msg.RoutingKey)
	if err != nil {
		return fmt.Errorf("failed to parse routing key: %w", err)
	}

	if routingKey.ResourceType != CacheHitResourceTypeDeliveryRules && routingKey.ResourceType != CacheHitResourceTypeAll {
		l.logger.Debug("rabbitmq.message.skipped", out.LogFields{
			"expected": string(CacheHitResourceTypeDeliveryRules),
			"actual":   string(routingKey.ResourceType),
		})
		return nil
	}

	var message RulesChangedMessage
	if len(msg.Body) > 0 {
		if err := json.Unmarshal(msg.Body, &message); err != nil {
			return fmt.Errorf("failed to unmarshal message: %w", err)
		}
	}

	l.logger.Info("delivery_rules.message.received", out.LogFields{
		"source":       routingKey.Source,
		"key":          routingKey.Key,
		"fingerprint":  message.Fingerprint,
		"cacheHitType": string(routingKey.CacheHitType),
	})

	if routingKey.CacheHitType != CacheHitTypeInvalidate {
		return nil
	}

	invalidateCtx, cancel := context.WithTimeout(ctx, invalidateTimeout)
	defer cancel()

	l.invalidator.InvalidateRulesCache(invalidateCtx)
	refreshed := l.refresher.RefreshSessions(invalidateCtx)

	l.logger.Info("delivery_rules.message.invalidated", out.LogFields{
		"key":       routingKey.Key,
		"refreshed": refreshed,
	})

	return nil
}

package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suchimauz/delivery-date-availability/internal/adapters/out/logger"
	"github.com/suchimauz/delivery-date-availability/internal/config"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	declareErrs []error
	declares    int
	publishErr  error
	published   []published
	closed      bool
}

func (c *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	c.declares++
	if len(c.declareErrs) > 0 {
		err := c.declareErrs[0]
		c.declareErrs = c.declareErrs[1:]
		return err
	}
	return nil
}

func (c *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if c.publishErr != nil {
		return c.publishErr
	}
	c.published = append(c.published, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

func publisherConfig() *config.Config {
	cfg := &config.Config{}
	cfg.RabbitMQ.Exchange = "delivery"
	cfg.RabbitMQ.Source = "admin"
	return cfg
}

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "admin.delivery-date-svc.deliveryrules.rules.invalidate", RoutingKey("admin", "rules"))
	assert.Equal(t, "admin.delivery-date-svc.deliveryrules.rules_v2.invalidate", RoutingKey("admin", "rules.v2"))
}

func TestRulesPublisher_NotifyRulesChanged(t *testing.T) {
	channel := &fakeChannel{}
	publisher, err := newRulesPublisher(channel, publisherConfig(), logger.NewNopLogger())
	require.NoError(t, err)

	require.NoError(t, publisher.NotifyRulesChanged(context.Background(), "delivery_date", "rules", "a1b2"))

	require.Len(t, channel.published, 1)
	assert.Equal(t, "delivery", channel.published[0].exchange)
	assert.Equal(t, "admin.delivery-date-svc.deliveryrules.rules.invalidate", channel.published[0].key)

	var message RulesChangedMessage
	require.NoError(t, json.Unmarshal(channel.published[0].msg.Body, &message))
	assert.Equal(t, RulesChangedMessage{Namespace: "delivery_date", Key: "rules", Fingerprint: "a1b2"}, message)
}

func TestRulesPublisher_PublishError(t *testing.T) {
	channel := &fakeChannel{publishErr: errors.New("channel closed")}
	publisher, err := newRulesPublisher(channel, publisherConfig(), logger.NewNopLogger())
	require.NoError(t, err)

	err = publisher.NotifyRulesChanged(context.Background(), "delivery_date", "rules", "a1b2")
	assert.ErrorIs(t, err, channel.publishErr)
}

func TestRulesPublisher_RetriesExchangeDeclare(t *testing.T) {
	channel := &fakeChannel{declareErrs: []error{errors.New("not ready")}}
	_, err := newRulesPublisher(channel, publisherConfig(), logger.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, 2, channel.declares)
}

func TestRulesPublisher_Disabled(t *testing.T) {
	publisher, err := NewRulesPublisher(&config.Config{}, logger.NewNopLogger())
	require.NoError(t, err)
	assert.Nil(t, publisher)
	assert.NoError(t, publisher.Close())
}

package amqpconsumer

import (
	"context"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/matchday-relay/internal/domain/matchevent"
	"github.com/riskibarqy/matchday-relay/internal/platform/logging"
	"github.com/riskibarqy/matchday-relay/internal/usecase"
	"github.com/streadway/amqp"
)

// Submitter queues a report for ordered, per-match handling.
type Submitter interface {
	Submit(ctx context.Context, report matchevent.RawReport, done func(usecase.EventOutcome, error)) error
}

type Options struct {
	URL      string
	Queue    string
	Prefetch int
}

// Consumer reads raw report JSON from a queue and acknowledges each delivery
// only after its report has been handled.
type Consumer struct {
	submitter Submitter
	opts      Options
	logger    *logging.Logger

	conn    *amqp.Connection
	channel *amqp.Channel
}

func New(submitter Submitter, opts Options, logger *logging.Logger) *Consumer {
	if logger == nil {
		logger = logging.Default()
	}
	if opts.Prefetch < 1 {
		opts.Prefetch = 16
	}
	return &Consumer{
		submitter: submitter,
		opts:      opts,
		logger:    logger.Named("amqp-consumer"),
	}
}

// Connect dials the broker, declares the durable queue and starts a manual-ack
// consumer.
func (c *Consumer) Connect() (<-chan amqp.Delivery, error) {
	conn, err := amqp.DialConfig(c.opts.URL, amqp.Config{
		Heartbeat: 30 * time.Second,
		Locale:    "en_US",
	})
	if err != nil {
		return nil, crerr.Wrap(err, "dial amqp")
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, crerr.Wrap(err, "open amqp channel")
	}
	if err := channel.Qos(c.opts.Prefetch, 0, false); err != nil {
		_ = conn.Close()
		return nil, crerr.Wrap(err, "set amqp qos")
	}
	queue, err := channel.QueueDeclare(c.opts.Queue, true, false, false, false, nil)
	if err != nil {
		_ = conn.Close()
		return nil, crerr.Wrapf(err, "declare queue %s", c.opts.Queue)
	}
	deliveries, err := channel.Consume(queue.Name, "matchday-relay", false, false, false, false, nil)
	if err != nil {
		_ = conn.Close()
		return nil, crerr.Wrapf(err, "consume queue %s", queue.Name)
	}

	c.conn = conn
	c.channel = channel
	c.logger.Info("amqp consumer connected", "queue", queue.Name, "prefetch", c.opts.Prefetch)
	return deliveries, nil
}

// Run drains deliveries until ctx ends or the channel closes.
func (c *Consumer) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return crerr.New("amqp delivery channel closed")
			}
			c.handle(ctx, delivery)
		}
	}
}

func (c *Consumer) Close() error {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Consumer) handle(ctx context.Context, delivery amqp.Delivery) {
	var report matchevent.RawReport
	if err := sonic.Unmarshal(delivery.Body, &report); err != nil {
		c.logger.WarnContext(ctx, "dropping undecodable report", "delivery_tag", delivery.DeliveryTag, "error", err)
		_ = delivery.Nack(false, false)
		return
	}

	err := c.submitter.Submit(ctx, report, func(outcome usecase.EventOutcome, err error) {
		c.settle(ctx, delivery, outcome, err)
	})
	if err != nil {
		c.logger.WarnContext(ctx, "report not queued, requeueing", "match_id", report.MatchID, "error", err)
		_ = delivery.Nack(false, true)
	}
}

// settle acks handled reports. A failed relay dispatch is requeued once so the
// unmarked key gets another chance; the session replay guard keeps stats from
// being applied twice.
func (c *Consumer) settle(ctx context.Context, delivery amqp.Delivery, outcome usecase.EventOutcome, err error) {
	switch {
	case err != nil && crerr.Is(err, usecase.ErrInvalidInput):
		c.logger.WarnContext(ctx, "dropping rejected report", "match_id", outcome.MatchID, "error", err)
		_ = delivery.Ack(false)
	case err != nil:
		c.logger.ErrorContext(ctx, "report handling failed", "match_id", outcome.MatchID, "error", err)
		_ = delivery.Nack(false, !delivery.Redelivered)
	case outcome.Dispatch != nil && outcome.Dispatch.Status == usecase.DispatchStatusFailed && !delivery.Redelivered:
		c.logger.WarnContext(ctx, "dispatch failed, requeueing once", "match_id", outcome.MatchID, "operation_key", outcome.OperationKey)
		_ = delivery.Nack(false, true)
	default:
		_ = delivery.Ack(false)
	}
}

package worker

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/you/course-enrollment/pkg/events"
	"github.com/you/course-enrollment/pkg/mq"
	"github.com/you/course-enrollment/services/notification-service/internal/notifier"
)

type Config struct {
	RabbitURL   string
	Exchanges   []string
	Queue       string
	Bindings    []string
	Prefetch    int
	UseDLX      bool
	DLXName     string
	DLXQueue    string
	ServiceName string
}

// errPoison marks messages that can never be handled; they go to the DLX
// instead of being requeued.
var errPoison = errors.New("poison message")

type Consumer struct {
	cfg      Config
	notifier notifier.Notifier
	log      *zap.Logger

	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewConsumer(cfg Config, n notifier.Notifier, log *zap.Logger) *Consumer {
	return &Consumer{cfg: cfg, notifier: n, log: log}
}

func (c *Consumer) Connect() error {
	conn, err := amqp.Dial(c.cfg.RabbitURL)
	if err != nil {
		return fmt.Errorf("rabbit dial failed: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel failed: %w", err)
	}
	fail := func(err error) error {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}

	args := amqp.Table{}
	if c.cfg.UseDLX {
		args["x-dead-letter-exchange"] = c.cfg.DLXName
	}
	q, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, args)
	if err != nil {
		return fail(fmt.Errorf("declare queue failed: %w", err))
	}

	for _, ex := range c.cfg.Exchanges {
		if err := ch.ExchangeDeclare(ex, "topic", true, false, false, false, nil); err != nil {
			return fail(fmt.Errorf("declare exchange %s failed: %w", ex, err))
		}
		for _, key := range c.cfg.Bindings {
			if err := ch.QueueBind(q.Name, key, ex, false, nil); err != nil {
				return fail(fmt.Errorf("bind queue to exchange=%s key=%s failed: %w", ex, key, err))
			}
		}
	}

	if c.cfg.UseDLX {
		if err := ch.ExchangeDeclare(c.cfg.DLXName, "topic", true, false, false, false, nil); err != nil {
			return fail(fmt.Errorf("declare dlx failed: %w", err))
		}
		if _, err := ch.QueueDeclare(c.cfg.DLXQueue, true, false, false, false, nil); err != nil {
			return fail(fmt.Errorf("declare dlq failed: %w", err))
		}
		if err := ch.QueueBind(c.cfg.DLXQueue, "#", c.cfg.DLXName, false, nil); err != nil {
			return fail(fmt.Errorf("bind dlq failed: %w", err))
		}
	}

	if c.cfg.Prefetch <= 0 {
		c.cfg.Prefetch = 8
	}
	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return fail(fmt.Errorf("set qos failed: %w", err))
	}

	c.conn = conn
	c.ch = ch
	return nil
}

func (c *Consumer) Close() {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.ch.ConsumeWithContext(ctx, c.cfg.Queue, c.cfg.ServiceName, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume failed: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			err := c.handleDelivery(d.RoutingKey, d.Body)
			switch {
			case err == nil:
				_ = d.Ack(false)
			case errors.Is(err, errPoison):
				c.log.Warn("dead-lettering message", zap.String("routing_key", d.RoutingKey), zap.Error(err))
				_ = d.Nack(false, false)
			default:
				c.log.Error("handle failed, requeueing", zap.String("routing_key", d.RoutingKey), zap.Error(err))
				_ = d.Nack(false, true)
			}
		}
	}
}

func decode[T any](body []byte) (T, error) {
	_, v, err := mq.Decode[T](body)
	if err != nil {
		return v, fmt.Errorf("%w: %w", errPoison, err)
	}
	return v, nil
}

func (c *Consumer) handleDelivery(key string, body []byte) error {
	switch key {
	case events.RKOrderCreated:
		ev, err := decode[events.OrderCreated](body)
		if err != nil {
			return err
		}
		return c.notifier.Notify("Order Created",
			fmt.Sprintf("Order %s for course %s awaits payment of %s.", ev.OrderID, ev.CourseID, notifier.FormatAmount(ev.Amount, ev.Currency)))

	case events.RKOrderConfirmed:
		ev, err := decode[events.OrderConfirmed](body)
		if err != nil {
			return err
		}
		course := ev.CourseTitle
		if course == "" {
			course = ev.CourseID
		}
		msg := fmt.Sprintf("Order %s confirmed: %s paid for %q (payment=%s).",
			ev.OrderID, notifier.FormatAmount(ev.Amount, ev.Currency), course, ev.PaymentID)
		if ev.UserEmail != "" {
			msg += " Receipt sent to " + ev.UserEmail + "."
		}
		return c.notifier.Notify("Enrollment Confirmed", msg)

	default:
		c.log.Debug("skip unknown key", zap.String("routing_key", key))
	}
	return nil
}

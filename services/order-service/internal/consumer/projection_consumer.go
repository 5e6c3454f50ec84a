package consumer

import (
	"context"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/you/course-enrollment/pkg/events"
	"github.com/you/course-enrollment/pkg/mq"
	"github.com/you/course-enrollment/services/order-service/internal/domain"
)

// Applier is satisfied by *service.Projector.
type Applier interface {
	ApplyByID(ctx context.Context, orderID string) error
}

type outcome int

const (
	ack outcome = iota
	requeue
)

// ProjectionConsumer re-applies the enrollment projection for every confirmed
// order. It backs up inline projection in the finalize call: a confirmation
// whose projection failed there converges here without a client retry.
type ProjectionConsumer struct {
	proj Applier
	cons *mq.Consumer
	log  *zap.Logger
}

func NewProjectionConsumer(proj Applier, cons *mq.Consumer, log *zap.Logger) *ProjectionConsumer {
	return &ProjectionConsumer{proj: proj, cons: cons, log: log}
}

func (pc *ProjectionConsumer) Run(ctx context.Context) error {
	msgs, err := pc.cons.Deliveries(ctx)
	if err != nil {
		return err
	}
	go func() {
		for d := range msgs {
			pc.settle(d, pc.handle(ctx, d.RoutingKey, d.Body))
		}
		pc.log.Info("projection consumer stopped")
	}()
	return nil
}

func (pc *ProjectionConsumer) settle(d amqp.Delivery, o outcome) {
	var err error
	if o == requeue {
		err = d.Nack(false, true)
	} else {
		err = d.Ack(false)
	}
	if err != nil {
		pc.log.Warn("settle delivery", zap.String("message_id", d.MessageId), zap.Error(err))
	}
}

func (pc *ProjectionConsumer) handle(ctx context.Context, key string, body []byte) outcome {
	if key != events.RKOrderConfirmed {
		return ack
	}
	env, evt, err := mq.Decode[events.OrderConfirmed](body)
	if err != nil {
		pc.log.Warn("drop undecodable event", zap.String("routing_key", key), zap.Error(err))
		return ack
	}
	if evt.OrderID == "" {
		pc.log.Warn("drop event without order id", zap.String("event_id", env.ID))
		return ack
	}

	err = pc.proj.ApplyByID(ctx, evt.OrderID)
	switch {
	case err == nil:
		return ack
	case errors.Is(err, domain.ErrPersistence):
		pc.log.Error("projection failed, requeueing", zap.String("order_id", evt.OrderID), zap.Error(err))
		return requeue
	default:
		// not found or not finalized: retrying cannot help
		pc.log.Warn("drop non-actionable event", zap.String("order_id", evt.OrderID), zap.Error(err))
		return ack
	}
}

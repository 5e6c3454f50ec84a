package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/you/course-enrollment/pkg/events"
	"github.com/you/course-enrollment/services/order-service/internal/domain"
)

type OrderSvc struct {
	repo     OrderStore
	gw       Gateway
	pub      EventPublisher
	currency string
	log      *zap.Logger
	now      func() time.Time
}

func NewOrderSvc(repo OrderStore, gw Gateway, pub EventPublisher, currency string, log *zap.Logger) *OrderSvc {
	return &OrderSvc{repo: repo, gw: gw, pub: pub, currency: currency, log: log, now: time.Now}
}

// CreatedOrder is what checkout needs to open the gateway payment form.
type CreatedOrder struct {
	OrderID        string `json:"orderId"`
	GatewayOrderID string `json:"gatewayOrderId"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Key            string `json:"key"`
}

// Create registers the order with the gateway first and stores it only when
// the gateway accepted it.
func (s *OrderSvc) Create(ctx context.Context, in domain.NewOrder) (*CreatedOrder, error) {
	ctx, span := tracer.Start(ctx, "order.create")
	defer span.End()

	if in.Currency == "" {
		in.Currency = s.currency
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	receipt := "receipt_" + strconv.FormatInt(now.UnixNano(), 10)
	gwOrder, err := s.gw.CreateOrder(ctx, in.Price, in.Currency, receipt)
	if err != nil {
		s.log.Error("gateway order creation failed", zap.String("course_id", in.Course.ID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstreamGateway, err)
	}

	o, err := domain.NewPendingOrder(in, gwOrder.ID, now)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreatePending(ctx, o); err != nil {
		s.log.Error("store pending order", zap.String("gateway_order_id", gwOrder.ID), zap.Error(err))
		return nil, err
	}
	s.log.Info("order created",
		zap.String("order_id", o.ID),
		zap.String("user_id", o.UserID),
		zap.String("course_id", o.CourseID),
		zap.String("gateway_order_id", o.GatewayOrderID))

	if err := s.pub.Publish(ctx, events.RKOrderCreated, events.OrderCreated{
		OrderID:  o.ID,
		UserID:   o.UserID,
		CourseID: o.CourseID,
		Amount:   o.CoursePricing,
		Currency: o.Currency,
	}); err != nil {
		s.log.Warn("publish order.created", zap.String("order_id", o.ID), zap.Error(err))
	}

	return &CreatedOrder{
		OrderID:        o.ID,
		GatewayOrderID: o.GatewayOrderID,
		Amount:         o.CoursePricing,
		Currency:       o.Currency,
		Key:            s.gw.KeyID(),
	}, nil
}

func (s *OrderSvc) Get(ctx context.Context, id string) (*domain.Order, error) {
	return s.repo.ByID(ctx, id)
}

package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/you/course-enrollment/pkg/events"
	"github.com/you/course-enrollment/services/order-service/internal/domain"
)

var tracer = otel.Tracer("github.com/you/course-enrollment/services/order-service")

type FinalizeRequest struct {
	OrderID           string `json:"orderId"`
	GatewayOrderRef   string `json:"gatewayOrderRef"`
	GatewayPaymentRef string `json:"gatewayPaymentRef"`
	ClaimedSignature  string `json:"claimedSignature"`
}

func (r FinalizeRequest) validate() error {
	for name, v := range map[string]string{
		"orderId":           r.OrderID,
		"gatewayOrderRef":   r.GatewayOrderRef,
		"gatewayPaymentRef": r.GatewayPaymentRef,
		"claimedSignature":  r.ClaimedSignature,
	} {
		if v == "" {
			return fmt.Errorf("%w: %s is required", domain.ErrValidation, name)
		}
	}
	return nil
}

// Finalizer accepts a gateway payment confirmation for an order.
type Finalizer struct {
	orders    OrderStore
	verifier  SignatureVerifier
	projector *Projector
	pub       EventPublisher
	log       *zap.Logger
}

func NewFinalizer(orders OrderStore, verifier SignatureVerifier, projector *Projector, pub EventPublisher, log *zap.Logger) *Finalizer {
	return &Finalizer{orders: orders, verifier: verifier, projector: projector, pub: pub, log: log}
}

// Finalize verifies the confirmation, commits the order transition and then
// projects the order. Nothing is written before verification succeeds, and
// the projections are only written after the transition is committed. A
// repeated call with the same payment returns the stored order and re-runs
// the projection, which converges a previously partial one.
func (f *Finalizer) Finalize(ctx context.Context, req FinalizeRequest) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "order.finalize", trace.WithAttributes(
		attribute.String("order.id", req.OrderID),
		attribute.String("gateway.order_id", req.GatewayOrderRef),
	))
	defer span.End()

	o, err := f.finalize(ctx, req)
	if err != nil {
		spanError(span, err)
		return nil, err
	}
	return o, nil
}

func (f *Finalizer) finalize(ctx context.Context, req FinalizeRequest) (*domain.Order, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	o, err := f.orders.ByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	if o.GatewayOrderID != req.GatewayOrderRef {
		f.rejected(req, "gateway order reference does not belong to order")
		return nil, fmt.Errorf("%w: gateway order reference mismatch", domain.ErrPaymentVerification)
	}
	if !f.verifier.Verify(o.GatewayOrderID, req.GatewayPaymentRef, req.ClaimedSignature) {
		f.rejected(req, "signature mismatch")
		return nil, fmt.Errorf("%w: signature mismatch", domain.ErrPaymentVerification)
	}

	o, transitioned, err := f.orders.MarkConfirmed(ctx, o.ID, req.GatewayPaymentRef, req.ClaimedSignature)
	if err != nil {
		if domain.Kind(err) == domain.ErrPersistence {
			f.log.Error("confirm order", zap.String("order_id", req.OrderID), zap.Error(err))
		}
		return nil, err
	}
	if transitioned {
		f.log.Info("order finalized",
			zap.String("order_id", o.ID),
			zap.String("user_id", o.UserID),
			zap.String("course_id", o.CourseID),
			zap.String("payment_id", o.GatewayPaymentID))
		f.publishConfirmed(ctx, o)
	} else {
		f.log.Info("order already finalized", zap.String("order_id", o.ID))
	}

	if err := f.projector.Apply(ctx, o); err != nil {
		f.log.Error("project finalized order", zap.String("order_id", o.ID), zap.Error(err))
		return nil, err
	}
	return o, nil
}

func (f *Finalizer) rejected(req FinalizeRequest, reason string) {
	f.log.Warn("payment verification failed",
		zap.Bool("security", true),
		zap.String("reason", reason),
		zap.String("order_id", req.OrderID),
		zap.String("gateway_order_id", req.GatewayOrderRef),
		zap.String("payment_id", req.GatewayPaymentRef))
}

// publishConfirmed feeds the projection retry consumer. The transition is
// already committed, so a publish failure is only logged.
func (f *Finalizer) publishConfirmed(ctx context.Context, o *domain.Order) {
	if f.pub == nil {
		return
	}
	err := f.pub.Publish(ctx, events.RKOrderConfirmed, events.OrderConfirmed{
		OrderID:     o.ID,
		UserID:      o.UserID,
		UserEmail:   o.UserEmail,
		CourseID:    o.CourseID,
		CourseTitle: o.CourseTitle,
		PaymentID:   o.GatewayPaymentID,
		Amount:      o.CoursePricing,
		Currency:    o.Currency,
	})
	if err != nil {
		f.log.Warn("publish order.confirmed", zap.String("order_id", o.ID), zap.Error(err))
	}
}

func spanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if k := domain.Kind(err); k != nil {
		span.SetAttributes(attribute.String("error.kind", k.Error()))
	}
}

package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/you/course-enrollment/services/order-service/internal/domain"
)

// CapturedPayment is a gateway notification whose webhook signature has
// already been checked.
type CapturedPayment struct {
	GatewayOrderRef   string
	GatewayPaymentRef string
}

// CaptureSvc finalizes orders from gateway webhooks. Webhooks carry no
// checkout signature, so one is derived from the key secret and the request
// goes through the same Finalize pipeline as a checkout callback. Duplicate
// deliveries and a racing checkout callback are absorbed by Finalize.
type CaptureSvc struct {
	orders    OrderStore
	signer    CheckoutSigner
	finalizer *Finalizer
	log       *zap.Logger
}

func NewCaptureSvc(orders OrderStore, signer CheckoutSigner, finalizer *Finalizer, log *zap.Logger) *CaptureSvc {
	return &CaptureSvc{orders: orders, signer: signer, finalizer: finalizer, log: log}
}

func (s *CaptureSvc) PaymentCaptured(ctx context.Context, p CapturedPayment) (*domain.Order, error) {
	if p.GatewayOrderRef == "" || p.GatewayPaymentRef == "" {
		return nil, fmt.Errorf("%w: gateway order and payment references are required", domain.ErrValidation)
	}
	o, err := s.orders.ByGatewayOrderID(ctx, p.GatewayOrderRef)
	if err != nil {
		return nil, err
	}
	s.log.Info("payment captured", zap.String("order_id", o.ID), zap.String("payment_id", p.GatewayPaymentRef))
	return s.finalizer.Finalize(ctx, FinalizeRequest{
		OrderID:           o.ID,
		GatewayOrderRef:   p.GatewayOrderRef,
		GatewayPaymentRef: p.GatewayPaymentRef,
		ClaimedSignature:  s.signer.Sign(p.GatewayOrderRef, p.GatewayPaymentRef),
	})
}

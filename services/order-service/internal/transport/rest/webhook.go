package rest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/you/course-enrollment/services/order-service/internal/domain"
	"github.com/you/course-enrollment/services/order-service/internal/payment"
	"github.com/you/course-enrollment/services/order-service/internal/service"
)

const maxWebhookBody = 1 << 20

type PayloadVerifier interface {
	VerifyPayload(body []byte, signature string) bool
}

type PaymentCapturer interface {
	PaymentCaptured(ctx context.Context, p service.CapturedPayment) (*domain.Order, error)
}

type WebhookHandler struct {
	verifier PayloadVerifier
	capture  PaymentCapturer
	timeout  time.Duration
	log      *zap.Logger
}

func NewWebhookHandler(verifier PayloadVerifier, capture PaymentCapturer, timeout time.Duration, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{verifier: verifier, capture: capture, timeout: timeout, log: log}
}

// POST /v1/webhooks/razorpay
//
// Any 2xx stops gateway redelivery, so only errors a retry can fix are
// answered with 5xx.
func (h *WebhookHandler) Razorpay(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		badRequest(c, err)
		return
	}
	if !h.verifier.VerifyPayload(body, c.GetHeader("X-Razorpay-Signature")) {
		h.log.Warn("webhook signature rejected", zap.Bool("security", true), zap.String("client_ip", c.ClientIP()))
		fail(c, domain.ErrPaymentVerification)
		return
	}
	ev, err := payment.ParseWebhook(body)
	if err != nil {
		badRequest(c, err)
		return
	}
	if !ev.Captured() {
		ok(c, http.StatusOK, gin.H{"ignored": ev.Event})
		return
	}

	p := ev.Payload.Payment.Entity
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), h.timeout)
	defer cancel()
	o, err := h.capture.PaymentCaptured(ctx, service.CapturedPayment{GatewayOrderRef: p.OrderID, GatewayPaymentRef: p.ID})
	switch kind := domain.Kind(err); {
	case err == nil:
		ok(c, http.StatusOK, gin.H{"orderId": o.ID, "orderStatus": o.OrderStatus})
	case errors.Is(kind, domain.ErrPersistence) || kind == nil:
		fail(c, err)
	default:
		// not ours or already settled differently; redelivery would not help
		h.log.Warn("webhook not applied", zap.String("gateway_order_id", p.OrderID), zap.String("payment_id", p.ID), zap.Error(err))
		ok(c, http.StatusOK, gin.H{"ignored": kind.Error()})
	}
}

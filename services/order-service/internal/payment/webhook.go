package payment

import (
	"encoding/json"
	"fmt"
)

// Webhook events that mean the money was taken.
const (
	EventPaymentCaptured = "payment.captured"
	EventOrderPaid       = "order.paid"
)

type WebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID       string `json:"id"`
				OrderID  string `json:"order_id"`
				Amount   int64  `json:"amount"`
				Currency string `json:"currency"`
				Status   string `json:"status"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

func ParseWebhook(body []byte) (*WebhookEvent, error) {
	var ev WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("decode razorpay webhook: %w", err)
	}
	return &ev, nil
}

// Captured reports whether the event confirms a payment for a gateway order.
func (e *WebhookEvent) Captured() bool {
	p := e.Payload.Payment.Entity
	if p.ID == "" || p.OrderID == "" {
		return false
	}
	return e.Event == EventPaymentCaptured || e.Event == EventOrderPaid
}

// Package events holds the routing keys and payloads published on the order
// exchange. Payloads travel inside an mq.Envelope.
package events

const (
	RKOrderCreated   = "order.created"
	RKOrderConfirmed = "order.confirmed"
)

// OrderCreated is published once a pending order is stored.
type OrderCreated struct {
	OrderID  string `json:"order_id"`
	UserID   string `json:"user_id"`
	CourseID string `json:"course_id"`
	Amount   int64  `json:"amount"` // minor units
	Currency string `json:"currency"`
}

// OrderConfirmed is published by the finalize call that performed the
// pending -> confirmed transition. Consumers must reload the order before
// acting on payment state.
type OrderConfirmed struct {
	OrderID     string `json:"order_id"`
	UserID      string `json:"user_id"`
	UserEmail   string `json:"user_email,omitempty"`
	CourseID    string `json:"course_id"`
	CourseTitle string `json:"course_title,omitempty"`
	PaymentID   string `json:"payment_id"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
}

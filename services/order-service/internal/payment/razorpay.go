package payment

import (
	"context"
	"errors"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
)

// GatewayOrder is the gateway's view of a created order.
type GatewayOrder struct {
	ID       string
	Amount   int64 // minor units
	Currency string
	Receipt  string
}

// orderCreator is the part of the Razorpay SDK the gateway uses.
type orderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type RazorpayGateway struct {
	orders orderCreator
	keyID  string
}

func NewRazorpayGateway(keyID, keySecret string) (*RazorpayGateway, error) {
	if keyID == "" || keySecret == "" {
		return nil, errors.New("payment: razorpay key id and secret are required")
	}
	c := razorpay.NewClient(keyID, keySecret)
	return &RazorpayGateway{orders: c.Order, keyID: keyID}, nil
}

// KeyID is the public key checkout needs.
func (g *RazorpayGateway) KeyID() string { return g.keyID }

// CreateOrder registers an order of amount minor units with the gateway.
// The SDK has no context support; ctx is only checked before the call.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*GatewayOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := g.orders.Create(map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay create order: %w", err)
	}
	return parseGatewayOrder(body)
}

func parseGatewayOrder(body map[string]interface{}) (*GatewayOrder, error) {
	id, _ := body["id"].(string)
	if id == "" {
		return nil, errors.New("razorpay create order: response has no id")
	}
	o := &GatewayOrder{ID: id}
	o.Currency, _ = body["currency"].(string)
	o.Receipt, _ = body["receipt"].(string)
	// JSON numbers decode as float64
	switch a := body["amount"].(type) {
	case float64:
		o.Amount = int64(a)
	case int64:
		o.Amount = a
	case int:
		o.Amount = int64(a)
	}
	return o, nil
}

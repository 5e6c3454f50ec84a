package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/you/course-enrollment/services/order-service/internal/domain"
)

type OrderRepo struct{ db *gorm.DB }

func NewOrderRepo(db *gorm.DB) *OrderRepo {
	return &OrderRepo{db: db}
}

func (r *OrderRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.Order{})
}

// CreatePending stores a new order. Only pending/pending orders are accepted.
func (r *OrderRepo) CreatePending(ctx context.Context, o *domain.Order) error {
	if o.State() != domain.StateCreated {
		return fmt.Errorf("%w: new orders must be pending/pending", domain.ErrValidation)
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(o).Error; err != nil {
		return fmt.Errorf("%w: create order: %w", domain.ErrPersistence, err)
	}
	return nil
}

func (r *OrderRepo) ByID(ctx context.Context, id string) (*domain.Order, error) {
	return loadOrder(r.db.WithContext(ctx), "id = ?", id)
}

func (r *OrderRepo) ByGatewayOrderID(ctx context.Context, gatewayOrderRef string) (*domain.Order, error) {
	return loadOrder(r.db.WithContext(ctx), "gateway_order_id = ?", gatewayOrderRef)
}

// MarkConfirmed moves an order from pending/pending to confirmed/paid with a
// single conditional update, so concurrent callers race on the row and at
// most one of them modifies it. transitioned reports whether this call did.
// A caller that lost the race, or retries later, gets the stored order back
// when it was confirmed with the same paymentRef.
//
// The update and the reload share a transaction: a reload failure rolls the
// transition back, so a committed transition is always reported to its caller.
func (r *OrderRepo) MarkConfirmed(ctx context.Context, id, paymentRef, signature string) (o *domain.Order, transitioned bool, err error) {
	if paymentRef == "" || signature == "" {
		return nil, false, fmt.Errorf("%w: payment reference and signature are required", domain.ErrValidation)
	}
	now := time.Now().UTC()
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Order{}).
			Where("id = ? AND order_status = ? AND payment_status = ?", id, domain.OrderPending, domain.PaymentPending).
			Updates(map[string]any{
				"order_status":       domain.OrderConfirmed,
				"payment_status":     domain.PaymentPaid,
				"gateway_payment_id": paymentRef,
				"gateway_signature":  signature,
				"confirmed_at":       now,
				"updated_at":         now,
			})
		if res.Error != nil {
			return fmt.Errorf("%w: confirm order %s: %w", domain.ErrPersistence, id, res.Error)
		}
		o, err = loadOrder(tx, "id = ?", id)
		if err != nil {
			return err
		}
		transitioned = res.RowsAffected == 1
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if transitioned || o.FinalizedWith(paymentRef) {
		return o, transitioned, nil
	}
	return nil, false, fmt.Errorf("%w: order %s is %s/%s", domain.ErrInvalidTransition, id, o.OrderStatus, o.PaymentStatus)
}

func loadOrder(db *gorm.DB, cond string, arg string) (*domain.Order, error) {
	var o domain.Order
	if err := db.First(&o, cond, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %s", domain.ErrNotFound, arg)
		}
		return nil, fmt.Errorf("%w: load order %s: %w", domain.ErrPersistence, arg, err)
	}
	return &o, nil
}

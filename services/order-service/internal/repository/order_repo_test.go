package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/you/course-enrollment/pkg/db/dbtest"
	"github.com/you/course-enrollment/services/order-service/internal/domain"
)

func newOrderRepo(t *testing.T) *OrderRepo {
	t.Helper()
	r := NewOrderRepo(dbtest.Open(t))
	require.NoError(t, r.Migrate())
	return r
}

func pendingOrder(t *testing.T, gatewayRef string) *domain.Order {
	t.Helper()
	o, err := domain.NewPendingOrder(domain.NewOrder{
		Buyer:    domain.Party{ID: "u1", Name: "Asha", Email: "asha@example.com"},
		Seller:   domain.Party{ID: "i1", Name: "Ravi"},
		Course:   domain.Course{ID: "c1", Title: "Go Basics"},
		Price:    49900,
		Currency: "INR",
	}, gatewayRef, time.Now())
	require.NoError(t, err)
	return o
}

func TestOrderRepo_CreateAndLoad(t *testing.T) {
	r := newOrderRepo(t)
	ctx := context.Background()

	o := pendingOrder(t, "order_gw1")
	require.NoError(t, r.CreatePending(ctx, o))
	require.NotEmpty(t, o.ID)

	got, err := r.ByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateCreated, got.State())
	assert.Equal(t, int64(49900), got.CoursePricing)
	assert.Equal(t, "order_gw1", got.GatewayOrderID)
	assert.Nil(t, got.ConfirmedAt)
}

func TestOrderRepo_CreateRejectsNonPending(t *testing.T) {
	r := newOrderRepo(t)
	o := pendingOrder(t, "order_gw1")
	o.OrderStatus = domain.OrderConfirmed

	err := r.CreatePending(context.Background(), o)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestOrderRepo_DuplicateGatewayRef(t *testing.T) {
	r := newOrderRepo(t)
	ctx := context.Background()
	require.NoError(t, r.CreatePending(ctx, pendingOrder(t, "order_gw1")))

	err := r.CreatePending(ctx, pendingOrder(t, "order_gw1"))
	assert.ErrorIs(t, err, domain.ErrPersistence)
}

func TestOrderRepo_ByGatewayOrderID(t *testing.T) {
	r := newOrderRepo(t)
	ctx := context.Background()
	o := pendingOrder(t, "order_gw1")
	require.NoError(t, r.CreatePending(ctx, o))

	got, err := r.ByGatewayOrderID(ctx, "order_gw1")
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	_, err = r.ByGatewayOrderID(ctx, "order_other")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOrderRepo_ByIDNotFound(t *testing.T) {
	r := newOrderRepo(t)
	_, err := r.ByID(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOrderRepo_MarkConfirmed(t *testing.T) {
	r := newOrderRepo(t)
	ctx := context.Background()
	o := pendingOrder(t, "order_gw1")
	require.NoError(t, r.CreatePending(ctx, o))

	got, transitioned, err := r.MarkConfirmed(ctx, o.ID, "pay_1", "sig")
	require.NoError(t, err)
	assert.True(t, transitioned)
	assert.Equal(t, domain.StateFinalized, got.State())
	assert.Equal(t, "pay_1", got.GatewayPaymentID)
	assert.Equal(t, "sig", got.GatewaySignature)
	require.NotNil(t, got.ConfirmedAt)

	t.Run("same payment is a no-op", func(t *testing.T) {
		again, transitioned, err := r.MarkConfirmed(ctx, o.ID, "pay_1", "sig")
		require.NoError(t, err)
		assert.False(t, transitioned)
		assert.Equal(t, got.ConfirmedAt.Unix(), again.ConfirmedAt.Unix())
	})

	t.Run("different payment is rejected", func(t *testing.T) {
		_, _, err := r.MarkConfirmed(ctx, o.ID, "pay_2", "sig2")
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)

		stored, err := r.ByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, "pay_1", stored.GatewayPaymentID)
	})
}

func TestOrderRepo_MarkConfirmedErrors(t *testing.T) {
	r := newOrderRepo(t)
	ctx := context.Background()

	_, _, err := r.MarkConfirmed(ctx, "missing", "pay_1", "sig")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, _, err = r.MarkConfirmed(ctx, "missing", "", "sig")
	assert.ErrorIs(t, err, domain.ErrValidation)

	voided := pendingOrder(t, "order_gw2")
	require.NoError(t, r.CreatePending(ctx, voided))
	require.NoError(t, r.db.Model(&domain.Order{}).Where("id = ?", voided.ID).
		Updates(map[string]any{"order_status": domain.OrderCancelled, "payment_status": domain.PaymentFailed}).Error)

	_, _, err = r.MarkConfirmed(ctx, voided.ID, "pay_1", "sig")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestOrderRepo_ConcurrentConfirmTransitionsOnce(t *testing.T) {
	r := newOrderRepo(t)
	ctx := context.Background()
	o := pendingOrder(t, "order_gw1")
	require.NoError(t, r.CreatePending(ctx, o))

	const callers = 8
	var wins atomic.Int32
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, transitioned, err := r.MarkConfirmed(ctx, o.ID, "pay_1", "sig")
			if transitioned {
				wins.Add(1)
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), wins.Load())
}

func TestOrderRepo_MarkConfirmedReloadFailureRollsBack(t *testing.T) {
	gdb := dbtest.Open(t)
	r := NewOrderRepo(gdb)
	require.NoError(t, r.Migrate())
	ctx := context.Background()
	o := pendingOrder(t, "order_gw1")
	require.NoError(t, r.CreatePending(ctx, o))

	var failNext atomic.Bool
	require.NoError(t, gdb.Callback().Query().Before("gorm:query").Register("test:fail_query", func(tx *gorm.DB) {
		if failNext.CompareAndSwap(true, false) {
			_ = tx.AddError(errors.New("connection reset"))
		}
	}))

	failNext.Store(true)
	_, transitioned, err := r.MarkConfirmed(ctx, o.ID, "pay_1", "sig")
	require.ErrorIs(t, err, domain.ErrPersistence)
	assert.False(t, transitioned)

	stored, err := r.ByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateCreated, stored.State())

	got, transitioned, err := r.MarkConfirmed(ctx, o.ID, "pay_1", "sig")
	require.NoError(t, err)
	assert.True(t, transitioned)
	assert.Equal(t, domain.StateFinalized, got.State())
}

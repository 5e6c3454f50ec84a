package service

import (
	"context"

	"github.com/you/course-enrollment/services/order-service/internal/domain"
	"github.com/you/course-enrollment/services/order-service/internal/payment"
)

type OrderStore interface {
	CreatePending(ctx context.Context, o *domain.Order) error
	ByID(ctx context.Context, id string) (*domain.Order, error)
	ByGatewayOrderID(ctx context.Context, gatewayOrderRef string) (*domain.Order, error)
	MarkConfirmed(ctx context.Context, id, paymentRef, signature string) (*domain.Order, bool, error)
}

type StudentCourseStore interface {
	AddCourse(ctx context.Context, entry domain.PurchasedCourse) (bool, error)
	Courses(ctx context.Context, studentID string) ([]domain.PurchasedCourse, error)
}

type CourseRosterStore interface {
	AddStudent(ctx context.Context, entry domain.EnrolledStudent) (bool, error)
	Students(ctx context.Context, courseID string) ([]domain.EnrolledStudent, error)
}

type Gateway interface {
	KeyID() string
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*payment.GatewayOrder, error)
}

type SignatureVerifier interface {
	Verify(orderRef, paymentRef, signature string) bool
}

// CheckoutSigner produces the checkout signature for a verified gateway
// notification.
type CheckoutSigner interface {
	Sign(orderRef, paymentRef string) string
}

// EventPublisher is satisfied by *mq.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, key string, v any) error
}

// CourseCache caches a student's purchased-course list. A nil CourseCache
// disables caching. Set must not store courses once the generation read
// before loading them has been superseded by Invalidate.
type CourseCache interface {
	Get(ctx context.Context, studentID string) ([]domain.PurchasedCourse, bool, error)
	Generation(ctx context.Context, studentID string) (int64, error)
	Set(ctx context.Context, studentID string, gen int64, courses []domain.PurchasedCourse) error
	Invalidate(ctx context.Context, studentID string) error
}

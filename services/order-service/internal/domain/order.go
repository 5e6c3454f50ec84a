package domain

import (
	"fmt"
	"strings"
	"time"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderCancelled OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

const PaymentMethodRazorpay = "razorpay"

// State is the composite of OrderStatus and PaymentStatus.
type State string

const (
	StateCreated      State = "created"   // pending/pending
	StateFinalized    State = "finalized" // confirmed/paid
	StateVoided       State = "voided"    // cancelled/failed
	StateInconsistent State = "inconsistent"
)

// Order is one purchase attempt. Buyer, instructor and course display fields
// are copies for rendering only; identities and CoursePricing are authoritative.
type Order struct {
	ID        string `gorm:"primaryKey" json:"id"`
	UserID    string `gorm:"index;not null" json:"userId"`
	UserName  string `json:"userName"`
	UserEmail string `json:"userEmail"`

	InstructorID   string `gorm:"index" json:"instructorId"`
	InstructorName string `json:"instructorName"`

	CourseID      string `gorm:"index;not null" json:"courseId"`
	CourseTitle   string `json:"courseTitle"`
	CourseImage   string `json:"courseImage"`
	CoursePricing int64  `gorm:"not null" json:"coursePricing"` // minor units
	Currency      string `gorm:"size:3" json:"currency"`

	OrderStatus   OrderStatus   `gorm:"index;not null" json:"orderStatus"`
	PaymentStatus PaymentStatus `gorm:"index;not null" json:"paymentStatus"`
	PaymentMethod string        `json:"paymentMethod"`

	GatewayOrderID   string `gorm:"uniqueIndex;not null" json:"gatewayOrderId"`
	GatewayPaymentID string `json:"gatewayPaymentId,omitempty"`
	GatewaySignature string `json:"gatewaySignature,omitempty"`

	OrderDate   time.Time  `json:"orderDate"`
	ConfirmedAt *time.Time `json:"confirmedAt,omitempty"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (o *Order) State() State {
	switch {
	case o.OrderStatus == OrderPending && o.PaymentStatus == PaymentPending:
		return StateCreated
	case o.OrderStatus == OrderConfirmed && o.PaymentStatus == PaymentPaid &&
		o.GatewayPaymentID != "" && o.GatewaySignature != "":
		return StateFinalized
	case o.OrderStatus == OrderCancelled && o.PaymentStatus == PaymentFailed:
		return StateVoided
	default:
		return StateInconsistent
	}
}

// FinalizedWith reports whether the order is Finalized by paymentRef.
func (o *Order) FinalizedWith(paymentRef string) bool {
	return o.State() == StateFinalized && o.GatewayPaymentID == paymentRef
}

// Party is a user reference with its display fields.
type Party struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Course is the course reference an order is placed for.
type Course struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Image string `json:"image"`
}

type NewOrder struct {
	Buyer    Party
	Seller   Party
	Course   Course
	Price    int64 // minor units
	Currency string
}

// Validate checks the fields a pending order cannot be created without.
func (n NewOrder) Validate() error {
	if strings.TrimSpace(n.Buyer.ID) == "" {
		return fmt.Errorf("%w: buyer id is required", ErrValidation)
	}
	if strings.TrimSpace(n.Course.ID) == "" {
		return fmt.Errorf("%w: course id is required", ErrValidation)
	}
	if n.Price <= 0 {
		return fmt.Errorf("%w: price must be a positive amount", ErrValidation)
	}
	return nil
}

// NewPendingOrder builds an order in pending/pending for a gateway order.
func NewPendingOrder(n NewOrder, gatewayOrderRef string, now time.Time) (*Order, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(gatewayOrderRef) == "" {
		return nil, fmt.Errorf("%w: gateway order reference is required", ErrValidation)
	}
	return &Order{
		UserID:         n.Buyer.ID,
		UserName:       n.Buyer.Name,
		UserEmail:      n.Buyer.Email,
		InstructorID:   n.Seller.ID,
		InstructorName: n.Seller.Name,
		CourseID:       n.Course.ID,
		CourseTitle:    n.Course.Title,
		CourseImage:    n.Course.Image,
		CoursePricing:  n.Price,
		Currency:       n.Currency,
		OrderStatus:    OrderPending,
		PaymentStatus:  PaymentPending,
		PaymentMethod:  PaymentMethodRazorpay,
		GatewayOrderID: gatewayOrderRef,
		OrderDate:      now.UTC(),
	}, nil
}

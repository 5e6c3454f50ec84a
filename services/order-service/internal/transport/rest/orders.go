package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/you/course-enrollment/services/order-service/internal/domain"
	"github.com/you/course-enrollment/services/order-service/internal/service"
)

type OrderService interface {
	Create(ctx context.Context, in domain.NewOrder) (*service.CreatedOrder, error)
	Get(ctx context.Context, id string) (*domain.Order, error)
}

type OrderFinalizer interface {
	Finalize(ctx context.Context, req service.FinalizeRequest) (*domain.Order, error)
}

type OrderHandler struct {
	orders    OrderService
	finalizer OrderFinalizer
	timeout   time.Duration
}

func NewOrderHandler(orders OrderService, finalizer OrderFinalizer, finalizeTimeout time.Duration) *OrderHandler {
	return &OrderHandler{orders: orders, finalizer: finalizer, timeout: finalizeTimeout}
}

type createOrderBody struct {
	CourseID       string `json:"courseId"`
	CourseTitle    string `json:"courseTitle"`
	CourseImage    string `json:"courseImage"`
	InstructorID   string `json:"instructorId"`
	InstructorName string `json:"instructorName"`
	Price          int64  `json:"price"` // minor units
	UserName       string `json:"userName"`
	UserEmail      string `json:"userEmail"`
}

// POST /v1/orders
func (h *OrderHandler) Create(c *gin.Context) {
	var body createOrderBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	email := body.UserEmail
	if email == "" {
		email = c.GetString("email")
	}
	out, err := h.orders.Create(c.Request.Context(), domain.NewOrder{
		// buyer identity always comes from the token
		Buyer:  domain.Party{ID: c.GetString("sub"), Name: body.UserName, Email: email},
		Seller: domain.Party{ID: body.InstructorID, Name: body.InstructorName},
		Course: domain.Course{ID: body.CourseID, Title: body.CourseTitle, Image: body.CourseImage},
		Price:  body.Price,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, out)
}

// POST /v1/orders/finalize
//
// Finalize keeps running when the client goes away; a retry after a timeout
// then sees the committed result.
func (h *OrderHandler) Finalize(c *gin.Context) {
	var req service.FinalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), h.timeout)
	defer cancel()

	o, err := h.finalizer.Finalize(ctx, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Order confirmed", "data": o})
}

// GET /v1/orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	o, err := h.orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if o.UserID != c.GetString("sub") && c.GetString("role") != RoleAdmin {
		// do not reveal other buyers' orders
		fail(c, domain.ErrNotFound)
		return
	}
	ok(c, http.StatusOK, o)
}

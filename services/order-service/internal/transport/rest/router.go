package rest

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Deps struct {
	Orders      *OrderHandler
	Enrollments *EnrollmentHandler
	Webhook     *WebhookHandler // nil disables the gateway webhook
	JWTSecret   []byte
	Log         *zap.Logger
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(d.Log))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })

	if d.Webhook != nil {
		// authenticated by the payload signature
		r.POST("/v1/webhooks/razorpay", d.Webhook.Razorpay)
	}

	v1 := r.Group("/v1")
	v1.Use(JWTAuth(d.JWTSecret))
	{
		v1.POST("/orders", d.Orders.Create)
		v1.POST("/orders/finalize", d.Orders.Finalize)
		v1.GET("/orders/:id", d.Orders.Get)

		v1.GET("/students/:id/courses", d.Enrollments.StudentCourses)
		v1.GET(
			"/courses/:id/students",
			RequireRole(RoleInstructor, RoleAdmin),
			d.Enrollments.CourseStudents,
		)
	}
	return r
}

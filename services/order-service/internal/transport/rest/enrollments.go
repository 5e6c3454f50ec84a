package rest

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/you/course-enrollment/services/order-service/internal/domain"
)

type EnrollmentReader interface {
	StudentCourses(ctx context.Context, studentID string) ([]domain.PurchasedCourse, error)
	CourseStudents(ctx context.Context, courseID string) ([]domain.EnrolledStudent, error)
}

type EnrollmentHandler struct {
	svc EnrollmentReader
}

func NewEnrollmentHandler(svc EnrollmentReader) *EnrollmentHandler {
	return &EnrollmentHandler{svc: svc}
}

// GET /v1/students/:id/courses (self or ADMIN)
func (h *EnrollmentHandler) StudentCourses(c *gin.Context) {
	id := c.Param("id")
	if id != c.GetString("sub") && c.GetString("role") != RoleAdmin {
		abort(c, http.StatusForbidden, "forbidden", "cannot read another student's courses")
		return
	}
	courses, err := h.svc.StudentCourses(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if courses == nil {
		courses = []domain.PurchasedCourse{}
	}
	ok(c, http.StatusOK, courses)
}

// GET /v1/courses/:id/students (INSTRUCTOR/ADMIN)
func (h *EnrollmentHandler) CourseStudents(c *gin.Context) {
	id := c.Param("id")
	students, err := h.svc.CourseStudents(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"courseId": id, "students": students})
}

package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/you/course-enrollment/services/order-service/internal/domain"
)

// EnrollmentSvc serves the read side of the projections.
type EnrollmentSvc struct {
	students StudentCourseStore
	rosters  CourseRosterStore
	cache    CourseCache
	log      *zap.Logger
}

func NewEnrollmentSvc(students StudentCourseStore, rosters CourseRosterStore, cache CourseCache, log *zap.Logger) *EnrollmentSvc {
	return &EnrollmentSvc{students: students, rosters: rosters, cache: cache, log: log}
}

func (s *EnrollmentSvc) StudentCourses(ctx context.Context, studentID string) ([]domain.PurchasedCourse, error) {
	if strings.TrimSpace(studentID) == "" {
		return nil, fmt.Errorf("%w: student id is required", domain.ErrValidation)
	}
	fill := s.cache != nil
	var gen int64
	if fill {
		courses, ok, err := s.cache.Get(ctx, studentID)
		if err != nil {
			s.log.Warn("read course cache", zap.String("student_id", studentID), zap.Error(err))
		} else if ok {
			return courses, nil
		}
		// the generation is taken before the store read so a purchase
		// projected meanwhile makes the fill below a no-op
		if gen, err = s.cache.Generation(ctx, studentID); err != nil {
			s.log.Warn("read course cache generation", zap.String("student_id", studentID), zap.Error(err))
			fill = false
		}
	}

	courses, err := s.students.Courses(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if fill {
		if err := s.cache.Set(ctx, studentID, gen, courses); err != nil {
			s.log.Warn("fill course cache", zap.String("student_id", studentID), zap.Error(err))
		}
	}
	return courses, nil
}

func (s *EnrollmentSvc) CourseStudents(ctx context.Context, courseID string) ([]domain.EnrolledStudent, error) {
	if strings.TrimSpace(courseID) == "" {
		return nil, fmt.Errorf("%w: course id is required", domain.ErrValidation)
	}
	return s.rosters.Students(ctx, courseID)
}

package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/you/course-enrollment/services/order-service/internal/domain"
)

// Projector writes confirmed orders into the student course lists and the
// course rosters. Every write is keyed by natural identity, so applying the
// same order again changes nothing.
type Projector struct {
	orders   OrderStore
	students StudentCourseStore
	rosters  CourseRosterStore
	cache    CourseCache
	log      *zap.Logger
}

func NewProjector(orders OrderStore, students StudentCourseStore, rosters CourseRosterStore, cache CourseCache, log *zap.Logger) *Projector {
	return &Projector{orders: orders, students: students, rosters: rosters, cache: cache, log: log}
}

// Apply runs both upserts for a Finalized order. Both are attempted even when
// one fails.
func (p *Projector) Apply(ctx context.Context, o *domain.Order) error {
	ctx, span := tracer.Start(ctx, "order.project")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", o.ID))

	if o.State() != domain.StateFinalized {
		return fmt.Errorf("%w: order %s is not finalized", domain.ErrInvalidTransition, o.ID)
	}

	var errs []error
	added, err := p.students.AddCourse(ctx, domain.PurchasedCourseFrom(o))
	if err != nil {
		errs = append(errs, err)
	} else if added {
		p.invalidate(ctx, o.UserID)
	}
	enrolled, err := p.rosters.AddStudent(ctx, domain.EnrolledStudentFrom(o))
	if err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		err := errors.Join(errs...)
		spanError(span, err)
		if !errors.Is(err, domain.ErrPersistence) {
			err = fmt.Errorf("%w: %w", domain.ErrPersistence, err)
		}
		return err
	}
	p.log.Info("projection applied",
		zap.String("order_id", o.ID),
		zap.Bool("course_added", added),
		zap.Bool("student_enrolled", enrolled))
	return nil
}

// ApplyByID reloads the order before projecting it; the stored order is the
// only trusted source of payment state.
func (p *Projector) ApplyByID(ctx context.Context, orderID string) error {
	o, err := p.orders.ByID(ctx, orderID)
	if err != nil {
		return err
	}
	return p.Apply(ctx, o)
}

func (p *Projector) invalidate(ctx context.Context, studentID string) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Invalidate(ctx, studentID); err != nil {
		p.log.Warn("invalidate course cache", zap.String("student_id", studentID), zap.Error(err))
	}
}
